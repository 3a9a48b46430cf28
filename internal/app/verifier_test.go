package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review-game-service/internal/domain"
)

func metric(v float64) *float64 { return &v }

func fullActual(date string) domain.ActualSnapshot {
	return domain.ActualSnapshot{
		Date:              date,
		LimitUpCount:      metric(60),
		RiskSectorChange:  metric(2),
		LeadSectorChange:  metric(1),
		LeadSectorInflow:  metric(15),
		EventSectorChange: metric(4),
		MarketStrength:    metric(30),
	}
}

func submitAll(t *testing.T, svc *GameService, date string, subs []SubmitRequest) {
	t.Helper()
	for _, req := range subs {
		req.Date = date
		_, err := svc.Submit(context.Background(), req)
		require.NoError(t, err)
	}
}

func TestVerifyLifecycle(t *testing.T) {
	ctx := context.Background()
	date := "2025-08-03"
	svc := newTestService(t)

	_, err := svc.Issue(ctx, date)
	require.NoError(t, err)

	submitAll(t, svc, date, []SubmitRequest{
		{UserID: "alice", Step: domain.StepMarketOverview, OptionID: "A", Confidence: 1.0},
		{UserID: "alice", Step: domain.StepRiskScan, OptionID: "B", Confidence: 0.5},
		{UserID: "alice", Step: domain.StepOpportunityScan, OptionID: "B", Confidence: 0.7},
		{UserID: "bob", Step: domain.StepMarketOverview, OptionID: "B", Confidence: 0.8},
		{UserID: "bob", Step: domain.StepRiskScan, OptionID: "A", Confidence: 0.6},
		{UserID: "bob", Step: domain.StepOpportunityScan, OptionID: "A", Confidence: 0.9},
	})

	updates, cancel := svc.Hub().Subscribe(date)
	defer cancel()

	report, err := svc.Verify(ctx, date, fullActual(date))
	require.NoError(t, err)
	assert.Equal(t, domain.DateVerified, report.State)
	assert.Equal(t, 6, report.Verified)
	assert.Equal(t, 0, report.Skipped)
	assert.Empty(t, report.Failures)
	assert.Equal(t, "A", report.CorrectOptions[domain.StepMarketOverview])
	assert.Equal(t, "A", report.CorrectOptions[domain.StepRiskScan])
	assert.Equal(t, "B", report.CorrectOptions[domain.StepOpportunityScan])

	// alice: 100 (step 1 correct at full confidence) + 8 (step 2 wrong,
	// weight 0.8) + 68 (step 3 correct on the 0.8-weight option).
	alice, err := svc.Profile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 176, alice.User.TotalScore)
	assert.Equal(t, 2, alice.User.CorrectPredictions)
	assert.Equal(t, 3, alice.User.TotalPredictions)
	assert.InDelta(t, 2.0/3.0, alice.User.AccuracyRate, 1e-9)

	// bob: 13 (wrong, weight 0.8, confidence 0.8) + 80 (correct) + 18
	// (wrong full-weight pick at confidence 0.9).
	bob, err := svc.Profile(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 111, bob.User.TotalScore)
	assert.Equal(t, 1, bob.User.CorrectPredictions)

	entries, err := svc.Leaderboard(ctx, date, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "alice", entries[0].UserID)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "bob", entries[1].UserID)

	select {
	case published := <-updates:
		require.Len(t, published, 2)
		assert.Equal(t, "alice", published[0].UserID)
	default:
		t.Fatal("expected a leaderboard publish on verification")
	}
}

func TestVerifyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	date := "2025-08-03"
	svc := newTestService(t)

	_, err := svc.Issue(ctx, date)
	require.NoError(t, err)
	submitAll(t, svc, date, []SubmitRequest{
		{UserID: "alice", Step: domain.StepMarketOverview, OptionID: "A", Confidence: 1.0},
	})

	first, err := svc.Verify(ctx, date, fullActual(date))
	require.NoError(t, err)
	assert.Equal(t, 1, first.Verified)

	// Re-running a verified date touches nothing.
	second, err := svc.Verify(ctx, date, fullActual(date))
	require.NoError(t, err)
	assert.Equal(t, domain.DateVerified, second.State)
	assert.Equal(t, 0, second.Verified)
	assert.Equal(t, 0, second.Skipped)

	alice, err := svc.Profile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 100, alice.User.TotalScore)
	assert.Equal(t, 1, alice.User.CorrectPredictions)
}

func TestVerifyMissingMetricFailsBeforeScoring(t *testing.T) {
	ctx := context.Background()
	date := "2025-08-03"
	svc := newTestService(t)

	_, err := svc.Issue(ctx, date)
	require.NoError(t, err)
	submitAll(t, svc, date, []SubmitRequest{
		{UserID: "alice", Step: domain.StepMarketOverview, OptionID: "A", Confidence: 1.0},
	})

	actual := fullActual(date)
	actual.MarketStrength = nil
	_, err = svc.Verify(ctx, date, actual)
	assert.ErrorIs(t, err, domain.ErrUnclassifiable)

	// Nothing was scored and the date is still open for a corrected run.
	alice, err := svc.Profile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, alice.User.TotalScore)
	require.Len(t, alice.RecentPredictions, 1)
	assert.False(t, alice.RecentPredictions[0].Verified())

	report, err := svc.Verify(ctx, date, fullActual(date))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Verified)
}

func TestVerifyWithoutQuestions(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Verify(context.Background(), "2025-08-03", fullActual("2025-08-03"))
	assert.ErrorIs(t, err, domain.ErrUnknownQuestion)
}

func TestIssueRefusedAfterVerification(t *testing.T) {
	ctx := context.Background()
	date := "2025-08-03"
	svc := newTestService(t)

	_, err := svc.Issue(ctx, date)
	require.NoError(t, err)
	_, err = svc.Verify(ctx, date, fullActual(date))
	require.NoError(t, err)

	_, err = svc.Issue(ctx, date)
	assert.ErrorIs(t, err, domain.ErrDateVerified)
}
