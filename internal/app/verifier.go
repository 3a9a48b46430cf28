package app

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"review-game-service/internal/domain"
	"review-game-service/internal/metrics"
)

// VerifyFailure records one prediction (or user aggregate) the batch
// could not process. Failures never abort the rest of the batch.
type VerifyFailure struct {
	UserID     string `json:"userId"`
	QuestionID string `json:"questionId,omitempty"`
	Reason     string `json:"reason"`
}

// VerifyReport summarizes one verification run.
type VerifyReport struct {
	Date           string                 `json:"date"`
	State          domain.DateState       `json:"state"`
	Verified       int                    `json:"verified"`
	Skipped        int                    `json:"skipped"`
	Failures       []VerifyFailure        `json:"failures,omitempty"`
	CorrectOptions map[domain.Step]string `json:"correctOptions,omitempty"`
}

// Verify runs next-day verification for a date. Safe to call
// repeatedly: a Verified date is a no-op, and a retried run only picks
// up predictions whose outcome is still null. The correct option for
// every step is derived before any prediction is touched, so a
// classification defect fails loudly without scoring anything.
func (s *GameService) Verify(ctx context.Context, date string, actual domain.ActualSnapshot) (VerifyReport, error) {
	if err := validateDate(date); err != nil {
		return VerifyReport{}, err
	}

	mu := s.dateMu(date)
	mu.Lock()
	defer mu.Unlock()

	report := VerifyReport{Date: date}

	state, err := s.store.DateState(ctx, date)
	if err != nil {
		return report, err
	}
	if state == domain.DateVerified {
		report.State = domain.DateVerified
		return report, nil
	}

	questions, err := s.store.Questions(ctx, date)
	if err != nil {
		return report, err
	}
	if len(questions) == 0 {
		return report, fmt.Errorf("%w: no questions issued for %s", domain.ErrUnknownQuestion, date)
	}

	correct, err := s.deriveCorrectOptions(questions, actual)
	if err != nil {
		return report, err
	}
	report.CorrectOptions = correct

	if err := s.store.SetDateState(ctx, date, domain.DateVerifying); err != nil {
		return report, err
	}
	for _, q := range questions {
		if err := s.store.SetCorrectOption(ctx, q.ID, correct[q.Step]); err != nil {
			return report, err
		}
	}

	pending, err := s.store.PendingPredictions(ctx, date)
	if err != nil {
		return report, err
	}

	// Each prediction is an independent transaction; a crash mid-run
	// leaves already-processed rows marked and a retry resumes via the
	// AlreadyVerified guard.
	type delta struct{ correct, score int }
	deltas := make(map[string]*delta)
	optionsByQuestion := make(map[string][]domain.Option, len(questions))
	stepByQuestion := make(map[string]domain.Step, len(questions))
	for _, q := range questions {
		optionsByQuestion[q.ID] = q.Options
		stepByQuestion[q.ID] = q.Step
	}

	for _, p := range pending {
		step, ok := stepByQuestion[p.QuestionID]
		if !ok {
			report.Failures = append(report.Failures, VerifyFailure{
				UserID: p.UserID, QuestionID: p.QuestionID, Reason: "prediction references unissued question",
			})
			continue
		}
		isCorrect := p.OptionID == correct[step]
		score := Score(p.OptionID, correct[step], p.Confidence, optionsByQuestion[p.QuestionID])

		if err := s.store.MarkVerified(ctx, p.Key(), isCorrect, score); err != nil {
			if errors.Is(err, domain.ErrAlreadyVerified) {
				report.Skipped++
				continue
			}
			report.Failures = append(report.Failures, VerifyFailure{
				UserID: p.UserID, QuestionID: p.QuestionID, Reason: err.Error(),
			})
			continue
		}
		report.Verified++
		metrics.PredictionsVerified.WithLabelValues(resultLabel(isCorrect)).Inc()

		d := deltas[p.UserID]
		if d == nil {
			d = &delta{}
			deltas[p.UserID] = d
		}
		if isCorrect {
			d.correct++
		}
		d.score += score
	}

	// Aggregate deltas only for predictions this run marked, so each
	// prediction contributes to the counters exactly once across
	// retries.
	userIDs := make([]string, 0, len(deltas))
	for id := range deltas {
		userIDs = append(userIDs, id)
	}
	sort.Strings(userIDs)
	for _, userID := range userIDs {
		d := deltas[userID]
		if err := s.store.ApplyUserStats(ctx, userID, d.correct, d.score); err != nil {
			report.Failures = append(report.Failures, VerifyFailure{UserID: userID, Reason: err.Error()})
		}
	}

	if err := s.rebuildLeaderboard(ctx, date); err != nil {
		return report, err
	}

	if err := s.store.SetDateState(ctx, date, domain.DateVerified); err != nil {
		return report, err
	}
	report.State = domain.DateVerified

	log.Info().
		Str("date", date).
		Int("verified", report.Verified).
		Int("skipped", report.Skipped).
		Int("failures", len(report.Failures)).
		Msg("verification run complete")
	return report, nil
}

// deriveCorrectOptions classifies the actual snapshot for every issued
// question. Any failure here is a defect, raised before scoring.
func (s *GameService) deriveCorrectOptions(questions []domain.Question, actual domain.ActualSnapshot) (map[domain.Step]string, error) {
	correct := make(map[domain.Step]string, len(questions))
	for _, q := range questions {
		rule, ok := s.rules[q.Step]
		if !ok {
			return nil, fmt.Errorf("%w: no rule for step %s", domain.ErrUnclassifiable, q.Step)
		}
		value, err := actual.Metric(q.Step)
		if err != nil {
			return nil, err
		}
		optionID, err := rule.Classify(value)
		if err != nil {
			return nil, err
		}
		if _, ok := q.Option(optionID); !ok {
			return nil, fmt.Errorf("%w: rule for %s picked option %q the question does not carry",
				domain.ErrUnclassifiable, q.Step, optionID)
		}
		correct[q.Step] = optionID
	}
	return correct, nil
}

// rebuildLeaderboard replaces the date's ranking from its verified
// predictions and fans the fresh board out to stream subscribers.
// Callers hold the date mutex.
func (s *GameService) rebuildLeaderboard(ctx context.Context, date string) error {
	all, err := s.store.PredictionsByDate(ctx, date)
	if err != nil {
		return err
	}
	entries := BuildLeaderboard(date, all)
	if err := s.store.ReplaceLeaderboard(ctx, date, entries); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Put(ctx, date, entries); err != nil {
			log.Warn().Err(err).Str("date", date).Msg("leaderboard cache put failed")
		}
	}
	s.hub.Publish(date, entries)
	return nil
}

func resultLabel(correct bool) string {
	if correct {
		return "correct"
	}
	return "incorrect"
}
