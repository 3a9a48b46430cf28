package app

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review-game-service/internal/domain"
)

func TestGenerateProducesAllSteps(t *testing.T) {
	gen := NewGenerator()
	questions := gen.Generate("2025-08-03", domain.MarketSnapshot{})

	require.Len(t, questions, domain.StepCount)
	for i, q := range questions {
		step := domain.Step(i + 1)
		assert.Equal(t, fmt.Sprintf("2025-08-03_step%d", i+1), q.ID)
		assert.Equal(t, "2025-08-03", q.Date)
		assert.Equal(t, step, q.Step)
		assert.NotEmpty(t, q.Prompt)
		assert.NotEmpty(t, q.Commentary)
		require.NotEmpty(t, q.Options)
		for _, opt := range q.Options {
			assert.NotEmpty(t, opt.ID)
			assert.NotEmpty(t, opt.Text)
			assert.Greater(t, opt.Weight, 0.0)
			assert.LessOrEqual(t, opt.Weight, 1.0)
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	gen := NewGenerator()
	snapshot := domain.MarketSnapshot{
		Overview: domain.OverviewFacts{LimitUpCount: 42, MarketPhase: "euphoria"},
		Risk:     domain.RiskFacts{FocusSector: "property", SectorLimitDown: 5},
	}
	first := gen.Generate("2025-08-03", snapshot)
	second := gen.Generate("2025-08-03", snapshot)
	assert.Equal(t, first, second)
}

func TestGenerateDefaultsOnEmptySnapshot(t *testing.T) {
	gen := NewGenerator()
	questions := gen.Generate("2025-08-03", domain.MarketSnapshot{})

	// Absent breadth falls back to the documented defaults; zero limit
	// moves are meaningful and kept.
	overview := questions[0]
	assert.Contains(t, overview.Prompt, "2850 advancers")
	assert.Contains(t, overview.Prompt, "0 limit-ups")
	assert.Contains(t, overview.Prompt, "balance")

	risk := questions[1]
	assert.Contains(t, risk.Prompt, "property")
}

func TestGenerateWeightsTrackPosture(t *testing.T) {
	gen := NewGenerator()

	hot := domain.MarketSnapshot{Overview: domain.OverviewFacts{MarketPhase: "frenzy", LimitUpCount: 45}}
	cold := domain.MarketSnapshot{Overview: domain.OverviewFacts{MarketPhase: "panic", LimitUpCount: 3}}

	hotQ := gen.Generate("2025-08-03", hot)[domain.StepPortfolioGrouping-1]
	coldQ := gen.Generate("2025-08-03", cold)[domain.StepPortfolioGrouping-1]

	hotA, ok := hotQ.Option("A")
	require.True(t, ok)
	coldC, ok := coldQ.Option("C")
	require.True(t, ok)
	assert.Equal(t, 1.0, hotA.Weight, "aggressive should be the top pick in a hot tape")
	assert.Equal(t, 1.0, coldC.Weight, "conservative should be the top pick in a cold tape")
}
