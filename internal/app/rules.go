package app

import (
	"fmt"

	"review-game-service/internal/domain"
)

// Rule is one step's verification decision rule. Thresholds are
// strictly descending and one shorter than Options: an actual value
// strictly above Thresholds[i] classifies as Options[i], and anything
// at or below the last threshold classifies as the final option. The
// mapping is contiguous and exhaustive over the reals by construction.
type Rule struct {
	Step       domain.Step
	Thresholds []float64
	Options    []string
}

// Classify maps an actual outcome value to an option id.
func (r Rule) Classify(v float64) (string, error) {
	if len(r.Options) != len(r.Thresholds)+1 {
		return "", fmt.Errorf("%w: rule for %s has %d options for %d thresholds",
			domain.ErrUnclassifiable, r.Step, len(r.Options), len(r.Thresholds))
	}
	for i, t := range r.Thresholds {
		if v > t {
			return r.Options[i], nil
		}
	}
	return r.Options[len(r.Options)-1], nil
}

// RuleSet holds one rule per review step.
type RuleSet map[domain.Step]Rule

// Validate checks structural soundness of every rule: descending
// thresholds, option count, and ids that exist as question options.
func (rs RuleSet) Validate() error {
	for step := domain.StepMarketOverview; step <= domain.StepPortfolioGrouping; step++ {
		rule, ok := rs[step]
		if !ok {
			return fmt.Errorf("no decision rule for step %s", step)
		}
		if len(rule.Options) < 2 {
			return fmt.Errorf("rule for %s needs at least 2 options", step)
		}
		if len(rule.Options) != len(rule.Thresholds)+1 {
			return fmt.Errorf("rule for %s: %d options do not fit %d thresholds",
				step, len(rule.Options), len(rule.Thresholds))
		}
		seen := make(map[string]struct{}, len(rule.Options))
		for _, id := range rule.Options {
			if id == "" {
				return fmt.Errorf("rule for %s has an empty option id", step)
			}
			if _, dup := seen[id]; dup {
				return fmt.Errorf("rule for %s repeats option %q", step, id)
			}
			seen[id] = struct{}{}
		}
		for i := 1; i < len(rule.Thresholds); i++ {
			if rule.Thresholds[i] >= rule.Thresholds[i-1] {
				return fmt.Errorf("rule for %s: thresholds must be strictly descending", step)
			}
		}
	}
	return nil
}

// DefaultRules returns the shipped per-step thresholds. Step 1 follows
// the historical limit-up buckets; the other steps classify next-day
// sector moves and flows. All of them are meant to be overridden from
// config as the verification criteria get tuned.
func DefaultRules() RuleSet {
	return RuleSet{
		// Actual limit-up count: >50 euphoric, >30 steady, >15 cooling,
		// else turning cold.
		domain.StepMarketOverview: {
			Step:       domain.StepMarketOverview,
			Thresholds: []float64{50, 30, 15},
			Options:    []string{"A", "B", "C", "D"},
		},
		// Stressed sector next-day change (%): >1 rebound, >-1 flat,
		// >-5 further decline, else cascade.
		domain.StepRiskScan: {
			Step:       domain.StepRiskScan,
			Thresholds: []float64{1, -1, -5},
			Options:    []string{"A", "B", "C", "D"},
		},
		// Leading sector next-day change (%): >2 continuation, >0
		// choppy, >-3 pullback, else reversal.
		domain.StepOpportunityScan: {
			Step:       domain.StepOpportunityScan,
			Thresholds: []float64{2, 0, -3},
			Options:    []string{"A", "B", "C", "D"},
		},
		// Leading sector net inflow (100M CNY): >10 keeps leading, >0
		// rotation within growth, >-10 rotation to defensives, else
		// broad outflow.
		domain.StepCapitalVerification: {
			Step:       domain.StepCapitalVerification,
			Thresholds: []float64{10, 0, -10},
			Options:    []string{"A", "B", "C", "D"},
		},
		// Event sector change over the week (%): >3 event sector leads,
		// >0 mixed with growth ahead, >-3 laggard, else event priced in.
		domain.StepLogicCheck: {
			Step:       domain.StepLogicCheck,
			Thresholds: []float64{3, 0, -3},
			Options:    []string{"A", "B", "C", "D"},
		},
		// Market strength (limit-ups minus limit-downs next day): >25
		// aggressive worked, >5 balanced worked, >-10 defensive worked,
		// else staying out worked.
		domain.StepPortfolioGrouping: {
			Step:       domain.StepPortfolioGrouping,
			Thresholds: []float64{25, 5, -10},
			Options:    []string{"A", "B", "C", "D"},
		},
	}
}

// Override replaces one step's rule with configured thresholds. Empty
// options keep the step's current option ids.
func (rs RuleSet) Override(stepNum int, thresholds []float64, options []string) error {
	step := domain.Step(stepNum)
	if !step.Valid() {
		return fmt.Errorf("rule override for invalid step %d", stepNum)
	}
	rule := Rule{Step: step, Thresholds: thresholds, Options: options}
	if len(rule.Options) == 0 {
		rule.Options = rs[step].Options
	}
	rs[step] = rule
	return nil
}
