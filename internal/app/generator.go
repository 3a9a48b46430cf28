package app

import (
	"encoding/json"
	"fmt"

	"review-game-service/internal/domain"
)

// Generator turns one day's market snapshot into the fixed ordered set
// of six questions, one per review step. Generation is deterministic:
// identical snapshots produce identical questions.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate builds all six questions for the date. Missing snapshot
// fields are replaced by documented defaults, never an error.
func (g *Generator) Generate(date string, snapshot domain.MarketSnapshot) []domain.Question {
	s := snapshot.WithDefaults()
	return []domain.Question{
		g.marketOverview(date, s),
		g.riskScan(date, s),
		g.opportunityScan(date, s),
		g.capitalVerification(date, s),
		g.logicCheck(date, s),
		g.portfolioGrouping(date, s),
	}
}

func (g *Generator) marketOverview(date string, s domain.MarketSnapshot) domain.Question {
	o := s.Overview
	total := o.UpCount + o.DownCount
	upRatio := 50.0
	if total > 0 {
		upRatio = float64(o.UpCount) / float64(total) * 100
	}
	volumeB := o.TotalVolume / 1e8

	prompt := fmt.Sprintf(
		"Today: %d limit-ups, %d limit-downs, %d advancers vs %d decliners, turnover %.0f * 100M CNY. Market phase: %s. Where does overall sentiment go tomorrow?",
		o.LimitUpCount, o.LimitDownCount, o.UpCount, o.DownCount, volumeB, o.MarketPhase)

	commentary := fmt.Sprintf(
		"Breadth %.1f%% advancing against %.1f%% declining. %d limit-ups put the session in the %s phase; sentiment tends to lag price, so tomorrow's limit-up count is the tell.",
		upRatio, 100-upRatio, o.LimitUpCount, o.MarketPhase)

	return question(date, domain.StepMarketOverview, prompt, commentary, o, []domain.Option{
		{ID: "A", Text: "Sentiment heats up further, limit-up count grows", Weight: 1.0},
		{ID: "B", Text: "Sentiment holds steady, limit-up count flat", Weight: 0.8},
		{ID: "C", Text: "Sentiment starts cooling, limit-up count shrinks", Weight: 0.6},
		{ID: "D", Text: "Sentiment turns cold, market rolls into a correction", Weight: 0.4},
	})
}

func (g *Generator) riskScan(date string, s domain.MarketSnapshot) domain.Question {
	r := s.Risk
	prompt := fmt.Sprintf(
		"Risk scan: the %s sector took the biggest hit with %d limit-downs and %.1f * 100M CNY sealed at the floor. How does the sector trade tomorrow?",
		r.FocusSector, r.SectorLimitDown, r.SealedFunds)

	commentary := fmt.Sprintf(
		"Systemic risk reads %s. Heavy sealed limit-downs mark determined selling and rarely reverse in a day, but an overshoot sets up a technical bounce when the sector's fundamentals are intact.",
		r.SystemicRisk)

	return question(date, domain.StepRiskScan, prompt, commentary, r, []domain.Option{
		{ID: "A", Text: fmt.Sprintf("Panic overdone, %s bounces technically", r.FocusSector), Weight: 1.0},
		{ID: "B", Text: fmt.Sprintf("Still under pressure, %s drifts sideways", r.FocusSector), Weight: 0.8},
		{ID: "C", Text: fmt.Sprintf("Panic spreads, %s keeps falling", r.FocusSector), Weight: 0.6},
		{ID: "D", Text: fmt.Sprintf("Cascade risk, %s hits broad limit-downs", r.FocusSector), Weight: 0.4},
	})
}

func (g *Generator) opportunityScan(date string, s domain.MarketSnapshot) domain.Question {
	o := s.Opportunity
	prompt := fmt.Sprintf(
		"Opportunity scan: %s leads with %d limit-ups, a %d-day streak at the top, and %.1f * 100M CNY sealed. What does the sector do tomorrow?",
		o.LeadSector, o.SectorLimitUps, o.MaxStreak, o.SealedFunds)

	commentary := fmt.Sprintf(
		"Large sealed limit-ups show determined buying and streaks of %d days usually carry two to three days of inertia. Watch for fresh money taking over versus distribution at the highs.",
		o.MaxStreak)

	return question(date, domain.StepOpportunityScan, prompt, commentary, o, []domain.Option{
		{ID: "A", Text: "Strength continues, the sector climbs again", Weight: 1.0},
		{ID: "B", Text: "Choppy at the highs, mixed closes", Weight: 0.8},
		{ID: "C", Text: "Profit taking, a measured pullback", Weight: 0.6},
		{ID: "D", Text: "Top is in, a sharp correction", Weight: 0.4},
	})
}

func (g *Generator) capitalVerification(date string, s domain.MarketSnapshot) domain.Question {
	c := s.Capital
	prompt := fmt.Sprintf(
		"Capital check: %s drew %+.1f while %s bled %+.1f (100M CNY). Overall flow reads %s. Where does money rank tomorrow, strongest first?",
		c.InflowSector, c.InflowAmount, c.OutflowSector, c.OutflowAmount, c.FlowDirection)

	commentary := "Flows are the smart money's vote. An inflow streak of two or three days confirms a trend; new-economy inflows paired with old-economy outflows are classic rotation."

	return question(date, domain.StepCapitalVerification, prompt, commentary, c, []domain.Option{
		{ID: "A", Text: fmt.Sprintf("%s keeps leading, %s keeps bleeding", c.InflowSector, c.OutflowSector), Weight: 1.0},
		{ID: "B", Text: "Rotation inside growth, leadership hands over", Weight: 0.9},
		{ID: "C", Text: fmt.Sprintf("Defensives reclaim flows, %s stabilizes", c.OutflowSector), Weight: 0.6},
		{ID: "D", Text: "Broad outflows, money leaves the market", Weight: 0.4},
	})
}

func (g *Generator) logicCheck(date string, s domain.MarketSnapshot) domain.Question {
	l := s.Logic
	prompt := fmt.Sprintf(
		"Logic check: %s is %d days out and the %s sector scores %.1f/10 on thesis strength. How does the sector trade into the event over the next week?",
		l.EventName, l.DaysAhead, l.EventSector, l.LogicScore)

	commentary := fmt.Sprintf(
		"Seven to ten days before a major event is the accumulation window; the final three days are the acceleration phase. Event day itself is often the sentiment peak, so mind the sell-the-news risk in %s.",
		l.EventSector)

	return question(date, domain.StepLogicCheck, prompt, commentary, l, []domain.Option{
		{ID: "A", Text: fmt.Sprintf("%s leads the tape into the event", l.EventSector), Weight: 1.0},
		{ID: "B", Text: "Mixed week, growth names stay ahead", Weight: 0.8},
		{ID: "C", Text: fmt.Sprintf("%s lags, event already priced", l.EventSector), Weight: 0.7},
		{ID: "D", Text: "Event fades, sector gives back the run-up", Weight: 0.5},
	})
}

func (g *Generator) portfolioGrouping(date string, s domain.MarketSnapshot) domain.Question {
	o := s.Overview
	score, appetite, position := marketPosture(o.MarketPhase, o.LimitUpCount)

	prompt := fmt.Sprintf(
		"Review composite scores %.1f/10 in the %s phase, suggesting a %s book. Which strategy wins tomorrow?",
		score, o.MarketPhase, position)

	commentary := fmt.Sprintf(
		"Grouping rule: core holdings for the long thesis, high-beta names for event swings, cash as the shock absorber. Current posture reads %s with a %s position. %s.",
		appetite, position, s.Portfolio.StrategyHint)

	// Option quality tracks how well each strategy fits the posture
	// read from the snapshot, so the weights move with the phase.
	weightA, weightB, weightC, weightD := 0.7, 0.8, 0.6, 0.8
	switch appetite {
	case "aggressive":
		weightA = 1.0
	case "steady", "neutral":
		weightB = 1.0
	case "conservative":
		weightC = 1.0
	}
	if score > 6 {
		weightD = 0.5
	}

	return question(date, domain.StepPortfolioGrouping, prompt, commentary, s.Portfolio, []domain.Option{
		{ID: "A", Text: "Aggressive: concentrate in the leading growth sectors", Weight: weightA},
		{ID: "B", Text: "Balanced: spread across the core themes", Weight: weightB},
		{ID: "C", Text: "Conservative: light book of quality leaders plus cash", Weight: weightC},
		{ID: "D", Text: "Stand aside: full cash until the signal clears", Weight: weightD},
	})
}

// marketPosture maps the phase and limit-up count to a composite score
// and position sizing stance.
func marketPosture(phase string, limitUps int) (score float64, appetite, position string) {
	switch {
	case (phase == "frenzy" || phase == "euphoria") && limitUps > 30:
		return 8.5, "aggressive", "heavy"
	case phase == "balance" && limitUps > 20:
		return 7.0, "steady", "half"
	case phase == "downturn" || phase == "panic":
		return 4.5, "conservative", "light"
	default:
		return 6.0, "neutral", "balanced"
	}
}

func question(date string, step domain.Step, prompt, commentary string, source any, options []domain.Option) domain.Question {
	payload, _ := json.Marshal(source)
	return domain.Question{
		ID:         domain.QuestionID(date, step),
		Date:       date,
		Step:       step,
		Prompt:     prompt,
		Options:    options,
		Commentary: commentary,
		Source:     payload,
	}
}
