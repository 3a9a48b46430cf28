package domain

import "fmt"

// MarketSnapshot is the date-keyed bundle of market facts a provider
// hands to the question generator. Every field is optional; absent
// values fall back to the documented defaults via WithDefaults, so the
// generator stays available on partial data.
type MarketSnapshot struct {
	Date        string              `json:"date" yaml:"date"`
	Overview    OverviewFacts       `json:"marketOverview" yaml:"market_overview"`
	Risk        RiskFacts           `json:"riskScan" yaml:"risk_scan"`
	Opportunity OpportunityFacts    `json:"opportunityScan" yaml:"opportunity_scan"`
	Capital     CapitalFacts        `json:"capitalVerification" yaml:"capital_verification"`
	Logic       LogicFacts          `json:"logicCheck" yaml:"logic_check"`
	Portfolio   PortfolioFacts      `json:"portfolioGrouping" yaml:"portfolio_grouping"`
}

// OverviewFacts feeds the market-overview step. Zero counts for limit
// moves are meaningful and kept; breadth and volume default to typical
// session values when absent.
type OverviewFacts struct {
	LimitUpCount   int     `json:"limitUpCount" yaml:"limit_up_count"`
	LimitDownCount int     `json:"limitDownCount" yaml:"limit_down_count"`
	UpCount        int     `json:"upCount" yaml:"up_count"`             // default 2850
	DownCount      int     `json:"downCount" yaml:"down_count"`         // default 1650
	TotalVolume    float64 `json:"totalVolume" yaml:"total_volume"`     // CNY, default 1.15e12
	MarketPhase    string  `json:"marketPhase" yaml:"market_phase"`     // default "balance"
}

type RiskFacts struct {
	FocusSector     string  `json:"focusSector" yaml:"focus_sector"`           // default "property"
	SectorLimitDown int     `json:"sectorLimitDown" yaml:"sector_limit_down"`  // default 2
	SealedFunds     float64 `json:"sealedFunds" yaml:"sealed_funds"`           // 100M CNY, default 20.8
	SystemicRisk    string  `json:"systemicRisk" yaml:"systemic_risk"`         // default "medium"
}

type OpportunityFacts struct {
	LeadSector     string  `json:"leadSector" yaml:"lead_sector"`          // default "new energy"
	SectorLimitUps int     `json:"sectorLimitUps" yaml:"sector_limit_ups"` // default 15
	MaxStreak      int     `json:"maxStreak" yaml:"max_streak"`            // consecutive limit-up days, default 3
	SealedFunds    float64 `json:"sealedFunds" yaml:"sealed_funds"`        // 100M CNY, default 63.8
}

type CapitalFacts struct {
	InflowSector  string  `json:"inflowSector" yaml:"inflow_sector"`    // default "new energy"
	InflowAmount  float64 `json:"inflowAmount" yaml:"inflow_amount"`    // 100M CNY, default 27.9
	OutflowSector string  `json:"outflowSector" yaml:"outflow_sector"`  // default "property"
	OutflowAmount float64 `json:"outflowAmount" yaml:"outflow_amount"`  // 100M CNY, default -12.7
	FlowDirection string  `json:"flowDirection" yaml:"flow_direction"`  // default "neutral"
}

type LogicFacts struct {
	EventName   string  `json:"eventName" yaml:"event_name"`     // default "sector industry conference"
	EventSector string  `json:"eventSector" yaml:"event_sector"` // default "semiconductor"
	DaysAhead   int     `json:"daysAhead" yaml:"days_ahead"`     // default 7
	LogicScore  float64 `json:"logicScore" yaml:"logic_score"`   // 0..10, default 8.0
}

type PortfolioFacts struct {
	StrategyHint string `json:"strategyHint" yaml:"strategy_hint"` // default "rotate into sector leaders"
}

// WithDefaults returns a copy with every absent field replaced by its
// documented default. Limit-move counts keep their zero values.
func (s MarketSnapshot) WithDefaults() MarketSnapshot {
	if s.Overview.UpCount == 0 {
		s.Overview.UpCount = 2850
	}
	if s.Overview.DownCount == 0 {
		s.Overview.DownCount = 1650
	}
	if s.Overview.TotalVolume == 0 {
		s.Overview.TotalVolume = 1.15e12
	}
	if s.Overview.MarketPhase == "" {
		s.Overview.MarketPhase = "balance"
	}
	if s.Risk.FocusSector == "" {
		s.Risk.FocusSector = "property"
	}
	if s.Risk.SectorLimitDown == 0 {
		s.Risk.SectorLimitDown = 2
	}
	if s.Risk.SealedFunds == 0 {
		s.Risk.SealedFunds = 20.8
	}
	if s.Risk.SystemicRisk == "" {
		s.Risk.SystemicRisk = "medium"
	}
	if s.Opportunity.LeadSector == "" {
		s.Opportunity.LeadSector = "new energy"
	}
	if s.Opportunity.SectorLimitUps == 0 {
		s.Opportunity.SectorLimitUps = 15
	}
	if s.Opportunity.MaxStreak == 0 {
		s.Opportunity.MaxStreak = 3
	}
	if s.Opportunity.SealedFunds == 0 {
		s.Opportunity.SealedFunds = 63.8
	}
	if s.Capital.InflowSector == "" {
		s.Capital.InflowSector = "new energy"
	}
	if s.Capital.InflowAmount == 0 {
		s.Capital.InflowAmount = 27.9
	}
	if s.Capital.OutflowSector == "" {
		s.Capital.OutflowSector = "property"
	}
	if s.Capital.OutflowAmount == 0 {
		s.Capital.OutflowAmount = -12.7
	}
	if s.Capital.FlowDirection == "" {
		s.Capital.FlowDirection = "neutral"
	}
	if s.Logic.EventName == "" {
		s.Logic.EventName = "sector industry conference"
	}
	if s.Logic.EventSector == "" {
		s.Logic.EventSector = "semiconductor"
	}
	if s.Logic.DaysAhead == 0 {
		s.Logic.DaysAhead = 7
	}
	if s.Logic.LogicScore == 0 {
		s.Logic.LogicScore = 8.0
	}
	if s.Portfolio.StrategyHint == "" {
		s.Portfolio.StrategyHint = "rotate into sector leaders"
	}
	return s
}

// ActualSnapshot carries the next-day outcome metrics the verification
// engine classifies. Unlike MarketSnapshot, absent metrics are an
// error: defaulting here would silently corrupt every score for the
// date.
type ActualSnapshot struct {
	Date string `json:"date" yaml:"date"`

	LimitUpCount       *float64 `json:"limitUpCount" yaml:"limit_up_count"`
	RiskSectorChange   *float64 `json:"riskSectorChangePct" yaml:"risk_sector_change_pct"`
	LeadSectorChange   *float64 `json:"leadSectorChangePct" yaml:"lead_sector_change_pct"`
	LeadSectorInflow   *float64 `json:"leadSectorNetInflow" yaml:"lead_sector_net_inflow"`
	EventSectorChange  *float64 `json:"eventSectorWeekChangePct" yaml:"event_sector_week_change_pct"`
	MarketStrength     *float64 `json:"marketStrength" yaml:"market_strength"`
}

// Metric returns the outcome metric a step's decision rule classifies.
func (a ActualSnapshot) Metric(step Step) (float64, error) {
	var v *float64
	switch step {
	case StepMarketOverview:
		v = a.LimitUpCount
	case StepRiskScan:
		v = a.RiskSectorChange
	case StepOpportunityScan:
		v = a.LeadSectorChange
	case StepCapitalVerification:
		v = a.LeadSectorInflow
	case StepLogicCheck:
		v = a.EventSectorChange
	case StepPortfolioGrouping:
		v = a.MarketStrength
	default:
		return 0, fmt.Errorf("%w: unknown step %d", ErrUnclassifiable, int(step))
	}
	if v == nil {
		return 0, fmt.Errorf("%w: actual snapshot missing %s metric", ErrUnclassifiable, step)
	}
	return *v, nil
}
