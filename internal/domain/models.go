package domain

import (
	"fmt"
	"time"
)

// Step identifies one of the six fixed stages of the daily review
// method. Each step yields exactly one question per trading day.
type Step int

const (
	StepMarketOverview Step = iota + 1
	StepRiskScan
	StepOpportunityScan
	StepCapitalVerification
	StepLogicCheck
	StepPortfolioGrouping

	StepCount = 6
)

func (s Step) Valid() bool {
	return s >= StepMarketOverview && s <= StepPortfolioGrouping
}

func (s Step) String() string {
	switch s {
	case StepMarketOverview:
		return "market_overview"
	case StepRiskScan:
		return "risk_scan"
	case StepOpportunityScan:
		return "opportunity_scan"
	case StepCapitalVerification:
		return "capital_verification"
	case StepLogicCheck:
		return "logic_check"
	case StepPortfolioGrouping:
		return "portfolio_grouping"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// QuestionID returns the canonical question identifier for a date and
// step, e.g. "2025-08-03_step1".
func QuestionID(date string, step Step) string {
	return fmt.Sprintf("%s_step%d", date, int(step))
}

// Option is one possible answer for a question. Weight grades the
// option's intrinsic quality in (0,1], independent of whether it turns
// out correct.
type Option struct {
	ID     string  `json:"id"`
	Text   string  `json:"text"`
	Weight float64 `json:"scoreWeight"`
}

// Question is a single forecasting question issued for a (date, step).
// Prompt and Commentary are opaque content. Source keeps the snapshot
// payload the question was built from, for audit.
type Question struct {
	ID            string   `json:"id"`
	Date          string   `json:"date"`
	Step          Step     `json:"step"`
	Prompt        string   `json:"prompt"`
	Options       []Option `json:"options"`
	Commentary    string   `json:"commentary,omitempty"`
	Source        []byte   `json:"-"`
	CorrectOption string   `json:"correctOption,omitempty"`
}

// Option returns the option with the given id, if present.
func (q Question) Option(id string) (Option, bool) {
	for _, opt := range q.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return Option{}, false
}

// PredictionKey identifies one user's answer to one question.
type PredictionKey struct {
	UserID     string
	Date       string
	QuestionID string
}

// Prediction is a user submission. IsCorrect and ScoreEarned stay nil
// until next-day verification and are set together, at most once.
type Prediction struct {
	ReceiptID   string    `json:"receiptId"`
	UserID      string    `json:"userId"`
	Date        string    `json:"date"`
	QuestionID  string    `json:"questionId"`
	Step        Step      `json:"step"`
	OptionID    string    `json:"optionId"`
	Confidence  float64   `json:"confidence"`
	IsCorrect   *bool     `json:"isCorrect"`
	ScoreEarned *int      `json:"scoreEarned"`
	SubmittedAt time.Time `json:"submittedAt"`
}

func (p Prediction) Key() PredictionKey {
	return PredictionKey{UserID: p.UserID, Date: p.Date, QuestionID: p.QuestionID}
}

// Verified reports whether the prediction has a recorded outcome.
func (p Prediction) Verified() bool {
	return p.IsCorrect != nil
}

// User holds cumulative counters, mutated only by post-verification
// aggregation (submission bumps TotalPredictions only).
type User struct {
	ID                 string    `json:"userId"`
	DisplayName        string    `json:"displayName"`
	TotalPredictions   int       `json:"totalPredictions"`
	CorrectPredictions int       `json:"correctPredictions"`
	AccuracyRate       float64   `json:"accuracyRate"`
	TotalScore         int       `json:"totalScore"`
	Level              int       `json:"level"`
	CreatedAt          time.Time `json:"createdAt"`
}

// LevelForScore maps a cumulative score to a user level. One level per
// 500 points, starting at 1, capped at 10.
func LevelForScore(totalScore int) int {
	level := 1 + totalScore/500
	if level > 10 {
		level = 10
	}
	return level
}

// LeaderboardEntry is a derived, rebuildable ranking row for one date.
type LeaderboardEntry struct {
	Date              string  `json:"date"`
	UserID            string  `json:"userId"`
	DisplayName       string  `json:"displayName,omitempty"`
	Rank              int     `json:"rank"`
	DailyScore        int     `json:"dailyScore"`
	DailyAccuracy     float64 `json:"dailyAccuracy"`
	QuestionsAnswered int     `json:"questionsAnswered"`
}

// AllTimeEntry is a ranking row over cumulative user counters.
type AllTimeEntry struct {
	Rank             int     `json:"rank"`
	UserID           string  `json:"userId"`
	DisplayName      string  `json:"displayName,omitempty"`
	TotalScore       int     `json:"totalScore"`
	AccuracyRate     float64 `json:"accuracyRate"`
	TotalPredictions int     `json:"totalPredictions"`
	Level            int     `json:"level"`
}

// DateState tracks the verification lifecycle of one trading day.
type DateState string

const (
	DateOpen      DateState = "open"
	DateVerifying DateState = "verifying"
	DateVerified  DateState = "verified"
)

// RankingRecord is a user's historical placement on one date, for the
// profile view.
type RankingRecord struct {
	Date          string  `json:"date"`
	Rank          int     `json:"rank"`
	DailyScore    int     `json:"dailyScore"`
	DailyAccuracy float64 `json:"dailyAccuracy"`
}
