package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"review-game-service/internal/domain"
	"review-game-service/internal/metrics"
)

// PredictionStore is the durable record of issued questions, user
// submissions, and aggregate stats. Implementations must serialize
// mutations per affected row; Submit and MarkVerified carry the
// uniqueness and exactly-once guards.
type PredictionStore interface {
	IssueQuestions(ctx context.Context, questions []domain.Question) error
	Questions(ctx context.Context, date string) ([]domain.Question, error)
	Question(ctx context.Context, questionID string) (domain.Question, error)
	SetCorrectOption(ctx context.Context, questionID, optionID string) error

	Submit(ctx context.Context, p domain.Prediction) error
	PendingPredictions(ctx context.Context, date string) ([]domain.Prediction, error)
	PredictionsByDate(ctx context.Context, date string) ([]domain.Prediction, error)
	MarkVerified(ctx context.Context, key domain.PredictionKey, correct bool, score int) error

	EnsureUser(ctx context.Context, userID, displayName string) error
	ApplyUserStats(ctx context.Context, userID string, correctDelta, scoreDelta int) error
	User(ctx context.Context, userID string) (domain.User, error)
	Users(ctx context.Context) ([]domain.User, error)

	ReplaceLeaderboard(ctx context.Context, date string, entries []domain.LeaderboardEntry) error
	Leaderboard(ctx context.Context, date string, top int) ([]domain.LeaderboardEntry, error)
	RecentPredictions(ctx context.Context, userID string, limit int) ([]domain.Prediction, error)
	RecentRankings(ctx context.Context, userID string, limit int) ([]domain.RankingRecord, error)

	DateState(ctx context.Context, date string) (domain.DateState, error)
	SetDateState(ctx context.Context, date string, state domain.DateState) error
}

// MarketDataProvider supplies the date-keyed snapshot the generator
// consumes. The core never blocks on network I/O itself; providers
// hand in already-resolved values.
type MarketDataProvider interface {
	Snapshot(ctx context.Context, date string) (domain.MarketSnapshot, error)
}

// LeaderboardCache is an optional read-through cache in front of the
// store's leaderboard queries.
type LeaderboardCache interface {
	Put(ctx context.Context, date string, entries []domain.LeaderboardEntry) error
	Get(ctx context.Context, date string) ([]domain.LeaderboardEntry, bool, error)
}

// GameService wires the prediction lifecycle: issuance, intake,
// verification, scoring, leaderboards.
type GameService struct {
	store    PredictionStore
	provider MarketDataProvider
	gen      *Generator
	rules    RuleSet
	cache    LeaderboardCache
	hub      *Hub

	mu      sync.Mutex
	dateMus map[string]*sync.Mutex
}

func NewGameService(store PredictionStore, provider MarketDataProvider, rules RuleSet, cache LeaderboardCache) *GameService {
	return &GameService{
		store:    store,
		provider: provider,
		gen:      NewGenerator(),
		rules:    rules,
		cache:    cache,
		hub:      NewHub(),
		dateMus:  make(map[string]*sync.Mutex),
	}
}

// Hub exposes the leaderboard stream hub for transport subscriptions.
func (s *GameService) Hub() *Hub {
	return s.hub
}

// dateMu returns the per-date mutex serializing verification and
// leaderboard rebuilds for one date. Other dates proceed concurrently.
func (s *GameService) dateMu(date string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	mu, ok := s.dateMus[date]
	if !ok {
		mu = &sync.Mutex{}
		s.dateMus[date] = mu
	}
	return mu
}

// Issue fetches the date's snapshot, generates the six questions and
// upserts them. Refused once the date has verified predictions, so
// regeneration can never invalidate scored history.
func (s *GameService) Issue(ctx context.Context, date string) ([]domain.Question, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	state, err := s.store.DateState(ctx, date)
	if err != nil {
		return nil, err
	}
	if state == domain.DateVerified {
		return nil, domain.ErrDateVerified
	}

	snapshot, err := s.provider.Snapshot(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot for %s: %w", date, err)
	}
	questions := s.gen.Generate(date, snapshot)
	if err := s.store.IssueQuestions(ctx, questions); err != nil {
		return nil, err
	}
	metrics.QuestionsIssued.Add(float64(len(questions)))
	log.Info().Str("date", date).Int("questions", len(questions)).Msg("questions issued")
	return questions, nil
}

// Questions returns the issued question set for a date.
func (s *GameService) Questions(ctx context.Context, date string) ([]domain.Question, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	return s.store.Questions(ctx, date)
}

// SubmitRequest is one user's answer to one issued question.
type SubmitRequest struct {
	UserID      string
	DisplayName string
	Date        string
	Step        domain.Step
	OptionID    string
	Confidence  float64
}

// SubmitResult reports the stored receipt. Duplicate is set when the
// user had already answered the question; the prior row is untouched
// and nothing changed.
type SubmitResult struct {
	ReceiptID  string `json:"receiptId,omitempty"`
	QuestionID string `json:"questionId"`
	Duplicate  bool   `json:"duplicate"`
}

// Submit validates and records a prediction. Submissions are
// append-only; only the user's total-submission counter moves.
func (s *GameService) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	if err := validateDate(req.Date); err != nil {
		return SubmitResult{}, err
	}
	if req.Confidence < 0 || req.Confidence > 1 {
		return SubmitResult{}, domain.ErrInvalidConfidence
	}
	if !req.Step.Valid() {
		return SubmitResult{}, fmt.Errorf("%w: step %d", domain.ErrUnknownQuestion, int(req.Step))
	}

	questionID := domain.QuestionID(req.Date, req.Step)
	question, err := s.store.Question(ctx, questionID)
	if err != nil {
		return SubmitResult{}, err
	}
	if _, ok := question.Option(req.OptionID); !ok {
		return SubmitResult{}, fmt.Errorf("%w: %q", domain.ErrInvalidOption, req.OptionID)
	}

	name := req.DisplayName
	if name == "" {
		name = "player-" + tail(req.UserID, 4)
	}
	if err := s.store.EnsureUser(ctx, req.UserID, name); err != nil {
		return SubmitResult{}, err
	}

	prediction := domain.Prediction{
		ReceiptID:   uuid.NewString(),
		UserID:      req.UserID,
		Date:        req.Date,
		QuestionID:  questionID,
		Step:        req.Step,
		OptionID:    req.OptionID,
		Confidence:  req.Confidence,
		SubmittedAt: time.Now().UTC(),
	}
	if err := s.store.Submit(ctx, prediction); err != nil {
		if err == domain.ErrDuplicateSubmission {
			return SubmitResult{QuestionID: questionID, Duplicate: true}, domain.ErrDuplicateSubmission
		}
		return SubmitResult{}, err
	}
	metrics.PredictionsSubmitted.Inc()
	return SubmitResult{ReceiptID: prediction.ReceiptID, QuestionID: questionID}, nil
}

// Leaderboard returns the date's ranking, read through the cache when
// one is configured.
func (s *GameService) Leaderboard(ctx context.Context, date string, top int) ([]domain.LeaderboardEntry, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	if s.cache != nil {
		if entries, ok, err := s.cache.Get(ctx, date); err == nil && ok {
			return trimEntries(entries, top), nil
		}
	}
	entries, err := s.store.Leaderboard(ctx, date, 0)
	if err != nil {
		return nil, err
	}
	if s.cache != nil && len(entries) > 0 {
		if err := s.cache.Put(ctx, date, entries); err != nil {
			log.Warn().Err(err).Str("date", date).Msg("leaderboard cache put failed")
		}
	}
	return trimEntries(entries, top), nil
}

// AllTime returns the cumulative ranking across every verified date.
func (s *GameService) AllTime(ctx context.Context, top int) ([]domain.AllTimeEntry, error) {
	users, err := s.store.Users(ctx)
	if err != nil {
		return nil, err
	}
	return BuildAllTime(users, top), nil
}

// Profile is the user view: cumulative stats plus recent activity.
type Profile struct {
	User              domain.User            `json:"user"`
	RecentPredictions []domain.Prediction    `json:"recentPredictions"`
	RecentRankings    []domain.RankingRecord `json:"recentRankings"`
}

func (s *GameService) Profile(ctx context.Context, userID string) (Profile, error) {
	user, err := s.store.User(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	recent, err := s.store.RecentPredictions(ctx, userID, 10)
	if err != nil {
		return Profile{}, err
	}
	rankings, err := s.store.RecentRankings(ctx, userID, 7)
	if err != nil {
		return Profile{}, err
	}
	return Profile{User: user, RecentPredictions: recent, RecentRankings: rankings}, nil
}

func trimEntries(entries []domain.LeaderboardEntry, top int) []domain.LeaderboardEntry {
	if top > 0 && len(entries) > top {
		return entries[:top]
	}
	return entries
}

func validateDate(date string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("%w: %q", domain.ErrInvalidDate, date)
	}
	return nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
