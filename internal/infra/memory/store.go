// Package memory implements app.PredictionStore on process-local maps.
// It is the reference implementation used in tests and when no
// Postgres URL is configured.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"review-game-service/internal/domain"
)

// Store keeps all collections behind one mutex, which trivially
// satisfies the per-row serialization the store contract requires.
type Store struct {
	mu           sync.RWMutex
	questions    map[string]domain.Question          // question id
	predictions  map[domain.PredictionKey]domain.Prediction
	order        []domain.PredictionKey              // insertion order, for recency queries
	users        map[string]domain.User
	leaderboards map[string][]domain.LeaderboardEntry // date
	states       map[string]domain.DateState
	now          func() time.Time
}

func NewStore() *Store {
	return &Store{
		questions:    make(map[string]domain.Question),
		predictions:  make(map[domain.PredictionKey]domain.Prediction),
		users:        make(map[string]domain.User),
		leaderboards: make(map[string][]domain.LeaderboardEntry),
		states:       make(map[string]domain.DateState),
		now:          time.Now,
	}
}

func (s *Store) IssueQuestions(_ context.Context, questions []domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range questions {
		s.questions[q.ID] = q
	}
	return nil
}

func (s *Store) Questions(_ context.Context, date string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, 0, domain.StepCount)
	for _, q := range s.questions {
		if q.Date == date {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Step < out[j].Step })
	return out, nil
}

func (s *Store) Question(_ context.Context, questionID string) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[questionID]
	if !ok {
		return domain.Question{}, domain.ErrUnknownQuestion
	}
	return q, nil
}

func (s *Store) SetCorrectOption(_ context.Context, questionID, optionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[questionID]
	if !ok {
		return domain.ErrUnknownQuestion
	}
	q.CorrectOption = optionID
	s.questions[questionID] = q
	return nil
}

func (s *Store) Submit(_ context.Context, p domain.Prediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[p.QuestionID]; !ok {
		return domain.ErrUnknownQuestion
	}
	key := p.Key()
	if _, exists := s.predictions[key]; exists {
		return domain.ErrDuplicateSubmission
	}
	s.predictions[key] = p
	s.order = append(s.order, key)

	user := s.users[p.UserID]
	user.TotalPredictions++
	s.users[p.UserID] = user
	return nil
}

func (s *Store) PendingPredictions(_ context.Context, date string) ([]domain.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Prediction
	for _, key := range s.order {
		p := s.predictions[key]
		if p.Date == date && !p.Verified() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) PredictionsByDate(_ context.Context, date string) ([]domain.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Prediction
	for _, key := range s.order {
		if p := s.predictions[key]; p.Date == date {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) MarkVerified(_ context.Context, key domain.PredictionKey, correct bool, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.predictions[key]
	if !ok {
		return domain.ErrUnknownQuestion
	}
	if p.Verified() {
		return domain.ErrAlreadyVerified
	}
	c := correct
	sc := score
	p.IsCorrect = &c
	p.ScoreEarned = &sc
	s.predictions[key] = p
	return nil
}

func (s *Store) EnsureUser(_ context.Context, userID, displayName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		user = domain.User{ID: userID, DisplayName: displayName, Level: 1, CreatedAt: s.now()}
	} else if user.ID == "" {
		// Row pre-created by a counter bump; fill identity in place.
		user.ID = userID
		user.DisplayName = displayName
		user.Level = 1
		user.CreatedAt = s.now()
	}
	s.users[userID] = user
	return nil
}

func (s *Store) ApplyUserStats(_ context.Context, userID string, correctDelta, scoreDelta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	user.CorrectPredictions += correctDelta
	user.TotalScore += scoreDelta
	if user.TotalPredictions > 0 {
		user.AccuracyRate = float64(user.CorrectPredictions) / float64(user.TotalPredictions)
	} else {
		user.AccuracyRate = 0
	}
	user.Level = domain.LevelForScore(user.TotalScore)
	s.users[userID] = user
	return nil
}

func (s *Store) User(_ context.Context, userID string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *Store) Users(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ReplaceLeaderboard(_ context.Context, date string, entries []domain.LeaderboardEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]domain.LeaderboardEntry, len(entries))
	copy(copied, entries)
	s.leaderboards[date] = copied
	return nil
}

func (s *Store) Leaderboard(_ context.Context, date string, top int) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.leaderboards[date]
	if top > 0 && len(entries) > top {
		entries = entries[:top]
	}
	out := make([]domain.LeaderboardEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (s *Store) RecentPredictions(_ context.Context, userID string, limit int) ([]domain.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Prediction
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		if p := s.predictions[s.order[i]]; p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) RecentRankings(_ context.Context, userID string, limit int) ([]domain.RankingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dates := make([]string, 0, len(s.leaderboards))
	for date := range s.leaderboards {
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	var out []domain.RankingRecord
	for _, date := range dates {
		if len(out) >= limit {
			break
		}
		for _, e := range s.leaderboards[date] {
			if e.UserID == userID {
				out = append(out, domain.RankingRecord{
					Date:          date,
					Rank:          e.Rank,
					DailyScore:    e.DailyScore,
					DailyAccuracy: e.DailyAccuracy,
				})
				break
			}
		}
	}
	return out, nil
}

func (s *Store) DateState(_ context.Context, date string) (domain.DateState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if state, ok := s.states[date]; ok {
		return state, nil
	}
	return domain.DateOpen, nil
}

func (s *Store) SetDateState(_ context.Context, date string, state domain.DateState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[date] = state
	return nil
}
