package app

import (
	"sort"

	"review-game-service/internal/domain"
)

// BuildLeaderboard ranks one date's verified predictions. Sort key is
// daily score desc, then daily accuracy desc, then user id asc: the
// final key makes the order strictly total, so equal-scoring users
// still receive distinct consecutive ranks. Unverified predictions are
// ignored.
func BuildLeaderboard(date string, predictions []domain.Prediction) []domain.LeaderboardEntry {
	type tally struct {
		score   int
		correct int
		total   int
	}
	byUser := make(map[string]*tally)
	for _, p := range predictions {
		if !p.Verified() || p.Date != date {
			continue
		}
		t := byUser[p.UserID]
		if t == nil {
			t = &tally{}
			byUser[p.UserID] = t
		}
		t.total++
		if *p.IsCorrect {
			t.correct++
		}
		if p.ScoreEarned != nil {
			t.score += *p.ScoreEarned
		}
	}

	entries := make([]domain.LeaderboardEntry, 0, len(byUser))
	for userID, t := range byUser {
		accuracy := 0.0
		if t.total > 0 {
			accuracy = float64(t.correct) / float64(t.total)
		}
		entries = append(entries, domain.LeaderboardEntry{
			Date:              date,
			UserID:            userID,
			DailyScore:        t.score,
			DailyAccuracy:     accuracy,
			QuestionsAnswered: t.total,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].DailyScore != entries[j].DailyScore {
			return entries[i].DailyScore > entries[j].DailyScore
		}
		if entries[i].DailyAccuracy != entries[j].DailyAccuracy {
			return entries[i].DailyAccuracy > entries[j].DailyAccuracy
		}
		return entries[i].UserID < entries[j].UserID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// BuildAllTime ranks users by cumulative score, then accuracy, then
// user id. Users with no submissions are excluded.
func BuildAllTime(users []domain.User, top int) []domain.AllTimeEntry {
	ranked := make([]domain.User, 0, len(users))
	for _, u := range users {
		if u.TotalPredictions > 0 {
			ranked = append(ranked, u)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].TotalScore != ranked[j].TotalScore {
			return ranked[i].TotalScore > ranked[j].TotalScore
		}
		if ranked[i].AccuracyRate != ranked[j].AccuracyRate {
			return ranked[i].AccuracyRate > ranked[j].AccuracyRate
		}
		return ranked[i].ID < ranked[j].ID
	})
	if top > 0 && len(ranked) > top {
		ranked = ranked[:top]
	}

	entries := make([]domain.AllTimeEntry, len(ranked))
	for i, u := range ranked {
		entries[i] = domain.AllTimeEntry{
			Rank:             i + 1,
			UserID:           u.ID,
			DisplayName:      u.DisplayName,
			TotalScore:       u.TotalScore,
			AccuracyRate:     u.AccuracyRate,
			TotalPredictions: u.TotalPredictions,
			Level:            u.Level,
		}
	}
	return entries
}
