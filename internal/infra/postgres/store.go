// Package postgres implements app.PredictionStore on pgx. Uniqueness
// and the exactly-once verification guard are enforced by the schema
// (primary keys, conditional updates), so concurrent writers cannot
// lose counter updates.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"review-game-service/internal/domain"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) IssueQuestions(ctx context.Context, questions []domain.Question) error {
	for _, q := range questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("marshal options: %w", err)
		}
		_, err = s.pool.Exec(ctx, `
			INSERT INTO questions (id, review_date, step, prompt, options, commentary, source)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				prompt = EXCLUDED.prompt,
				options = EXCLUDED.options,
				commentary = EXCLUDED.commentary,
				source = EXCLUDED.source`,
			q.ID, q.Date, int(q.Step), q.Prompt, options, q.Commentary, nullableJSON(q.Source))
		if err != nil {
			return fmt.Errorf("issue question %s: %w", q.ID, err)
		}
	}
	return nil
}

func (s *Store) Questions(ctx context.Context, date string) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, review_date, step, prompt, options, commentary, source, correct_option
		FROM questions WHERE review_date = $1 ORDER BY step`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Store) Question(ctx context.Context, questionID string) (domain.Question, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, review_date, step, prompt, options, commentary, source, correct_option
		FROM questions WHERE id = $1`, questionID)
	q, err := scanQuestion(row)
	if err == pgx.ErrNoRows {
		return domain.Question{}, domain.ErrUnknownQuestion
	}
	return q, err
}

func (s *Store) SetCorrectOption(ctx context.Context, questionID, optionID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE questions SET correct_option = $1 WHERE id = $2`, optionID, questionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUnknownQuestion
	}
	return nil
}

func (s *Store) Submit(ctx context.Context, p domain.Prediction) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM questions WHERE id = $1)`, p.QuestionID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrUnknownQuestion
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO predictions (receipt_id, user_id, review_date, question_id, step, option_id, confidence, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, review_date, question_id) DO NOTHING`,
		p.ReceiptID, p.UserID, p.Date, p.QuestionID, int(p.Step), p.OptionID, p.Confidence, p.SubmittedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDuplicateSubmission
	}

	if _, err := tx.Exec(ctx,
		`UPDATE users SET total_predictions = total_predictions + 1 WHERE user_id = $1`, p.UserID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) PendingPredictions(ctx context.Context, date string) ([]domain.Prediction, error) {
	return s.queryPredictions(ctx, `
		SELECT receipt_id, user_id, review_date, question_id, step, option_id, confidence, is_correct, score_earned, submitted_at
		FROM predictions WHERE review_date = $1 AND is_correct IS NULL ORDER BY submitted_at`, date)
}

func (s *Store) PredictionsByDate(ctx context.Context, date string) ([]domain.Prediction, error) {
	return s.queryPredictions(ctx, `
		SELECT receipt_id, user_id, review_date, question_id, step, option_id, confidence, is_correct, score_earned, submitted_at
		FROM predictions WHERE review_date = $1 ORDER BY submitted_at`, date)
}

func (s *Store) MarkVerified(ctx context.Context, key domain.PredictionKey, correct bool, score int) error {
	// The IS NULL predicate makes this a single-row compare-and-set:
	// repeated verification runs cannot double-score.
	tag, err := s.pool.Exec(ctx, `
		UPDATE predictions SET is_correct = $1, score_earned = $2
		WHERE user_id = $3 AND review_date = $4 AND question_id = $5 AND is_correct IS NULL`,
		correct, score, key.UserID, key.Date, key.QuestionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM predictions WHERE user_id = $1 AND review_date = $2 AND question_id = $3)`,
			key.UserID, key.Date, key.QuestionID).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return domain.ErrAlreadyVerified
		}
		return domain.ErrUnknownQuestion
	}
	return nil
}

func (s *Store) EnsureUser(ctx context.Context, userID, displayName string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (user_id, display_name) VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING`, userID, displayName)
	return err
}

func (s *Store) ApplyUserStats(ctx context.Context, userID string, correctDelta, scoreDelta int) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET
			correct_predictions = correct_predictions + $1,
			total_score = total_score + $2,
			accuracy_rate = CASE WHEN total_predictions > 0
				THEN (correct_predictions + $1)::double precision / total_predictions
				ELSE 0 END,
			level = LEAST(10, 1 + (total_score + $2) / 500)
		WHERE user_id = $3`,
		correctDelta, scoreDelta, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (s *Store) User(ctx context.Context, userID string) (domain.User, error) {
	var u domain.User
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, display_name, total_predictions, correct_predictions, accuracy_rate, total_score, level, created_at
		FROM users WHERE user_id = $1`, userID).
		Scan(&u.ID, &u.DisplayName, &u.TotalPredictions, &u.CorrectPredictions, &u.AccuracyRate, &u.TotalScore, &u.Level, &u.CreatedAt)
	if err == pgx.ErrNoRows {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, err
}

func (s *Store) Users(ctx context.Context) ([]domain.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, display_name, total_predictions, correct_predictions, accuracy_rate, total_score, level, created_at
		FROM users ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.DisplayName, &u.TotalPredictions, &u.CorrectPredictions,
			&u.AccuracyRate, &u.TotalScore, &u.Level, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) ReplaceLeaderboard(ctx context.Context, date string, entries []domain.LeaderboardEntry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM leaderboard_entries WHERE review_date = $1`, date); err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := tx.Exec(ctx, `
			INSERT INTO leaderboard_entries (review_date, user_id, rank_position, daily_score, daily_accuracy, questions_answered)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			date, e.UserID, e.Rank, e.DailyScore, e.DailyAccuracy, e.QuestionsAnswered); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) Leaderboard(ctx context.Context, date string, top int) ([]domain.LeaderboardEntry, error) {
	query := `
		SELECT le.review_date, le.user_id, u.display_name, le.rank_position, le.daily_score, le.daily_accuracy, le.questions_answered
		FROM leaderboard_entries le
		JOIN users u ON u.user_id = le.user_id
		WHERE le.review_date = $1 ORDER BY le.rank_position`
	args := []any{date}
	if top > 0 {
		query += ` LIMIT $2`
		args = append(args, top)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.Date, &e.UserID, &e.DisplayName, &e.Rank, &e.DailyScore,
			&e.DailyAccuracy, &e.QuestionsAnswered); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) RecentPredictions(ctx context.Context, userID string, limit int) ([]domain.Prediction, error) {
	return s.queryPredictions(ctx, `
		SELECT receipt_id, user_id, review_date, question_id, step, option_id, confidence, is_correct, score_earned, submitted_at
		FROM predictions WHERE user_id = $1 ORDER BY submitted_at DESC LIMIT $2`, userID, limit)
}

func (s *Store) RecentRankings(ctx context.Context, userID string, limit int) ([]domain.RankingRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT review_date, rank_position, daily_score, daily_accuracy
		FROM leaderboard_entries WHERE user_id = $1 ORDER BY review_date DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RankingRecord
	for rows.Next() {
		var r domain.RankingRecord
		if err := rows.Scan(&r.Date, &r.Rank, &r.DailyScore, &r.DailyAccuracy); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) DateState(ctx context.Context, date string) (domain.DateState, error) {
	var state string
	err := s.pool.QueryRow(ctx,
		`SELECT state FROM date_states WHERE review_date = $1`, date).Scan(&state)
	if err == pgx.ErrNoRows {
		return domain.DateOpen, nil
	}
	if err != nil {
		return "", err
	}
	return domain.DateState(state), nil
}

func (s *Store) SetDateState(ctx context.Context, date string, state domain.DateState) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO date_states (review_date, state) VALUES ($1, $2)
		ON CONFLICT (review_date) DO UPDATE SET state = EXCLUDED.state`, date, string(state))
	return err
}

func (s *Store) queryPredictions(ctx context.Context, query string, args ...any) ([]domain.Prediction, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Prediction
	for rows.Next() {
		var p domain.Prediction
		var step int
		if err := rows.Scan(&p.ReceiptID, &p.UserID, &p.Date, &p.QuestionID, &step, &p.OptionID,
			&p.Confidence, &p.IsCorrect, &p.ScoreEarned, &p.SubmittedAt); err != nil {
			return nil, err
		}
		p.Step = domain.Step(step)
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanQuestion(row pgx.Row) (domain.Question, error) {
	var q domain.Question
	var step int
	var options []byte
	var commentary, correct *string
	var source []byte
	if err := row.Scan(&q.ID, &q.Date, &step, &q.Prompt, &options, &commentary, &source, &correct); err != nil {
		return domain.Question{}, err
	}
	q.Step = domain.Step(step)
	q.Source = source
	if commentary != nil {
		q.Commentary = *commentary
	}
	if correct != nil {
		q.CorrectOption = *correct
	}
	if err := json.Unmarshal(options, &q.Options); err != nil {
		return domain.Question{}, fmt.Errorf("unmarshal options for %s: %w", q.ID, err)
	}
	return q, nil
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
