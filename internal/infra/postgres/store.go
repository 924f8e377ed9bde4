package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"exam-practice-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Store persists users, results, streaks, the exam bank and shared exams in Postgres.
// Exam definitions and answer snapshots live in JSONB columns.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) CreateUser(ctx context.Context, user domain.User) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, username, password_hash, created_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (username) DO NOTHING`,
		user.ID, user.Username, user.PasswordHash, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUsernameTaken
	}
	return nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (domain.User, error) {
	return s.user(ctx, `SELECT id, username, password_hash, created_at FROM users WHERE username=$1`, username)
}

func (s *Store) UserByID(ctx context.Context, userID string) (domain.User, error) {
	return s.user(ctx, `SELECT id, username, password_hash, created_at FROM users WHERE id=$1`, userID)
}

func (s *Store) user(ctx context.Context, query, arg string) (domain.User, error) {
	var u domain.User
	err := s.pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

// AppendResult inserts the result and advances the streak under a row lock.
// A result id that already exists leaves both untouched.
func (s *Store) AppendResult(ctx context.Context, userID string, result domain.ExamResult, advance func(domain.Streak) domain.Streak) (domain.Streak, error) {
	answers, err := json.Marshal(result.Answers)
	if err != nil {
		return domain.Streak{}, fmt.Errorf("marshal answers: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Streak{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `INSERT INTO streaks (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
		return domain.Streak{}, fmt.Errorf("ensure streak: %w", err)
	}
	var current domain.Streak
	err = tx.QueryRow(ctx,
		`SELECT current_streak, longest_streak, last_activity FROM streaks WHERE user_id=$1 FOR UPDATE`,
		userID).Scan(&current.Current, &current.Longest, &current.LastActivity)
	if err != nil {
		return domain.Streak{}, fmt.Errorf("lock streak: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`INSERT INTO results (id, user_id, exam_id, title, subject, score, total, percentage, time_taken_seconds, answers, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11)
		 ON CONFLICT (id) DO NOTHING`,
		result.ID, userID, result.ExamID, result.Title, result.Subject, result.Score, result.Total,
		result.Percentage, result.TimeTakenSeconds, string(answers), result.CreatedAt)
	if err != nil {
		return domain.Streak{}, fmt.Errorf("insert result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return current, tx.Commit(ctx)
	}

	next := advance(current)
	if _, err := tx.Exec(ctx,
		`UPDATE streaks SET current_streak=$2, longest_streak=$3, last_activity=$4 WHERE user_id=$1`,
		userID, next.Current, next.Longest, next.LastActivity); err != nil {
		return domain.Streak{}, fmt.Errorf("update streak: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Streak{}, fmt.Errorf("commit: %w", err)
	}
	return next, nil
}

const resultColumns = `id, user_id, exam_id, title, subject, score, total, percentage, time_taken_seconds, answers, created_at`

func (s *Store) Results(ctx context.Context, userID string) ([]domain.ExamResult, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+resultColumns+` FROM results WHERE user_id=$1 ORDER BY seq`, userID)
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	defer rows.Close()

	results := make([]domain.ExamResult, 0)
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *Store) Result(ctx context.Context, userID, resultID string) (domain.ExamResult, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+resultColumns+` FROM results WHERE user_id=$1 AND id=$2`, userID, resultID)
	r, err := scanResult(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ExamResult{}, domain.ErrResultNotFound
	}
	return r, err
}

func scanResult(row pgx.Row) (domain.ExamResult, error) {
	var (
		r       domain.ExamResult
		answers []byte
	)
	err := row.Scan(&r.ID, &r.UserID, &r.ExamID, &r.Title, &r.Subject, &r.Score, &r.Total,
		&r.Percentage, &r.TimeTakenSeconds, &answers, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("scan result: %w", err)
	}
	if err := json.Unmarshal(answers, &r.Answers); err != nil {
		return r, fmt.Errorf("unmarshal answers: %w", err)
	}
	return r, nil
}

func (s *Store) Streak(ctx context.Context, userID string) (domain.Streak, error) {
	var st domain.Streak
	err := s.pool.QueryRow(ctx,
		`SELECT current_streak, longest_streak, last_activity FROM streaks WHERE user_id=$1`,
		userID).Scan(&st.Current, &st.Longest, &st.LastActivity)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Streak{}, nil
	}
	if err != nil {
		return domain.Streak{}, fmt.Errorf("load streak: %w", err)
	}
	return st, nil
}

func (s *Store) SaveBankEntry(ctx context.Context, entry domain.BankEntry) error {
	def, err := json.Marshal(entry.Exam)
	if err != nil {
		return fmt.Errorf("marshal exam: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO bank_entries (id, user_id, exam, created_at, updated_at) VALUES ($1, $2, $3::jsonb, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET exam=EXCLUDED.exam, updated_at=EXCLUDED.updated_at
		 WHERE bank_entries.user_id=EXCLUDED.user_id`,
		entry.ID, entry.UserID, string(def), entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save bank entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBankEntryNotFound
	}
	return nil
}

func (s *Store) BankEntries(ctx context.Context, userID string) ([]domain.BankEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, exam, created_at, updated_at FROM bank_entries WHERE user_id=$1 ORDER BY updated_at DESC, id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("load bank: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.BankEntry, 0)
	for rows.Next() {
		e, err := scanBankEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) BankEntry(ctx context.Context, userID, entryID string) (domain.BankEntry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, exam, created_at, updated_at FROM bank_entries WHERE user_id=$1 AND id=$2`,
		userID, entryID)
	e, err := scanBankEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.BankEntry{}, domain.ErrBankEntryNotFound
	}
	return e, err
}

func scanBankEntry(row pgx.Row) (domain.BankEntry, error) {
	var (
		e   domain.BankEntry
		raw []byte
	)
	if err := row.Scan(&e.ID, &e.UserID, &raw, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return e, err
		}
		return e, fmt.Errorf("scan bank entry: %w", err)
	}
	if err := json.Unmarshal(raw, &e.Exam); err != nil {
		return e, fmt.Errorf("unmarshal exam: %w", err)
	}
	return e, nil
}

func (s *Store) DeleteBankEntry(ctx context.Context, userID, entryID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM bank_entries WHERE user_id=$1 AND id=$2`, userID, entryID)
	if err != nil {
		return fmt.Errorf("delete bank entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBankEntryNotFound
	}
	return nil
}

func (s *Store) CreateShare(ctx context.Context, share domain.SharedExam) error {
	def, err := json.Marshal(share.Exam)
	if err != nil {
		return fmt.Errorf("marshal exam: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO shared_exams (share_id, owner_id, exam, created_at) VALUES ($1, $2, $3::jsonb, $4)`,
		share.ShareID, share.OwnerID, string(def), share.CreatedAt)
	if err != nil {
		return fmt.Errorf("create share: %w", err)
	}
	return nil
}

func (s *Store) Share(ctx context.Context, shareID string) (domain.SharedExam, error) {
	var (
		share domain.SharedExam
		raw   []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT share_id, owner_id, exam, created_at FROM shared_exams WHERE share_id=$1`,
		shareID).Scan(&share.ShareID, &share.OwnerID, &raw, &share.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SharedExam{}, domain.ErrShareNotFound
	}
	if err != nil {
		return domain.SharedExam{}, fmt.Errorf("load share: %w", err)
	}
	if err := json.Unmarshal(raw, &share.Exam); err != nil {
		return domain.SharedExam{}, fmt.Errorf("unmarshal share: %w", err)
	}
	return share, nil
}

func (s *Store) AppendLeaderboardEntry(ctx context.Context, shareID string, entry domain.LeaderboardEntry) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO leaderboard_entries (share_id, nickname, score, total, percentage, time_taken_seconds, submitted_at)
		 SELECT share_id, $2, $3, $4, $5, $6, $7 FROM shared_exams WHERE share_id=$1`,
		shareID, entry.Nickname, entry.Score, entry.Total, entry.Percentage, entry.TimeTakenSeconds, entry.SubmittedAt)
	if err != nil {
		return fmt.Errorf("append leaderboard entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrShareNotFound
	}
	return nil
}

func (s *Store) LeaderboardEntries(ctx context.Context, shareID string) ([]domain.LeaderboardEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT nickname, score, total, percentage, time_taken_seconds, submitted_at
		 FROM leaderboard_entries WHERE share_id=$1 ORDER BY seq`, shareID)
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.LeaderboardEntry, 0)
	for rows.Next() {
		var (
			e  domain.LeaderboardEntry
			at time.Time
		)
		if err := rows.Scan(&e.Nickname, &e.Score, &e.Total, &e.Percentage, &e.TimeTakenSeconds, &at); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		e.SubmittedAt = at
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Ping checks connectivity to the pool.
func (s *Store) Ping(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()
	return conn.Conn().Ping(ctx)
}
