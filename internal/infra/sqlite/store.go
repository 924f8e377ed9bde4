package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"exam-practice-service/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    password_hash BLOB NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS streaks (
    user_id TEXT PRIMARY KEY,
    current_streak INTEGER NOT NULL DEFAULT 0,
    longest_streak INTEGER NOT NULL DEFAULT 0,
    last_activity INTEGER
);

CREATE TABLE IF NOT EXISTS results (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    user_id TEXT NOT NULL,
    exam_id TEXT NOT NULL,
    title TEXT NOT NULL,
    subject TEXT NOT NULL DEFAULT '',
    score INTEGER NOT NULL,
    total INTEGER NOT NULL,
    percentage REAL NOT NULL,
    time_taken_seconds INTEGER NOT NULL,
    answers TEXT NOT NULL,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS results_user_idx ON results (user_id, seq);

CREATE TABLE IF NOT EXISTS bank_entries (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    exam TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS shared_exams (
    share_id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    exam TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS leaderboard_entries (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    share_id TEXT NOT NULL,
    nickname TEXT NOT NULL,
    score INTEGER NOT NULL,
    total INTEGER NOT NULL,
    percentage REAL NOT NULL,
    time_taken_seconds INTEGER NOT NULL,
    submitted_at INTEGER NOT NULL,
    FOREIGN KEY (share_id) REFERENCES shared_exams(share_id) ON DELETE CASCADE
);
`

// Store is the embedded single-file backend. Times are stored as unix nanoseconds (UTC).
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path; ":memory:" works for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection serializes writers and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Ping checks the database handle is usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateUser(ctx context.Context, user domain.User) error {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?) ON CONFLICT (username) DO NOTHING",
		user.ID, user.Username, user.PasswordHash, toNanos(user.CreatedAt))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return domain.ErrUsernameTaken
	}
	return nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (domain.User, error) {
	return s.user(ctx, "SELECT id, username, password_hash, created_at FROM users WHERE username = ?", username)
}

func (s *Store) UserByID(ctx context.Context, userID string) (domain.User, error) {
	return s.user(ctx, "SELECT id, username, password_hash, created_at FROM users WHERE id = ?", userID)
}

func (s *Store) user(ctx context.Context, query, arg string) (domain.User, error) {
	var (
		u       domain.User
		created int64
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Username, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	u.CreatedAt = fromNanos(created)
	return u, nil
}

func (s *Store) AppendResult(ctx context.Context, userID string, result domain.ExamResult, advance func(domain.Streak) domain.Streak) (domain.Streak, error) {
	answers, err := json.Marshal(result.Answers)
	if err != nil {
		return domain.Streak{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Streak{}, err
	}
	defer tx.Rollback()

	current, err := streakRow(tx.QueryRowContext(ctx,
		"SELECT current_streak, longest_streak, last_activity FROM streaks WHERE user_id = ?", userID))
	if err != nil {
		return domain.Streak{}, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO results (id, user_id, exam_id, title, subject, score, total, percentage, time_taken_seconds, answers, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT (id) DO NOTHING`,
		result.ID, userID, result.ExamID, result.Title, result.Subject, result.Score, result.Total,
		result.Percentage, result.TimeTakenSeconds, string(answers), toNanos(result.CreatedAt))
	if err != nil {
		return domain.Streak{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return domain.Streak{}, err
	} else if n == 0 {
		return current, tx.Commit()
	}

	next := advance(current)
	var last sql.NullInt64
	if next.LastActivity != nil {
		last = sql.NullInt64{Int64: toNanos(*next.LastActivity), Valid: true}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO streaks (user_id, current_streak, longest_streak, last_activity) VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET current_streak = excluded.current_streak,
		 longest_streak = excluded.longest_streak, last_activity = excluded.last_activity`,
		userID, next.Current, next.Longest, last); err != nil {
		return domain.Streak{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Streak{}, err
	}
	return next, nil
}

func (s *Store) Streak(ctx context.Context, userID string) (domain.Streak, error) {
	return streakRow(s.db.QueryRowContext(ctx,
		"SELECT current_streak, longest_streak, last_activity FROM streaks WHERE user_id = ?", userID))
}

func streakRow(row *sql.Row) (domain.Streak, error) {
	var (
		st   domain.Streak
		last sql.NullInt64
	)
	err := row.Scan(&st.Current, &st.Longest, &last)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Streak{}, nil
	}
	if err != nil {
		return domain.Streak{}, err
	}
	if last.Valid {
		t := fromNanos(last.Int64)
		st.LastActivity = &t
	}
	return st, nil
}

const resultColumns = "id, user_id, exam_id, title, subject, score, total, percentage, time_taken_seconds, answers, created_at"

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) Results(ctx context.Context, userID string) ([]domain.ExamResult, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+resultColumns+" FROM results WHERE user_id = ? ORDER BY seq", userID)
	if err != nil {
		return nil, err
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
	r, err := scanResult(s.db.QueryRowContext(ctx,
		"SELECT "+resultColumns+" FROM results WHERE user_id = ? AND id = ?", userID, resultID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ExamResult{}, domain.ErrResultNotFound
	}
	return r, err
}

func scanResult(row scanner) (domain.ExamResult, error) {
	var (
		r       domain.ExamResult
		answers string
		created int64
	)
	if err := row.Scan(&r.ID, &r.UserID, &r.ExamID, &r.Title, &r.Subject, &r.Score, &r.Total,
		&r.Percentage, &r.TimeTakenSeconds, &answers, &created); err != nil {
		return r, err
	}
	r.CreatedAt = fromNanos(created)
	if err := json.Unmarshal([]byte(answers), &r.Answers); err != nil {
		return r, fmt.Errorf("unmarshal answers: %w", err)
	}
	return r, nil
}

func (s *Store) SaveBankEntry(ctx context.Context, entry domain.BankEntry) error {
	def, err := json.Marshal(entry.Exam)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO bank_entries (id, user_id, exam, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET exam = excluded.exam, updated_at = excluded.updated_at
		 WHERE bank_entries.user_id = excluded.user_id`,
		entry.ID, entry.UserID, string(def), toNanos(entry.CreatedAt), toNanos(entry.UpdatedAt))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return domain.ErrBankEntryNotFound
	}
	return nil
}

func (s *Store) BankEntries(ctx context.Context, userID string) ([]domain.BankEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, exam, created_at, updated_at FROM bank_entries WHERE user_id = ? ORDER BY updated_at DESC, id",
		userID)
	if err != nil {
		return nil, err
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
	e, err := scanBankEntry(s.db.QueryRowContext(ctx,
		"SELECT id, user_id, exam, created_at, updated_at FROM bank_entries WHERE user_id = ? AND id = ?",
		userID, entryID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.BankEntry{}, domain.ErrBankEntryNotFound
	}
	return e, err
}

func scanBankEntry(row scanner) (domain.BankEntry, error) {
	var (
		e                domain.BankEntry
		raw              string
		created, updated int64
	)
	if err := row.Scan(&e.ID, &e.UserID, &raw, &created, &updated); err != nil {
		return e, err
	}
	e.CreatedAt, e.UpdatedAt = fromNanos(created), fromNanos(updated)
	if err := json.Unmarshal([]byte(raw), &e.Exam); err != nil {
		return e, fmt.Errorf("unmarshal exam: %w", err)
	}
	return e, nil
}

func (s *Store) DeleteBankEntry(ctx context.Context, userID, entryID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM bank_entries WHERE user_id = ? AND id = ?", userID, entryID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return domain.ErrBankEntryNotFound
	}
	return nil
}

func (s *Store) CreateShare(ctx context.Context, share domain.SharedExam) error {
	def, err := json.Marshal(share.Exam)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO shared_exams (share_id, owner_id, exam, created_at) VALUES (?, ?, ?, ?)",
		share.ShareID, share.OwnerID, string(def), toNanos(share.CreatedAt))
	return err
}

func (s *Store) Share(ctx context.Context, shareID string) (domain.SharedExam, error) {
	var (
		share   domain.SharedExam
		raw     string
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT share_id, owner_id, exam, created_at FROM shared_exams WHERE share_id = ?", shareID).
		Scan(&share.ShareID, &share.OwnerID, &raw, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SharedExam{}, domain.ErrShareNotFound
	}
	if err != nil {
		return domain.SharedExam{}, err
	}
	share.CreatedAt = fromNanos(created)
	if err := json.Unmarshal([]byte(raw), &share.Exam); err != nil {
		return domain.SharedExam{}, fmt.Errorf("unmarshal share: %w", err)
	}
	return share, nil
}

func (s *Store) AppendLeaderboardEntry(ctx context.Context, shareID string, entry domain.LeaderboardEntry) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO leaderboard_entries (share_id, nickname, score, total, percentage, time_taken_seconds, submitted_at)
		 SELECT share_id, ?, ?, ?, ?, ?, ? FROM shared_exams WHERE share_id = ?`,
		entry.Nickname, entry.Score, entry.Total, entry.Percentage, entry.TimeTakenSeconds, toNanos(entry.SubmittedAt), shareID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return domain.ErrShareNotFound
	}
	return nil
}

func (s *Store) LeaderboardEntries(ctx context.Context, shareID string) ([]domain.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT nickname, score, total, percentage, time_taken_seconds, submitted_at
		 FROM leaderboard_entries WHERE share_id = ? ORDER BY seq`, shareID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.LeaderboardEntry, 0)
	for rows.Next() {
		var (
			e  domain.LeaderboardEntry
			at int64
		)
		if err := rows.Scan(&e.Nickname, &e.Score, &e.Total, &e.Percentage, &e.TimeTakenSeconds, &at); err != nil {
			return nil, err
		}
		e.SubmittedAt = fromNanos(at)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
