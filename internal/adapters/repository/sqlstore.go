package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tricktrack/tricktrack/internal/domain/model"
	"github.com/tricktrack/tricktrack/internal/domain/types"
	"github.com/tricktrack/tricktrack/pkg/metrics"

	_ "modernc.org/sqlite"
)

const (
	sqliteBackend = "sqlite"
	// Fixed-width so that lexical order in SQL matches time order.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
	// MemoryDSN opens a private in-memory database.
	MemoryDSN = ":memory:"
)

const selectColumns = `id, skater_id, trick_type, video_url, status, scores_json, final_score, tokens_earned,
failure_reason, created_at, updated_at, completed_at, version`

// SQLiteStore persists records in SQLite. Updates use an optimistic version
// check inside a transaction and are retried on conflict.
type SQLiteStore struct {
	db              *sql.DB
	conflictRetries int
}

// OpenSQLite opens (creating if needed) the database at path and applies
// migrations. Use MemoryDSN for an ephemeral database.
func OpenSQLite(ctx context.Context, path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	dsn, err := sqliteDSN(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite has a single writer; one connection also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	s := &SQLiteStore{db: db, conflictRetries: defaultConflictRetries}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func sqliteDSN(path string) (string, error) {
	if path == "" || path == MemoryDSN {
		return "file::memory:?_pragma=busy_timeout(5000)", nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create sqlite dir: %w", err)
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path), nil
}

// Insert stores a new record.
func (s *SQLiteStore) Insert(ctx context.Context, v model.Validation) error {
	start := time.Now()
	defer observeSQLite("insert", start)

	scores, err := json.Marshal(nonNilScores(v.Scores))
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapClosed(err)
	}
	defer func() { _ = tx.Rollback() }()

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM validations WHERE id=?`, v.ID).Scan(&one)
	if err == nil {
		return ErrAlreadyExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO validations(`+selectColumns+`)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		v.ID, v.SkaterID, string(v.TrickType), v.VideoURL, string(v.Status), string(scores),
		nullableInt(v.FinalScore), nullableInt(v.TokensEarned), nullableString(v.FailureReason),
		v.CreatedAt.UTC().Format(timeLayout), v.UpdatedAt.UTC().Format(timeLayout), nullableTime(v.CompletedAt), v.Version)
	if err != nil {
		return fmt.Errorf("insert validation: %w", err)
	}
	return tx.Commit()
}

// Get returns the record with the given id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (model.Validation, error) {
	start := time.Now()
	defer observeSQLite("get", start)

	v, err := scanValidation(s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM validations WHERE id=?`, id))
	return v, wrapClosed(err)
}

// Update reads the record, applies fn and writes it back only if nobody else
// wrote in between.
func (s *SQLiteStore) Update(ctx context.Context, id string, fn MutateFunc) (model.Validation, error) {
	start := time.Now()
	defer observeSQLite("update", start)

	for attempt := 0; attempt <= s.conflictRetries; attempt++ {
		v, err := s.tryUpdate(ctx, id, fn)
		if errors.Is(err, ErrConflict) {
			metrics.RecordStoreConflict(sqliteBackend)
			continue
		}
		return v, err
	}
	return model.Validation{}, fmt.Errorf("%w: %s after %d retries", ErrConflict, id, s.conflictRetries)
}

func (s *SQLiteStore) tryUpdate(ctx context.Context, id string, fn MutateFunc) (model.Validation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Validation{}, wrapClosed(err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := scanValidation(tx.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM validations WHERE id=?`, id))
	if err != nil {
		return model.Validation{}, err
	}
	work := current.Clone()
	if err := fn(&work); err != nil {
		return model.Validation{}, err
	}
	work.Version = current.Version + 1

	scores, err := json.Marshal(nonNilScores(work.Scores))
	if err != nil {
		return model.Validation{}, err
	}
	res, err := tx.ExecContext(ctx, `UPDATE validations SET status=?, scores_json=?, final_score=?, tokens_earned=?,
failure_reason=?, updated_at=?, completed_at=?, version=? WHERE id=? AND version=?`,
		string(work.Status), string(scores), nullableInt(work.FinalScore), nullableInt(work.TokensEarned),
		nullableString(work.FailureReason), work.UpdatedAt.UTC().Format(timeLayout), nullableTime(work.CompletedAt),
		work.Version, id, current.Version)
	if err != nil {
		return model.Validation{}, fmt.Errorf("update validation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Validation{}, ErrConflict
	}
	if err := tx.Commit(); err != nil {
		return model.Validation{}, err
	}
	return work, nil
}

// List returns matching records newest first.
func (s *SQLiteStore) List(ctx context.Context, f Filter) ([]model.Validation, error) {
	start := time.Now()
	defer observeSQLite("list", start)

	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status=?")
		args = append(args, string(f.Status))
	}
	if f.SkaterID != "" {
		where = append(where, "skater_id=?")
		args = append(args, f.SkaterID)
	}
	query := `SELECT ` + selectColumns + ` FROM validations`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id ASC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapClosed(err)
	}
	defer rows.Close()
	var out []model.Validation
	for rows.Next() {
		v, err := scanValidation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Count returns the number of stored records, or zero if the query fails.
func (s *SQLiteStore) Count(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM validations`).Scan(&n); err != nil {
		return 0
	}
	metrics.UpdateStoreRecords(n)
	return n
}

// CountByStatus tallies records per status with a single grouped query.
func (s *SQLiteStore) CountByStatus(ctx context.Context) (map[types.Status]int, error) {
	start := time.Now()
	defer observeSQLite("count_by_status", start)

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM validations GROUP BY status`)
	if err != nil {
		return nil, wrapClosed(err)
	}
	defer rows.Close()
	counts := make(map[types.Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[types.Status(status)] = n
	}
	return counts, rows.Err()
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanValidation(row rowScanner) (model.Validation, error) {
	var (
		v                          model.Validation
		trick, status, scoresJSON  string
		createdAt, updatedAt       string
		finalScore, tokensEarned   sql.NullInt64
		failureReason, completedAt sql.NullString
	)
	err := row.Scan(&v.ID, &v.SkaterID, &trick, &v.VideoURL, &status, &scoresJSON, &finalScore, &tokensEarned,
		&failureReason, &createdAt, &updatedAt, &completedAt, &v.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return v, ErrNotFound
	}
	if err != nil {
		return v, err
	}
	v.TrickType = types.TrickType(trick)
	v.Status = types.Status(status)
	if err := json.Unmarshal([]byte(scoresJSON), &v.Scores); err != nil {
		return v, fmt.Errorf("decode scores for %s: %w", v.ID, err)
	}
	v.Scores = nonNilScores(v.Scores)
	if finalScore.Valid {
		n := int(finalScore.Int64)
		v.FinalScore = &n
	}
	if tokensEarned.Valid {
		n := int(tokensEarned.Int64)
		v.TokensEarned = &n
	}
	if failureReason.Valid {
		v.FailureReason = failureReason.String
	}
	if v.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return v, fmt.Errorf("parse created_at: %w", err)
	}
	if v.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return v, fmt.Errorf("parse updated_at: %w", err)
	}
	if completedAt.Valid {
		t, err := time.Parse(timeLayout, completedAt.String)
		if err != nil {
			return v, fmt.Errorf("parse completed_at: %w", err)
		}
		v.CompletedAt = &t
	}
	return v, nil
}

func nonNilScores(s []model.Score) []model.Score {
	if s == nil {
		return []model.Score{}
	}
	return s
}

func nullableInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func wrapClosed(err error) error {
	if err != nil && strings.Contains(err.Error(), "sql: database is closed") {
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}
	return err
}

func observeSQLite(op string, start time.Time) {
	metrics.RecordStoreLatency(sqliteBackend, op, float64(time.Since(start).Microseconds())/1000)
}
