package agent

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one undelivered update.
type Entry struct {
	ID       int64
	Update   Update
	QueuedAt time.Time
	Attempts int
}

// Queue is a FIFO of undelivered updates in a SQLite file, so it survives
// restarts. One writer at a time.
type Queue struct {
	db *sql.DB
}

const queueSchema = `
CREATE TABLE IF NOT EXISTS pending_updates (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	payload   TEXT    NOT NULL,
	queued_at TEXT    NOT NULL,
	attempts  INTEGER NOT NULL DEFAULT 0
);`

// OpenQueue opens or creates the queue database at path.
func OpenQueue(path string) (*Queue, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open queue: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(queueSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init queue: %w", err)
	}
	return &Queue{db: db}, nil
}

func (q *Queue) Close() error { return q.db.Close() }

func (q *Queue) Enqueue(ctx context.Context, u Update) error {
	payload, err := json.Marshal(u)
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx,
		`INSERT INTO pending_updates (payload, queued_at) VALUES (?, ?)`,
		string(payload), time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// Peek returns the oldest entry; ok is false when the queue is empty.
func (q *Queue) Peek(ctx context.Context) (e Entry, ok bool, err error) {
	list, err := q.List(ctx, 1)
	if err != nil || len(list) == 0 {
		return Entry{}, false, err
	}
	return list[0], true, nil
}

// List returns up to limit entries, oldest first. limit <= 0 means all.
func (q *Queue) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, payload, queued_at, attempts FROM pending_updates ORDER BY id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e        Entry
			payload  string
			queuedAt string
		)
		if err := rows.Scan(&e.ID, &payload, &queuedAt, &e.Attempts); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payload), &e.Update); err != nil {
			return nil, fmt.Errorf("entry %d: %w", e.ID, err)
		}
		e.QueuedAt, _ = time.Parse(time.RFC3339Nano, queuedAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (q *Queue) Delete(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM pending_updates WHERE id = ?`, id)
	return err
}

// Touch records a failed delivery attempt.
func (q *Queue) Touch(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `UPDATE pending_updates SET attempts = attempts + 1 WHERE id = ?`, id)
	return err
}

func (q *Queue) Len(ctx context.Context) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_updates`).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return n, err
}

// Clear drops every entry and returns how many were removed.
func (q *Queue) Clear(ctx context.Context) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM pending_updates`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
