package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"llmbridge/bridge"
)

// Entry is one journaled completion as read back from the database.
type Entry struct {
	// CorrelationID is a globally unique id for this completion, stable
	// across restarts. Request ids restart from 1 per runtime, so they
	// cannot serve as a durable key.
	CorrelationID string

	RequestID  uint64
	Prompt     string
	Result     string
	Success    bool
	Canceled   bool
	Err        string
	CreatedAt  time.Time
	Duration   time.Duration
	RecordedAt time.Time
}

// completionsRepo issues SQL against the completions table.
type completionsRepo struct {
	db *sql.DB
}

// sqliteTimeLayout matches the format CURRENT_TIMESTAMP produces, so
// created_at and recorded_at sort and compare consistently as text.
const sqliteTimeLayout = "2006-01-02 15:04:05"

func (r *completionsRepo) insert(ctx context.Context, rec bridge.CompletionRecord) error {
	const q = `
		INSERT INTO completions (
			correlation_id, request_id, prompt, result, success, canceled,
			error, max_tokens, temperature, created_at, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		uuid.NewString(),
		rec.ID,
		rec.Prompt,
		rec.Result,
		boolToInt(rec.Success),
		boolToInt(rec.Canceled),
		rec.Err,
		rec.Params.MaxTokens,
		rec.Params.Temperature,
		rec.CreatedAt.UTC().Format(sqliteTimeLayout),
		rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert completion: %w", err)
	}
	return nil
}

func (r *completionsRepo) recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
		SELECT correlation_id, request_id, prompt, result, success, canceled,
		       error, created_at, duration_ms, recorded_at
		FROM completions
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query completions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var success, canceled int
		var durationMS int64
		var createdAt, recordedAt string
		if err := rows.Scan(
			&e.CorrelationID, &e.RequestID, &e.Prompt, &e.Result,
			&success, &canceled, &e.Err, &createdAt, &durationMS, &recordedAt,
		); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		e.Success = success != 0
		e.Canceled = canceled != 0
		e.Duration = time.Duration(durationMS) * time.Millisecond
		e.CreatedAt, _ = time.Parse(sqliteTimeLayout, createdAt)
		e.RecordedAt, _ = time.Parse(sqliteTimeLayout, recordedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *completionsRepo) count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM completions").Scan(&n); err != nil {
		return 0, fmt.Errorf("count completions: %w", err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
