// Package journal persists the terminal record of every async generation
// request to SQLite. Writes go through a buffered write-behind worker so
// recording a completion never blocks a bridge worker goroutine; reads are
// served directly from the database.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"llmbridge/bridge"
)

// Journal owns the completions database. It implements
// bridge.CompletionSink, so it can be handed to bridge.Config.Completions
// directly.
type Journal struct {
	db     *sql.DB
	repo   *completionsRepo
	writer *asyncWriter
	log    *zap.Logger
}

var _ bridge.CompletionSink = (*Journal)(nil)

// Options tunes a Journal. The zero value is usable.
type Options struct {
	// QueueCapacity is the write-behind buffer size. Non-positive takes
	// defaultQueueCapacity.
	QueueCapacity int

	// DrainTimeout bounds how long Close waits for buffered writes.
	// Non-positive takes defaultDrainTimeout.
	DrainTimeout time.Duration

	// Logger receives journal diagnostics. Nil disables logging.
	Logger *zap.Logger
}

// Open creates or opens the journal database at path, applies pending
// migrations, and starts the write-behind worker.
func Open(path string, opts Options) (*Journal, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	db, err := openSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: %w", err)
	}

	repo := &completionsRepo{db: db}
	j := &Journal{
		db:   db,
		repo: repo,
		log:  log,
	}
	j.writer = newAsyncWriter(j.persist, opts.QueueCapacity, opts.DrainTimeout)
	j.writer.start()

	log.Info("journal opened", zap.String("path", path))
	return j, nil
}

// RecordCompletion queues one terminal request record for persistence.
// Never blocks; when the buffer is full the record is dropped and counted,
// since losing a journal row must not stall inference.
func (j *Journal) RecordCompletion(rec bridge.CompletionRecord) {
	if !j.writer.enqueue(rec) {
		j.log.Warn("journal queue full, dropping record",
			zap.Uint64("request_id", rec.ID),
		)
	}
}

// persist writes one record. Runs on the writer goroutine.
func (j *Journal) persist(rec bridge.CompletionRecord) {
	if err := j.repo.insert(context.Background(), rec); err != nil {
		j.log.Error("journal write failed",
			zap.Uint64("request_id", rec.ID),
			zap.Error(err),
		)
	}
}

// Recent returns the most recent completions, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	return j.repo.recent(ctx, limit)
}

// Count returns the total number of journaled completions.
func (j *Journal) Count(ctx context.Context) (int64, error) {
	return j.repo.count(ctx)
}

// Dropped returns how many records were discarded because the write
// buffer was full.
func (j *Journal) Dropped() int64 {
	return j.writer.dropped()
}

// Close drains buffered writes (bounded by DrainTimeout) and closes the
// database. Idempotent.
func (j *Journal) Close() error {
	j.writer.stop()
	return j.db.Close()
}
