package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// WriteFunc performs database writes inside a batch transaction.
type WriteFunc func(ctx context.Context, tx *sql.Tx) error

// ErrBatchWriterClosed is returned by Submit and Close once the writer is closed.
var ErrBatchWriterClosed = errors.New("batch writer closed")

// BatchOptions sizes a BatchWriter.
type BatchOptions struct {
	// Size is the number of writes committed per transaction. Defaults to 50.
	Size int
	// FlushInterval commits a partial batch after this long. 0 waits for Size or Close.
	FlushInterval time.Duration
	Logger        *zap.Logger
	// OnError sees every failed or dropped batch.
	OnError func(error)
}

// BatchWriter groups writes into transactions of up to Size callbacks. A
// single goroutine owns the pending batch, so batches commit in submission
// order. A failed callback rolls back its whole batch.
//
// Once the writer's context is canceled, pending writes are dropped and
// reported instead of committed.
type BatchWriter struct {
	db      *sql.DB
	opts    BatchOptions
	logger  *zap.Logger
	in      chan WriteFunc
	stopped chan struct{}

	closeMu sync.RWMutex
	closed  bool

	mu        sync.Mutex
	committed int
	err       error
}

// NewBatchWriter starts a writer committing to conn until ctx is canceled or
// Close is called.
func NewBatchWriter(ctx context.Context, conn *sql.DB, opts BatchOptions) *BatchWriter {
	if opts.Size <= 0 {
		opts.Size = 50
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	bw := &BatchWriter{
		db:      conn,
		opts:    opts,
		logger:  logger,
		in:      make(chan WriteFunc, opts.Size),
		stopped: make(chan struct{}),
	}
	go bw.run(ctx)
	return bw
}

// Submit queues w for the next batch. It blocks while the queue is full.
func (bw *BatchWriter) Submit(ctx context.Context, w WriteFunc) error {
	bw.closeMu.RLock()
	defer bw.closeMu.RUnlock()
	if bw.closed {
		return ErrBatchWriterClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case bw.in <- w:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (bw *BatchWriter) run(ctx context.Context) {
	defer close(bw.stopped)

	var tick <-chan time.Time
	if bw.opts.FlushInterval > 0 {
		t := time.NewTicker(bw.opts.FlushInterval)
		defer t.Stop()
		tick = t.C
	}

	batch := make([]WriteFunc, 0, bw.opts.Size)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		n := len(batch)
		switch err := bw.commit(ctx, batch); {
		case err != nil:
			bw.fail(err)
		default:
			bw.mu.Lock()
			bw.committed += n
			bw.mu.Unlock()
			bw.logger.Debug("batch committed", zap.Int("writes", n))
		}
		batch = batch[:0]
	}

	for {
		select {
		case w, ok := <-bw.in:
			if !ok {
				flush()
				return
			}
			batch = append(batch, w)
			if len(batch) >= bw.opts.Size {
				flush()
			}
		case <-tick:
			flush()
		}
	}
}

func (bw *BatchWriter) commit(ctx context.Context, batch []WriteFunc) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("dropping %d pending writes: %w", len(batch), err)
	}
	tx, err := bw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, w := range batch {
		if err := w(ctx, tx); err != nil {
			return fmt.Errorf("batch write %d of %d: %w", i+1, len(batch), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch of %d: %w", len(batch), err)
	}
	return nil
}

// fail keeps the first error for Close and forwards every error to OnError.
func (bw *BatchWriter) fail(err error) {
	bw.logger.Warn("batch write failed", zap.Error(err))
	bw.mu.Lock()
	if bw.err == nil {
		bw.err = err
	}
	bw.mu.Unlock()
	if bw.opts.OnError != nil {
		bw.opts.OnError(err)
	}
}

// Close commits what is pending and returns the first batch error, if any.
func (bw *BatchWriter) Close() error {
	bw.closeMu.Lock()
	if bw.closed {
		bw.closeMu.Unlock()
		return ErrBatchWriterClosed
	}
	bw.closed = true
	close(bw.in)
	bw.closeMu.Unlock()

	<-bw.stopped
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return bw.err
}

// Committed returns how many writes have been committed so far.
func (bw *BatchWriter) Committed() int {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return bw.committed
}
