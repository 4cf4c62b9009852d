// Package ingest imports phrase files into the database. Readings are
// annotated on a worker pool and the upserts are committed in batches.
package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/japaniel/tossa/pkg/db"
	"github.com/japaniel/tossa/pkg/phrase"
)

// WorkerPoolInterface abstracts the worker pool so tests can inject failing implementations.
type WorkerPoolInterface interface {
	Start(ctx context.Context)
	Submit(Job) error
	// SubmitCtx attempts to enqueue a job but returns promptly if ctx is canceled.
	SubmitCtx(ctx context.Context, job Job) error
	Close()
}

// Reader returns the kana reading of Japanese text. *reading.Analyzer implements it.
type Reader interface {
	Reading(text string) string
}

// Importer writes phrases into the database.
type Importer struct {
	DB *sql.DB
	// Readings fills Phrase.Reading from Native when it is empty. nil skips annotation.
	Readings  Reader
	BatchSize int
	Workers   int
	Logger    *zap.Logger
	// OnProgress is called with the number of phrases handed to the writer and the total.
	OnProgress func(current, total int)

	// PoolFactory allows tests to inject custom worker pool implementations.
	PoolFactory func(workers, queue int) WorkerPoolInterface
}

// NewImporter creates an Importer with the default batch size and worker count.
func NewImporter(conn *sql.DB, readings Reader) *Importer {
	return &Importer{
		DB:        conn,
		Readings:  readings,
		BatchSize: 50,
		Workers:   4,
	}
}

// Validate checks a phrase list before import: ids must be non-empty and unique,
// native and target text must be present.
func Validate(phrases []phrase.Phrase) error {
	seen := make(map[string]int, len(phrases))
	var errs []error
	for i, p := range phrases {
		id := strings.TrimSpace(p.ID)
		switch {
		case id == "":
			errs = append(errs, fmt.Errorf("phrase %d: empty id", i))
			continue
		case strings.TrimSpace(p.Native) == "" || strings.TrimSpace(p.Target) == "":
			errs = append(errs, fmt.Errorf("phrase %s: native and target are required", id))
		}
		if j, dup := seen[id]; dup {
			errs = append(errs, fmt.Errorf("phrase %s: duplicate id (entries %d and %d)", id, j, i))
		}
		seen[id] = i
	}
	return errors.Join(errs...)
}

type annotated struct {
	index  int
	phrase phrase.Phrase
}

// Import validates phrases, annotates readings concurrently and upserts them in
// input order. It returns the number of phrases committed.
func (im *Importer) Import(ctx context.Context, phrases []phrase.Phrase) (int, error) {
	logger := im.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := Validate(phrases); err != nil {
		return 0, err
	}
	total := len(phrases)
	if total == 0 {
		return 0, nil
	}
	batchSize := im.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}

	var wp WorkerPoolInterface
	if im.PoolFactory != nil {
		wp = im.PoolFactory(im.Workers, im.Workers*2)
	} else {
		wp = NewWorkerPool(im.Workers, im.Workers*2)
	}
	resultCh := make(chan annotated, im.Workers*2+1)
	doneCh := make(chan error, 1)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	bw := NewBatchWriter(ctx, im.DB, BatchOptions{
		Size:          batchSize,
		FlushInterval: 100 * time.Millisecond,
		Logger:        logger,
	})
	wp.Start(ctx)

	// Consumer: restore input order so positions match the file.
	go func() {
		defer close(doneCh)
		buffer := make(map[int]phrase.Phrase)
		next := 0
		for res := range resultCh {
			buffer[res.index] = res.phrase
			for {
				p, ok := buffer[next]
				if !ok {
					break
				}
				delete(buffer, next)
				if err := bw.Submit(ctx, func(ctx context.Context, tx *sql.Tx) error {
					return db.UpsertPhrase(ctx, tx, p)
				}); err != nil {
					cancel()
					doneCh <- err
					return
				}
				next++
				if im.OnProgress != nil && (next%batchSize == 0 || next == total) {
					im.OnProgress(next, total)
				}
			}
		}
		if next < total {
			doneCh <- ctx.Err()
			return
		}
		doneCh <- nil
	}()

	var submitErr error
	for i := range phrases {
		idx, p := i, phrases[i]
		job := func(ctx context.Context) error {
			if p.Reading == "" && im.Readings != nil {
				p.Reading = im.Readings.Reading(p.Native)
			}
			select {
			case resultCh <- annotated{index: idx, phrase: p}:
			case <-ctx.Done():
			}
			return nil
		}
		if err := wp.SubmitCtx(ctx, job); err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, ErrPoolClosed) {
				submitErr = fmt.Errorf("submit phrase %s: %w", p.ID, err)
			}
			cancel()
			break
		}
	}

	// Workers are done once Close returns, so no more sends can reach resultCh.
	wp.Close()
	close(resultCh)
	consumerErr := <-doneCh

	batchErr := bw.Close()
	committed := bw.Committed()

	switch {
	case submitErr != nil:
		return committed, submitErr
	case batchErr != nil:
		return committed, batchErr
	case consumerErr != nil:
		return committed, consumerErr
	}
	logger.Info("import finished", zap.Int("phrases", committed))
	return committed, nil
}
