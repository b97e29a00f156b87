// Package batch reads many billing documents concurrently and merges each
// reading into an empty form.
package batch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/payorders/internal/document"
	"github.com/joseph-ayodele/payorders/internal/entity"
	"github.com/joseph-ayodele/payorders/internal/extraction"
	"github.com/joseph-ayodele/payorders/internal/merge"
)

// ErrClosed is returned by Enqueue after Shutdown.
var ErrClosed = errors.New("batch queue is shutting down")

// Job is one document to read.
type Job struct {
	Seq         int
	Document    document.Document
	SubmittedAt time.Time
}

// Outcome is the result of one job. Err is set when extraction failed.
type Outcome struct {
	Seq      int                    `json:"-"`
	Document string                 `json:"document"`
	Pages    int                    `json:"pages"`
	Fields   entity.ExtractedFields `json:"fields"`
	Merge    merge.Result           `json:"merge"`
	Cached   bool                   `json:"cached"`
	Err      error                  `json:"-"`
	Elapsed  time.Duration          `json:"elapsed"`
}

type Queue struct {
	extractor extraction.Extractor
	merger    *merge.Merger
	concepts  []string
	logger    *slog.Logger
	workers   int
	timeout   time.Duration
	onDone    func(Outcome)
	base      context.Context

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*Queue)

func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithBaseContext parents every per-document context on ctx, so cancelling
// it aborts in-flight extractions.
func WithBaseContext(ctx context.Context) Option {
	return func(q *Queue) {
		if ctx != nil {
			q.base = ctx
		}
	}
}

// WithOnDone registers a callback run from the worker goroutine after each job.
func WithOnDone(fn func(Outcome)) Option {
	return func(q *Queue) {
		q.onDone = fn
	}
}

func NewQueue(ext extraction.Extractor, refs entity.ReferenceLists, logger *slog.Logger, opts ...Option) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		extractor: ext,
		merger:    merge.New(refs.Companies, refs.Creditors, logger),
		concepts:  entity.Canonicals(refs.Concepts),
		logger:    logger,
		workers:   4,
		timeout:   2 * time.Minute,
		ch:        make(chan Job, 64),
		onDone:    func(Outcome) {},
		base:      context.Background(),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *Queue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("batch.worker.started", "worker_id", workerID)

				for job := range q.ch {
					out := q.process(job)
					if out.Err != nil {
						q.logger.Error("batch.document.failed", "worker_id", workerID, "document", out.Document, "error", out.Err)
					} else {
						q.logger.Info("batch.document.ok", "worker_id", workerID, "document", out.Document,
							"populated", out.Merge.Populated, "cached", out.Cached)
					}
					q.onDone(out)
				}

				q.logger.Debug("batch.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *Queue) process(job Job) Outcome {
	ctx, cancel := context.WithTimeout(q.base, q.timeout)
	defer cancel()

	start := time.Now()
	doc := job.Document
	out := Outcome{Seq: job.Seq, Document: doc.Name, Pages: doc.Pages}

	res, err := q.extractor.Extract(ctx, extraction.Request{
		DocumentName: doc.Name,
		ContentType:  doc.ContentType,
		Content:      doc.Content,
		ContentHash:  doc.HashHex,
		Concepts:     q.concepts,
	})
	out.Elapsed = time.Since(start)
	if err != nil {
		out.Err = err
		return out
	}

	out.Fields = res.Fields
	out.Cached = res.Cached
	out.Merge = q.merger.Merge(res.Fields, entity.FormState{})
	return out
}

// Enqueue hands a job to the workers, blocking while the queue is full until
// ctx ends.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		return nil
	default:
		q.logger.Warn("batch.queue.full", "document", job.Document.Name)
	}
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish.
func (q *Queue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("batch.shutdown.interrupted")
	case <-done:
		q.logger.Info("batch.shutdown.drained")
	}
}

// Run reads every document and returns the outcomes in input order. It
// waits for every started extraction; cancelling ctx makes the remaining ones
// fail fast.
func Run(ctx context.Context, ext extraction.Extractor, refs entity.ReferenceLists, docs []document.Document, logger *slog.Logger, opts ...Option) ([]Outcome, error) {
	outcomes := make([]Outcome, len(docs))
	var mu sync.Mutex
	collect := WithOnDone(func(o Outcome) {
		mu.Lock()
		defer mu.Unlock()
		outcomes[o.Seq] = o
	})

	q := NewQueue(ext, refs, logger, append(opts, WithBaseContext(ctx), collect)...)
	for i, d := range docs {
		if err := q.Enqueue(ctx, Job{Seq: i, Document: d}); err != nil {
			q.Shutdown(context.Background())
			return nil, err
		}
	}
	q.Shutdown(context.Background())
	return outcomes, ctx.Err()
}
