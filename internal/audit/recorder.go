// Package audit records administrative actions. Writes are best-effort:
// a failed or dropped entry is logged and swallowed, never surfaced to the
// action that produced it.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/balbi1122/balbi-golf-booking/internal/models"
)

// MaxReadLimit caps how many entries a single read may return.
const MaxReadLimit = 200

// DefaultReadLimit applies when the caller passes a non-positive limit.
const DefaultReadLimit = 20

// Repo is the persistence the recorder needs.
type Repo interface {
	InsertAuditEntry(ctx context.Context, actor, action, detail string) error
	RecentAuditEntries(ctx context.Context, limit int) ([]models.AuditEntry, error)
}

type entry struct {
	actor  string
	action string
	detail string
}

// Recorder appends entries through a buffered queue so that recording never
// blocks or fails the primary action. A full queue drops the entry.
type Recorder struct {
	repo    Repo
	logger  *zerolog.Logger
	queue   chan entry
	done    chan struct{}
	stopped sync.Once
	wg      sync.WaitGroup
}

// NewRecorder starts the background writer.
func NewRecorder(repo Repo, logger *zerolog.Logger) *Recorder {
	r := &Recorder{
		repo:   repo,
		logger: logger,
		queue:  make(chan entry, 128),
		done:   make(chan struct{}),
	}
	r.wg.Add(1)
	go r.worker()
	return r
}

func (r *Recorder) worker() {
	defer r.wg.Done()
	for {
		select {
		case e := <-r.queue:
			r.write(e)
		case <-r.done:
			// Drain whatever is already queued, then stop.
			for {
				select {
				case e := <-r.queue:
					r.write(e)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(e entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.repo.InsertAuditEntry(ctx, e.actor, e.action, e.detail); err != nil {
		r.logger.Warn().Err(err).
			Str("actor", e.actor).
			Str("action", e.action).
			Msg("audit write failed; entry dropped")
	}
}

// Record enqueues an entry. It never blocks: when the queue is full the
// entry is dropped with a warning.
func (r *Recorder) Record(actor, action, detail string) {
	select {
	case r.queue <- entry{actor: actor, action: action, detail: detail}:
	default:
		r.logger.Warn().Str("action", action).Msg("audit queue full; entry dropped")
	}
}

// Recent returns the newest entries, newest first. The limit is defaulted
// and server-capped.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = DefaultReadLimit
	}
	if limit > MaxReadLimit {
		limit = MaxReadLimit
	}
	return r.repo.RecentAuditEntries(ctx, limit)
}

// Close drains the queue and stops the worker.
func (r *Recorder) Close() {
	r.stopped.Do(func() {
		close(r.done)
	})
	r.wg.Wait()
}
