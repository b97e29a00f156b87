package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/joseph-ayodele/payorders/internal/common"
	"github.com/joseph-ayodele/payorders/internal/metrics"
	"github.com/joseph-ayodele/payorders/internal/repository"
)

// Registry holds the open sessions of one process.
type Registry struct {
	deps   *Deps
	refs   repository.ReferenceRepository
	ttl    time.Duration
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session

	cron *cron.Cron
}

// NewRegistry builds a Registry. Sessions idle longer than ttl are removed by
// Sweep.
func NewRegistry(deps Deps, refs repository.ReferenceRepository, ttl time.Duration) *Registry {
	deps.defaults()
	return &Registry{
		deps:     &deps,
		refs:     refs,
		ttl:      ttl,
		logger:   deps.Logger,
		sessions: map[uuid.UUID]*Session{},
	}
}

// Create opens a session with a fresh snapshot of the reference lists.
func (r *Registry) Create(ctx context.Context) (*Session, error) {
	lists, err := repository.LoadLists(ctx, r.refs)
	if err != nil {
		r.logger.Error("session.create.references_failed", "error", err)
		return nil, common.NewAppError(common.CodeDatabase, "reference lists are unavailable", fmt.Errorf("%w: %w", common.ErrDatabase, err))
	}

	s := New(r.deps, lists)
	r.mu.Lock()
	r.sessions[s.ID] = s
	n := len(r.sessions)
	r.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	r.logger.Info("session.create",
		"session_id", s.ID,
		"companies", len(lists.Companies),
		"creditors", len(lists.Creditors),
		"concepts", len(lists.Concepts),
	)
	return s, nil
}

// Get returns the session with id.
func (r *Registry) Get(id uuid.UUID) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, common.NewAppError(common.CodeNotFound, "session not found", common.ErrNotFound)
	}
	return s, nil
}

// Delete discards a session, as when the user navigates away.
func (r *Registry) Delete(id uuid.UUID) bool {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	if ok {
		r.logger.Info("session.delete", "session_id", id)
	}
	return ok
}

// Len is the number of open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns how many.
func (r *Registry) Sweep() int {
	cutoff := r.deps.Now().Add(-r.ttl)

	r.mu.Lock()
	removed := 0
	for id, s := range r.sessions {
		if s.lastTouched().Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	if removed > 0 {
		metrics.SessionsExpired.Add(float64(removed))
		r.logger.Info("session.sweep", "removed", removed, "remaining", n)
	}
	return removed
}

// StartSweeper schedules Sweep with a cron spec in the given time zone.
func (r *Registry) StartSweeper(schedule, timeZone string) error {
	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		loc = time.UTC
	}

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(schedule, func() { r.Sweep() }); err != nil {
		return fmt.Errorf("unable to schedule session sweep: %w", err)
	}
	c.Start()
	r.cron = c
	r.logger.Info("session.sweeper.started", "schedule", schedule, "tz", loc.String())
	return nil
}

// StopSweeper stops the scheduler and waits for a running sweep.
func (r *Registry) StopSweeper() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
	r.logger.Info("session.sweeper.stopped")
}
