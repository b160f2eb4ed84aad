// Package syncer debounces and executes cloud writes. Every local mutation
// calls RequestSync; the coordinator collapses bursts into a single
// full-state write per quiet window. Sync failures are absorbed into a
// status string and the durable queue; they never propagate to mutation
// callers.
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/marcus/trail/internal/models"
	"github.com/marcus/trail/internal/queue"
	"github.com/marcus/trail/internal/remote"
	"github.com/marcus/trail/internal/store"
)

// OnlineFunc reports whether the cloud endpoint is currently reachable.
// The agent maintains this flag from its connectivity watcher; one-shot
// CLI runs pass a direct probe instead.
type OnlineFunc func() bool

// Status is a point-in-time snapshot for `trail sync --status`.
type Status struct {
	LastSyncTime *time.Time `json:"lastSyncTime,omitempty"`
	Error        string     `json:"error,omitempty"`
	PendingCount int64      `json:"pendingCount"`
	Offline      bool       `json:"offline"`
	Scheduled    bool       `json:"scheduled"`
}

// Syncer owns the single pending debounce timer. One timer slot, not a
// list: scheduling while a timer is pending cancels and replaces it, so a
// burst of mutations produces exactly one write.
type Syncer struct {
	store   *store.Store
	queue   *queue.Queue
	remote  remote.Store
	session remote.SessionProvider
	online  OnlineFunc

	debounce time.Duration
	now      func() time.Time

	mu        sync.Mutex
	pending   *time.Timer
	lastSync  *time.Time
	lastError string
	wg        sync.WaitGroup
}

// New wires a coordinator. debounce <= 0 falls back to 500ms.
func New(st *store.Store, q *queue.Queue, rm remote.Store, sess remote.SessionProvider, online OnlineFunc, debounce time.Duration) *Syncer {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Syncer{
		store:    st,
		queue:    q,
		remote:   rm,
		session:  sess,
		online:   online,
		debounce: debounce,
		now:      time.Now,
	}
}

// RequestSync schedules a sync after the debounce window. Never blocks.
// A call while a timer is already pending resets the window.
func (s *Syncer) RequestSync() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		s.pending.Stop()
	}
	s.pending = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		s.pending = nil
		s.mu.Unlock()
		s.syncOnce()
	})
}

// Flush cancels any pending timer and runs the sync synchronously. Used by
// one-shot CLI runs that cannot outlive the debounce window, and by
// `trail sync now`. Returns the error that Status would report; callers
// decide whether it is fatal.
func (s *Syncer) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- s.syncOnce() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until in-flight writes finish. Test and shutdown hook.
func (s *Syncer) Wait() {
	s.wg.Wait()
}

// syncOnce performs one full-state write attempt. Earlier in-flight writes
// are never cancelled; last writer wins at the remote.
func (s *Syncer) syncOnce() error {
	if !s.session.IsSignedIn() {
		return nil
	}

	s.wg.Add(1)
	defer s.wg.Done()

	payload, err := s.store.Snapshot()
	if err != nil {
		s.setError("assemble sync payload: " + err.Error())
		return err
	}

	if s.online != nil && !s.online() {
		return s.deferOffline(payload)
	}

	if err := s.remote.SavePayload(payload); err != nil {
		if errors.Is(err, remote.ErrUnauthorized) || errors.Is(err, remote.ErrForbidden) {
			// Auth errors are never retried automatically: queueing the
			// payload would loop on the same rejection.
			s.setError("session expired, run 'trail auth login'")
			return err
		}
		slog.Debug("sync write failed, queueing", "error", err)
		return s.deferOffline(payload)
	}

	if err := s.store.SetLastSynced(payload.UpdatedAt); err != nil {
		s.setError("record sync time: " + err.Error())
		return err
	}
	// A successful full-state write supersedes everything queued before it.
	if err := s.queue.Clear(); err != nil {
		slog.Warn("clear pending queue", "error", err)
	}

	t := s.now().UTC()
	s.mu.Lock()
	s.lastSync = &t
	s.lastError = ""
	s.mu.Unlock()
	return nil
}

// deferOffline records the payload durably and surfaces a soft status.
func (s *Syncer) deferOffline(payload models.SyncPayload) error {
	if _, err := s.queue.Enqueue(payload); err != nil {
		s.setError("queue offline change: " + err.Error())
		return err
	}
	s.setError("offline, will sync when reconnected")
	return nil
}

func (s *Syncer) setError(msg string) {
	s.mu.Lock()
	s.lastError = msg
	s.mu.Unlock()
	if err := s.store.SetSyncError(msg); err != nil {
		slog.Warn("persist sync error", "error", err)
	}
}

// Deliver force-writes a payload the agent drained from the queue after a
// reconnect. The agent holds no credentials, so the authenticated write
// happens here in the foreground. The drain already removed the record, so
// a transient write failure puts the payload back in the queue; retrying is
// the queue's job, not the caller's.
func (s *Syncer) Deliver(payload models.SyncPayload) error {
	if !s.session.IsSignedIn() {
		return remote.ErrUnauthorized
	}
	if err := s.remote.SavePayload(payload); err != nil {
		if errors.Is(err, remote.ErrUnauthorized) || errors.Is(err, remote.ErrForbidden) {
			s.setError("session expired, run 'trail auth login'")
			return err
		}
		if qerr := s.deferOffline(payload); qerr != nil {
			return qerr
		}
		return err
	}
	if err := s.store.SetLastSynced(payload.UpdatedAt); err != nil {
		return err
	}
	if err := s.queue.Clear(); err != nil {
		slog.Warn("clear pending queue", "error", err)
	}
	t := s.now().UTC()
	s.mu.Lock()
	s.lastSync = &t
	s.lastError = ""
	s.mu.Unlock()
	return nil
}

// Status reports last sync time, last error, durable pending count and the
// current connectivity flag.
func (s *Syncer) Status() Status {
	s.mu.Lock()
	st := Status{
		LastSyncTime: s.lastSync,
		Error:        s.lastError,
		Scheduled:    s.pending != nil,
	}
	s.mu.Unlock()

	if n, err := s.queue.Count(); err == nil {
		st.PendingCount = n
	}
	if s.online != nil {
		st.Offline = !s.online()
	}
	if st.LastSyncTime == nil {
		if marks, err := s.store.GetSyncMarks(); err == nil && marks.LastSyncedAt != nil {
			st.LastSyncTime = marks.LastSyncedAt
			if st.Error == "" {
				st.Error = marks.LastSyncError
			}
		}
	}
	return st
}
