// Package conflict prevents silent data loss when the same account has
// unsynced local changes and independently-updated remote changes (two
// devices). Detection happens only at cloud-load time; resolution is a
// binary, user-driven choice with no field-level merge.
package conflict

import (
	"fmt"
	"sync"
	"time"

	"github.com/marcus/trail/internal/models"
	"github.com/marcus/trail/internal/remote"
	"github.com/marcus/trail/internal/store"
)

// State is the detector's position in its small machine:
// Idle -> ConflictDetected -> Idle.
type State int

const (
	Idle State = iota
	ConflictDetected
)

// Descriptor is the transient record of a detected divergence. It is never
// persisted and is discarded once the user picks a direction.
type Descriptor struct {
	CloudLastModified time.Time
	LocalLastModified time.Time
}

// Detector tracks at most one outstanding conflict.
type Detector struct {
	mu      sync.Mutex
	state   State
	current *Descriptor
}

// NewDetector returns an idle detector.
func NewDetector() *Detector {
	return &Detector{}
}

// Check compares the remote document's UpdatedAt against the local sync
// marks. A conflict is raised if and only if the remote document is newer
// than the last timestamp this client knows it wrote AND local state has
// unsynced mutations. Returns the descriptor when a conflict was raised.
func (d *Detector) Check(cloudUpdatedAt time.Time, marks store.SyncMarks) *Descriptor {
	if cloudUpdatedAt.IsZero() {
		return nil
	}
	if marks.LastSyncedAt != nil && !cloudUpdatedAt.After(*marks.LastSyncedAt) {
		return nil
	}
	if marks.LastSyncedAt == nil && marks.LocalLastModified == nil {
		// Fresh client, nothing local to lose: take remote silently.
		return nil
	}
	pending := marks.LocalLastModified != nil &&
		(marks.LastSyncedAt == nil || marks.LocalLastModified.After(*marks.LastSyncedAt))
	if !pending {
		return nil
	}

	desc := &Descriptor{CloudLastModified: cloudUpdatedAt}
	if marks.LocalLastModified != nil {
		desc.LocalLastModified = *marks.LocalLastModified
	}

	d.mu.Lock()
	d.state = ConflictDetected
	d.current = desc
	d.mu.Unlock()
	return desc
}

// State returns the current detector state.
func (d *Detector) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Current returns the outstanding descriptor, or nil when idle.
func (d *Detector) Current() *Descriptor {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// clear discards the descriptor and returns the detector to Idle.
func (d *Detector) clear() {
	d.mu.Lock()
	d.state = Idle
	d.current = nil
	d.mu.Unlock()
}

// Resolver applies the user's binary choice. Both paths bypass the sync
// coordinator's debounce and offline checks on purpose.
type Resolver struct {
	Store    *store.Store
	Remote   remote.Store
	Detector *Detector
}

// Download overwrites local progress/notes/settings wholesale with the
// remote payload and clears the descriptor.
func (r *Resolver) Download() (models.SyncPayload, error) {
	payload, err := r.Remote.LoadPayload()
	if err != nil {
		return payload, fmt.Errorf("load remote payload: %w", err)
	}
	if err := r.Store.ReplaceAll(payload); err != nil {
		return payload, fmt.Errorf("replace local state: %w", err)
	}
	r.Detector.clear()
	return payload, nil
}

// Upload force-writes current local state to the remote document,
// regardless of the remote timestamp, and clears the descriptor.
func (r *Resolver) Upload() (models.SyncPayload, error) {
	payload, err := r.Store.Snapshot()
	if err != nil {
		return payload, fmt.Errorf("snapshot local state: %w", err)
	}
	if err := r.Remote.SavePayload(payload); err != nil {
		return payload, fmt.Errorf("write remote payload: %w", err)
	}
	if err := r.Store.SetLastSynced(payload.UpdatedAt); err != nil {
		return payload, fmt.Errorf("record sync time: %w", err)
	}
	r.Detector.clear()
	return payload, nil
}
