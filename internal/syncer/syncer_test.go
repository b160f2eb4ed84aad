package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/marcus/trail/internal/models"
	"github.com/marcus/trail/internal/queue"
	"github.com/marcus/trail/internal/remote"
	"github.com/marcus/trail/internal/store"
)

type fakeRemote struct {
	mu      sync.Mutex
	saves   []models.SyncPayload
	saveErr error
	pingErr error
	payload models.SyncPayload
}

func (f *fakeRemote) SavePayload(p models.SyncPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves = append(f.saves, p)
	f.payload = p
	return nil
}

func (f *fakeRemote) LoadPayload() (models.SyncPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.payload, nil
}

func (f *fakeRemote) SaveCardIndex(models.CardIndex) error     { return nil }
func (f *fakeRemote) LoadCardIndex() (models.CardIndex, error) { return models.EmptyCardIndex(), nil }
func (f *fakeRemote) SaveCardContent(string, string) error     { return nil }
func (f *fakeRemote) LoadCardContent(string) (string, error)   { return "", nil }
func (f *fakeRemote) Ping() error                              { return f.pingErr }

func (f *fakeRemote) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

type fakeSession struct{ signedIn bool }

func (f fakeSession) IsSignedIn() bool              { return f.signedIn }
func (f fakeSession) APIKey() string                { return "test-key" }
func (f fakeSession) User() (remote.UserInfo, bool) { return remote.UserInfo{}, f.signedIn }

func setupSyncer(t *testing.T, rm *fakeRemote, online bool, debounce time.Duration) (*Syncer, *store.Store, *queue.Queue) {
	t.Helper()
	st, err := store.Initialize(t.TempDir())
	if err != nil {
		t.Fatalf("initialize store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	if err := queue.Init(st.Conn()); err != nil {
		t.Fatalf("init queue: %v", err)
	}
	q := queue.New(st.Conn())

	s := New(st, q, rm, fakeSession{signedIn: true}, func() bool { return online }, debounce)
	return s, st, q
}

func TestBurstCollapsesToOneWrite(t *testing.T) {
	rm := &fakeRemote{}
	s, st, _ := setupSyncer(t, rm, true, 30*time.Millisecond)

	if err := st.CompleteNode("r", "n"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	// Three rapid requests inside one debounce window
	s.RequestSync()
	s.RequestSync()
	s.RequestSync()

	time.Sleep(150 * time.Millisecond)
	s.Wait()

	if got := rm.saveCount(); got != 1 {
		t.Fatalf("remote writes: got %d, want 1", got)
	}
}

func TestRequestSyncResetsWindow(t *testing.T) {
	rm := &fakeRemote{}
	s, _, _ := setupSyncer(t, rm, true, 60*time.Millisecond)

	s.RequestSync()
	time.Sleep(30 * time.Millisecond)
	// Still inside the window: this must replace, not stack
	s.RequestSync()
	time.Sleep(30 * time.Millisecond)

	if got := rm.saveCount(); got != 0 {
		t.Fatalf("write fired before reset window elapsed: got %d writes", got)
	}

	time.Sleep(100 * time.Millisecond)
	s.Wait()
	if got := rm.saveCount(); got != 1 {
		t.Fatalf("remote writes: got %d, want 1", got)
	}
}

func TestOfflineQueuesExactlyOneRecord(t *testing.T) {
	rm := &fakeRemote{}
	s, st, q := setupSyncer(t, rm, false, 10*time.Millisecond)

	if err := st.CompleteNode("r", "n"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}

	if got := rm.saveCount(); got != 0 {
		t.Fatalf("offline flush must not hit the network, got %d writes", got)
	}
	n, err := q.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("queued records: got %d, want 1", n)
	}

	st2 := s.Status()
	if st2.Error == "" {
		t.Fatalf("offline flush should surface a soft status")
	}
}

func TestFailedWriteQueuesAndSetsError(t *testing.T) {
	rm := &fakeRemote{saveErr: errors.New("connection reset")}
	s, _, q := setupSyncer(t, rm, true, 10*time.Millisecond)

	_ = s.Flush(context.Background())

	n, err := q.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("queued records after failure: got %d, want 1", n)
	}
	if s.Status().Error == "" {
		t.Fatalf("failure should set the status error")
	}
}

func TestAuthErrorIsNotQueued(t *testing.T) {
	rm := &fakeRemote{saveErr: remote.ErrUnauthorized}
	s, _, q := setupSyncer(t, rm, true, 10*time.Millisecond)

	_ = s.Flush(context.Background())

	n, err := q.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("auth failures must not queue retries, got %d records", n)
	}
	if s.Status().Error == "" {
		t.Fatalf("auth failure should set the status error")
	}
}

func TestSuccessClearsQueueAndError(t *testing.T) {
	rm := &fakeRemote{}
	s, st, q := setupSyncer(t, rm, true, 10*time.Millisecond)

	if _, err := q.Enqueue(models.EmptyPayload()); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := st.SetSyncError("stale error"); err != nil {
		t.Fatalf("set error: %v", err)
	}

	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}

	n, err := q.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("queue after success: got %d, want 0", n)
	}
	status := s.Status()
	if status.Error != "" {
		t.Fatalf("error after success: got %q", status.Error)
	}
	if status.LastSyncTime == nil {
		t.Fatalf("last sync time not recorded")
	}

	marks, err := st.GetSyncMarks()
	if err != nil {
		t.Fatalf("get marks: %v", err)
	}
	if marks.LastSyncedAt == nil {
		t.Fatalf("store last synced not recorded")
	}
}

func TestNotSignedInIsNoop(t *testing.T) {
	rm := &fakeRemote{}
	st, err := store.Initialize(t.TempDir())
	if err != nil {
		t.Fatalf("initialize store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := queue.Init(st.Conn()); err != nil {
		t.Fatalf("init queue: %v", err)
	}
	q := queue.New(st.Conn())

	s := New(st, q, rm, fakeSession{signedIn: false}, func() bool { return true }, 10*time.Millisecond)

	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if got := rm.saveCount(); got != 0 {
		t.Fatalf("signed-out flush wrote %d times", got)
	}
	n, _ := q.Count()
	if n != 0 {
		t.Fatalf("signed-out flush queued %d records", n)
	}
}

func TestDeliverWritesVerbatim(t *testing.T) {
	rm := &fakeRemote{}
	s, st, q := setupSyncer(t, rm, true, 10*time.Millisecond)

	stamp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	payload := models.SyncPayload{
		Progress:  map[string][]string{"r": {"n"}},
		UpdatedAt: stamp,
	}
	if _, err := q.Enqueue(payload); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if err := s.Deliver(payload); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	if got := rm.saveCount(); got != 1 {
		t.Fatalf("remote writes: got %d, want 1", got)
	}
	rm.mu.Lock()
	written := rm.saves[0].UpdatedAt
	rm.mu.Unlock()
	if !written.Equal(stamp) {
		t.Fatalf("UpdatedAt restamped: got %v, want %v", written, stamp)
	}

	n, _ := q.Count()
	if n != 0 {
		t.Fatalf("queue after deliver: got %d, want 0", n)
	}
	marks, err := st.GetSyncMarks()
	if err != nil {
		t.Fatalf("get marks: %v", err)
	}
	if marks.LastSyncedAt == nil || !marks.LastSyncedAt.Equal(stamp) {
		t.Fatalf("last synced: got %v, want %v", marks.LastSyncedAt, stamp)
	}
}

func TestDeliverFailureRequeuesPayload(t *testing.T) {
	rm := &fakeRemote{saveErr: errors.New("connection reset")}
	s, _, q := setupSyncer(t, rm, true, 10*time.Millisecond)

	payload := models.SyncPayload{
		Progress:  map[string][]string{"r": {"n"}},
		UpdatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	// The agent drained the record before handing it over, so a failed
	// delivery must put it back or it is gone for good.
	if err := s.Deliver(payload); err == nil {
		t.Fatalf("deliver should report the write failure")
	}

	n, err := q.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("queued records after failed deliver: got %d, want 1", n)
	}
	rec, err := q.DrainLatest()
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if rec == nil || !rec.Data.UpdatedAt.Equal(payload.UpdatedAt) {
		t.Fatalf("requeued payload does not match: got %+v", rec)
	}
	if s.Status().Error == "" {
		t.Fatalf("failed deliver should surface a soft status")
	}
}

func TestDeliverAuthErrorIsNotQueued(t *testing.T) {
	rm := &fakeRemote{saveErr: remote.ErrUnauthorized}
	s, _, q := setupSyncer(t, rm, true, 10*time.Millisecond)

	err := s.Deliver(models.EmptyPayload())
	if !errors.Is(err, remote.ErrUnauthorized) {
		t.Fatalf("deliver: got %v, want ErrUnauthorized", err)
	}

	n, qerr := q.Count()
	if qerr != nil {
		t.Fatalf("count: %v", qerr)
	}
	if n != 0 {
		t.Fatalf("auth failures must not queue retries, got %d records", n)
	}
}
