package agent

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/marcus/trail/internal/models"
	"github.com/marcus/trail/internal/queue"
)

type fakeProber struct {
	mu  sync.Mutex
	err error
}

func (f *fakeProber) Ping() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeProber) set(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func setupAgent(t *testing.T, probe Prober) (*Agent, *queue.Queue) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := queue.Init(db); err != nil {
		t.Fatalf("init queue: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	q := queue.New(db)
	a := New(q, probe, Options{ProbeInterval: time.Hour, ReplyTimeout: time.Second})
	return a, q
}

func runAgent(t *testing.T, a *Agent) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go a.Run(ctx)

	deadline := time.Now().Add(time.Second)
	for !a.Started() {
		if time.Now().After(deadline) {
			t.Fatalf("agent did not start")
		}
		time.Sleep(time.Millisecond)
	}
}

func payloadFor(roadmap string) models.SyncPayload {
	p := models.EmptyPayload()
	p.Progress = map[string][]string{roadmap: {"n1"}}
	return p
}

func TestQueueSyncAndPendingCount(t *testing.T) {
	a, _ := setupAgent(t, &fakeProber{})
	runAgent(t, a)

	if err := a.QueueSync(payloadFor("r")); err != nil {
		t.Fatalf("queue sync: %v", err)
	}
	if err := a.QueueSync(payloadFor("r2")); err != nil {
		t.Fatalf("queue sync: %v", err)
	}

	n, err := a.PendingCount()
	if err != nil {
		t.Fatalf("pending count: %v", err)
	}
	if n != 2 {
		t.Fatalf("count: got %d, want 2", n)
	}
}

func TestPendingData(t *testing.T) {
	a, _ := setupAgent(t, &fakeProber{})
	runAgent(t, a)

	if err := a.QueueSync(payloadFor("alpha")); err != nil {
		t.Fatalf("queue sync: %v", err)
	}

	records, err := a.PendingData()
	if err != nil {
		t.Fatalf("pending data: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records: got %d, want 1", len(records))
	}
	if _, ok := records[0].Data.Progress["alpha"]; !ok {
		t.Fatalf("record data: got %v", records[0].Data.Progress)
	}
}

func TestClearPending(t *testing.T) {
	a, _ := setupAgent(t, &fakeProber{})
	runAgent(t, a)

	if err := a.QueueSync(payloadFor("r")); err != nil {
		t.Fatalf("queue sync: %v", err)
	}
	if err := a.ClearPending(); err != nil {
		t.Fatalf("clear pending: %v", err)
	}
	n, err := a.PendingCount()
	if err != nil {
		t.Fatalf("pending count: %v", err)
	}
	if n != 0 {
		t.Fatalf("count after clear: got %d, want 0", n)
	}
}

func TestForceSyncDeliversLatest(t *testing.T) {
	a, q := setupAgent(t, &fakeProber{})
	runAgent(t, a)

	if _, err := q.Enqueue(payloadFor("older")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := q.Enqueue(payloadFor("newest")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	ok, err := a.ForceSync()
	if err != nil {
		t.Fatalf("force sync: %v", err)
	}
	if !ok {
		t.Fatalf("force sync reported failure")
	}

	select {
	case payload := <-a.Deliveries():
		if _, found := payload.Progress["newest"]; !found {
			t.Fatalf("delivered wrong payload: %v", payload.Progress)
		}
	case <-time.After(time.Second):
		t.Fatalf("no delivery after force sync")
	}

	n, err := q.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("queue after force sync: got %d, want 0", n)
	}
}

func TestForceSyncEmptyQueueSucceeds(t *testing.T) {
	a, _ := setupAgent(t, &fakeProber{})
	runAgent(t, a)

	ok, err := a.ForceSync()
	if err != nil {
		t.Fatalf("force sync: %v", err)
	}
	if !ok {
		t.Fatalf("empty-queue force sync should succeed")
	}
}

func TestReconnectDrainsQueuedPayload(t *testing.T) {
	probe := &fakeProber{err: errors.New("no route")}
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := queue.Init(db); err != nil {
		t.Fatalf("init queue: %v", err)
	}
	q := queue.New(db)

	// Short probe interval so offline retries tick quickly.
	a := New(q, probe, Options{ProbeInterval: 20 * time.Millisecond, ReplyTimeout: time.Second})
	runAgent(t, a)

	if a.Online() {
		t.Fatalf("agent online with failing probe")
	}

	if _, err := q.Enqueue(payloadFor("stale")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := q.Enqueue(payloadFor("offline-work")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	probe.set(nil)

	select {
	case payload := <-a.Deliveries():
		if _, found := payload.Progress["offline-work"]; !found {
			t.Fatalf("delivered wrong payload: %v", payload.Progress)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no delivery after reconnect")
	}

	if !a.Online() {
		t.Fatalf("agent still offline after successful probe")
	}
	n, err := q.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("queue after reconnect drain: got %d, want 0", n)
	}

	// The drain fires on the transition only; steady-state probes must not
	// produce further deliveries.
	select {
	case payload := <-a.Deliveries():
		t.Fatalf("unexpected second delivery: %v", payload.Progress)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestOnlineFlagFollowsProbe(t *testing.T) {
	probe := &fakeProber{err: errors.New("no route")}
	a, _ := setupAgent(t, probe)
	runAgent(t, a)

	if a.Online() {
		t.Fatalf("agent online with failing probe")
	}
}

func TestRepliesTimeOutWhenLoopNotRunning(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	if err := queue.Init(db); err != nil {
		t.Fatalf("init queue: %v", err)
	}

	a := New(queue.New(db), &fakeProber{}, Options{ReplyTimeout: 50 * time.Millisecond})

	// Fill the request buffer so the send path itself blocks
	for i := 0; i < cap(a.reqCh); i++ {
		a.reqCh <- request{}
	}

	if err := a.QueueSync(payloadFor("r")); !errors.Is(err, ErrNotReady) {
		t.Fatalf("error: got %v, want ErrNotReady", err)
	}
}
