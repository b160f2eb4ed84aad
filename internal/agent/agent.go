// Package agent runs the background half of sync: it owns the durable
// pending queue, watches connectivity, and hands drained payloads back to
// the foreground over a delivery channel. The agent never holds
// credentials; authenticated writes always happen in the foreground.
package agent

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/marcus/trail/internal/models"
	"github.com/marcus/trail/internal/queue"
)

// ErrNotReady is returned when the agent loop does not answer within the
// reply timeout. Callers treat it as "agent unavailable", not as failure
// of the underlying operation.
var ErrNotReady = errors.New("sync agent not ready")

// MsgType enumerates the request protocol between foreground and agent.
type MsgType string

const (
	MsgQueueSync       MsgType = "QUEUE_SYNC"
	MsgGetPendingCount MsgType = "GET_PENDING_COUNT"
	MsgGetPendingData  MsgType = "GET_PENDING_DATA"
	MsgForceSync       MsgType = "FORCE_SYNC"
	MsgClearPending    MsgType = "CLEAR_PENDING"
)

type request struct {
	id      uint64
	msgType MsgType
	payload *models.SyncPayload
	reply   chan response
}

type response struct {
	id      uint64
	success bool
	count   int64
	records []models.PendingSyncRecord
	err     string
}

// Prober checks endpoint reachability without credentials.
type Prober interface {
	Ping() error
}

// Options tune the agent's timers. Zero values get defaults.
type Options struct {
	ProbeInterval time.Duration // steady-state probe cadence while online
	ReplyTimeout  time.Duration // how long callers wait for the loop
}

// Agent serializes all queue access through a single loop goroutine.
type Agent struct {
	queue   *queue.Queue
	probe   Prober
	reqCh   chan request
	nextID  atomic.Uint64
	online  atomic.Bool
	started atomic.Bool

	deliveries chan models.SyncPayload

	probeInterval time.Duration
	replyTimeout  time.Duration
}

// New builds an agent around the durable queue. Run must be called before
// the client methods are useful.
func New(q *queue.Queue, probe Prober, opts Options) *Agent {
	if opts.ProbeInterval <= 0 {
		opts.ProbeInterval = 15 * time.Second
	}
	if opts.ReplyTimeout <= 0 {
		opts.ReplyTimeout = 3 * time.Second
	}
	return &Agent{
		queue:         q,
		probe:         probe,
		reqCh:         make(chan request, 16),
		deliveries:    make(chan models.SyncPayload, 1),
		probeInterval: opts.ProbeInterval,
		replyTimeout:  opts.ReplyTimeout,
	}
}

// Deliveries yields payloads drained from the queue on reconnect or force
// sync. The foreground performs the authenticated write for each one.
func (a *Agent) Deliveries() <-chan models.SyncPayload {
	return a.deliveries
}

// Online reports the connectivity flag maintained by the watcher.
func (a *Agent) Online() bool {
	return a.online.Load()
}

// Started reports whether Run has been entered. Foregrounds use this to
// decide between the agent's connectivity flag and a direct probe.
func (a *Agent) Started() bool {
	return a.started.Load()
}

// Run serves requests and watches connectivity until ctx is cancelled.
func (a *Agent) Run(ctx context.Context) {
	a.started.Store(true)
	// Initial probe so Online is meaningful before the first tick.
	a.setOnline(a.probe.Ping() == nil)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	if a.probeInterval < bo.InitialInterval {
		bo.InitialInterval = a.probeInterval
	}
	bo.MaxInterval = a.probeInterval
	bo.MaxElapsedTime = 0 // retry forever

	probeTimer := time.NewTimer(a.nextProbe(bo))
	defer probeTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-a.reqCh:
			a.handle(req)
		case <-probeTimer.C:
			wasOnline := a.online.Load()
			ok := a.probe.Ping() == nil
			a.setOnline(ok)
			if ok {
				bo.Reset()
				if !wasOnline {
					slog.Info("connectivity restored, draining queue")
					a.drain()
				}
			}
			probeTimer.Reset(a.nextProbe(bo))
		}
	}
}

// nextProbe picks backoff while offline and a steady cadence while online.
func (a *Agent) nextProbe(bo *backoff.ExponentialBackOff) time.Duration {
	if a.online.Load() {
		return a.probeInterval
	}
	return bo.NextBackOff()
}

func (a *Agent) setOnline(ok bool) {
	if a.online.Swap(ok) != ok {
		slog.Debug("connectivity changed", "online", ok)
	}
}

func (a *Agent) handle(req request) {
	resp := response{id: req.id}
	switch req.msgType {
	case MsgQueueSync:
		if req.payload == nil {
			resp.err = "missing payload"
			break
		}
		if _, err := a.queue.Enqueue(*req.payload); err != nil {
			resp.err = err.Error()
			break
		}
		resp.success = true
	case MsgGetPendingCount:
		n, err := a.queue.Count()
		if err != nil {
			resp.err = err.Error()
			break
		}
		resp.success = true
		resp.count = n
	case MsgGetPendingData:
		records, err := a.queue.All()
		if err != nil {
			resp.err = err.Error()
			break
		}
		resp.success = true
		resp.records = records
	case MsgForceSync:
		resp.success = a.drain()
	case MsgClearPending:
		if err := a.queue.Clear(); err != nil {
			resp.err = err.Error()
			break
		}
		resp.success = true
	default:
		resp.err = "unknown message type"
	}

	select {
	case req.reply <- resp:
	default:
		// Caller timed out and walked away; drop the reply.
	}
}

// drain pops the newest queued payload and offers it to the foreground.
// Only the latest snapshot matters: each payload is full state, so older
// entries are superseded and dropped with it. If no foreground consumer is
// listening the record is re-queued so nothing is lost.
func (a *Agent) drain() bool {
	rec, err := a.queue.DrainLatest()
	if err != nil {
		slog.Warn("drain pending queue", "error", err)
		return false
	}
	if rec == nil {
		return true
	}
	select {
	case a.deliveries <- rec.Data:
		return true
	default:
		if _, err := a.queue.Enqueue(rec.Data); err != nil {
			slog.Error("requeue undelivered payload", "error", err)
			return false
		}
		return false
	}
}

// send issues a request and waits for the correlated reply.
func (a *Agent) send(t MsgType, payload *models.SyncPayload) (response, error) {
	req := request{
		id:      a.nextID.Add(1),
		msgType: t,
		payload: payload,
		reply:   make(chan response, 1),
	}
	select {
	case a.reqCh <- req:
	case <-time.After(a.replyTimeout):
		return response{}, ErrNotReady
	}
	select {
	case resp := <-req.reply:
		if resp.err != "" {
			return resp, errors.New(resp.err)
		}
		return resp, nil
	case <-time.After(a.replyTimeout):
		return response{}, ErrNotReady
	}
}

// QueueSync hands a payload to the agent for durable queueing.
func (a *Agent) QueueSync(payload models.SyncPayload) error {
	_, err := a.send(MsgQueueSync, &payload)
	return err
}

// PendingCount asks the agent for the durable queue length.
func (a *Agent) PendingCount() (int64, error) {
	resp, err := a.send(MsgGetPendingCount, nil)
	return resp.count, err
}

// PendingData returns all queued records, oldest first.
func (a *Agent) PendingData() ([]models.PendingSyncRecord, error) {
	resp, err := a.send(MsgGetPendingData, nil)
	return resp.records, err
}

// ForceSync drains immediately instead of waiting for the next probe.
func (a *Agent) ForceSync() (bool, error) {
	resp, err := a.send(MsgForceSync, nil)
	return resp.success, err
}

// ClearPending empties the durable queue.
func (a *Agent) ClearPending() error {
	_, err := a.send(MsgClearPending, nil)
	return err
}
