// Package app wires the store, queue, remote client, session, coordinator
// and agent into one explicitly-constructed object graph. Commands receive
// an App; no package holds singleton state.
package app

import (
	"fmt"
	"net/http"
	"time"

	"github.com/marcus/trail/internal/agent"
	"github.com/marcus/trail/internal/cards"
	"github.com/marcus/trail/internal/config"
	"github.com/marcus/trail/internal/conflict"
	"github.com/marcus/trail/internal/queue"
	"github.com/marcus/trail/internal/remote"
	"github.com/marcus/trail/internal/session"
	"github.com/marcus/trail/internal/store"
	"github.com/marcus/trail/internal/syncer"
)

// App is the per-invocation dependency graph.
type App struct {
	Store    *store.Store
	Queue    *queue.Queue
	Remote   remote.Store
	Session  session.Provider
	Syncer   *syncer.Syncer
	Agent    *agent.Agent
	Cards    *cards.Service
	Detector *conflict.Detector
}

// Open builds the full graph against the store under baseDir. The store
// must already be initialized (`trail init`).
func Open(baseDir string) (*App, error) {
	st, err := store.Open(baseDir)
	if err != nil {
		return nil, err
	}
	return build(st)
}

// Initialize creates the store under baseDir and builds the graph.
func Initialize(baseDir string) (*App, error) {
	st, err := store.Initialize(baseDir)
	if err != nil {
		return nil, err
	}
	return build(st)
}

func build(st *store.Store) (*App, error) {
	if err := queue.Init(st.Conn()); err != nil {
		st.Close()
		return nil, fmt.Errorf("init pending queue: %w", err)
	}
	q := queue.New(st.Conn())

	var sess session.Provider
	serverURL := config.ServerURL()
	client := remote.NewClient(serverURL, sess.APIKey())

	// The agent probes with a bare client: it must never hold a key.
	probe := remote.NewClient(serverURL, "")
	ag := agent.New(q, probe, agent.Options{
		ProbeInterval: config.AgentProbeInterval(),
		ReplyTimeout:  config.AgentReplyTimeout(),
	})

	online := func() bool {
		if ag.Started() {
			return ag.Online()
		}
		shortProbe := remote.NewClient(serverURL, "")
		shortProbe.HTTP = &http.Client{Timeout: 2 * time.Second}
		return shortProbe.Ping() == nil
	}
	sy := syncer.New(st, q, client, sess, online, config.SyncDebounce())

	return &App{
		Store:    st,
		Queue:    q,
		Remote:   client,
		Session:  sess,
		Syncer:   sy,
		Agent:    ag,
		Cards:    cards.NewService(st),
		Detector: conflict.NewDetector(),
	}, nil
}

// Resolver builds a conflict resolver bound to this app's store and remote.
func (a *App) Resolver() *conflict.Resolver {
	return &conflict.Resolver{Store: a.Store, Remote: a.Remote, Detector: a.Detector}
}

// Reachable is a direct, short probe for one-shot commands that run
// without the long-lived agent loop.
func (a *App) Reachable() bool {
	probe := remote.NewClient(config.ServerURL(), "")
	probe.HTTP = &http.Client{Timeout: 2 * time.Second}
	return probe.Ping() == nil
}

// Close releases the store connection. In-flight syncs are waited out so a
// short-lived command does not drop a scheduled write.
func (a *App) Close() error {
	a.Syncer.Wait()
	return a.Store.Close()
}
