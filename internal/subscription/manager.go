// Package subscription owns the change-subscription lifecycle: exactly one
// active push subscription per open list, torn down when the list is closed
// or the session ends.
package subscription

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/listsync/internal/cache"
	"github.com/dmitrijs2005/listsync/internal/logging"
	"github.com/dmitrijs2005/listsync/internal/store"
	"github.com/dmitrijs2005/listsync/internal/syncengine"
)

type listSession struct {
	engine      *syncengine.Engine
	unsubscribe store.UnsubscribeFunc
	cancel      context.CancelFunc
}

// Manager wires an engine to the store's push channel for every open list.
// Snapshots flow store → subscription → engine inbox in delivery order,
// including echoes of the session's own writes.
type Manager struct {
	st    store.Store
	cache cache.Cache
	log   logging.Logger

	mu       sync.Mutex
	sessions map[string]*listSession
}

func NewManager(st store.Store, c cache.Cache, log logging.Logger) *Manager {
	return &Manager{
		st:       st,
		cache:    c,
		log:      log.With("module", "subscription"),
		sessions: make(map[string]*listSession),
	}
}

// Open starts (or returns) the sync session for a list. The engine is
// subscribed to the store before it starts processing, so the initial
// snapshot is the first thing it reconciles.
func (m *Manager) Open(ctx context.Context, listID string, opts ...syncengine.Option) (*syncengine.Engine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[listID]; ok {
		return s.engine, nil
	}

	engine := syncengine.New(listID, m.st, m.cache, m.log, opts...)

	unsubscribe, err := m.st.Subscribe(ctx, listID, engine.Deliver)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to list %s: %w", listID, err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &listSession{engine: engine, unsubscribe: unsubscribe, cancel: cancel}
	m.sessions[listID] = s

	go func() {
		_ = engine.Run(runCtx)
		// terminal (deleted remotely or cancelled): release the subscription
		m.Close(listID)
	}()

	return engine, nil
}

// Engine returns the engine for an open list, or nil.
func (m *Manager) Engine(listID string) *syncengine.Engine {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[listID]; ok {
		return s.engine
	}
	return nil
}

// Close tears down the session for one list: the subscription is released and
// queued mutations are cancelled. An in-flight write completes on the engine
// goroutine; its result is discarded.
func (m *Manager) Close(listID string) {
	m.mu.Lock()
	s, ok := m.sessions[listID]
	if ok {
		delete(m.sessions, listID)
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	s.unsubscribe()
	s.cancel()
}

// CloseAll tears down every open session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*listSession)
	m.mu.Unlock()

	for _, s := range sessions {
		s.unsubscribe()
		s.cancel()
	}
}

// Reset ends the user session: every subscription is released and the local
// cache is wiped, so a following sign-in as a different user can never
// observe the previous user's lists.
func (m *Manager) Reset(ctx context.Context) error {
	m.CloseAll()
	if err := m.cache.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// OpenCount reports the number of active list sessions.
func (m *Manager) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
