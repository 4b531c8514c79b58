// Package ws is the realtime event bridge: a process-wide connection manager
// with an explicit Connect/Disconnect lifecycle and one subscription per
// board room. Events are pushed server -> client only; mutations travel over
// the HTTP API.
package ws

import (
	"errors"
	"log"
	"sync"
)

// Identity is the credential set the manager dials with. Token contents are
// opaque to the bridge; auth itself is an external collaborator.
type Identity struct {
	Token      string
	ClientName string
}

var ErrNotConnected = errors.New("ws: manager not connected")

// Manager owns every realtime subscription in the process. Callers must not
// assume a transport exists before Connect has been called.
type Manager struct {
	url string
	log *log.Logger

	mu        sync.Mutex
	identity  Identity
	connected bool
	rooms     map[string]*Subscription
}

func NewManager(url string, logger *log.Logger) *Manager {
	return &Manager{
		url:   url,
		log:   logger,
		rooms: make(map[string]*Subscription),
	}
}

// Connect records the identity used for all subsequent subscriptions.
func (m *Manager) Connect(id Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identity = id
	m.connected = true
}

// Disconnect tears down every room subscription and forgets the identity.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	subs := make([]*Subscription, 0, len(m.rooms))
	for _, s := range m.rooms {
		subs = append(subs, s)
	}
	m.rooms = make(map[string]*Subscription)
	m.connected = false
	m.identity = Identity{}
	m.mu.Unlock()

	for _, s := range subs {
		s.close()
	}
}

// Subscribe joins a board room. One subscription per room: subscribing to a
// room that is already joined returns the existing subscription.
func (m *Manager) Subscribe(boardID string, h Handlers) (*Subscription, error) {
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return nil, ErrNotConnected
	}
	if s, ok := m.rooms[boardID]; ok {
		m.mu.Unlock()
		return s, nil
	}
	s := newSubscription(m, boardID, m.identity, h, m.log)
	m.rooms[boardID] = s
	m.mu.Unlock()

	s.start()
	return s, nil
}

// Room returns the live subscription for a board, or nil.
func (m *Manager) Room(boardID string) *Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rooms[boardID]
}

func (m *Manager) forget(boardID string, s *Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.rooms[boardID]; ok && cur == s {
		delete(m.rooms, boardID)
	}
}
