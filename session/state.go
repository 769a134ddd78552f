// Package session tracks the WhatsApp session lifecycle as a small state
// machine fed by transport events. Single writer (the transport event
// handler), many readers.
package session

import "sync"

type Status int

const (
	StatusInitializing Status = iota
	StatusPairingPending
	StatusReady
	StatusDisconnected
)

func (s Status) String() string {
	switch s {
	case StatusInitializing:
		return "initializing"
	case StatusPairingPending:
		return "pairing_pending"
	case StatusReady:
		return "ready"
	case StatusDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Lifecycle events, one variant per transport callback.
type Event interface{ isEvent() }

type PairingCodeIssued struct{ Code string }
type Authenticated struct{}
type Ready struct{}
type AuthFailed struct{ Reason string }
type Disconnected struct{ Reason string }

func (PairingCodeIssued) isEvent() {}
func (Authenticated) isEvent()     {}
func (Ready) isEvent()             {}
func (AuthFailed) isEvent()        {}
func (Disconnected) isEvent()      {}

type Snapshot struct {
	Status      Status
	PairingSeen bool
}

type State struct {
	mu          sync.RWMutex
	status      Status
	pairingSeen bool
}

func NewState() *State {
	return &State{status: StatusInitializing}
}

func (s *State) Apply(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch ev.(type) {
	case PairingCodeIssued:
		s.status = StatusPairingPending
		s.pairingSeen = true
	case Authenticated:
		// Authenticated but not yet ready; status flips on Ready.
	case Ready:
		s.status = StatusReady
	case AuthFailed:
		s.status = StatusPairingPending
	case Disconnected:
		s.status = StatusDisconnected
	}
}

func (s *State) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Connected reports whether the session is ready to deliver messages.
func (s *State) Connected() bool {
	return s.Status() == StatusReady
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Status: s.status, PairingSeen: s.pairingSeen}
}
