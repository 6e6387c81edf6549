// Package client drives Mini App sign-in from the client side: it detects
// the hosting bridge, reconciles its init data with the API, falls back to
// a stored session, and tracks the outcome in a Store.
package client

import (
	"sync"

	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/dto"
)

type Phase string

const (
	PhaseUninitialized            Phase = "uninitialized"
	PhaseDetectingEnvironment     Phase = "detecting_environment"
	PhaseAwaitingExternalIdentity Phase = "awaiting_external_identity"
	PhaseCheckingExistingSession  Phase = "checking_existing_session"
	PhaseReconciling              Phase = "reconciling"
	PhaseReady                    Phase = "ready"
	PhaseFailed                   Phase = "failed"
)

// AuthState is the client's view of who is signed in. Identity is nil and
// Role is empty when anonymous.
type AuthState struct {
	Phase               Phase
	Identity            *dto.UserResponse
	Role                string
	IsLoading           bool
	Err                 error
	IsHostedEnvironment bool
}

// Settled reports whether the state is terminal for the current run.
func (s AuthState) Settled() bool {
	return s.Phase == PhaseReady || s.Phase == PhaseFailed
}

// Store holds the current AuthState and notifies subscribers on change.
type Store struct {
	mu     sync.Mutex
	state  AuthState
	subs   map[int]func(AuthState)
	nextID int
}

func NewStore() *Store {
	return &Store{
		state: AuthState{Phase: PhaseUninitialized, IsLoading: true},
		subs:  make(map[int]func(AuthState)),
	}
}

func (s *Store) Get() AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn for every later change and returns its cancel func.
func (s *Store) Subscribe(fn func(AuthState)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// update applies fn and notifies subscribers outside the lock. Entering
// Ready or Failed always clears IsLoading.
func (s *Store) update(fn func(*AuthState)) AuthState {
	s.mu.Lock()
	fn(&s.state)
	if s.state.Settled() {
		s.state.IsLoading = false
	}
	next := s.state
	subs := make([]func(AuthState), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(next)
	}
	return next
}

func (s *Store) transition(phase Phase) AuthState {
	return s.update(func(st *AuthState) {
		st.Phase = phase
		if !st.Settled() {
			st.IsLoading = true
		}
	})
}

func (s *Store) ready(identity *dto.UserResponse, role string, err error) AuthState {
	return s.update(func(st *AuthState) {
		st.Phase = PhaseReady
		st.Identity = identity
		st.Role = role
		st.Err = err
	})
}

func (s *Store) fail(err error) AuthState {
	return s.update(func(st *AuthState) {
		st.Phase = PhaseFailed
		st.Err = err
	})
}
