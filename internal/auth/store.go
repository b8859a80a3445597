// Package auth implements the HubSpot OAuth 2.0 credential lifecycle:
// authorization-code exchange, single-slot token storage, and lazy
// single-flight refresh. All state is in-memory; tokens are lost on
// restart and the operator re-authorizes.
package auth

import (
	"sync"
	"time"

	"github.com/andreamil/hubspot-integration/internal/models"
	"github.com/google/uuid"
)

// Store holds at most one Credential. The service is single-tenant, so a
// single slot guarded by a mutex is the whole storage layer. Put replaces
// the slot atomically with respect to concurrent Get/Clear; between a
// Clear and a Put from an in-flight refresh started earlier, the last
// writer wins.
type Store struct {
	mu   sync.RWMutex
	cred *models.Credential
}

// NewStore creates an empty credential store.
func NewStore() *Store {
	return &Store{}
}

// Put replaces the stored credential.
func (s *Store) Put(c models.Credential) {
	s.mu.Lock()
	s.cred = &c
	s.mu.Unlock()
}

// Get returns the stored credential, or false when the slot is empty.
func (s *Store) Get() (models.Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cred == nil {
		return models.Credential{}, false
	}

	return *s.cred, true
}

// Clear empties the slot, forcing re-authorization.
func (s *Store) Clear() {
	s.mu.Lock()
	s.cred = nil
	s.mu.Unlock()
}

const stateExpiry = 10 * time.Minute

// StateStore tracks pending OAuth state nonces for CSRF protection on the
// authorization callback. Entries expire after ten minutes; expired
// entries are pruned on each Issue.
type StateStore struct {
	mu     sync.Mutex
	states map[string]time.Time
}

// NewStateStore creates an empty state-nonce store.
func NewStateStore() *StateStore {
	return &StateStore{states: make(map[string]time.Time)}
}

// Issue generates a new state nonce and records it.
func (s *StateStore) Issue() string {
	state := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for k, exp := range s.states {
		if now.After(exp) {
			delete(s.states, k)
		}
	}

	s.states[state] = now.Add(stateExpiry)

	return state
}

// Consume retrieves and deletes a state nonce.
// Returns false if the nonce is unknown, empty, or expired.
func (s *StateStore) Consume(state string) bool {
	if state == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.states[state]
	if !ok {
		return false
	}
	delete(s.states, state)

	return time.Now().Before(exp)
}
