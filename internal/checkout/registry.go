package checkout

import (
	"sync"

	"github.com/shopspring/decimal"
)

type sessionKey struct {
	businessID string
	cashierID  string
}

// Registry keeps one session per cashier per business.
type Registry struct {
	mu       sync.Mutex
	sessions map[sessionKey]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[sessionKey]*Session)}
}

// Get returns the cashier's session, creating it with the business default tax rate.
func (r *Registry) Get(businessID, cashierID string, defaultTax decimal.Decimal) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := sessionKey{businessID, cashierID}
	s, ok := r.sessions[k]
	if !ok {
		s = NewSession(businessID, cashierID, defaultTax)
		r.sessions[k] = s
	}
	return s
}

// Lookup returns the session without creating one.
func (r *Registry) Lookup(businessID, cashierID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionKey{businessID, cashierID}]
	return s, ok
}

// Snapshot describes the cashier's session for the incident log.
func (r *Registry) Snapshot(businessID, cashierID string) any {
	s, ok := r.Lookup(businessID, cashierID)
	if !ok {
		return nil
	}
	return s.View()
}
