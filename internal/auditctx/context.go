// Package auditctx carries the acting identity through one unit of work and stamps
// provenance on tenant-owned resources immediately before they are written.
//
// The identity lives in a Scope attached to the context. Run installs the scope at the start
// of a unit of work and clears it on every exit path, so a context captured during the
// work (for example by a goroutine that outlives it) no longer yields the identity.
package auditctx

import (
	"context"
	"sync/atomic"

	"tenant-storage-core/backend/internal/identity/domain"
)

type contextKey struct{ name string }

var scopeKey = contextKey{"audit_scope"}

// Scope holds the current identity for one unit of work.
type Scope struct {
	current atomic.Pointer[domain.Identity]
}

// Set stores id as the current identity.
func (s *Scope) Set(id *domain.Identity) { s.current.Store(id) }

// Get returns the current identity, or nil when none is set.
func (s *Scope) Get() *domain.Identity { return s.current.Load() }

// Clear removes the current identity.
func (s *Scope) Clear() { s.current.Store(nil) }

// WithIdentity returns a child context whose scope holds id. The scope is never cleared;
// use Run for request handling.
func WithIdentity(ctx context.Context, id *domain.Identity) context.Context {
	s := &Scope{}
	s.Set(id)
	return context.WithValue(ctx, scopeKey, s)
}

// FromContext returns the identity of the innermost scope in ctx, or nil.
func FromContext(ctx context.Context) *domain.Identity {
	s, ok := ctx.Value(scopeKey).(*Scope)
	if !ok {
		return nil
	}
	return s.Get()
}

// ScopeFrom returns the scope attached to ctx, if any.
func ScopeFrom(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(scopeKey).(*Scope)
	return s, ok
}

// Run executes fn with id set as the current identity and clears it when fn returns,
// returns an error or panics. Panics are re-raised after clearing.
func Run(ctx context.Context, id *domain.Identity, fn func(ctx context.Context) error) error {
	s := &Scope{}
	s.Set(id)
	defer s.Clear()
	return fn(context.WithValue(ctx, scopeKey, s))
}
