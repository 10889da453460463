package session

import (
	"context"
	"sync"
)

// MemoryRegistry is an in-process Registry.
// Use this for development/testing or single-instance deployments.
type MemoryRegistry struct {
	mu          sync.RWMutex
	byConn      map[Kind]map[string]int64
	byPrincipal map[Kind]map[int64]string
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	r := &MemoryRegistry{
		byConn:      make(map[Kind]map[string]int64),
		byPrincipal: make(map[Kind]map[int64]string),
	}
	for _, k := range Kinds() {
		r.byConn[k] = make(map[string]int64)
		r.byPrincipal[k] = make(map[int64]string)
	}
	return r
}

// Bind attaches principalID to connID.
func (r *MemoryRegistry) Bind(ctx context.Context, kind Kind, connID string, principalID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prevConn, ok := r.byPrincipal[kind][principalID]; ok {
		delete(r.byConn[kind], prevConn)
	}
	if prevID, ok := r.byConn[kind][connID]; ok {
		delete(r.byPrincipal[kind], prevID)
	}

	r.byConn[kind][connID] = principalID
	r.byPrincipal[kind][principalID] = connID
	return nil
}

// Lookup returns the principal bound to connID.
func (r *MemoryRegistry) Lookup(ctx context.Context, kind Kind, connID string) (int64, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byConn[kind][connID]
	return id, ok, nil
}

// Unbind removes the binding of one kind.
func (r *MemoryRegistry) Unbind(ctx context.Context, kind Kind, connID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.unbindLocked(kind, connID), nil
}

func (r *MemoryRegistry) unbindLocked(kind Kind, connID string) bool {
	id, ok := r.byConn[kind][connID]
	if !ok {
		return false
	}
	delete(r.byConn[kind], connID)
	if r.byPrincipal[kind][id] == connID {
		delete(r.byPrincipal[kind], id)
	}
	return true
}

// UnbindConn removes every binding held by connID.
func (r *MemoryRegistry) UnbindConn(ctx context.Context, connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, k := range Kinds() {
		r.unbindLocked(k, connID)
	}
	return nil
}

// Prune drops bindings of connections not in live.
func (r *MemoryRegistry) Prune(ctx context.Context, live []string) (int, error) {
	alive := make(map[string]struct{}, len(live))
	for _, id := range live {
		alive[id] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	pruned := 0
	for _, k := range Kinds() {
		for connID := range r.byConn[k] {
			if _, ok := alive[connID]; ok {
				continue
			}
			if r.unbindLocked(k, connID) {
				pruned++
			}
		}
	}
	return pruned, nil
}

// Count returns the number of bindings per kind.
func (r *MemoryRegistry) Count(ctx context.Context) (map[Kind]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[Kind]int64, len(r.byConn))
	for k, m := range r.byConn {
		counts[k] = int64(len(m))
	}
	return counts, nil
}

// Close is a no-op.
func (r *MemoryRegistry) Close() error {
	return nil
}

// Ensure MemoryRegistry implements Registry
var _ Registry = (*MemoryRegistry)(nil)
