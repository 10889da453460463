package session

import (
	"context"
	"fmt"
)

// Kind distinguishes the two principal types a connection can log in as.
type Kind string

const (
	KindClient   Kind = "client"
	KindMerchant Kind = "merchant"
)

// Kinds lists every Kind.
func Kinds() []Kind {
	return []Kind{KindClient, KindMerchant}
}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindClient, KindMerchant:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown session kind %q", s)
}

// Registry maps connection identities to logged-in principals.
// This abstraction allows swapping between the in-process map (single
// instance) and Redis (shared, survives restarts) without changing the
// services.
type Registry interface {
	// Bind attaches principalID to connID. A principal bound to another
	// connection is moved, and whatever connID was bound to is replaced.
	Bind(ctx context.Context, kind Kind, connID string, principalID int64) error

	// Lookup returns the principal bound to connID.
	Lookup(ctx context.Context, kind Kind, connID string) (int64, bool, error)

	// Unbind removes the binding of one kind and reports whether one existed.
	Unbind(ctx context.Context, kind Kind, connID string) (bool, error)

	// UnbindConn removes every binding held by connID.
	UnbindConn(ctx context.Context, connID string) error

	// Prune drops bindings whose connection is not in live and returns how
	// many were removed.
	Prune(ctx context.Context, live []string) (int, error)

	// Count returns the number of bindings per kind.
	Count(ctx context.Context) (map[Kind]int64, error)

	Close() error
}
