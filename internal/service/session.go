package service

import (
	"context"
	"errors"

	"cybermarket/internal/repository"
	"cybermarket/internal/session"
	"cybermarket/pkg/apierror"
)

// binder resolves and mutates the session binding of one principal kind.
type binder struct {
	sessions session.Registry
	kind     session.Kind
}

// boundID returns the principal bound to connID or a 401.
func (b binder) boundID(ctx context.Context, connID string) (int64, error) {
	id, ok, err := b.sessions.Lookup(ctx, b.kind, connID)
	if err != nil {
		return 0, internal("session lookup", err)
	}
	if !ok {
		return 0, apierror.Unauthorized(msgNotLoggedIn)
	}
	return id, nil
}

// ensureFree fails with 400 if connID already holds a binding of this kind.
func (b binder) ensureFree(ctx context.Context, connID string) error {
	_, ok, err := b.sessions.Lookup(ctx, b.kind, connID)
	if err != nil {
		return internal("session lookup", err)
	}
	if ok {
		return apierror.BadRequest(msgAlreadyLoggedIn)
	}
	return nil
}

func (b binder) bind(ctx context.Context, connID string, id int64) error {
	if err := b.sessions.Bind(ctx, b.kind, connID, id); err != nil {
		return internal("session bind", err)
	}
	return nil
}

func (b binder) unbind(ctx context.Context, connID string) error {
	ok, err := b.sessions.Unbind(ctx, b.kind, connID)
	if err != nil {
		return internal("session unbind", err)
	}
	if !ok {
		return apierror.Unauthorized(msgNotLoggedIn)
	}
	return nil
}

// resolve loads the bound principal with load. A binding whose principal
// no longer exists is dropped and reported as 401.
func resolve[T any](ctx context.Context, b binder, connID string, load func(context.Context, int64) (*T, error)) (*T, error) {
	id, err := b.boundID(ctx, connID)
	if err != nil {
		return nil, err
	}

	p, err := load(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		b.sessions.Unbind(ctx, b.kind, connID)
		return nil, apierror.Unauthorized(msgNotLoggedIn)
	}
	if err != nil {
		return nil, internal("load principal", err)
	}
	return p, nil
}
