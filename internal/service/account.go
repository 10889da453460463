package service

import (
	"context"
	"errors"

	"cybermarket/internal/model"
	"cybermarket/internal/repository"
	"cybermarket/internal/session"
	"cybermarket/pkg/apierror"
)

// AccountService handles client accounts and client sessions.
type AccountService struct {
	store repository.ClientRepository
	auth  binder
}

// NewAccountService creates a new client account service.
func NewAccountService(store repository.ClientRepository, sessions session.Registry) *AccountService {
	return &AccountService{
		store: store,
		auth:  binder{sessions: sessions, kind: session.KindClient},
	}
}

// Create registers a new client.
func (s *AccountService) Create(ctx context.Context, username, email, password string) (*model.Client, error) {
	c := &model.Client{Username: username, Email: email, Password: password}
	if err := s.store.CreateClient(ctx, c); err != nil {
		return nil, mapStoreError("create client", err, "", "This username or email is occupied")
	}
	return c, nil
}

// Login binds connID to the client whose username or email is handle.
func (s *AccountService) Login(ctx context.Context, connID, handle, password string) error {
	if err := s.auth.ensureFree(ctx, connID); err != nil {
		return err
	}

	c, err := s.store.FindClient(ctx, handle)
	if err != nil {
		return mapStoreError("find client", err, "No user with this username or email was found", "")
	}
	if !c.VerifyPassword(password) {
		return apierror.Forbidden(msgPasswordWrong)
	}

	return s.auth.bind(ctx, connID, c.ID)
}

// Logout clears the client binding of connID.
func (s *AccountService) Logout(ctx context.Context, connID string) error {
	return s.auth.unbind(ctx, connID)
}

// Current returns the client logged in on connID.
func (s *AccountService) Current(ctx context.Context, connID string) (*model.Client, error) {
	return resolve(ctx, s.auth, connID, s.store.GetClient)
}

// SetUsername changes the caller's username.
func (s *AccountService) SetUsername(ctx context.Context, connID, username string) error {
	return s.update(ctx, connID, func(c *model.Client) error {
		c.Username = username
		return nil
	}, "This username is occupied")
}

// SetEmail changes the caller's email.
func (s *AccountService) SetEmail(ctx context.Context, connID, email string) error {
	return s.update(ctx, connID, func(c *model.Client) error {
		c.Email = email
		return nil
	}, "This email is occupied")
}

// SetPassword changes the caller's password after checking the old one.
func (s *AccountService) SetPassword(ctx context.Context, connID, newPassword, oldPassword string) error {
	return s.update(ctx, connID, func(c *model.Client) error {
		if !c.VerifyPassword(oldPassword) {
			return apierror.Forbidden(msgPasswordWrong)
		}
		c.Password = newPassword
		return nil
	}, "")
}

func (s *AccountService) update(ctx context.Context, connID string, mutate func(*model.Client) error, conflict string) error {
	c, err := s.Current(ctx, connID)
	if err != nil {
		return err
	}
	if err := mutate(c); err != nil {
		return err
	}

	err = s.store.UpdateClient(ctx, c)
	if errors.Is(err, repository.ErrNotFound) {
		return apierror.Unauthorized(msgNotLoggedIn)
	}
	return mapStoreError("update client", err, "", conflict)
}
