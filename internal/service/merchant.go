package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"cybermarket/internal/model"
	"cybermarket/internal/repository"
	"cybermarket/internal/session"
	"cybermarket/pkg/apierror"
)

const msgInvitationRejected = "Your invitation code cannot be verified. " +
	"This invitation code may be wrong or has already been used. " +
	"Please contact other merchants to request the invitation code."

// MerchantService handles merchant accounts and merchant sessions.
type MerchantService struct {
	store repository.MerchantRepository
	auth  binder
}

// NewMerchantService creates a new merchant account service.
func NewMerchantService(store repository.MerchantRepository, sessions session.Registry) *MerchantService {
	return &MerchantService{
		store: store,
		auth:  binder{sessions: sessions, kind: session.KindMerchant},
	}
}

// Create registers a merchant invited by the store named inviter. The
// invitation is consumed only if the registration succeeds.
func (s *MerchantService) Create(ctx context.Context, storename, description, email, password, inviter, code string) (*model.Merchant, error) {
	m := &model.Merchant{
		Storename:   storename,
		Description: description,
		Email:       email,
		Password:    password,
		Profit:      decimal.Zero,
	}

	err := s.store.CreateMerchant(ctx, m, &model.Invitation{Issuer: inviter, Code: code})
	if errors.Is(err, repository.ErrInvitationRejected) {
		return nil, apierror.NotAcceptable(msgInvitationRejected)
	}
	if err != nil {
		return nil, mapStoreError("create merchant", err, "", "This storename or email is occupied")
	}
	return m, nil
}

// Login binds connID to the merchant whose storename or email is handle.
func (s *MerchantService) Login(ctx context.Context, connID, handle, password string) error {
	if err := s.auth.ensureFree(ctx, connID); err != nil {
		return err
	}

	m, err := s.store.FindMerchant(ctx, handle)
	if err != nil {
		return mapStoreError("find merchant", err, "No merchant with this storename or email was found", "")
	}
	if !m.VerifyPassword(password) {
		return apierror.Forbidden("The password of the merchant is incorrect")
	}

	return s.auth.bind(ctx, connID, m.ID)
}

// Logout clears the merchant binding of connID.
func (s *MerchantService) Logout(ctx context.Context, connID string) error {
	return s.auth.unbind(ctx, connID)
}

// Current returns the merchant logged in on connID.
func (s *MerchantService) Current(ctx context.Context, connID string) (*model.Merchant, error) {
	return resolve(ctx, s.auth, connID, s.store.GetMerchant)
}

// List returns the public view of every merchant.
func (s *MerchantService) List(ctx context.Context) ([]model.MerchantSummary, error) {
	merchants, err := s.store.ListMerchants(ctx)
	if err != nil {
		return nil, internal("list merchants", err)
	}

	out := make([]model.MerchantSummary, 0, len(merchants))
	for i := range merchants {
		out = append(out, merchants[i].Summary())
	}
	return out, nil
}

func (s *MerchantService) SetStorename(ctx context.Context, connID, storename string) error {
	return s.update(ctx, connID, func(m *model.Merchant) error {
		m.Storename = storename
		return nil
	}, "This storename is occupied")
}

func (s *MerchantService) SetEmail(ctx context.Context, connID, email string) error {
	return s.update(ctx, connID, func(m *model.Merchant) error {
		m.Email = email
		return nil
	}, "This email is occupied")
}

func (s *MerchantService) SetDescription(ctx context.Context, connID, description string) error {
	return s.update(ctx, connID, func(m *model.Merchant) error {
		m.Description = description
		return nil
	}, "")
}

// SetPassword changes the caller's password after checking the old one.
func (s *MerchantService) SetPassword(ctx context.Context, connID, newPassword, oldPassword string) error {
	return s.update(ctx, connID, func(m *model.Merchant) error {
		if !m.VerifyPassword(oldPassword) {
			return apierror.Forbidden("The password of the merchant is incorrect")
		}
		m.Password = newPassword
		return nil
	}, "")
}

func (s *MerchantService) update(ctx context.Context, connID string, mutate func(*model.Merchant) error, conflict string) error {
	m, err := s.Current(ctx, connID)
	if err != nil {
		return err
	}
	if err := mutate(m); err != nil {
		return err
	}

	err = s.store.UpdateMerchant(ctx, m)
	if errors.Is(err, repository.ErrNotFound) {
		return apierror.Unauthorized(msgNotLoggedIn)
	}
	return mapStoreError("update merchant", err, "", conflict)
}
