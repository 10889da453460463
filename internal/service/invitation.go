package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"cybermarket/internal/model"
	"cybermarket/internal/repository"
	"cybermarket/pkg/apierror"
)

// DefaultCodeLength is the length of generated invitation codes.
const DefaultCodeLength = 12

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// InvitationService issues and verifies one-time merchant invitation codes.
type InvitationService struct {
	store      repository.InvitationRepository
	merchants  *MerchantService
	codeLength int
}

// NewInvitationService creates a new invitation service. A non-positive
// codeLength falls back to DefaultCodeLength.
func NewInvitationService(store repository.InvitationRepository, merchants *MerchantService, codeLength int) *InvitationService {
	if codeLength <= 0 {
		codeLength = DefaultCodeLength
	}
	return &InvitationService{
		store:      store,
		merchants:  merchants,
		codeLength: codeLength,
	}
}

// Issue creates a code on behalf of the merchant logged in on connID.
func (s *InvitationService) Issue(ctx context.Context, connID string) (string, error) {
	m, err := s.merchants.Current(ctx, connID)
	if err != nil {
		return "", err
	}
	return s.IssueFor(ctx, m.Storename)
}

// IssueFor creates a code with issuer as its inviter.
func (s *InvitationService) IssueFor(ctx context.Context, issuer string) (string, error) {
	code, err := GenerateCode(s.codeLength)
	if err != nil {
		return "", internal("generate invitation", err)
	}

	if err := s.store.CreateInvitation(ctx, &model.Invitation{Issuer: issuer, Code: code}); err != nil {
		return "", internal("store invitation", err)
	}
	return code, nil
}

// Verify consumes a code. It succeeds at most once per code.
func (s *InvitationService) Verify(ctx context.Context, issuer, code string) error {
	ok, err := s.store.ConsumeInvitation(ctx, issuer, code)
	if err != nil {
		return internal("consume invitation", err)
	}
	if !ok {
		return apierror.NotAcceptable(msgInvitationRejected)
	}
	return nil
}

// GenerateCode returns a random alphanumeric string of length n.
func GenerateCode(n int) (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		buf[i] = codeAlphabet[idx.Int64()]
	}
	return string(buf), nil
}
