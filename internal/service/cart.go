package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"cybermarket/internal/model"
	"cybermarket/internal/repository"
	"cybermarket/pkg/apierror"
)

// CheckoutResult reports how far a checkout got. Blocked is nil when every
// line was settled.
type CheckoutResult struct {
	Settled []model.Settlement `json:"settled"`
	Blocked *model.Shortage    `json:"blocked,omitempty"`
}

// Complete reports whether every line was settled.
func (r *CheckoutResult) Complete() bool {
	return r.Blocked == nil
}

// CartService runs cart operations and checkout for logged-in clients.
type CartService struct {
	store    repository.Store
	accounts *AccountService
}

// NewCartService creates a new cart service.
func NewCartService(store repository.Store, accounts *AccountService) *CartService {
	return &CartService{store: store, accounts: accounts}
}

// AddItem adds quantity of productID to the caller's cart.
func (s *CartService) AddItem(ctx context.Context, connID string, productID, quantity int64) error {
	c, err := s.accounts.Current(ctx, connID)
	if err != nil {
		return err
	}
	if quantity <= 0 {
		return apierror.BadRequest("The quantity of added products should be a positive integer")
	}

	if _, err := s.store.GetProduct(ctx, productID); err != nil {
		return mapStoreError("get product", err, "The product you are trying to add cannot be found", "")
	}

	if _, err := s.store.AddCartLine(ctx, c.ID, productID, quantity); err != nil {
		if errors.Is(err, repository.ErrQuantityOverflow) {
			return apierror.BadRequest("The quantity of added products is too large")
		}
		return internal("add cart line", err)
	}
	return nil
}

// RemoveItem drops productID from the caller's cart.
func (s *CartService) RemoveItem(ctx context.Context, connID string, productID int64) error {
	c, err := s.accounts.Current(ctx, connID)
	if err != nil {
		return err
	}

	err = s.store.RemoveCartLine(ctx, c.ID, productID)
	return mapStoreError("remove cart line", err, "This product is not in your shopping cart", "")
}

// Items returns the caller's cart lines.
func (s *CartService) Items(ctx context.Context, connID string) ([]model.CartItem, error) {
	c, err := s.accounts.Current(ctx, connID)
	if err != nil {
		return nil, err
	}

	items, err := s.store.ListCartItems(ctx, c.ID)
	if err != nil {
		return nil, internal("list cart", err)
	}
	return items, nil
}

// Price sums quantity × price over the caller's current cart.
func (s *CartService) Price(ctx context.Context, connID string) (decimal.Decimal, error) {
	items, err := s.Items(ctx, connID)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Total())
	}
	return total, nil
}

// Checkout settles the caller's cart line by line in cart order and stops
// at the first line the stock cannot cover. Lines settled before that stay
// settled; the blocking line and everything after it stay in the cart.
func (s *CartService) Checkout(ctx context.Context, connID string) (*CheckoutResult, error) {
	items, err := s.Items(ctx, connID)
	if err != nil {
		return nil, err
	}

	result := &CheckoutResult{Settled: []model.Settlement{}}
	for _, it := range items {
		settled, err := s.store.SettleCartLine(ctx, it.LineID)

		var shortage *repository.ShortageError
		switch {
		case errors.As(err, &shortage):
			blocked := shortage.Shortage
			result.Blocked = &blocked
			return result, nil
		case errors.Is(err, repository.ErrNotFound):
			// removed concurrently
			continue
		case err != nil:
			return result, internal("settle cart line", err)
		}
		result.Settled = append(result.Settled, *settled)
	}
	return result, nil
}
