package service

import (
	"context"
	"errors"
	"math"

	"github.com/shopspring/decimal"

	"cybermarket/internal/model"
	"cybermarket/internal/repository"
	"cybermarket/pkg/apierror"
)

const (
	msgProductNotFound = "This product cannot be found"
	msgNotYourProduct  = "You are trying to modify an item that is not from this store"
	msgRestockTooLarge = "The restock quantity is too large"
)

// CatalogService manages products and merchant profit.
type CatalogService struct {
	store     repository.Store
	merchants *MerchantService
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(store repository.Store, merchants *MerchantService) *CatalogService {
	return &CatalogService{store: store, merchants: merchants}
}

// ListMerchants returns every store.
func (s *CatalogService) ListMerchants(ctx context.Context) ([]model.MerchantSummary, error) {
	return s.merchants.List(ctx)
}

// ListProducts returns the products of the store named storename.
func (s *CatalogService) ListProducts(ctx context.Context, storename string) ([]model.Product, error) {
	m, err := s.store.GetMerchantByStorename(ctx, storename)
	if err != nil {
		return nil, mapStoreError("get merchant", err, "No store with this name found", "")
	}

	products, err := s.store.ListProducts(ctx, m.ID)
	if err != nil {
		return nil, internal("list products", err)
	}
	return products, nil
}

// AddProduct creates a product owned by the caller. Stock starts at zero.
func (s *CatalogService) AddProduct(ctx context.Context, connID, name string, price decimal.Decimal, description string) (*model.Product, error) {
	m, err := s.merchants.Current(ctx, connID)
	if err != nil {
		return nil, err
	}
	price, err = normalizePrice(price)
	if err != nil {
		return nil, err
	}

	p := &model.Product{
		Name:        name,
		Price:       price,
		Description: description,
		MerchantID:  m.ID,
	}
	if err := s.store.CreateProduct(ctx, p); err != nil {
		return nil, internal("create product", err)
	}
	return p, nil
}

// DeleteProduct removes one of the caller's products.
func (s *CatalogService) DeleteProduct(ctx context.Context, connID string, productID int64) error {
	if _, err := s.owned(ctx, connID, productID); err != nil {
		return err
	}
	return mapStoreError("delete product", s.store.DeleteProduct(ctx, productID), msgProductNotFound, "")
}

// Restock adds quantity to one of the caller's products.
func (s *CatalogService) Restock(ctx context.Context, connID string, productID, quantity int64) (*model.Product, error) {
	m, err := s.merchants.Current(ctx, connID)
	if err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, apierror.BadRequest("The restock quantity should be a positive integer")
	}

	p, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, mapStoreError("get product", err, msgProductNotFound, "")
	}
	if !p.OwnedBy(m.ID) {
		return nil, apierror.BadRequest("You are trying to restock an item that is not from this store")
	}
	if p.Stock > math.MaxInt64-quantity {
		return nil, apierror.BadRequest(msgRestockTooLarge)
	}

	p, err = s.store.RestockProduct(ctx, productID, quantity)
	if errors.Is(err, repository.ErrQuantityOverflow) {
		return nil, apierror.BadRequest(msgRestockTooLarge)
	}
	if err != nil {
		return nil, mapStoreError("restock product", err, msgProductNotFound, "")
	}
	return p, nil
}

func (s *CatalogService) SetProductName(ctx context.Context, connID string, productID int64, name string) error {
	return s.updateProduct(ctx, connID, productID, func(p *model.Product) error {
		p.Name = name
		return nil
	})
}

func (s *CatalogService) SetProductPrice(ctx context.Context, connID string, productID int64, price decimal.Decimal) error {
	return s.updateProduct(ctx, connID, productID, func(p *model.Product) error {
		normalized, err := normalizePrice(price)
		if err != nil {
			return err
		}
		p.Price = normalized
		return nil
	})
}

func (s *CatalogService) SetProductDescription(ctx context.Context, connID string, productID int64, description string) error {
	return s.updateProduct(ctx, connID, productID, func(p *model.Product) error {
		p.Description = description
		return nil
	})
}

// Profit returns the caller's accumulated profit.
func (s *CatalogService) Profit(ctx context.Context, connID string) (decimal.Decimal, error) {
	m, err := s.merchants.Current(ctx, connID)
	if err != nil {
		return decimal.Zero, err
	}
	return m.Profit, nil
}

func (s *CatalogService) updateProduct(ctx context.Context, connID string, productID int64, mutate func(*model.Product) error) error {
	p, err := s.owned(ctx, connID, productID)
	if err != nil {
		return err
	}
	if err := mutate(p); err != nil {
		return err
	}
	return mapStoreError("update product", s.store.UpdateProduct(ctx, p), msgProductNotFound, "")
}

// owned loads productID and checks that the caller owns it.
func (s *CatalogService) owned(ctx context.Context, connID string, productID int64) (*model.Product, error) {
	m, err := s.merchants.Current(ctx, connID)
	if err != nil {
		return nil, err
	}

	p, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, mapStoreError("get product", err, msgProductNotFound, "")
	}
	if !p.OwnedBy(m.ID) {
		return nil, apierror.BadRequest(msgNotYourProduct)
	}
	return p, nil
}

// normalizePrice rejects negative prices and rounds to cents.
func normalizePrice(price decimal.Decimal) (decimal.Decimal, error) {
	if price.IsNegative() {
		return decimal.Zero, apierror.BadRequest("The price of a product cannot be negative")
	}
	return price.Round(2), nil
}
