package model

import "github.com/shopspring/decimal"

// Product is a catalog entry owned by one merchant.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Stock       int64           `json:"stock"`
	Description string          `json:"description"`
	MerchantID  int64           `json:"merchant_id"`
}

// OwnedBy reports whether the merchant with the given id owns p.
func (p *Product) OwnedBy(merchantID int64) bool {
	return p.MerchantID == merchantID
}
