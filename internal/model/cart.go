package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CartLine is a pending quantity of one product in one client's cart.
type CartLine struct {
	ID        int64 `json:"id"`
	ClientID  int64 `json:"client_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// CartItem is a cart line joined with its product and the owning store.
type CartItem struct {
	LineID      int64           `json:"line_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Storename   string          `json:"storename"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int64           `json:"quantity"`
}

// Total returns quantity × price for the line.
func (i CartItem) Total() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(i.Quantity))
}

// Settlement records one cart line that was paid for during checkout.
type Settlement struct {
	LineID      int64           `json:"line_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Storename   string          `json:"storename"`
	Quantity    int64           `json:"quantity"`
	Amount      decimal.Decimal `json:"amount"`
}

// Shortage describes the cart line that stopped a checkout.
type Shortage struct {
	LineID      int64  `json:"line_id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Storename   string `json:"storename"`
	Requested   int64  `json:"requested"`
	Available   int64  `json:"available"`
}

func (s *Shortage) String() string {
	return fmt.Sprintf("Insufficient stock of product %s from store %s: requested %d, in stock %d",
		s.ProductName, s.Storename, s.Requested, s.Available)
}
