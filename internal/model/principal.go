package model

import "github.com/shopspring/decimal"

// Client is a buyer account.
type Client struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"-"`
}

// VerifyPassword reports whether password matches the stored value.
func (c *Client) VerifyPassword(password string) bool {
	return c.Password == password
}

// Merchant is a seller account. Profit accumulates on every settled cart line.
type Merchant struct {
	ID          int64           `json:"id"`
	Storename   string          `json:"storename"`
	Description string          `json:"description"`
	Email       string          `json:"email"`
	Password    string          `json:"-"`
	Profit      decimal.Decimal `json:"-"`
}

// VerifyPassword reports whether password matches the stored value.
func (m *Merchant) VerifyPassword(password string) bool {
	return m.Password == password
}

// MerchantSummary is the public view returned by LIST_MERCHANT.
type MerchantSummary struct {
	ID          int64  `json:"id"`
	Storename   string `json:"storename"`
	Description string `json:"description"`
	Email       string `json:"email"`
}

// Summary returns the public view of m.
func (m *Merchant) Summary() MerchantSummary {
	return MerchantSummary{
		ID:          m.ID,
		Storename:   m.Storename,
		Description: m.Description,
		Email:       m.Email,
	}
}
