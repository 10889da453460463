package repository

import (
	"context"

	"cybermarket/internal/model"
)

// ClientRepository defines client account data access methods.
type ClientRepository interface {
	// CreateClient inserts c and sets its ID. Returns ErrConflict if the
	// username or email is taken.
	CreateClient(ctx context.Context, c *model.Client) error

	// GetClient finds a client by id.
	GetClient(ctx context.Context, id int64) (*model.Client, error)

	// FindClient finds a client whose username or email equals handle.
	FindClient(ctx context.Context, handle string) (*model.Client, error)

	// UpdateClient persists username, email and password.
	UpdateClient(ctx context.Context, c *model.Client) error
}

// MerchantRepository defines merchant account data access methods.
type MerchantRepository interface {
	// CreateMerchant inserts m and consumes the invitation claim in the same
	// transaction. A nil claim skips the invitation check (seeding only).
	CreateMerchant(ctx context.Context, m *model.Merchant, claim *model.Invitation) error

	GetMerchant(ctx context.Context, id int64) (*model.Merchant, error)

	// FindMerchant finds a merchant whose storename or email equals handle.
	FindMerchant(ctx context.Context, handle string) (*model.Merchant, error)

	GetMerchantByStorename(ctx context.Context, storename string) (*model.Merchant, error)

	ListMerchants(ctx context.Context) ([]model.Merchant, error)

	// UpdateMerchant persists storename, description, email and password.
	// Outstanding invitations follow a storename change.
	UpdateMerchant(ctx context.Context, m *model.Merchant) error
}

// ProductRepository defines catalog data access methods.
type ProductRepository interface {
	CreateProduct(ctx context.Context, p *model.Product) error
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	ListProducts(ctx context.Context, merchantID int64) ([]model.Product, error)

	// UpdateProduct persists name, price and description.
	UpdateProduct(ctx context.Context, p *model.Product) error

	// DeleteProduct removes the product and every cart line pointing at it.
	DeleteProduct(ctx context.Context, id int64) error

	// RestockProduct adds quantity to the product's stock.
	RestockProduct(ctx context.Context, id int64, quantity int64) (*model.Product, error)
}

// CartRepository defines cart line data access methods.
type CartRepository interface {
	// AddCartLine increments the client's line for the product, creating it
	// if needed.
	AddCartLine(ctx context.Context, clientID, productID, quantity int64) (*model.CartLine, error)

	// RemoveCartLine deletes the client's line for the product.
	RemoveCartLine(ctx context.Context, clientID, productID int64) error

	// ListCartItems returns the client's lines joined with product and store,
	// ordered by line id.
	ListCartItems(ctx context.Context, clientID int64) ([]model.CartItem, error)

	// SettleCartLine pays for one line in a single transaction: stock is
	// decremented, the merchant is credited and the line is deleted. Returns
	// a *ShortageError if quantity >= stock, leaving everything untouched.
	SettleCartLine(ctx context.Context, lineID int64) (*model.Settlement, error)
}

// InvitationRepository defines invitation code data access methods.
type InvitationRepository interface {
	CreateInvitation(ctx context.Context, inv *model.Invitation) error

	// ConsumeInvitation deletes the matching code and reports whether one existed.
	ConsumeInvitation(ctx context.Context, issuer, code string) (bool, error)
}

// Store is everything the protocol layer needs from persistence.
type Store interface {
	ClientRepository
	MerchantRepository
	ProductRepository
	CartRepository
	InvitationRepository

	// Stats returns row counts for the admin surface.
	Stats(ctx context.Context) (map[string]interface{}, error)

	// Close closes the repository connection.
	Close() error
}
