package command

import (
	"context"

	"cybermarket/internal/protocol"
	"cybermarket/pkg/apierror"
	"cybermarket/pkg/response"
)

// done turns a handler outcome into a reply. The request id is filled in
// by Execute.
func done(err error, message string, payload interface{}) response.Reply {
	if err != nil {
		return response.FromError("", err)
	}
	return response.OK("", message, payload)
}

func created(err error) response.Reply {
	if err != nil {
		return response.FromError("", err)
	}
	return response.Created("")
}

func (d *Dispatcher) handle(ctx context.Context, connID string, cmd protocol.Command) response.Reply {
	s := d.svc

	switch c := cmd.(type) {
	// Clients
	case protocol.ClientCreate:
		_, err := s.Accounts.Create(ctx, c.Username, c.Email, c.Password)
		return created(err)
	case protocol.ClientLogin:
		return done(s.Accounts.Login(ctx, connID, c.Handle, c.Password), "This user is logged in", nil)
	case protocol.ClientLogout:
		return done(s.Accounts.Logout(ctx, connID), "You have successfully logged out", nil)
	case protocol.SetClientUsername:
		return done(s.Accounts.SetUsername(ctx, connID, c.Username), "Username has been set", nil)
	case protocol.SetClientEmail:
		return done(s.Accounts.SetEmail(ctx, connID, c.Email), "Email has been set", nil)
	case protocol.SetClientPassword:
		return done(s.Accounts.SetPassword(ctx, connID, c.New, c.Old), "New password has been set", nil)

	// Cart
	case protocol.ClientAddItem:
		return done(s.Carts.AddItem(ctx, connID, c.ProductID, c.Quantity),
			"This product has been added to the shopping cart", nil)
	case protocol.ClientRemoveItem:
		return done(s.Carts.RemoveItem(ctx, connID, c.ProductID),
			"This product has been removed from the shopping cart", nil)
	case protocol.ClientGetItems:
		items, err := s.Carts.Items(ctx, connID)
		return done(err, "Obtained order list", items)
	case protocol.ClientGetPrice:
		price, err := s.Carts.Price(ctx, connID)
		return done(err, "Order price obtained", price.StringFixed(2))
	case protocol.ClientCheckout:
		result, err := s.Carts.Checkout(ctx, connID)
		if err != nil {
			return response.FromError("", err)
		}
		if !result.Complete() {
			d.metrics.CheckoutShortage()
			return response.Reply{
				Status:  apierror.StatusBadRequest,
				Message: result.Blocked.String(),
				Payload: result.Settled,
			}
		}
		return response.OK("", "Order has been checked out", result.Settled)

	// Catalog
	case protocol.ListMerchant:
		merchants, err := s.Catalog.ListMerchants(ctx)
		return done(err, "Merchant list has been obtained", merchants)
	case protocol.ListProduct:
		products, err := s.Catalog.ListProducts(ctx, c.Storename)
		return done(err, "Product list has been obtained", products)

	// Merchants
	case protocol.MerchantCreateInvitation:
		code, err := s.Invitations.Issue(ctx, connID)
		return done(err, "Invitation code has been generated", code)
	case protocol.MerchantCreate:
		_, err := s.Merchants.Create(ctx, c.Storename, c.Description, c.Email, c.Password, c.Inviter, c.Code)
		return created(err)
	case protocol.MerchantLogin:
		return done(s.Merchants.Login(ctx, connID, c.Handle, c.Password), "This merchant is logged in", nil)
	case protocol.MerchantLogout:
		return done(s.Merchants.Logout(ctx, connID), "You have successfully logged out", nil)
	case protocol.SetMerchantStorename:
		return done(s.Merchants.SetStorename(ctx, connID, c.Storename), "Storename has been set", nil)
	case protocol.SetMerchantEmail:
		return done(s.Merchants.SetEmail(ctx, connID, c.Email), "Email has been set", nil)
	case protocol.SetMerchantDescription:
		return done(s.Merchants.SetDescription(ctx, connID, c.Description), "Description has been set", nil)
	case protocol.SetMerchantPassword:
		return done(s.Merchants.SetPassword(ctx, connID, c.New, c.Old), "New password has been set", nil)

	// Products
	case protocol.MerchantAddProduct:
		p, err := s.Catalog.AddProduct(ctx, connID, c.Name, c.Price, c.Description)
		if err != nil {
			return response.FromError("", err)
		}
		return response.OK("", "This product has been added to the product list",
			map[string]int64{"product_id": p.ID})
	case protocol.MerchantDelProduct:
		return done(s.Catalog.DeleteProduct(ctx, connID, c.ProductID),
			"This product has been deleted from the product list", nil)
	case protocol.MerchantRestockProduct:
		_, err := s.Catalog.Restock(ctx, connID, c.ProductID, c.Quantity)
		return done(err, "This product has been restocked", nil)
	case protocol.MerchantGetProfit:
		profit, err := s.Catalog.Profit(ctx, connID)
		return done(err, "Your total profit has been obtained", profit.StringFixed(2))
	case protocol.SetProductName:
		return done(s.Catalog.SetProductName(ctx, connID, c.ProductID, c.Name), "Product name has been set", nil)
	case protocol.SetProductPrice:
		return done(s.Catalog.SetProductPrice(ctx, connID, c.ProductID, c.Price), "Product price has been set", nil)
	case protocol.SetProductDescription:
		return done(s.Catalog.SetProductDescription(ctx, connID, c.ProductID, c.Description),
			"Product description has been set", nil)
	}

	return response.FromError("", apierror.BadRequest(protocol.MsgUnknownVerb))
}
