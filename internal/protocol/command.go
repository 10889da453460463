package protocol

import (
	"strconv"

	"github.com/shopspring/decimal"

	"cybermarket/pkg/apierror"
)

// MsgUnknownVerb is the reply text for a verb the server does not define.
const MsgUnknownVerb = "The method you are trying to call is not defined by the server"

// Command is a decoded request. The set of implementations is closed:
// every type in this file and nothing else.
type Command interface {
	Verb() Verb
}

type ClientCreate struct{ Username, Email, Password string }
type ClientLogin struct{ Handle, Password string }
type ClientLogout struct{}
type SetClientUsername struct{ Username string }
type SetClientEmail struct{ Email string }
type SetClientPassword struct{ New, Old string }
type ClientAddItem struct{ ProductID, Quantity int64 }
type ClientRemoveItem struct{ ProductID int64 }
type ClientGetItems struct{}
type ClientGetPrice struct{}
type ClientCheckout struct{}
type ListMerchant struct{}
type ListProduct struct{ Storename string }
type MerchantCreateInvitation struct{}

type MerchantCreate struct {
	Storename   string
	Description string
	Email       string
	Password    string
	Inviter     string
	Code        string
}

type MerchantLogin struct{ Handle, Password string }
type MerchantLogout struct{}
type SetMerchantStorename struct{ Storename string }
type SetMerchantEmail struct{ Email string }
type SetMerchantDescription struct{ Description string }
type SetMerchantPassword struct{ New, Old string }

type MerchantAddProduct struct {
	Name        string
	Price       decimal.Decimal
	Description string
}

type MerchantDelProduct struct{ ProductID int64 }
type MerchantRestockProduct struct{ ProductID, Quantity int64 }
type MerchantGetProfit struct{}
type SetProductName struct {
	ProductID int64
	Name      string
}
type SetProductPrice struct {
	ProductID int64
	Price     decimal.Decimal
}
type SetProductDescription struct {
	ProductID   int64
	Description string
}

func (ClientCreate) Verb() Verb             { return VerbClientCreate }
func (ClientLogin) Verb() Verb              { return VerbClientLogin }
func (ClientLogout) Verb() Verb             { return VerbClientLogout }
func (SetClientUsername) Verb() Verb        { return VerbSetClientUsername }
func (SetClientEmail) Verb() Verb           { return VerbSetClientEmail }
func (SetClientPassword) Verb() Verb        { return VerbSetClientPassword }
func (ClientAddItem) Verb() Verb            { return VerbClientAddItem }
func (ClientRemoveItem) Verb() Verb         { return VerbClientRemoveItem }
func (ClientGetItems) Verb() Verb           { return VerbClientGetItems }
func (ClientGetPrice) Verb() Verb           { return VerbClientGetPrice }
func (ClientCheckout) Verb() Verb           { return VerbClientCheckout }
func (ListMerchant) Verb() Verb             { return VerbListMerchant }
func (ListProduct) Verb() Verb              { return VerbListProduct }
func (MerchantCreateInvitation) Verb() Verb { return VerbMerchantCreateInvitation }
func (MerchantCreate) Verb() Verb           { return VerbMerchantCreate }
func (MerchantLogin) Verb() Verb            { return VerbMerchantLogin }
func (MerchantLogout) Verb() Verb           { return VerbMerchantLogout }
func (SetMerchantStorename) Verb() Verb     { return VerbSetMerchantStorename }
func (SetMerchantEmail) Verb() Verb         { return VerbSetMerchantEmail }
func (SetMerchantDescription) Verb() Verb   { return VerbSetMerchantDescription }
func (SetMerchantPassword) Verb() Verb      { return VerbSetMerchantPassword }
func (MerchantAddProduct) Verb() Verb       { return VerbMerchantAddProduct }
func (MerchantDelProduct) Verb() Verb       { return VerbMerchantDelProduct }
func (MerchantRestockProduct) Verb() Verb   { return VerbMerchantRestockProduct }
func (MerchantGetProfit) Verb() Verb        { return VerbMerchantGetProfit }
func (SetProductName) Verb() Verb           { return VerbSetProductName }
func (SetProductPrice) Verb() Verb          { return VerbSetProductPrice }
func (SetProductDescription) Verb() Verb    { return VerbSetProductDescription }

// arity is the exact argument count of every verb.
var arity = map[Verb]int{
	VerbClientCreate:             3,
	VerbClientLogin:              2,
	VerbClientLogout:             0,
	VerbSetClientUsername:        1,
	VerbSetClientEmail:           1,
	VerbSetClientPassword:        2,
	VerbClientAddItem:            2,
	VerbClientRemoveItem:         1,
	VerbClientGetItems:           0,
	VerbClientGetPrice:           0,
	VerbClientCheckout:           0,
	VerbListMerchant:             0,
	VerbListProduct:              1,
	VerbMerchantCreateInvitation: 0,
	VerbMerchantCreate:           6,
	VerbMerchantLogin:            2,
	VerbMerchantLogout:           0,
	VerbSetMerchantStorename:     1,
	VerbSetMerchantEmail:         1,
	VerbSetMerchantDescription:   1,
	VerbSetMerchantPassword:      2,
	VerbMerchantAddProduct:       3,
	VerbMerchantDelProduct:       1,
	VerbMerchantRestockProduct:   2,
	VerbMerchantGetProfit:        0,
	VerbSetProductName:           2,
	VerbSetProductPrice:          2,
	VerbSetProductDescription:    2,
}

// Arity returns the argument count of verb.
func Arity(verb Verb) (int, bool) {
	n, ok := arity[verb.Canonical()]
	return n, ok
}

// Decode validates the frame's arguments and builds the typed command.
// Every failure is an *apierror.Error with status 400.
func Decode(f Frame) (Command, error) {
	verb := f.Verb.Canonical()

	want, ok := arity[verb]
	if !ok {
		return nil, apierror.BadRequest(MsgUnknownVerb)
	}
	if len(f.Args) != want {
		return nil, apierror.BadRequestf("%s expects %d arguments, got %d", verb, want, len(f.Args))
	}
	for i, a := range f.Args {
		if a == "" {
			return nil, apierror.BadRequestf("Argument %d of %s must not be empty", i+1, verb)
		}
	}

	a := f.Args
	switch verb {
	case VerbClientCreate:
		return ClientCreate{Username: a[0], Email: a[1], Password: a[2]}, nil
	case VerbClientLogin:
		return ClientLogin{Handle: a[0], Password: a[1]}, nil
	case VerbClientLogout:
		return ClientLogout{}, nil
	case VerbSetClientUsername:
		return SetClientUsername{Username: a[0]}, nil
	case VerbSetClientEmail:
		return SetClientEmail{Email: a[0]}, nil
	case VerbSetClientPassword:
		return SetClientPassword{New: a[0], Old: a[1]}, nil
	case VerbClientAddItem:
		id, err := parseID(a[0])
		if err != nil {
			return nil, err
		}
		qty, err := parseInt(a[1], "The quantity of added products should be a positive integer")
		if err != nil {
			return nil, err
		}
		return ClientAddItem{ProductID: id, Quantity: qty}, nil
	case VerbClientRemoveItem:
		id, err := parseID(a[0])
		if err != nil {
			return nil, err
		}
		return ClientRemoveItem{ProductID: id}, nil
	case VerbClientGetItems:
		return ClientGetItems{}, nil
	case VerbClientGetPrice:
		return ClientGetPrice{}, nil
	case VerbClientCheckout:
		return ClientCheckout{}, nil
	case VerbListMerchant:
		return ListMerchant{}, nil
	case VerbListProduct:
		return ListProduct{Storename: a[0]}, nil
	case VerbMerchantCreateInvitation:
		return MerchantCreateInvitation{}, nil
	case VerbMerchantCreate:
		return MerchantCreate{
			Storename:   a[0],
			Description: a[1],
			Email:       a[2],
			Password:    a[3],
			Inviter:     a[4],
			Code:        a[5],
		}, nil
	case VerbMerchantLogin:
		return MerchantLogin{Handle: a[0], Password: a[1]}, nil
	case VerbMerchantLogout:
		return MerchantLogout{}, nil
	case VerbSetMerchantStorename:
		return SetMerchantStorename{Storename: a[0]}, nil
	case VerbSetMerchantEmail:
		return SetMerchantEmail{Email: a[0]}, nil
	case VerbSetMerchantDescription:
		return SetMerchantDescription{Description: a[0]}, nil
	case VerbSetMerchantPassword:
		return SetMerchantPassword{New: a[0], Old: a[1]}, nil
	case VerbMerchantAddProduct:
		price, err := parsePrice(a[1])
		if err != nil {
			return nil, err
		}
		return MerchantAddProduct{Name: a[0], Price: price, Description: a[2]}, nil
	case VerbMerchantDelProduct:
		id, err := parseID(a[0])
		if err != nil {
			return nil, err
		}
		return MerchantDelProduct{ProductID: id}, nil
	case VerbMerchantRestockProduct:
		id, err := parseID(a[0])
		if err != nil {
			return nil, err
		}
		qty, err := parseInt(a[1], "The restock quantity should be a positive integer")
		if err != nil {
			return nil, err
		}
		return MerchantRestockProduct{ProductID: id, Quantity: qty}, nil
	case VerbMerchantGetProfit:
		return MerchantGetProfit{}, nil
	case VerbSetProductName:
		id, err := parseID(a[0])
		if err != nil {
			return nil, err
		}
		return SetProductName{ProductID: id, Name: a[1]}, nil
	case VerbSetProductPrice:
		id, err := parseID(a[0])
		if err != nil {
			return nil, err
		}
		price, err := parsePrice(a[1])
		if err != nil {
			return nil, err
		}
		return SetProductPrice{ProductID: id, Price: price}, nil
	case VerbSetProductDescription:
		id, err := parseID(a[0])
		if err != nil {
			return nil, err
		}
		return SetProductDescription{ProductID: id, Description: a[1]}, nil
	}

	// arity and the switch above must list the same verbs
	return nil, apierror.BadRequest(MsgUnknownVerb)
}

func parseID(s string) (int64, error) {
	return parseInt(s, "The product id should be an integer")
}

func parseInt(s, message string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, apierror.BadRequest(message)
	}
	return n, nil
}

func parsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, apierror.BadRequest("The price of a product should be a number")
	}
	return d, nil
}
