package protocol

// Verb names a command on the wire.
type Verb string

const (
	VerbClientCreate      Verb = "CLIENT_CREATE"
	VerbClientLogin       Verb = "CLIENT_LOGIN"
	VerbClientLogout      Verb = "CLIENT_LOGOUT"
	VerbSetClientUsername Verb = "SET_CLIENT_USERNAME"
	VerbSetClientEmail    Verb = "SET_CLIENT_EMAIL"
	VerbSetClientPassword Verb = "SET_CLIENT_PASSWORD"
	VerbClientAddItem     Verb = "CLIENT_ADD_ITEM"
	VerbClientRemoveItem  Verb = "CLIENT_REMOVE_ITEM"
	VerbClientGetItems    Verb = "CLIENT_GET_ITEMS"
	VerbClientGetPrice    Verb = "CLIENT_GET_PRICE"
	VerbClientCheckout    Verb = "CLIENT_CHECKOUT_ITEM"

	VerbListMerchant Verb = "LIST_MERCHANT"
	VerbListProduct  Verb = "LIST_PRODUCT"

	VerbMerchantCreateInvitation Verb = "MERCHANT_CREATE_INVITATION"
	VerbMerchantCreate           Verb = "MERCHANT_CREATE"
	VerbMerchantLogin            Verb = "MERCHANT_LOGIN"
	VerbMerchantLogout           Verb = "MERCHANT_LOGOUT"
	VerbSetMerchantStorename     Verb = "SET_MERCHANT_STORENAME"
	VerbSetMerchantEmail         Verb = "SET_MERCHANT_EMAIL"
	VerbSetMerchantDescription   Verb = "SET_MERCHANT_DESCRIPTION"
	VerbSetMerchantPassword      Verb = "SET_MERCHANT_PASSWORD"
	VerbMerchantAddProduct       Verb = "MERCHANT_ADD_PRODUCT"
	VerbMerchantDelProduct       Verb = "MERCHANT_DEL_PRODUCT"
	VerbMerchantRestockProduct   Verb = "MERCHANT_RESTOCK_PRODUCT"
	VerbMerchantGetProfit        Verb = "MERCHANT_GET_PROFIT"

	VerbSetProductName        Verb = "SET_PRODUCT_NAME"
	VerbSetProductPrice       Verb = "SET_PRODUCT_PRICE"
	VerbSetProductDescription Verb = "SET_PRODUCT_DESCRIPTION"

	// VerbDisconnect closes the connection. It never gets a reply.
	VerbDisconnect Verb = "DISCONNECT"
)

// legacyAliases maps misspelled verbs still sent by older clients.
var legacyAliases = map[Verb]Verb{
	"MERCHANT_CREATE_IVITATION": VerbMerchantCreateInvitation,
}

// Canonical resolves legacy aliases.
func (v Verb) Canonical() Verb {
	if c, ok := legacyAliases[v]; ok {
		return c
	}
	return v
}

// Verbs lists every command verb in catalog order. DISCONNECT is not a
// command and is not listed.
func Verbs() []Verb {
	return []Verb{
		VerbClientCreate,
		VerbClientLogin,
		VerbClientLogout,
		VerbSetClientUsername,
		VerbSetClientEmail,
		VerbSetClientPassword,
		VerbClientAddItem,
		VerbClientRemoveItem,
		VerbClientGetItems,
		VerbClientGetPrice,
		VerbClientCheckout,
		VerbListMerchant,
		VerbListProduct,
		VerbMerchantCreateInvitation,
		VerbMerchantCreate,
		VerbMerchantLogin,
		VerbMerchantLogout,
		VerbSetMerchantStorename,
		VerbSetMerchantEmail,
		VerbSetMerchantDescription,
		VerbSetMerchantPassword,
		VerbMerchantAddProduct,
		VerbMerchantDelProduct,
		VerbMerchantRestockProduct,
		VerbMerchantGetProfit,
		VerbSetProductName,
		VerbSetProductPrice,
		VerbSetProductDescription,
	}
}
