package model

import "time"

// Invitation is a one-time code a merchant hands out so that a new merchant
// can register. Issuer is the storename of the issuing merchant at the
// time the code was created.
type Invitation struct {
	ID        int64     `json:"id"`
	Issuer    string    `json:"issuer"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}
