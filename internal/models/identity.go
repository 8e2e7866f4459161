package models

import (
	"encoding/json"
	"time"
)

// Identity is a signer registered with the storefront.
// UUID and PubKey never change after registration.
type Identity struct {
	UUID        string          `json:"uuid"`
	PubKey      string          `json:"pubKey"`
	ExternalRef json.RawMessage `json:"addieUser,omitempty"` // issued by the payment-splitting service
	CreatedAt   time.Time       `json:"createdAt"`
}
