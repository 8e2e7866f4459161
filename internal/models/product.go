package models

import "time"

// Product is a listing owned by a single seller. (OwnerUUID, Title) is the upsert key
// and ProductID is derived from it, so edits keep the same external handle.
type Product struct {
	OwnerUUID   string            `json:"uuid"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Price       int64             `json:"price"` // minor units
	ProductID   string            `json:"productId"`
	Tags        []string          `json:"tags"`
	Category    string            `json:"category"`
	ContentType string            `json:"contentType,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Image       string            `json:"image,omitempty"`
	Artifacts   []string          `json:"artifacts"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// ProductFields carries the mutable part of an upsert. Nil fields keep the stored value.
type ProductFields struct {
	Description *string           `json:"description"`
	Price       *int64            `json:"price" validate:"omitempty,gte=0"`
	Tags        []string          `json:"tags"`
	Category    *string           `json:"category"`
	ContentType *string           `json:"contentType"`
	Metadata    map[string]string `json:"metadata"`
}

// PrimaryArtifact returns the first attached artifact, or "" when there is none.
func (p *Product) PrimaryArtifact() string {
	if len(p.Artifacts) == 0 {
		return ""
	}
	return p.Artifacts[0]
}
