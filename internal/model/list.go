package model

import "time"

// List is a shopping list. ItemCount and PurchasedCount are denormalized from
// the items table and recomputed inside the same transaction as any item write.
// IsCollaborative is true iff at least one non-owner collaborator exists.
type List struct {
	ID              int64     `json:"id"`
	OwnerID         int64     `json:"owner_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	IsArchived      bool      `json:"is_archived"`
	IsCollaborative bool      `json:"is_collaborative"`
	ItemCount       int       `json:"item_count"`
	PurchasedCount  int       `json:"purchased_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
