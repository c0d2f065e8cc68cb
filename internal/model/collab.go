package model

import "time"

// Collaborator roles. Owner is unique per list and immutable: it is created
// with the list and can never be removed or reassigned through the
// collaborator-management endpoints.
const (
	RoleOwner  = "owner"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

// ValidInviteRole reports whether role may be granted by an invitation.
// Owner is deliberately excluded — ownership never transfers here.
func ValidInviteRole(role string) bool {
	return role == RoleEditor || role == RoleViewer
}

type Collaborator struct {
	ID        int64     `json:"id"`
	ListID    int64     `json:"list_id"`
	UserID    int64     `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// CollaboratorWithUser joins collaborator rows with user identity for the
// listing endpoint.
type CollaboratorWithUser struct {
	Collaborator
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Invitation statuses. Expiration is evaluated lazily: a pending row past its
// expires_at is treated as non-blocking and flipped to expired on the next
// conflicting create, never swept by a background job.
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationExpired  = "expired"
)

type Invitation struct {
	ID        int64     `json:"id"`
	ListID    int64     `json:"list_id"`
	InviterID int64     `json:"inviter_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

type SharedLink struct {
	ID        int64      `json:"id"`
	ListID    int64      `json:"list_id"`
	Token     string     `json:"token"`
	IsActive  bool       `json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// SharedListView is the public read-only projection returned for a valid share
// token. It never carries prices, private notes, or collaborator identities.
type SharedListView struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Items       []SharedItem `json:"items"`
}

type SharedItem struct {
	Name        string  `json:"name"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	Category    string  `json:"category"`
	Notes       string  `json:"notes,omitempty"`
	IsPurchased bool    `json:"is_purchased"`
	Priority    string  `json:"priority,omitempty"`
}
