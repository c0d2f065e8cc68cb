package model

import "time"

type Item struct {
	ID           int64      `json:"id"`
	ListID       int64      `json:"list_id"`
	Name         string     `json:"name"`
	Quantity     float64    `json:"quantity"`
	Unit         string     `json:"unit"`
	Category     string     `json:"category"`
	Notes        string     `json:"notes"`
	NotesPrivate bool       `json:"notes_private"`
	Store        string     `json:"store"`
	Brand        string     `json:"brand"`
	Price        *float64   `json:"price"`
	PricePerUnit bool       `json:"price_per_unit"`
	IsPurchased  bool       `json:"is_purchased"`
	Priority     string     `json:"priority"`
	PurchasedAt  *time.Time `json:"purchased_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Closed enums for item fields. Handlers validate against these; an empty
// string is always allowed and means "unspecified".
var (
	Units = []string{
		"pcs", "pack", "bunch", "dozen",
		"g", "kg", "oz", "lb",
		"ml", "l", "fl_oz", "gal",
		"can", "bottle", "box", "bag", "jar",
	}

	Categories = []string{
		"Produce", "Dairy", "Meat & Seafood", "Bakery", "Pantry", "Frozen",
		"Beverages", "Snacks", "Household", "Personal Care", "Other",
	}

	Priorities = []string{"low", "medium", "high"}
)

func ValidUnit(u string) bool     { return u == "" || contains(Units, u) }
func ValidCategory(c string) bool { return c == "" || contains(Categories, c) }
func ValidPriority(p string) bool { return p == "" || contains(Priorities, p) }

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
