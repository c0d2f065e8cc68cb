package category

import "testing"

func TestGuess(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"milk", "Dairy"},
		{"Milk", "Dairy"},
		{"  MILK  ", "Dairy"},
		{"bananas", "Produce"},
		{"chicken", "Meat & Seafood"},
		{"bread", "Bakery"},
		{"coffee", "Beverages"},
		{"shampoo", "Personal Care"},

		// Substring matches
		{"oat milk", "Dairy"},
		{"frozen peas", "Frozen"},
		{"chicken thighs", "Meat & Seafood"},
		{"tomato sauce", "Pantry"},
		{"dark chocolate", "Snacks"},
		{"all-purpose cleaner", "Household"},

		// Fallback
		{"mystery thing", "Other"},
		{"", "Other"},
		{"   ", "Other"},
	}

	for _, tt := range tests {
		if got := Guess(tt.name); got != tt.want {
			t.Errorf("Guess(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
