// Package category assigns a default category to an item from its name.
// Matching is case-insensitive: exact name first, then substring keywords.
package category

import "strings"

// Guess returns the category for the given item name, falling back to
// "Other" when nothing matches.
func Guess(itemName string) string {
	name := strings.ToLower(strings.TrimSpace(itemName))
	if name == "" {
		return "Other"
	}

	if cat, ok := exactMatch[name]; ok {
		return cat
	}

	// Substring pass, more specific keywords first.
	for _, entry := range substringMatches {
		if strings.Contains(name, entry.keyword) {
			return entry.category
		}
	}

	return "Other"
}

var exactMatch = map[string]string{
	// Produce
	"apple":        "Produce",
	"apples":       "Produce",
	"banana":       "Produce",
	"bananas":      "Produce",
	"orange":       "Produce",
	"oranges":      "Produce",
	"lemon":        "Produce",
	"lime":         "Produce",
	"avocado":      "Produce",
	"tomato":       "Produce",
	"tomatoes":     "Produce",
	"potato":       "Produce",
	"potatoes":     "Produce",
	"onion":        "Produce",
	"onions":       "Produce",
	"garlic":       "Produce",
	"lettuce":      "Produce",
	"spinach":      "Produce",
	"broccoli":     "Produce",
	"carrots":      "Produce",
	"celery":       "Produce",
	"cucumber":     "Produce",
	"mushrooms":    "Produce",
	"grapes":       "Produce",
	"strawberries": "Produce",
	"blueberries":  "Produce",

	// Dairy
	"milk":   "Dairy",
	"butter": "Dairy",
	"cheese": "Dairy",
	"yogurt": "Dairy",
	"cream":  "Dairy",
	"eggs":   "Dairy",
	"egg":    "Dairy",

	// Meat & Seafood
	"chicken": "Meat & Seafood",
	"beef":    "Meat & Seafood",
	"pork":    "Meat & Seafood",
	"bacon":   "Meat & Seafood",
	"salmon":  "Meat & Seafood",
	"shrimp":  "Meat & Seafood",
	"turkey":  "Meat & Seafood",
	"ham":     "Meat & Seafood",

	// Bakery
	"bread":     "Bakery",
	"bagels":    "Bakery",
	"croissant": "Bakery",
	"tortillas": "Bakery",
	"buns":      "Bakery",

	// Pantry
	"rice":    "Pantry",
	"pasta":   "Pantry",
	"flour":   "Pantry",
	"sugar":   "Pantry",
	"salt":    "Pantry",
	"pepper":  "Pantry",
	"oil":     "Pantry",
	"vinegar": "Pantry",
	"cereal":  "Pantry",
	"oats":    "Pantry",
	"honey":   "Pantry",
	"ketchup": "Pantry",
	"mustard": "Pantry",

	// Beverages
	"coffee": "Beverages",
	"tea":    "Beverages",
	"juice":  "Beverages",
	"soda":   "Beverages",
	"water":  "Beverages",
	"beer":   "Beverages",
	"wine":   "Beverages",

	// Snacks
	"chips":    "Snacks",
	"crackers": "Snacks",
	"cookies":  "Snacks",
	"popcorn":  "Snacks",
	"pretzels": "Snacks",
	"nuts":     "Snacks",

	// Household
	"detergent":    "Household",
	"sponges":      "Household",
	"trash bags":   "Household",
	"paper towels": "Household",
	"foil":         "Household",
	"batteries":    "Household",

	// Personal Care
	"shampoo":    "Personal Care",
	"soap":       "Personal Care",
	"toothpaste": "Personal Care",
	"deodorant":  "Personal Care",
	"razors":     "Personal Care",
}

var substringMatches = []struct {
	keyword  string
	category string
}{
	{"frozen", "Frozen"},
	{"ice cream", "Frozen"},
	{"organic", "Produce"},
	{"cheese", "Dairy"},
	{"yogurt", "Dairy"},
	{"milk", "Dairy"},
	{"chicken", "Meat & Seafood"},
	{"beef", "Meat & Seafood"},
	{"fish", "Meat & Seafood"},
	{"sausage", "Meat & Seafood"},
	{"bread", "Bakery"},
	{"cake", "Bakery"},
	{"sauce", "Pantry"},
	{"canned", "Pantry"},
	{"soup", "Pantry"},
	{"spice", "Pantry"},
	{"juice", "Beverages"},
	{"drink", "Beverages"},
	{"chocolate", "Snacks"},
	{"candy", "Snacks"},
	{"cleaner", "Household"},
	{"paper", "Household"},
	{"lotion", "Personal Care"},
	{"toothbrush", "Personal Care"},
}
