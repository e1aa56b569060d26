package domain

import (
	"fmt"
	"strings"
	"time"
)

// Category is the legal area a document belongs to.
type Category string

const (
	CategoryImmigration       Category = "immigration"
	CategoryEmployment        Category = "employment"
	CategoryHealthcare        Category = "healthcare"
	CategoryBanking           Category = "banking"
	CategoryHealthcareBanking Category = "healthcare_banking"
	CategoryPoliceTraffic     Category = "police_traffic"
	CategoryTaxation          Category = "taxation"
	CategoryHousing           Category = "housing"
	CategoryDailyLife         Category = "daily_life"
)

var categories = []Category{
	CategoryImmigration,
	CategoryEmployment,
	CategoryHealthcare,
	CategoryBanking,
	CategoryHealthcareBanking,
	CategoryPoliceTraffic,
	CategoryTaxation,
	CategoryHousing,
	CategoryDailyLife,
}

// Categories returns every known category in declaration order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory accepts a category name in any letter case.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c.Valid() {
		return c, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string { return string(c) }

// DateLayout is the layout of LastVerified in payloads and knowledge files.
const DateLayout = "2006-01-02"

// Chunk is an indexed passage of a legal document.
type Chunk struct {
	ID           string
	DocumentID   string
	Text         string
	Title        string
	Organization string
	URL          string
	Category     Category
	LastVerified time.Time
}

// VerifiedDate formats LastVerified, or returns "" when unknown.
func (c Chunk) VerifiedDate() string {
	if c.LastVerified.IsZero() {
		return ""
	}
	return c.LastVerified.Format(DateLayout)
}
