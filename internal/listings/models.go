// Package listings searches property listing sources concurrently and merges
// their results.
package listings

import (
	"strings"

	"landtrust/internal/verification/identity"
	dErrors "landtrust/pkg/domain-errors"
)

// Listing is one property as reported by a single source. Fields a source
// does not supply are omitted.
type Listing struct {
	ID            string     `json:"id"`
	Source        string     `json:"source"`
	Address       string     `json:"address,omitempty"`
	Price         *float64   `json:"price,omitempty"`
	Bedrooms      *float64   `json:"bedrooms,omitempty"`
	Bathrooms     *float64   `json:"bathrooms,omitempty"`
	Sqft          *float64   `json:"sqft,omitempty"`
	PropertyType  string     `json:"propertyType,omitempty"`
	Images        []string   `json:"images,omitempty"`
	Zestimate     *float64   `json:"zestimate,omitempty"`
	YearBuilt     *int       `json:"yearBuilt,omitempty"`
	LotSize       *float64   `json:"lotSize,omitempty"`
	OwnerName     string     `json:"ownerName,omitempty"`
	LastSaleDate  string     `json:"lastSaleDate,omitempty"`
	LastSalePrice *float64   `json:"lastSalePrice,omitempty"`
	RentEstimate  *float64   `json:"rentEstimate,omitempty"`
	RentRange     *RentRange `json:"rentRange,omitempty"`
	Confidence    *float64   `json:"confidence,omitempty"`
}

type RentRange struct {
	Low  *float64 `json:"low"`
	High *float64 `json:"high"`
}

// SearchQuery is the location being searched.
type SearchQuery struct {
	Address string
	City    string
	State   string
}

func (q *SearchQuery) Normalize() {
	q.Address = identity.CollapseSpaces(q.Address)
	q.City = identity.CollapseSpaces(q.City)
	q.State = identity.CollapseSpaces(q.State)
}

// Validate requires an address or a city.
func (q *SearchQuery) Validate() error {
	if q.Address == "" && q.City == "" {
		return dErrors.New(dErrors.CodeValidation, "address or city is required")
	}
	if len(q.Address) > identity.MaxFieldLength || len(q.City) > identity.MaxFieldLength || len(q.State) > identity.MaxFieldLength {
		return dErrors.Newf(dErrors.CodeValidation, "search fields must be at most %d characters", identity.MaxFieldLength)
	}
	return nil
}

// Text is the free-form location sent to every source: the address when
// present, otherwise "city, state".
func (q SearchQuery) Text() string {
	if q.Address != "" {
		return q.Address
	}
	if q.State == "" {
		return q.City
	}
	return strings.Join([]string{q.City, q.State}, ", ")
}

// SearchResult merges listings in source order. Errors names each source
// that failed as "<source>: <reason>".
type SearchResult struct {
	Properties []Listing `json:"properties"`
	Total      int       `json:"total"`
	Errors     []string  `json:"errors,omitempty"`
}
