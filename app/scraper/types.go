package scraper

import "encoding/json"

// jsonModel mirrors the search-result document the listing source embeds in
// each results page as `window.jsonModel`
type jsonModel struct {
	Properties  []rawProperty `json:"properties"`
	Pagination  pagination    `json:"pagination"`
	ResultCount json.Number   `json:"resultCount"`
}

type pagination struct {
	Next *json.Number `json:"next"`
}

// rawProperty is one property entry of the embedded search JSON. Tenure is
// kept raw because the source serves it as either an object or a bare string
// depending on page generation.
type rawProperty struct {
	ID               json.Number     `json:"id"`
	DisplayAddress   string          `json:"displayAddress"`
	Price            rawPrice        `json:"price"`
	Bedrooms         *int            `json:"bedrooms"`
	Bathrooms        *int            `json:"bathrooms"`
	PropertySubType  string          `json:"propertySubType"`
	PropertyType     string          `json:"propertyType"`
	Tenure           json.RawMessage `json:"tenure"`
	ListingUpdate    rawUpdate       `json:"listingUpdate"`
	FirstVisibleDate string          `json:"firstVisibleDate"`
	PropertyURL      string          `json:"propertyUrl"`
	Location         rawLocation     `json:"location"`
}

type rawPrice struct {
	Amount json.Number `json:"amount"`
}

type rawUpdate struct {
	ListingUpdateDate string `json:"listingUpdateDate"`
}

type rawLocation struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type rawTenure struct {
	TenureType string `json:"tenureType"`
}

// LocationSuggestion is one typeahead lookup result
type LocationSuggestion struct {
	DisplayName string `json:"displayName"`
	Identifier  string `json:"locationIdentifier"`
}
