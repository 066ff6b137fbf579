package scraper

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/ashdean/property-comb/app/areas"
	"github.com/ashdean/property-comb/app/database"
)

func testAreaConfig() *areas.AreaConfig {
	return &areas.AreaConfig{
		Area: areas.AreaInfo{
			Name:       "walthamstow",
			Identifier: "REGION^93980",
		},
		Filters: areas.SearchFilters{
			MinBedrooms:   2,
			MaxBedrooms:   4,
			MinPrice:      300000,
			MaxPrice:      600000,
			PropertyTypes: []string{"detached", "semi-detached", "terraced"},
		},
	}
}

func TestExtractBalancedJSON(t *testing.T) {
	cases := []struct {
		name  string
		text  string
		start int
		want  string
	}{
		{"simple", `{"a":1}`, 0, `{"a":1}`},
		{"nested", `{"a":{"b":2}} trailing`, 0, `{"a":{"b":2}}`},
		{"brace in string", `{"a":"}"}`, 0, `{"a":"}"}`},
		{"escaped quote in string", `{"a":"\"}"}`, 0, `{"a":"\"}"}`},
		{"never balances", `{"a":1`, 0, ""},
		{"offset start", `var x = {"ok":true};`, 8, `{"ok":true}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := extractBalancedJSON(tc.text, tc.start)
			if got != tc.want {
				t.Errorf("extractBalancedJSON() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestExtractJSONModelFromAssignment(t *testing.T) {
	html := `<html><head><script>
		window.jsonModel = {"properties":[{"id":123,"displayAddress":"1 Test St","price":{"amount":450000}}],"pagination":{"next":24},"resultCount":"57"};
	</script></head><body></body></html>`

	model := extractJSONModel(html)
	if model == nil {
		t.Fatal("expected model, got nil")
	}
	if len(model.Properties) != 1 {
		t.Fatalf("expected 1 property, got %d", len(model.Properties))
	}
	if model.Properties[0].ID.String() != "123" {
		t.Errorf("expected id 123, got %s", model.Properties[0].ID.String())
	}
	if model.Pagination.Next == nil {
		t.Fatal("expected pagination.next")
	}
	if next, _ := model.Pagination.Next.Int64(); next != 24 {
		t.Errorf("expected next 24, got %d", next)
	}
	if total, _ := model.ResultCount.Int64(); total != 57 {
		t.Errorf("expected result count 57, got %d", total)
	}
}

func TestExtractJSONModelFromNextData(t *testing.T) {
	html := `<html><body><script id="__NEXT_DATA__" type="application/json">
		{"props":{"pageProps":{"searchResults":{"properties":[{"id":"456","displayAddress":"2 Test St","price":{"amount":"525000"}}]},"pagination":{},"resultCount":1}}}
	</script></body></html>`

	model := extractJSONModel(html)
	if model == nil {
		t.Fatal("expected model from __NEXT_DATA__, got nil")
	}
	if len(model.Properties) != 1 {
		t.Fatalf("expected 1 property, got %d", len(model.Properties))
	}
	if model.Properties[0].DisplayAddress != "2 Test St" {
		t.Errorf("unexpected address %q", model.Properties[0].DisplayAddress)
	}
	if model.Pagination.Next != nil {
		t.Error("expected no next page")
	}
}

func TestExtractJSONModelNotFoundPage(t *testing.T) {
	html := `<html><body>We couldn't find the place you were looking for</body></html>`
	if model := extractJSONModel(html); model != nil {
		t.Errorf("expected nil for not-found page, got %+v", model)
	}
}

func TestExtractJSONModelNoData(t *testing.T) {
	if model := extractJSONModel("<html><body>nothing here</body></html>"); model != nil {
		t.Errorf("expected nil for page without data, got %+v", model)
	}
}

func TestParseProperty(t *testing.T) {
	raw := rawProperty{}
	payload := `{
		"id": 160428965,
		"displayAddress": "Forest Road, Walthamstow, London, E17",
		"price": {"amount": 475000},
		"bedrooms": 2,
		"bathrooms": 1,
		"propertySubType": "Maisonette",
		"propertyType": "Flat",
		"tenure": {"tenureType": "LEASEHOLD"},
		"listingUpdate": {"listingUpdateDate": "2026-02-10T09:12:01Z"},
		"firstVisibleDate": "2026-01-20T18:00:00Z",
		"propertyUrl": "/properties/160428965",
		"location": {"latitude": 51.589, "longitude": -0.021}
	}`
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		t.Fatalf("failed to unmarshal fixture: %v", err)
	}

	rec := parseProperty(raw, testAreaConfig())
	if rec == nil {
		t.Fatal("expected record, got nil")
	}
	if rec.ListingID != "160428965" {
		t.Errorf("unexpected listing id %q", rec.ListingID)
	}
	if rec.Price != 475000 {
		t.Errorf("unexpected price %d", rec.Price)
	}
	if rec.PropertyType != "Maisonette" {
		t.Errorf("expected sub-type preferred, got %q", rec.PropertyType)
	}
	if rec.Tenure != database.TenureLeasehold {
		t.Errorf("unexpected tenure %q", rec.Tenure)
	}
	if rec.ListingDate != "2026-02-10" {
		t.Errorf("expected date part only, got %q", rec.ListingDate)
	}
	if !strings.HasPrefix(rec.ListingURL, "https://www.rightmove.co.uk/") {
		t.Errorf("expected absolute URL, got %q", rec.ListingURL)
	}
	if rec.Area != "walthamstow" {
		t.Errorf("expected area from config, got %q", rec.Area)
	}
	if rec.Latitude == nil || *rec.Latitude != 51.589 {
		t.Errorf("unexpected latitude %v", rec.Latitude)
	}
	if rec.Bedrooms == nil || *rec.Bedrooms != 2 {
		t.Errorf("unexpected bedrooms %v", rec.Bedrooms)
	}
}

func TestParsePropertyFreeholdFilter(t *testing.T) {
	cfg := testAreaConfig()
	cfg.Filters.FilterFreehold = true

	var raw rawProperty
	payload := `{"id": 1, "displayAddress": "X", "price": {"amount": 100000}, "tenure": {"tenureType": "Leasehold"}}`
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		t.Fatalf("failed to unmarshal fixture: %v", err)
	}
	if rec := parseProperty(raw, cfg); rec != nil {
		t.Error("expected leasehold listing rejected by freehold filter")
	}

	payload = `{"id": 2, "displayAddress": "Y", "price": {"amount": 100000}, "tenure": {"tenureType": "Freehold"}}`
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		t.Fatalf("failed to unmarshal fixture: %v", err)
	}
	if rec := parseProperty(raw, cfg); rec == nil {
		t.Error("expected freehold listing to pass the filter")
	}
}

func TestParsePropertyMissingFields(t *testing.T) {
	cfg := testAreaConfig()

	var noID rawProperty
	if err := json.Unmarshal([]byte(`{"displayAddress": "X", "price": {"amount": 100}}`), &noID); err != nil {
		t.Fatalf("failed to unmarshal fixture: %v", err)
	}
	if rec := parseProperty(noID, cfg); rec != nil {
		t.Error("expected nil for missing id")
	}

	var noPrice rawProperty
	if err := json.Unmarshal([]byte(`{"id": 1, "displayAddress": "X"}`), &noPrice); err != nil {
		t.Fatalf("failed to unmarshal fixture: %v", err)
	}
	if rec := parseProperty(noPrice, cfg); rec != nil {
		t.Error("expected nil for missing price")
	}

	var noAddress rawProperty
	if err := json.Unmarshal([]byte(`{"id": 1, "price": {"amount": 100}}`), &noAddress); err != nil {
		t.Fatalf("failed to unmarshal fixture: %v", err)
	}
	rec := parseProperty(noAddress, cfg)
	if rec == nil {
		t.Fatal("expected record despite missing address")
	}
	if rec.Address != "Unknown" {
		t.Errorf("expected Unknown address placeholder, got %q", rec.Address)
	}
}

func TestParseTenureEncodings(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"object", `{"tenureType": "FREEHOLD"}`, database.TenureFreehold},
		{"string", `"Leasehold"`, database.TenureLeasehold},
		{"share of freehold", `"Share of Freehold"`, database.TenureShareOfFreehold},
		{"empty object", `{}`, database.TenureUnknown},
		{"null", `null`, database.TenureUnknown},
		{"absent", ``, database.TenureUnknown},
		{"garbage", `12`, database.TenureUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := parseTenure([]byte(tc.raw))
			if got != tc.want {
				t.Errorf("parseTenure(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestSearchURL(t *testing.T) {
	s := NewScraper(Options{})
	u := s.searchURL(testAreaConfig(), 48)

	for _, fragment := range []string{
		"locationIdentifier=REGION%5E93980",
		"minBedrooms=2",
		"maxBedrooms=4",
		"minPrice=300000",
		"maxPrice=600000",
		"index=48",
		"dontShow=newHome%2CsharedOwnership%2Cretirement",
	} {
		if !strings.Contains(u, fragment) {
			t.Errorf("expected URL to contain %q, got %s", fragment, u)
		}
	}
}
