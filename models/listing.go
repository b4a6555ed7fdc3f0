package models

import (
	"net/url"
	"strings"
	"unicode"
)

// CandidateRecord is what a single extraction strategy pulls out of a page
// before cleaning. It never leaves the extraction chain.
type CandidateRecord struct {
	Title        string
	RawPriceText string
	ParsedPrice  *float64
	RawDateText  string
	ItemLink     string
	StrategyID   string
}

// ListingRecord is the canonical, cleaned listing.
type ListingRecord struct {
	IdentityKey  string   `json:"identity_key"`
	Title        string   `json:"title"`
	PriceText    string   `json:"price_text"`
	PriceNumeric *float64 `json:"price_numeric,omitempty"`
	DateEstimate string   `json:"date_estimate"`
	SourceTag    string   `json:"source_tag"`
	ItemLink     string   `json:"item_link,omitempty"`
}

// Rekey recomputes IdentityKey from the record's current fields. It must be
// called whenever DateEstimate, Title, PriceText or ItemLink change.
func (r *ListingRecord) Rekey() {
	r.IdentityKey = IdentityKey(r.ItemLink, r.DateEstimate, r.Title, r.PriceText)
}

// IdentityKey derives the dedup key of a listing. A stable item link wins;
// without one the (date, normalised title, price) tuple is used.
func IdentityKey(link, date, title, price string) string {
	if l := NormaliseLink(link); l != "" {
		return "link:" + l
	}
	return "row:" + strings.TrimSpace(date) + "|" + NormaliseText(title) + "|" + strings.TrimSpace(price)
}

// NormaliseLink drops query string, fragment and trailing slash so tracking
// parameters do not split one listing into several.
func NormaliseLink(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil {
		return strings.TrimSuffix(link, "/")
	}
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimSuffix(u.String(), "/")
}

// NormaliseText strips leading/trailing whitespace and collapses internal whitespace.
func NormaliseText(s string) string {
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	return strings.Join(fields, " ")
}

// CanonicalHeader is the header of the three-column output schema.
var CanonicalHeader = []string{"Date", "Item", "Price"}

// LegacyHeader is the wider seven-column schema older scrapers produced.
var LegacyHeader = []string{"Date", "Item", "Item_Link", "Price", "Seller", "Seller_Link", "Seller_Ratings"}

// Row renders the record in canonical column order.
func (r ListingRecord) Row() []string {
	return []string{r.DateEstimate, r.Title, r.PriceText}
}
