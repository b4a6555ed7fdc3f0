package services

import (
	"strings"

	"marketplace-scraper/extract"
	"marketplace-scraper/models"
	"marketplace-scraper/utils"
)

// Schema identifies the column layout of a CSV row.
type Schema int

const (
	SchemaUnknown Schema = iota
	SchemaCanonical
	SchemaLegacy
)

func (s Schema) String() string {
	switch s {
	case SchemaCanonical:
		return "canonical"
	case SchemaLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

const legacyMinColumns = 7

// DetectSchema classifies a row by its width.
func DetectSchema(row []string) Schema {
	switch {
	case len(row) == len(models.CanonicalHeader):
		return SchemaCanonical
	case len(row) >= legacyMinColumns:
		return SchemaLegacy
	default:
		return SchemaUnknown
	}
}

// Normalize maps a row in this schema onto a canonical record.
func (s Schema) Normalize(row []string) models.ListingRecord {
	switch s {
	case SchemaCanonical:
		return normalizeCanonical(row)
	case SchemaLegacy:
		return normalizeLegacy(row)
	default:
		return normalizeUnknown(row)
	}
}

func normalizeCanonical(row []string) models.ListingRecord {
	return newRecord(row[0], row[1], row[2], "", SchemaCanonical)
}

// normalizeLegacy reads Date, Item, Item_Link and Price from columns 0-3.
func normalizeLegacy(row []string) models.ListingRecord {
	return newRecord(row[0], row[1], row[3], row[2], SchemaLegacy)
}

func normalizeUnknown(row []string) models.ListingRecord {
	cells := make([]string, 3)
	copy(cells, row)
	return newRecord(cells[0], cells[1], cells[2], "", SchemaUnknown)
}

func newRecord(date, item, price, link string, s Schema) models.ListingRecord {
	rec := models.ListingRecord{
		DateEstimate: strings.TrimSpace(date),
		Title:        models.NormaliseText(item),
		PriceText:    strings.TrimSpace(price),
		PriceNumeric: extract.ParsePrice(price),
		SourceTag:    s.String(),
		ItemLink:     models.NormaliseLink(link),
	}
	rec.Rekey()
	return rec
}

// IsHeaderRow reports whether row is the canonical or legacy header.
func IsHeaderRow(row []string) bool {
	return equalFoldRow(row, models.CanonicalHeader) || equalFoldRow(row, models.LegacyHeader)
}

func equalFoldRow(row, header []string) bool {
	if len(row) != len(header) {
		return false
	}
	for i := range row {
		cell := strings.TrimSpace(strings.TrimPrefix(row[i], "\ufeff"))
		if !strings.EqualFold(cell, header[i]) {
			return false
		}
	}
	return true
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// TableToRecords normalizes one CSV table. Only its first row is checked
// against the known headers; every later row is data.
func TableToRecords(table [][]string) []models.ListingRecord {
	out := make([]models.ListingRecord, 0, len(table))
	for i, row := range table {
		if i == 0 && IsHeaderRow(row) {
			continue
		}
		if blankRow(row) {
			continue
		}
		out = append(out, DetectSchema(row).Normalize(row))
	}
	return out
}

// MergeTables normalizes and merges raw CSV tables in the order given.
func MergeTables(tables ...[][]string) []models.ListingRecord {
	sets := make([][]models.ListingRecord, 0, len(tables))
	for _, t := range tables {
		sets = append(sets, TableToRecords(t))
	}
	return Merge(sets...)
}

// Merge concatenates record sets and keeps the first record seen for each
// identity key. Merging an already merged set again returns it unchanged.
func Merge(sets ...[]models.ListingRecord) []models.ListingRecord {
	seen := utils.NewKeySet()
	out := make([]models.ListingRecord, 0)
	for _, set := range sets {
		for _, rec := range set {
			if rec.IdentityKey == "" {
				rec.Rekey()
			}
			if !seen.Add(rec.IdentityKey) {
				continue
			}
			out = append(out, rec)
		}
	}
	return out
}
