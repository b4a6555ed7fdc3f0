package storage

import "marketplace-scraper/models"

// ListingWriter is the interface any storage backend must satisfy. Write
// returns where the records ended up (a file path, a table name).
type ListingWriter interface {
	Write(records []models.ListingRecord) (string, error)
	Close() error
}

// ListingReader loads a previously written dataset as raw rows.
type ListingReader interface {
	ReadTable(path string) ([][]string, error)
}

var (
	_ ListingWriter = (*CSVWriter)(nil)
	_ ListingWriter = (*PostgresWriter)(nil)
	_ ListingReader = (*CSVReader)(nil)
)
