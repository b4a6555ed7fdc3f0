package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"marketplace-scraper/models"
)

const timestampLayout = "20060102_150405"

// FileName builds "<ts>_<part>_<part>_..._<slug>.csv", skipping empty parts.
// Spaces are removed from the slug.
func FileName(ts time.Time, slug string, parts ...string) string {
	name := []string{ts.Format(timestampLayout)}
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			name = append(name, p)
		}
	}
	if s := strings.ReplaceAll(strings.TrimSpace(slug), " ", ""); s != "" {
		name = append(name, s)
	}
	return strings.Join(name, "_") + ".csv"
}

// CSVWriter writes canonical datasets as Date,Item,Price CSV files under a
// directory. It is safe for concurrent use.
type CSVWriter struct {
	mu    sync.Mutex
	dir   string
	slug  string
	parts []string
	now   func() time.Time
}

// NewCSVWriter creates a writer for dir. Each Write produces a new
// timestamped file named from parts and slug.
func NewCSVWriter(dir, slug string, parts ...string) *CSVWriter {
	return &CSVWriter{dir: dir, slug: slug, parts: parts, now: time.Now}
}

// WithClock replaces the clock used for file names.
func (c *CSVWriter) WithClock(now func() time.Time) *CSVWriter {
	c.now = now
	return c
}

// Write creates the file, writes the header and every record, and returns
// the file path. Intermediate directories are created automatically.
func (c *CSVWriter) Write(records []models.ListingRecord) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return "", fmt.Errorf("csv: create output dir: %w", err)
	}
	path := filepath.Join(c.dir, FileName(c.now(), c.slug, c.parts...))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("csv: create file %q: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(models.CanonicalHeader); err != nil {
		return "", fmt.Errorf("csv: write header: %w", err)
	}
	for _, r := range records {
		if err := w.Write(r.Row()); err != nil {
			return "", fmt.Errorf("csv: write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("csv: flush: %w", err)
	}
	return path, f.Close()
}

// Close is a no-op; every Write closes its own file.
func (c *CSVWriter) Close() error { return nil }
