package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"marketplace-scraper/models"
	"marketplace-scraper/utils"
)

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Summarize computes counts and price statistics over a canonical dataset.
// Records without a numeric price only count towards the totals.
func (s *InsightService) Summarize(records []models.ListingRecord) *models.DatasetSummary {
	summary := &models.DatasetSummary{
		ListingsByDate: make(map[string]int),
	}
	if len(records) == 0 {
		return summary
	}
	summary.TotalListings = len(records)

	var total float64
	for i := range records {
		r := &records[i]
		if r.DateEstimate != "" {
			summary.ListingsByDate[r.DateEstimate]++
		}
		if r.PriceNumeric == nil {
			continue
		}
		p := *r.PriceNumeric
		if summary.PricedListings == 0 || p < summary.MinPrice {
			summary.MinPrice = p
		}
		if summary.PricedListings == 0 || p > summary.MaxPrice {
			summary.MaxPrice = p
			summary.MostExpensive = r
		}
		summary.PricedListings++
		total += p
	}

	if summary.PricedListings > 0 {
		summary.AveragePrice = round2(total / float64(summary.PricedListings))
		summary.MinPrice = round2(summary.MinPrice)
		summary.MaxPrice = round2(summary.MaxPrice)
	}
	s.logger.Debug("[insights] %d listings, %d priced", summary.TotalListings, summary.PricedListings)
	return summary
}

// Print renders the summary for a terminal.
func (s *InsightService) Print(w io.Writer, title string, r *models.DatasetSummary) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 %s\033[0m\n", strings.ToUpper(title))
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Total listings  : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Fprintf(w, "  With a price    : \033[1m%d\033[0m\n", r.PricedListings)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Price Statistics\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.PricedListings > 0 {
		fmt.Fprintf(w, "  Average price : \033[1;32m%.2f\033[0m\n", r.AveragePrice)
		fmt.Fprintf(w, "  Minimum price : \033[1;32m%.2f\033[0m\n", r.MinPrice)
		fmt.Fprintf(w, "  Maximum price : \033[1;32m%.2f\033[0m\n", r.MaxPrice)
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	if r.MostExpensive != nil {
		fmt.Fprintf(w, "\033[1;33m  Most Expensive Listing\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate(r.MostExpensive.Title, 50))
		fmt.Fprintf(w, "  Price : \033[1;31m%s\033[0m\n", r.MostExpensive.PriceText)
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;33m  Listings by Date\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.ListingsByDate) == 0 {
		fmt.Fprintf(w, "  No date data\n")
	} else {
		dates := make([]string, 0, len(r.ListingsByDate))
		for d := range r.ListingsByDate {
			dates = append(dates, d)
		}
		sort.Sort(sort.Reverse(sort.StringSlice(dates)))
		for _, d := range dates {
			n := r.ListingsByDate[d]
			fmt.Fprintf(w, "  %-12s %s (%d)\n", d, strings.Repeat("█", min(n, 40)), n)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
