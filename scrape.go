package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"marketplace-scraper/config"
	"marketplace-scraper/models"
	"marketplace-scraper/services"
	"marketplace-scraper/storage"
	"marketplace-scraper/utils"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape listings for one item and write a canonical CSV",
	Long: "Runs the configured backends in priority order until one returns valid listings, " +
		"writes them as Date,Item,Price CSV and prints the run result as JSON.",
	RunE: runScrape,
}

var (
	scrapeItem      string
	scrapeMinPrice  int
	scrapeMaxPrice  int
	scrapeCondition string
	scrapeSort      string
	scrapeDays      int
	scrapeLocation  string
	scrapeSource    string
	scrapeProfile   string
	scrapeOut       string
)

func init() {
	scrapeCmd.Flags().StringVar(&scrapeItem, "item", "", "Item to search for (required)")
	scrapeCmd.Flags().IntVar(&scrapeMinPrice, "min-price", 0, "Minimum price")
	scrapeCmd.Flags().IntVar(&scrapeMaxPrice, "max-price", 0, "Maximum price (0 = no limit)")
	scrapeCmd.Flags().StringVar(&scrapeCondition, "condition", "new", "Item condition (new, used_like_new, used_good, used_fair or a source code)")
	scrapeCmd.Flags().StringVar(&scrapeSort, "sort", "", "Sort order where the source supports it")
	scrapeCmd.Flags().IntVar(&scrapeDays, "days", 0, "Days since listed (0 = any time)")
	scrapeCmd.Flags().StringVar(&scrapeLocation, "location", "", "Marketplace location slug")
	scrapeCmd.Flags().StringVar(&scrapeSource, "source", "", "Source to scrape: facebook, carousell or ebay (overrides SOURCE)")
	scrapeCmd.Flags().StringVar(&scrapeProfile, "profile", "", "Interpolation profile: single, fast or thorough (overrides INTERPOLATION_PROFILE)")
	scrapeCmd.Flags().StringVarP(&scrapeOut, "out", "o", "", "Output directory (overrides OUTPUT_DIR)")
	_ = scrapeCmd.MarkFlagRequired("item")

	rootCmd.AddCommand(scrapeCmd)
}

type scrapeOutput struct {
	*models.RunResult
	CSVPath string `json:"csv_path,omitempty"`
}

func runScrape(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	if scrapeSource != "" {
		cfg.Source = scrapeSource
	}
	if scrapeProfile != "" {
		cfg.InterpolationProfile = scrapeProfile
	}
	if scrapeOut != "" {
		cfg.OutputDir = scrapeOut
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := utils.NewLoggerTo(cmd.ErrOrStderr(), utils.ParseLevel(cfg.LogLevel))
	profile, err := services.ParseProfile(cfg.InterpolationProfile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backends, cleanup, err := buildBackends(cfg, profile, logger)
	defer cleanup()
	if err != nil {
		return err
	}

	backoffMin, backoffMax := cfg.BackoffRange()
	orchestrator := services.NewOrchestrator(backends, utils.NewBackoff(cfg.MaxBackendAttempts, backoffMin, backoffMax, logger), logger)

	filters := models.Filters{
		Item:            scrapeItem,
		MinPrice:        scrapeMinPrice,
		MaxPrice:        scrapeMaxPrice,
		Condition:       scrapeCondition,
		DaysSinceListed: scrapeDays,
		Location:        scrapeLocation,
		Sort:            scrapeSort,
	}
	logger.Info("=== Marketplace scrape starting: %q on %s via %s ===", filters.Item, cfg.Source, strings.Join(cfg.Backends, " → "))

	result := orchestrator.Run(ctx, filters)
	out := scrapeOutput{RunResult: result}

	if result.OK {
		sinks := []storage.ListingWriter{
			storage.NewCSVWriter(cfg.OutputDir, filters.Item, title(cfg.Source), title(result.BackendUsed)),
		}
		if cfg.PostgresEnabled() {
			if pw, err := openPostgres(ctx, cfg, logger); err == nil {
				sinks = append(sinks, pw)
			}
		}
		dests, err := writeSinks(sinks, result.Records, logger)
		out.CSVPath = dests[0]
		if err != nil {
			msg := err.Error()
			result.Error = &msg
		}

		insights := services.NewInsightService(logger)
		insights.Print(cmd.ErrOrStderr(), filters.Item+" on "+cfg.Source, insights.Summarize(result.Records))
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	switch result.Status {
	case models.StatusAllFailed, models.StatusCancelled:
		return fmt.Errorf("scrape %s", result.Status)
	}
	return nil
}

func openPostgres(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*storage.PostgresWriter, error) {
	pw, err := storage.NewPostgresWriter(ctx, cfg.DSN(), utils.NewBackoff(5, 2*time.Second, 2*time.Second, logger))
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		return nil, err
	}
	return pw, nil
}

// writeSinks writes records to every sink and closes it. Destinations line
// up with sinks; a sink that failed leaves "".
func writeSinks(sinks []storage.ListingWriter, records []models.ListingRecord, logger *utils.Logger) ([]string, error) {
	dests := make([]string, len(sinks))
	var errs []error
	for i, w := range sinks {
		dest, err := w.Write(records)
		if cerr := w.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			logger.Error("Write failed: %v", err)
			errs = append(errs, err)
			continue
		}
		dests[i] = dest
		logger.Info("Listings saved to %s", dest)
	}
	return dests, errors.Join(errs...)
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
