package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"marketplace-scraper/services"
	"marketplace-scraper/storage"
	"marketplace-scraper/utils"
)

var mergeCmd = &cobra.Command{
	Use:   "merge [csv files...]",
	Short: "Merge CSV datasets into one canonical Date,Item,Price file",
	Long: "Reads canonical or legacy CSV files, normalizes every row to Date,Item,Price, " +
		"drops duplicate listings keeping the first occurrence and writes a combined file.",
	Args: cobra.MinimumNArgs(1),
	RunE: runMerge,
}

var (
	mergeOut  string
	mergeItem string
)

func init() {
	mergeCmd.Flags().StringVarP(&mergeOut, "out", "o", "processed", "Output directory")
	mergeCmd.Flags().StringVar(&mergeItem, "item", "", "Item slug used in the output file name")

	rootCmd.AddCommand(mergeCmd)
}

type mergeOutput struct {
	OK      bool    `json:"ok"`
	CSVPath string  `json:"csv_path,omitempty"`
	Count   int     `json:"count"`
	Error   *string `json:"error,omitempty"`
}

func runMerge(cmd *cobra.Command, args []string) error {
	logger := utils.NewLoggerTo(cmd.ErrOrStderr(), utils.LevelInfo)
	out, err := mergeFiles(args, logger)
	if err != nil {
		msg := err.Error()
		out.Error = &msg
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	if encErr := enc.Encode(out); encErr != nil {
		return fmt.Errorf("failed to encode result: %w", encErr)
	}
	return err
}

func mergeFiles(paths []string, logger *utils.Logger) (mergeOutput, error) {
	return mergeWith(storage.NewCSVReader(), storage.NewCSVWriter(mergeOut, mergeItem, "Combined"), paths, logger)
}

// mergeWith reads every table it can, skipping missing or unreadable files,
// and writes the merged dataset.
func mergeWith(reader storage.ListingReader, writer storage.ListingWriter, paths []string, logger *utils.Logger) (mergeOutput, error) {
	defer writer.Close()

	tables := make([][][]string, 0, len(paths))
	for _, p := range paths {
		table, err := reader.ReadTable(p)
		if err != nil {
			logger.Warn("[merge] Skipping %s: %v", p, err)
			continue
		}
		logger.Info("[merge] %s: %d rows", p, len(table))
		tables = append(tables, table)
	}
	if len(tables) == 0 {
		return mergeOutput{}, fmt.Errorf("no readable input files among %d", len(paths))
	}

	records := services.MergeTables(tables...)
	path, err := writer.Write(records)
	if err != nil {
		return mergeOutput{}, err
	}
	logger.Info("[merge] Wrote %d unique listings to %s", len(records), path)
	return mergeOutput{OK: true, CSVPath: path, Count: len(records)}, nil
}
