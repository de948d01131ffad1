package main

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fasaldhan/fasaldhan-cli/internal/db"
	"github.com/fasaldhan/fasaldhan-cli/internal/model"
	"github.com/fasaldhan/fasaldhan-cli/internal/pricefeed"
	"github.com/fasaldhan/fasaldhan-cli/internal/store"
)

var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Import and export mandi price data",
}

var (
	pricesImportFile      string
	pricesImportEncoding  string
	pricesImportDelimiter string
)

var pricesImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import market prices from a CSV or XLSX file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		prices, err := readPriceFile(pricesImportFile)
		if err != nil {
			return err
		}
		if len(prices) == 0 {
			zap.L().Info("no price rows to import", zap.String("file", pricesImportFile))
			return nil
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		imported, err := importPrices(ctx, st, prices)
		if err != nil {
			return err
		}

		zap.L().Info("price import complete",
			zap.Int64("imported", imported),
			zap.String("file", pricesImportFile),
		)
		return nil
	},
}

func readPriceFile(path string) ([]model.MarketPrice, error) {
	if filepath.Ext(path) == ".xlsx" {
		return pricefeed.ReadXLSX(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "prices: open %s", path)
	}
	defer f.Close()

	opts := pricefeed.Options{Encoding: pricesImportEncoding}
	if pricesImportDelimiter != "" {
		opts.Delimiter = rune(pricesImportDelimiter[0])
	}
	return pricefeed.ParseCSV(f, opts)
}

// importPrices bulk-upserts rows on Postgres, keyed so re-importing a
// file refreshes prices instead of duplicating them, and falls back to
// row-at-a-time inserts on SQLite.
func importPrices(ctx context.Context, st store.Store, prices []model.MarketPrice) (int64, error) {
	ps, ok := st.(*store.PostgresStore)
	if !ok {
		for i := range prices {
			if _, err := st.AddMarketPrice(ctx, &prices[i]); err != nil {
				return int64(i), err
			}
		}
		return int64(len(prices)), nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(prices))
	for _, p := range prices {
		rows = append(rows, []any{
			p.CropID, p.Location, p.MarketName, p.PricePerQuintal, p.Date.UTC(), p.Season, now,
		})
	}

	return db.BulkUpsert(ctx, ps.Pool(), db.UpsertConfig{
		Table:        "market_prices",
		Columns:      []string{"crop_id", "location", "market_name", "price_per_quintal", "date", "season", "created_at"},
		ConflictKeys: []string{"crop_id", "market_name", "date"},
	}, rows)
}

var (
	pricesExportOut    string
	pricesExportCropID int64
	pricesExportLimit  int
)

var pricesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a crop's price history to CSV or XLSX",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if pricesExportCropID <= 0 {
			return eris.New("prices: --crop-id is required")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		prices, err := st.PriceHistory(ctx, pricesExportCropID, pricesExportLimit)
		if err != nil {
			return err
		}
		if len(prices) == 0 {
			zap.L().Info("no price history for crop", zap.Int64("crop_id", pricesExportCropID))
			return nil
		}

		if err := writePriceFile(pricesExportOut, prices); err != nil {
			return err
		}

		zap.L().Info("price export complete",
			zap.Int("rows", len(prices)),
			zap.String("out", pricesExportOut),
		)
		return nil
	},
}

func writePriceFile(path string, prices []model.MarketPrice) error {
	if filepath.Ext(path) == ".xlsx" {
		return pricefeed.WriteXLSX(path, prices)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "prices: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"crop_id", "location", "market_name", "price_per_quintal", "date", "season"}); err != nil {
		return eris.Wrap(err, "prices: write header")
	}
	for _, p := range prices {
		record := []string{
			strconv.FormatInt(p.CropID, 10),
			p.Location,
			p.MarketName,
			strconv.FormatFloat(p.PricePerQuintal, 'f', -1, 64),
			p.Date.UTC().Format("2006-01-02"),
			p.Season,
		}
		if err := w.Write(record); err != nil {
			return eris.Wrap(err, "prices: write row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "prices: flush")
	}
	return nil
}

func init() {
	pricesImportCmd.Flags().StringVar(&pricesImportFile, "file", "", "path to CSV or XLSX file (required)")
	_ = pricesImportCmd.MarkFlagRequired("file")
	pricesImportCmd.Flags().StringVar(&pricesImportEncoding, "encoding", "", "source charset for CSV files (IANA name, default UTF-8)")
	pricesImportCmd.Flags().StringVar(&pricesImportDelimiter, "delimiter", "", "CSV field delimiter (default ',')")

	pricesExportCmd.Flags().StringVar(&pricesExportOut, "out", "prices.csv", "output path (.csv or .xlsx)")
	pricesExportCmd.Flags().Int64Var(&pricesExportCropID, "crop-id", 0, "crop to export (required)")
	pricesExportCmd.Flags().IntVar(&pricesExportLimit, "limit", 500, "max rows to export")

	pricesCmd.AddCommand(pricesImportCmd)
	pricesCmd.AddCommand(pricesExportCmd)
	rootCmd.AddCommand(pricesCmd)
}
