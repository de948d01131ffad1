// Package pricefeed parses mandi price files (CSV and XLSX) into
// market price records for bulk import, and exports price history back
// out to spreadsheets.
package pricefeed

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/fasaldhan/fasaldhan-cli/internal/model"
)

// Options configures the CSV parser.
type Options struct {
	Delimiter rune   // default ','
	Encoding  string // IANA charset name; empty means UTF-8
}

// Date layouts seen in mandi exports, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	time.RFC3339,
}

// Header aliases map the column names found in the wild onto the
// canonical market price fields.
var headerAliases = map[string]string{
	"crop_id":           "crop_id",
	"crop":              "crop_id",
	"location":          "location",
	"district":          "location",
	"market_name":       "market_name",
	"market":            "market_name",
	"mandi":             "market_name",
	"price_per_quintal": "price_per_quintal",
	"modal_price":       "price_per_quintal",
	"price":             "price_per_quintal",
	"date":              "date",
	"arrival_date":      "date",
	"season":            "season",
}

// ParseCSV reads mandi price rows from r. Malformed rows are skipped
// and counted rather than failing the whole file.
func ParseCSV(r io.Reader, opts Options) ([]model.MarketPrice, error) {
	if opts.Encoding != "" {
		enc, err := htmlindex.Get(opts.Encoding)
		if err != nil {
			return nil, eris.Wrapf(err, "pricefeed: unsupported charset %q", opts.Encoding)
		}
		r = enc.NewDecoder().Reader(r)
	}

	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "pricefeed: read CSV header")
	}
	colIdx, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var prices []model.MarketPrice
	var skipped int
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		price, ok := parseRow(record, colIdx)
		if !ok {
			skipped++
			continue
		}
		prices = append(prices, price)
	}

	if skipped > 0 {
		zap.L().Warn("pricefeed: skipped malformed rows",
			zap.Int("skipped", skipped),
			zap.Int("parsed", len(prices)),
		)
	}

	return prices, nil
}

// mapColumns resolves the header row to canonical field positions.
// crop_id, price and date are mandatory.
func mapColumns(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
		if canonical, ok := headerAliases[key]; ok {
			if _, dup := idx[canonical]; !dup {
				idx[canonical] = i
			}
		}
	}

	for _, required := range []string{"crop_id", "price_per_quintal", "date"} {
		if _, ok := idx[required]; !ok {
			return nil, eris.Errorf("pricefeed: missing required column %q", required)
		}
	}
	return idx, nil
}

func parseRow(record []string, colIdx map[string]int) (model.MarketPrice, bool) {
	cropID, err := strconv.ParseInt(getCol(record, colIdx, "crop_id"), 10, 64)
	if err != nil || cropID <= 0 {
		return model.MarketPrice{}, false
	}

	price, err := strconv.ParseFloat(getCol(record, colIdx, "price_per_quintal"), 64)
	if err != nil || price <= 0 {
		return model.MarketPrice{}, false
	}

	date, ok := parseDate(getCol(record, colIdx, "date"))
	if !ok {
		return model.MarketPrice{}, false
	}

	return model.MarketPrice{
		CropID:          cropID,
		Location:        getCol(record, colIdx, "location"),
		MarketName:      getCol(record, colIdx, "market_name"),
		PricePerQuintal: price,
		Date:            date,
		Season:          getCol(record, colIdx, "season"),
	}, true
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func getCol(record []string, colIdx map[string]int, name string) string {
	i, ok := colIdx[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
