package pricefeed

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/fasaldhan/fasaldhan-cli/internal/model"
)

const xlsxDateLayout = "2006-01-02"

// ReadXLSX reads mandi price rows from the first sheet of an XLSX
// workbook. The first row must be a header; malformed rows are skipped
// the same way ParseCSV skips them.
func ReadXLSX(path string) ([]model.MarketPrice, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pricefeed: open workbook %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("pricefeed: workbook %s has no sheets", path)
	}

	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("pricefeed: sheet %q is empty", sheet.Name)
	}

	colIdx, err := mapColumns(rowToStrings(sheet.Rows[0]))
	if err != nil {
		return nil, err
	}

	var prices []model.MarketPrice
	for _, row := range sheet.Rows[1:] {
		if price, ok := parseRow(rowToStrings(row), colIdx); ok {
			prices = append(prices, price)
		}
	}
	return prices, nil
}

// WriteXLSX exports price history as a single-sheet workbook with the
// same header ReadXLSX expects.
func WriteXLSX(path string, prices []model.MarketPrice) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("market_prices")
	if err != nil {
		return eris.Wrap(err, "pricefeed: add sheet")
	}

	header := sheet.AddRow()
	for _, name := range []string{"crop_id", "location", "market_name", "price_per_quintal", "date", "season"} {
		header.AddCell().SetString(name)
	}

	for _, p := range prices {
		row := sheet.AddRow()
		row.AddCell().SetInt64(p.CropID)
		row.AddCell().SetString(p.Location)
		row.AddCell().SetString(p.MarketName)
		row.AddCell().SetFloat(p.PricePerQuintal)
		row.AddCell().SetString(p.Date.UTC().Format(xlsxDateLayout))
		row.AddCell().SetString(p.Season)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "pricefeed: save workbook %s", path)
	}
	return nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for i, c := range row.Cells {
		cells[i] = c.String()
	}
	return cells
}
