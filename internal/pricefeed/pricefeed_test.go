package pricefeed

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/fasaldhan/fasaldhan-cli/internal/model"
)

func TestParseCSV(t *testing.T) {
	in := strings.NewReader(
		"crop_id,location,market_name,price_per_quintal,date,season\n" +
			"1,Nashik,Nashik APMC,2150.50,2026-08-01,kharif\n" +
			"1,Pune,Pune APMC,2200,2026-08-02,kharif\n")

	prices, err := ParseCSV(in, Options{})
	require.NoError(t, err)
	require.Len(t, prices, 2)

	assert.Equal(t, int64(1), prices[0].CropID)
	assert.Equal(t, "Nashik", prices[0].Location)
	assert.Equal(t, "Nashik APMC", prices[0].MarketName)
	assert.InDelta(t, 2150.50, prices[0].PricePerQuintal, 0.001)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), prices[0].Date)
	assert.Equal(t, "kharif", prices[0].Season)
}

func TestParseCSV_HeaderAliases(t *testing.T) {
	// Agmarknet-style export: semicolon-delimited, aliased headers,
	// DD/MM/YYYY dates.
	in := strings.NewReader(
		"Crop;District;Mandi;Modal Price;Arrival Date\n" +
			"3;Indore;Indore Mandi;5400;15/08/2026\n")

	prices, err := ParseCSV(in, Options{Delimiter: ';'})
	require.NoError(t, err)
	require.Len(t, prices, 1)

	assert.Equal(t, int64(3), prices[0].CropID)
	assert.Equal(t, "Indore", prices[0].Location)
	assert.Equal(t, "Indore Mandi", prices[0].MarketName)
	assert.InDelta(t, 5400.0, prices[0].PricePerQuintal, 0.001)
	assert.Equal(t, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC), prices[0].Date)
}

func TestParseCSV_SkipsMalformedRows(t *testing.T) {
	in := strings.NewReader(
		"crop_id,price_per_quintal,date\n" +
			"1,2000,2026-08-01\n" +
			"not-a-number,2000,2026-08-01\n" +
			"2,-50,2026-08-01\n" +
			"3,1800,someday\n" +
			"4,1900,2026-08-03\n")

	prices, err := ParseCSV(in, Options{})
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.Equal(t, int64(1), prices[0].CropID)
	assert.Equal(t, int64(4), prices[1].CropID)
}

func TestParseCSV_MissingRequiredColumn(t *testing.T) {
	in := strings.NewReader("crop_id,location\n1,Nashik\n")

	_, err := ParseCSV(in, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price_per_quintal")
}

func TestParseCSV_CharsetDecoding(t *testing.T) {
	raw, err := charmap.ISO8859_1.NewEncoder().String(
		"crop_id,location,price_per_quintal,date\n" +
			"1,Saúde,2000,2026-08-01\n")
	require.NoError(t, err)

	prices, err := ParseCSV(strings.NewReader(raw), Options{Encoding: "iso-8859-1"})
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.Equal(t, "Saúde", prices[0].Location)
}

func TestParseCSV_UnknownCharset(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("x"), Options{Encoding: "klingon-8"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported charset")
}

func TestXLSXRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.xlsx")
	want := []model.MarketPrice{
		{
			CropID:          1,
			Location:        "Nashik",
			MarketName:      "Nashik APMC",
			PricePerQuintal: 2150.5,
			Date:            time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
			Season:          "kharif",
		},
		{
			CropID:          2,
			Location:        "Pune",
			PricePerQuintal: 1800,
			Date:            time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC),
		},
	}

	require.NoError(t, WriteXLSX(path, want))

	got, err := ReadXLSX(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, want[0].CropID, got[0].CropID)
	assert.Equal(t, want[0].Location, got[0].Location)
	assert.InDelta(t, want[0].PricePerQuintal, got[0].PricePerQuintal, 0.001)
	assert.Equal(t, want[0].Date, got[0].Date)
	assert.Equal(t, want[1].Season, got[1].Season)
}
