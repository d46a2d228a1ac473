package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"banks-etl/models"
)

func writeRatesCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "exchange_rate.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func createRatesXLSX(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Rates")
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			row.AddCell().SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), "exchange_rate.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestLoadRatesCSV(t *testing.T) {
	path := writeRatesCSV(t, "Currency,Rate\nEUR,0.93\nGBP,0.8\nINR,82.95\n")

	rates, err := LoadRates(path)
	require.NoError(t, err)
	assert.Equal(t, models.RateTable{"EUR": 0.93, "GBP": 0.8, "INR": 82.95}, rates)
}

func TestLoadRatesExtraColumnsAndCase(t *testing.T) {
	path := writeRatesCSV(t, "Country,Currency,Rate\nUK, gbp ,0.8\nEurozone,EUR, 0.93\n")

	rates, err := LoadRates(path)
	require.NoError(t, err)
	assert.Equal(t, models.RateTable{"GBP": 0.8, "EUR": 0.93}, rates)
}

func TestLoadRatesLastDuplicateWins(t *testing.T) {
	path := writeRatesCSV(t, "Currency,Rate\nGBP,0.8\nGBP,0.75\n")

	rates, err := LoadRates(path)
	require.NoError(t, err)
	assert.Equal(t, 0.75, rates["GBP"])
}

func TestLoadRatesSkipsByteOrderMark(t *testing.T) {
	path := writeRatesCSV(t, "\ufeffCurrency,Rate\nEUR,0.93\nGBP,0.8\nINR,82.95\n")

	rates, err := LoadRates(path)
	require.NoError(t, err)
	assert.Equal(t, models.RateTable{"EUR": 0.93, "GBP": 0.8, "INR": 82.95}, rates)
}

func TestLoadRatesKeepsNonISOCodes(t *testing.T) {
	path := writeRatesCSV(t, "Currency,Rate\nEUR,0.93\nGBP,0.8\nINR,82.95\nBTC,0.00004\nqqq,2\n")

	rates, err := LoadRates(path)
	require.NoError(t, err)
	assert.Equal(t, 0.00004, rates["BTC"])
	assert.Equal(t, 2.0, rates["QQQ"])
	assert.Equal(t, 0.8, rates["GBP"])
}

func TestLoadRatesFileNotFound(t *testing.T) {
	_, err := LoadRates(filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, models.ErrFileNotFound)
}

func TestLoadRatesMissingColumn(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no rate", "Currency,Value\nGBP,0.8\n", `"Rate"`},
		{"no currency", "Code,Rate\nGBP,0.8\n", `"Currency"`},
		{"empty file", "", "empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRates(writeRatesCSV(t, tt.content))
			require.ErrorIs(t, err, models.ErrMissingColumn)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadRatesBadValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad code", "Currency,Rate\nPOUNDS,0.8\n"},
		{"digit in code", "Currency,Rate\nG8P,0.8\n"},
		{"not a number", "Currency,Rate\nGBP,abc\n"},
		{"zero rate", "Currency,Rate\nGBP,0\n"},
		{"negative rate", "Currency,Rate\nGBP,-1.5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRates(writeRatesCSV(t, tt.content))
			assert.ErrorIs(t, err, models.ErrParse)
		})
	}
}

func TestLoadRatesDoesNotRequireReportingCurrencies(t *testing.T) {
	rates, err := LoadRates(writeRatesCSV(t, "Currency,Rate\nJPY,147.5\n"))
	require.NoError(t, err)
	_, err = rates.Rate("GBP")
	assert.ErrorIs(t, err, models.ErrMissingRate)
}

func TestLoadRatesXLSXMatchesCSV(t *testing.T) {
	xlsxPath := createRatesXLSX(t, [][]string{
		{"Currency", "Rate"},
		{"EUR", "0.93"},
		{"GBP", "0.8"},
		{"", ""},
		{"INR", "82.95"},
	})
	csvPath := writeRatesCSV(t, "Currency,Rate\nEUR,0.93\nGBP,0.8\nINR,82.95\n")

	fromXLSX, err := LoadRates(xlsxPath)
	require.NoError(t, err)
	fromCSV, err := LoadRates(csvPath)
	require.NoError(t, err)
	assert.Equal(t, fromCSV, fromXLSX)
}

func TestLoadRatesXLSXMissingColumn(t *testing.T) {
	path := createRatesXLSX(t, [][]string{{"Currency", "Value"}, {"GBP", "0.8"}})
	_, err := LoadRates(path)
	assert.ErrorIs(t, err, models.ErrMissingColumn)
}
