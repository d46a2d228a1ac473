package storage

import (
	"encoding/csv"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"banks-etl/models"
)

const (
	colCurrency = "Currency"
	colRate     = "Rate"
)

type rateRow struct {
	Currency string `csv:"Currency"`
	Rate     string `csv:"Rate"`
}

// LoadRates reads a currency/rate table from a CSV or XLSX file.
// Only the Currency and Rate columns are used; other columns are ignored.
// Later rows override earlier rows with the same code.
func LoadRates(path string) (models.RateTable, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, models.Classify(models.ErrFileNotFound, eris.Wrapf(err, "rates: %s", path))
		}
		return nil, models.Classify(models.ErrIO, eris.Wrapf(err, "rates: stat %s", path))
	}

	var (
		rows []rateRow
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		rows, err = readRatesXLSX(path)
	} else {
		rows, err = readRatesCSV(path)
	}
	if err != nil {
		return nil, err
	}

	table := make(models.RateTable, len(rows))
	for i, r := range rows {
		code, rate, err := parseRate(r)
		if err != nil {
			// +2: one for the header, one for 1-based numbering
			return nil, models.Classify(models.ErrParse, eris.Wrapf(err, "rates: %s row %d", path, i+2))
		}
		table[code] = rate
	}
	return table, nil
}

func readRatesCSV(path string) ([]rateRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, models.Classify(models.ErrIO, eris.Wrapf(err, "rates: open %s", path))
	}
	defer f.Close()

	// Excel "CSV UTF-8" exports start with a byte order mark.
	r := csv.NewReader(transform.NewReader(f, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	r.TrimLeadingSpace = true

	dec, err := csvutil.NewDecoder(r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, models.Classify(models.ErrMissingColumn, eris.Errorf("rates: %s is empty", path))
		}
		return nil, models.Classify(models.ErrParse, eris.Wrapf(err, "rates: read header of %s", path))
	}
	if err := requireColumns(path, dec.Header()); err != nil {
		return nil, err
	}

	var rows []rateRow
	for {
		var row rateRow
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, models.Classify(models.ErrParse, eris.Wrapf(err, "rates: decode %s", path))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readRatesXLSX(path string) ([]rateRow, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, models.Classify(models.ErrParse, eris.Wrapf(err, "rates: open workbook %s", path))
	}
	if len(f.Sheets) == 0 || len(f.Sheets[0].Rows) == 0 {
		return nil, models.Classify(models.ErrMissingColumn, eris.Errorf("rates: %s has no header row", path))
	}

	sheet := f.Sheets[0]
	header := rowToStrings(sheet.Rows[0])
	if err := requireColumns(path, header); err != nil {
		return nil, err
	}
	curIdx, rateIdx := indexOf(header, colCurrency), indexOf(header, colRate)

	var rows []rateRow
	for _, row := range sheet.Rows[1:] {
		cells := rowToStrings(row)
		if isBlank(cells) {
			continue
		}
		rows = append(rows, rateRow{Currency: cellAt(cells, curIdx), Rate: cellAt(cells, rateIdx)})
	}
	return rows, nil
}

func requireColumns(path string, header []string) error {
	for _, col := range []string{colCurrency, colRate} {
		if indexOf(header, col) < 0 {
			return models.Classify(models.ErrMissingColumn, eris.Errorf("rates: %s has no %q column", path, col))
		}
	}
	return nil
}

func parseRate(r rateRow) (string, float64, error) {
	code := strings.ToUpper(strings.TrimSpace(r.Currency))
	if !isCurrencyCode(code) {
		return "", 0, eris.Errorf("currency code %q is not three letters", r.Currency)
	}
	rate, err := strconv.ParseFloat(strings.TrimSpace(r.Rate), 64)
	if err != nil {
		return "", 0, eris.Wrapf(err, "rate %q for %s", r.Rate, code)
	}
	if rate <= 0 {
		return "", 0, eris.Errorf("rate for %s must be positive, got %v", code, rate)
	}
	return code, rate, nil
}

// isCurrencyCode checks shape only. Codes outside ISO 4217 are kept so
// that rows the run never looks up cannot fail the load.
func isCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = strings.TrimSpace(cell.String())
	}
	return cells
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}

func cellAt(cells []string, i int) string {
	if i < len(cells) {
		return cells[i]
	}
	return ""
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
