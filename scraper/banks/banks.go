// Package banks extracts the largest-banks table from a wiki page.
package banks

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"banks-etl/models"
	"banks-etl/scraper"
	"banks-etl/utils"
)

// tableSelector marks the data tables on a MediaWiki page.
const tableSelector = "table.wikitable"

// marketCapCleaner strips the line breaks, currency sign and thousands
// separators from the market cap cell.
var marketCapCleaner = strings.NewReplacer("\n", "", "$", "", ",", "")

// Extractor fetches a page and parses its first wikitable.
type Extractor struct {
	fetcher scraper.Fetcher
	logger  *utils.Logger
}

// New creates an Extractor.
func New(fetcher scraper.Fetcher, logger *utils.Logger) *Extractor {
	return &Extractor{fetcher: fetcher, logger: logger}
}

// Extract downloads url and returns one record per data row of the first
// wikitable, in page order.
func (e *Extractor) Extract(ctx context.Context, url string) ([]*models.BankRecord, error) {
	e.logger.Info("[extract] Fetching %s", url)

	body, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	records, headers, err := ParseTable(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	e.logger.Info("[extract] Parsed %d rows, headers: %s", len(records), strings.Join(headers, " | "))
	return records, nil
}

// ParseTable parses the FIRST table.wikitable in the document, whatever its
// heading. It returns the records and the trimmed text of every header cell.
//
// Each row after the first that has at least one td cell becomes a record:
// column 2 is the name and column 3 the market cap in US$ billion. Column 1
// is used as the rank when it is an integer.
func ParseTable(r io.Reader) ([]*models.BankRecord, []string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, nil, models.Classify(models.ErrParse, eris.Wrap(err, "extract: parse html"))
	}

	tables := doc.Find(tableSelector)
	if tables.Length() == 0 {
		return nil, nil, models.Classify(models.ErrParse, eris.Errorf("extract: no %s found", tableSelector))
	}
	table := tables.First()

	var headers []string
	table.Find("th").Each(func(_ int, th *goquery.Selection) {
		headers = append(headers, strings.TrimSpace(th.Text()))
	})
	if len(headers) < 3 {
		return nil, nil, models.Classify(models.ErrParse,
			eris.Errorf("extract: expected at least 3 header cells, found %d", len(headers)))
	}

	var (
		records  []*models.BankRecord
		parseErr error
	)
	table.Find("tr").EachWithBreak(func(i int, tr *goquery.Selection) bool {
		if i == 0 {
			return true
		}
		cells := tr.Find("td")
		if cells.Length() == 0 {
			return true
		}

		text := make([]string, cells.Length())
		cells.Each(func(j int, td *goquery.Selection) {
			text[j] = strings.TrimSpace(td.Text())
		})
		rec, err := parseRow(text, len(records)+1)
		if err != nil {
			// i is the 0-based tr index; report the 1-based row number
			parseErr = models.Classify(models.ErrParse, eris.Wrapf(err, "extract: table row %d", i+1))
			return false
		}
		records = append(records, rec)
		return true
	})
	if parseErr != nil {
		return nil, nil, parseErr
	}
	if len(records) == 0 {
		return nil, nil, models.Classify(models.ErrParse, eris.New("extract: table has no data rows"))
	}
	return records, headers, nil
}

func parseRow(cells []string, position int) (*models.BankRecord, error) {
	if len(cells) < 3 {
		return nil, eris.Errorf("expected at least 3 cells, found %d", len(cells))
	}

	mcap, err := strconv.ParseFloat(marketCapCleaner.Replace(cells[2]), 64)
	if err != nil {
		return nil, eris.Wrapf(err, "market cap %q", cells[2])
	}

	rank, err := strconv.Atoi(cells[0])
	if err != nil {
		rank = position
	}

	return &models.BankRecord{Rank: rank, Name: cells[1], MCUSDBillion: mcap}, nil
}
