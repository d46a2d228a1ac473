package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"banks-etl/models"
)

// CSVWriter writes enriched bank records to a CSV file: a header row,
// then one row per record, no index column.
type CSVWriter struct {
	path   string
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path.
// Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, models.Classify(models.ErrIO, eris.Wrap(err, "csv: create output dir"))
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, models.Classify(models.ErrIO, eris.Wrapf(err, "csv: create file %q", path))
	}

	return &CSVWriter{path: path, file: f, writer: csv.NewWriter(f)}, nil
}

// Write encodes the header followed by every record.
func (c *CSVWriter) Write(records []*models.EnrichedBankRecord) error {
	enc := csvutil.NewEncoder(c.writer)
	enc.Register(marshalFloat)
	if err := enc.EncodeHeader(models.EnrichedBankRecord{}); err != nil {
		return models.Classify(models.ErrIO, eris.Wrap(err, "csv: write header"))
	}
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return models.Classify(models.ErrIO, eris.Wrapf(err, "csv: write row %q", r.Name))
		}
	}

	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		return models.Classify(models.ErrIO, eris.Wrapf(err, "csv: flush %s", c.path))
	}
	return nil
}

// marshalFloat keeps floats in plain decimal notation. csvutil's default
// 'G' format writes 1013536.51 as 1.01353651E+06.
func marshalFloat(f float64) ([]byte, error) {
	return strconv.AppendFloat(nil, f, 'f', -1, 64), nil
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	if err := c.file.Close(); err != nil {
		return models.Classify(models.ErrIO, eris.Wrapf(err, "csv: close %s", c.path))
	}
	return nil
}

// WriteCSV overwrites path with records.
func WriteCSV(path string, records []*models.EnrichedBankRecord) error {
	w, err := NewCSVWriter(path)
	if err != nil {
		return err
	}
	if err := w.Write(records); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// ReadCSV reads records previously written by CSVWriter.
func ReadCSV(path string) ([]*models.EnrichedBankRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, models.Classify(models.ErrIO, eris.Wrapf(err, "csv: read %s", path))
	}
	var records []*models.EnrichedBankRecord
	if err := csvutil.Unmarshal(data, &records); err != nil {
		return nil, models.Classify(models.ErrParse, eris.Wrapf(err, "csv: decode %s", path))
	}
	return records, nil
}
