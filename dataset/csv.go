package dataset

import (
	"context"
	"encoding/csv"
	"io"
	"os"

	"github.com/stratalake/dqguard/errors"
)

// CSVSource reads a local CSV file with a header row. Columns carry no
// type metadata, so every column reads as a nullable string.
type CSVSource struct {
	path string
}

// NewCSVSource returns a Source backed by the CSV file at path
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// CSVOpener opens targets whose Path points at a local CSV file
func CSVOpener(target Target) (Source, error) {
	if _, err := os.Stat(target.Path); err != nil {
		return nil, errors.Wrapf(err, "dataset %s: cannot open %s", target.Key(), target.Path)
	}
	return NewCSVSource(target.Path), nil
}

// Columns returns the header row as nullable string columns
func (s *CSVSource) Columns(ctx context.Context) ([]Column, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(s.path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open CSV")
	}
	defer file.Close()

	header, err := csv.NewReader(file).Read()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read CSV header from %s", s.path)
	}

	columns := make([]Column, len(header))
	for i, name := range header {
		columns[i] = Column{Name: name, Type: "string", Nullable: true}
	}
	return columns, nil
}

// RowCount streams the file and counts data rows (header excluded)
func (s *CSVSource) RowCount(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	file, err := os.Open(s.path)
	if err != nil {
		return 0, errors.Wrap(err, "failed to open CSV")
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	// Skip header
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return 0, errors.Newf("CSV %s has no header row", s.path)
		}
		return 0, errors.Wrapf(err, "failed to read CSV header from %s", s.path)
	}

	var count int64
	for {
		if _, err := reader.Read(); err != nil {
			if err == io.EOF {
				return count, nil
			}
			return 0, errors.Wrapf(err, "failed to read CSV row from %s", s.path)
		}
		count++
	}
}

// SampleRows returns up to limit data rows in file order
func (s *CSVSource) SampleRows(ctx context.Context, limit int) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	file, err := os.Open(s.path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open CSV")
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	// Skip header
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil, errors.Newf("CSV %s has no header row", s.path)
		}
		return nil, errors.Wrapf(err, "failed to read CSV header from %s", s.path)
	}

	rows := make([][]string, 0, limit)
	for len(rows) < limit {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrapf(err, "failed to read CSV row from %s", s.path)
		}
		rows = append(rows, record)
	}
	return rows, nil
}
