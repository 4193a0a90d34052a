package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/UnknownOlympus/cartograph/internal/models"
	"github.com/jszwec/csvutil"
)

// ErrNotInitialized is returned by Append before Initialize succeeded.
var ErrNotInitialized = errors.New("csv writer is not initialized")

// csvRow is the on-disk layout of a result. Coordinates are empty for failed lookups.
type csvRow struct {
	Address   string `csv:"Address"`
	Latitude  string `csv:"Latitude"`
	Longitude string `csv:"Longitude"`
	Status    string `csv:"Status"`
}

// CSVWriter appends results to a CSV file, one durable row at a time.
type CSVWriter struct {
	path string
	file *os.File
	csv  *csv.Writer
	enc  *csvutil.Encoder
}

// NewCSVWriter creates a writer for path. Call Initialize before Append.
func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{path: path}
}

// Path returns the output file path.
func (w *CSVWriter) Path() string {
	return w.path
}

// Initialize creates or truncates the file and writes the header row.
func (w *CSVWriter) Initialize() error {
	file, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	w.file = file
	w.csv = csv.NewWriter(file)
	w.enc = csvutil.NewEncoder(w.csv)
	w.enc.AutoHeader = false

	if err = w.enc.EncodeHeader(csvRow{}); err != nil {
		return fmt.Errorf("failed to encode header: %w", err)
	}

	return w.flush()
}

// Append writes one result row and syncs it to disk before returning.
func (w *CSVWriter) Append(result models.Result) error {
	if w.enc == nil {
		return ErrNotInitialized
	}

	row := csvRow{Address: result.Address, Status: string(result.Status)}
	if result.Coordinates != nil {
		row.Latitude = strconv.FormatFloat(result.Coordinates.Latitude, 'f', -1, 64)
		row.Longitude = strconv.FormatFloat(result.Coordinates.Longitude, 'f', -1, 64)
	}

	if err := w.enc.Encode(row); err != nil {
		return fmt.Errorf("failed to encode result row: %w", err)
	}

	return w.flush()
}

// Close closes the underlying file. It is safe to call more than once.
func (w *CSVWriter) Close() error {
	if w.file == nil {
		return nil
	}

	err := w.file.Close()
	w.file = nil
	w.csv = nil
	w.enc = nil
	if err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}

	return nil
}

func (w *CSVWriter) flush() error {
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync output file: %w", err)
	}

	return nil
}
