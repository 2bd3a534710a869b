package trace

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

var csvHeader = []string{
	"id", "where", "bus", "addr", "write", "be", "wdata", "rdata", "err",
	"issue", "grant", "valid",
}

// CSVWriter stores transactions in a CSV file.
type CSVWriter struct {
	path string
	file *os.File
	w    *csv.Writer
}

// NewCSVWriter creates a writer for path. An empty path picks a unique
// file name in the working directory.
func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{path: path}
}

// Path returns the file the writer stores to.
func (t *CSVWriter) Path() string {
	return t.path
}

// Init creates the file. It refuses to overwrite an existing one.
func (t *CSVWriter) Init() error {
	if t.path == "" {
		t.path = "coresim_trace_" + xid.New().String() + ".csv"
	}

	file, err := os.OpenFile(t.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create trace file: %w", err)
	}

	t.file = file
	t.w = csv.NewWriter(file)

	if err := t.w.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write trace header: %w", err)
	}

	atexit.Register(func() { _ = t.Close() })

	return nil
}

// Write buffers a transaction.
func (t *CSVWriter) Write(tx Transaction) error {
	return t.w.Write([]string{
		tx.ID,
		tx.Where,
		string(tx.Bus),
		fmt.Sprintf("0x%08x", tx.Addr),
		strconv.FormatBool(tx.Write),
		fmt.Sprintf("%04b", tx.BE),
		fmt.Sprintf("0x%08x", tx.WData),
		fmt.Sprintf("0x%08x", tx.RData),
		strconv.FormatBool(tx.Err),
		strconv.FormatUint(tx.Issue, 10),
		strconv.FormatUint(tx.Grant, 10),
		strconv.FormatUint(tx.Valid, 10),
	})
}

// Flush writes buffered rows to the file.
func (t *CSVWriter) Flush() error {
	t.w.Flush()
	if err := t.w.Error(); err != nil {
		return fmt.Errorf("failed to write trace: %w", err)
	}
	return nil
}

// Close flushes and closes the file. Closing twice is a no-op.
func (t *CSVWriter) Close() error {
	if t.file == nil {
		return nil
	}

	err := t.Flush()
	if cerr := t.file.Close(); err == nil {
		err = cerr
	}
	t.file = nil

	return err
}
