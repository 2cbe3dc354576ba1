// Package csvstore implements the append-only tabular store used for the
// summary and detail records. Files are opened, appended and closed on every
// call; there are no long-lived handles and no locking.
package csvstore

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/joaovfcarvalho/robo-bordero/internal/pkg/logger"
)

// ErrHeaderMismatch is returned by Append when the file already carries a
// header that differs from the one requested. Nothing is written in that case.
var ErrHeaderMismatch = errors.New("csv header mismatch")

// Row maps column names to cell values. Missing columns are written empty.
type Row = map[string]string

type Store struct {
	log *logger.Logger
}

func New(log *logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{log: log}
}

// Append writes rows to path projected onto headers. The header line is
// written only when the file is absent or empty, so repeated calls never
// duplicate it and never touch rows written earlier.
func (s *Store) Append(path string, headers []string, rows []Row) error {
	if len(headers) == 0 {
		return fmt.Errorf("append to %s: no headers given", path)
	}
	if len(rows) == 0 {
		return nil
	}

	existing, err := checkHeader(path, headers)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s for append: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if existing == nil {
		if err := w.Write(headers); err != nil {
			return fmt.Errorf("failed to write header to %s: %w", path, err)
		}
	}
	record := make([]string, len(headers))
	for _, row := range rows {
		for i, h := range headers {
			record[i] = row[h]
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write row to %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	return f.Close()
}

// CheckHeader reports whether rows with headers can be appended to path
// without ErrHeaderMismatch. An absent or empty file accepts any header.
func (s *Store) CheckHeader(path string, headers []string) error {
	_, err := checkHeader(path, headers)
	return err
}

func checkHeader(path string, headers []string) ([]string, error) {
	existing, err := readHeader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect %s: %w", path, err)
	}
	if existing != nil && !slices.Equal(existing, headers) {
		return nil, fmt.Errorf("%w: %s has %v, want %v", ErrHeaderMismatch, path, existing, headers)
	}
	return existing, nil
}

// Read returns every row of path in file order. An absent, unreadable or
// headerless file yields an empty slice; the cause is only logged.
func (s *Store) Read(path string) []Row {
	logCtx := s.log.With("path", path)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logCtx.Warn("CSV file not found, returning no rows")
		} else {
			logCtx.Error("Failed to open CSV file", "error", err)
		}
		return []Row{}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	headers, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			logCtx.Warn("CSV file is empty or has no header")
		} else {
			logCtx.Error("Failed to read CSV header", "error", err)
		}
		return []Row{}
	}

	rows := []Row{}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logCtx.Error("Failed to read CSV row, returning no rows", "error", err, "rowsRead", len(rows))
			return []Row{}
		}
		row := make(Row, len(headers))
		for i, h := range headers {
			if i < len(record) {
				row[h] = record[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// readHeader returns the first record of path, or nil when the file is
// absent or empty.
func readHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	header, err := csv.NewReader(f).Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	return header, err
}
