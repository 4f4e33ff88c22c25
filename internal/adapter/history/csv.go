package history

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/couchcryptid/synop-dashboard/internal/domain"
)

// DateLayout is the capture date format used in the log.
const DateLayout = "2006-01-02"

// Header is the column layout of the CSV log.
var Header = []string{"stacja", "temperatura", "wilgotnosc_wzgledna", "cisnienie", "data_pobrania"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVStore keeps the log in a single append-only CSV file.
type CSVStore struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewCSVStore creates a store backed by the file at path. The file is created
// on first append.
func NewCSVStore(path string, logger *slog.Logger) *CSVStore {
	return &CSVStore{path: path, logger: logger}
}

// Append writes rows to the end of the log, adding the header when the file
// is new or empty.
func (s *CSVStore) Append(_ context.Context, date time.Time, obs []domain.Observation) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open history log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat history log: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			return 0, fmt.Errorf("write header: %w", err)
		}
	}

	day := domain.DateOf(date).Format(DateLayout)
	for _, e := range domain.HistoryEntries(obs, date) {
		rec := []string{
			e.Station,
			formatFloat(e.Temperature),
			formatFloat(e.Humidity),
			formatFloat(e.Pressure),
			day,
		}
		if err := w.Write(rec); err != nil {
			return 0, fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, fmt.Errorf("flush history log: %w", err)
	}
	return len(obs), nil
}

// Load scans the whole log. Rows that do not parse are skipped.
func (s *CSVStore) Load(_ context.Context, station string, since time.Time) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return unavailable("history log not found")
	}
	if err != nil {
		return unavailable(err.Error())
	}
	defer f.Close()

	entries, err := readEntries(f, s.logger)
	if err != nil {
		return unavailable(err.Error())
	}

	var matched []domain.HistoryEntry
	for _, e := range entries {
		if inWindow(e, station, since) {
			matched = append(matched, e)
		}
	}
	return resultOf(matched)
}

// Close is a no-op; the file is opened per call.
func (s *CSVStore) Close() error { return nil }

func readEntries(r io.Reader, logger *slog.Logger) ([]domain.HistoryEntry, error) {
	var entries []domain.HistoryEntry
	err := ScanRows(r, func(line int, e domain.HistoryEntry, err error) {
		if err != nil {
			logger.Debug("skipping history row", "line", line, "error", err)
			return
		}
		entries = append(entries, e)
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ScanRows calls fn for every data row of a CSV log with its line number. err
// is set for rows that do not parse. ScanRows itself fails only when the
// header is missing a column or the file is not valid CSV.
func ScanRows(r io.Reader, fn func(line int, e domain.HistoryEntry, err error)) error {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	for _, col := range Header {
		if _, ok := idx[col]; !ok {
			return fmt.Errorf("history log missing column %q", col)
		}
	}

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read row %d: %w", line, err)
		}
		e, err := parseEntry(rec, idx)
		fn(line, e, err)
	}
}

func parseEntry(rec []string, idx map[string]int) (domain.HistoryEntry, error) {
	get := func(col string) string {
		if i := idx[col]; i < len(rec) {
			return rec[i]
		}
		return ""
	}

	var e domain.HistoryEntry
	e.Station = get("stacja")
	if e.Station == "" {
		return e, errors.New("empty station")
	}

	var err error
	if e.Temperature, err = strconv.ParseFloat(get("temperatura"), 64); err != nil {
		return e, fmt.Errorf("temperatura: %w", err)
	}
	if e.Humidity, err = strconv.ParseFloat(get("wilgotnosc_wzgledna"), 64); err != nil {
		return e, fmt.Errorf("wilgotnosc_wzgledna: %w", err)
	}
	if e.Pressure, err = strconv.ParseFloat(get("cisnienie"), 64); err != nil {
		return e, fmt.Errorf("cisnienie: %w", err)
	}
	if e.CapturedOn, err = time.Parse(DateLayout, get("data_pobrania")); err != nil {
		return e, fmt.Errorf("data_pobrania: %w", err)
	}
	return e, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
