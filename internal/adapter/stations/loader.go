// Package stations loads the station coordinate table from disk.
package stations

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/synop-dashboard/internal/domain"
)

// ErrNotFound is returned when the coordinate file does not exist.
var ErrNotFound = errors.New("coordinate file not found")

const (
	colStation   = "stacja"
	colLatitude  = "latitude"
	colLongitude = "longitude"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Loader reads coordinates from a CSV or YAML file, chosen by extension.
type Loader struct {
	path   string
	logger *slog.Logger
}

// NewLoader creates a loader for the given path.
func NewLoader(path string, logger *slog.Logger) *Loader {
	return &Loader{path: path, logger: logger}
}

// Load reads the file and builds a lookup table. A missing file yields an
// empty table together with ErrNotFound so the caller can carry on without
// positions.
func (l *Loader) Load() (domain.CoordinateTable, error) {
	coords, err := l.read()
	if err != nil {
		return domain.NewCoordinateTable(nil), err
	}
	return domain.NewCoordinateTable(coords), nil
}

func (l *Loader) read() ([]domain.StationCoordinate, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, l.path)
	}
	if err != nil {
		return nil, fmt.Errorf("open coordinates: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(l.path)) {
	case ".yaml", ".yml":
		return ParseYAML(f)
	default:
		return ParseCSV(f, l.logger)
	}
}

// ParseCSV reads a header-driven CSV with stacja, latitude and longitude
// columns in any order. Rows whose coordinates do not parse are skipped.
func ParseCSV(r io.Reader, logger *slog.Logger) ([]domain.StationCoordinate, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := map[string]int{}
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, col := range []string{colStation, colLatitude, colLongitude} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	var coords []domain.StationCoordinate
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}

		c, ok := parseRow(rec, idx)
		if !ok {
			logger.Warn("skipping coordinate row", "line", line)
			continue
		}
		coords = append(coords, c)
	}
	return coords, nil
}

func parseRow(rec []string, idx map[string]int) (domain.StationCoordinate, bool) {
	field := func(col string) string {
		if i := idx[col]; i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	station := field(colStation)
	lat, err1 := strconv.ParseFloat(field(colLatitude), 64)
	lon, err2 := strconv.ParseFloat(field(colLongitude), 64)
	if station == "" || err1 != nil || err2 != nil {
		return domain.StationCoordinate{}, false
	}
	return domain.StationCoordinate{Station: station, Latitude: lat, Longitude: lon}, true
}

// ParseYAML reads a YAML sequence of {stacja, latitude, longitude} entries.
func ParseYAML(r io.Reader) ([]domain.StationCoordinate, error) {
	var coords []domain.StationCoordinate
	if err := yaml.NewDecoder(r).Decode(&coords); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	out := coords[:0]
	for _, c := range coords {
		if c.Station != "" {
			out = append(out, c)
		}
	}
	return out, nil
}
