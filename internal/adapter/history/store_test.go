package history

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/synop-dashboard/internal/domain"
)

const (
	testWarszawa = "Warszawa"
	testHel      = "Hel"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func snapshotRows(temp float64) []domain.Observation {
	return []domain.Observation{
		{Station: testHel, Temperature: temp - 3, Humidity: 88, Pressure: 1009.5, WindSpeed: 7},
		{Station: testWarszawa, Temperature: temp, Humidity: 70, Pressure: 1015, WindSpeed: 3},
	}
}

// storeContract runs the same behavior checks against every backend.
func storeContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("round trip within window", func(t *testing.T) {
		s := newStore(t)
		for i := 0; i < 10; i++ {
			n, err := s.Append(ctx, day(2024, 6, 1+i), snapshotRows(float64(10+i)))
			require.NoError(t, err)
			require.Equal(t, 2, n)
		}

		now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
		res := s.Load(ctx, testWarszawa, Window(now, 7*24*time.Hour))

		require.Equal(t, StatusOK, res.Status)
		require.Len(t, res.Entries, 7)
		assert.Equal(t, day(2024, 6, 4), res.Entries[0].CapturedOn)
		assert.Equal(t, day(2024, 6, 10), res.Entries[6].CapturedOn)
		assert.Equal(t, 13.0, res.Entries[0].Temperature)
		assert.Equal(t, 70.0, res.Entries[0].Humidity)
		assert.Equal(t, 1015.0, res.Entries[0].Pressure)
		for _, e := range res.Entries {
			assert.Equal(t, testWarszawa, e.Station)
		}
	})

	t.Run("unknown station is empty", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Append(ctx, day(2024, 6, 1), snapshotRows(10))
		require.NoError(t, err)

		res := s.Load(ctx, "warszawa", day(2024, 5, 1))
		assert.Equal(t, StatusEmpty, res.Status)
		assert.NotNil(t, res.Entries)
		assert.Empty(t, res.Entries)
	})

	t.Run("old entries fall outside the window", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Append(ctx, day(2024, 1, 1), snapshotRows(10))
		require.NoError(t, err)

		res := s.Load(ctx, testHel, day(2024, 6, 1))
		assert.Equal(t, StatusEmpty, res.Status)
	})

	t.Run("capture date is the UTC day", func(t *testing.T) {
		s := newStore(t)
		late := time.Date(2024, 6, 1, 23, 30, 0, 0, time.FixedZone("UTC-3", -3*60*60))
		_, err := s.Append(ctx, late, snapshotRows(10))
		require.NoError(t, err)

		res := s.Load(ctx, testHel, day(2024, 6, 1))
		require.Len(t, res.Entries, 1)
		assert.Equal(t, day(2024, 6, 2), res.Entries[0].CapturedOn)
	})
}

func TestCSVStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store {
		return NewCSVStore(filepath.Join(t.TempDir(), "weather_log.csv"), discardLogger())
	})
}

func TestSQLiteStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store {
		s, err := OpenSQLite(filepath.Join(t.TempDir(), "weather_log.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestCSVStore_FileLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weather_log.csv")
	s := NewCSVStore(path, discardLogger())
	ctx := context.Background()

	_, err := s.Append(ctx, day(2024, 6, 1), snapshotRows(12.5))
	require.NoError(t, err)
	_, err = s.Append(ctx, day(2024, 6, 2), snapshotRows(13))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	want := strings.Join([]string{
		"stacja,temperatura,wilgotnosc_wzgledna,cisnienie,data_pobrania",
		"Hel,9.5,88,1009.5,2024-06-01",
		"Warszawa,12.5,70,1015,2024-06-01",
		"Hel,10,88,1009.5,2024-06-02",
		"Warszawa,13,70,1015,2024-06-02",
	}, "\n") + "\n"
	assert.Equal(t, want, string(data))
}

func TestCSVStore_MissingFile(t *testing.T) {
	s := NewCSVStore(filepath.Join(t.TempDir(), "absent.csv"), discardLogger())
	res := s.Load(context.Background(), testHel, day(2024, 1, 1))

	assert.Equal(t, StatusUnavailable, res.Status)
	assert.Contains(t, res.Reason, "not found")
	assert.NotNil(t, res.Entries)
}

func TestCSVStore_ToleratesBOMAndBadRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weather_log.csv")
	content := "\ufeffstacja,temperatura,wilgotnosc_wzgledna,cisnienie,data_pobrania\n" +
		"Hel,9.5,88,1009.5,2024-06-01\n" +
		"Hel,,88,1009.5,2024-06-02\n" +
		"Hel,9,88,1009.5,yesterday\n" +
		"Hel,8,90,1010,2024-06-03\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	res := NewCSVStore(path, discardLogger()).Load(context.Background(), testHel, day(2024, 1, 1))

	require.Equal(t, StatusOK, res.Status)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, 8.0, res.Entries[1].Temperature)
}

func TestScanRows(t *testing.T) {
	content := "stacja,temperatura,wilgotnosc_wzgledna,cisnienie,data_pobrania\n" +
		"Hel,9.5,88,1009.5,2024-06-01\n" +
		",9.5,88,1009.5,2024-06-01\n" +
		"Hel,9,88,1009.5,yesterday\n"

	var lines []int
	var failed int
	err := ScanRows(strings.NewReader(content), func(line int, e domain.HistoryEntry, err error) {
		lines = append(lines, line)
		if err != nil {
			failed++
			return
		}
		assert.Equal(t, testHel, e.Station)
	})

	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4}, lines)
	assert.Equal(t, 2, failed)
}

func TestScanRows_Empty(t *testing.T) {
	called := false
	err := ScanRows(strings.NewReader(""), func(int, domain.HistoryEntry, error) { called = true })
	require.NoError(t, err)
	assert.False(t, called)
}

func TestCSVStore_CorruptHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weather_log.csv")
	require.NoError(t, os.WriteFile(path, []byte("station,temp\nHel,1\n"), 0o600))

	res := NewCSVStore(path, discardLogger()).Load(context.Background(), testHel, day(2024, 1, 1))
	assert.Equal(t, StatusUnavailable, res.Status)
	assert.Contains(t, res.Reason, "stacja")
}

func TestWindow(t *testing.T) {
	now := time.Date(2024, 6, 8, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC), Window(now, 7*24*time.Hour))
}

func TestOpenSQLite_Memory(t *testing.T) {
	s, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer s.Close()

	n, err := s.Append(context.Background(), day(2024, 6, 1), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
