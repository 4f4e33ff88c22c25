package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testWarszawa = "Warszawa"
	testKrakow   = "Kraków"
	testGdansk   = "Gdańsk"
)

func raw(station, temp, rh, pressure, wind, dir, precip string) RawObservation {
	return RawObservation{
		Station:       RawValue(station),
		Temperature:   RawValue(temp),
		Humidity:      RawValue(rh),
		Pressure:      RawValue(pressure),
		WindSpeed:     RawValue(wind),
		WindDirection: RawValue(dir),
		Precipitation: RawValue(precip),
	}
}

func TestRawValueUnmarshal(t *testing.T) {
	data := []byte(`[
		{"stacja":"Warszawa","temperatura":"12.5","wilgotnosc_wzgledna":70,"cisnienie":null,"predkosc_wiatru":"3","kierunek_wiatru":{"x":1}},
		{"stacja":"Kraków","temperatura":true}
	]`)

	var got []RawObservation
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, RawValue(testWarszawa), first.Station)
	assert.Equal(t, RawValue("12.5"), first.Temperature)
	assert.Equal(t, RawValue("70"), first.Humidity)
	assert.Equal(t, RawValue(""), first.Pressure)
	assert.Equal(t, RawValue("3"), first.WindSpeed)
	assert.Equal(t, RawValue(`{"x":1}`), first.WindDirection)
	assert.Equal(t, RawValue(""), first.Precipitation, "absent key")

	assert.Equal(t, RawValue("true"), got[1].Temperature)
}

func TestParseMeasurement(t *testing.T) {
	tests := []struct {
		name   string
		in     RawValue
		want   float64
		wantOK bool
	}{
		{"decimal string", "12.5", 12.5, true},
		{"negative", "-3.2", -3.2, true},
		{"integer", "1013", 1013, true},
		{"surrounding spaces", " 7.1 ", 7.1, true},
		{"empty", "", 0, false},
		{"blank", "   ", 0, false},
		{"text", "abc", 0, false},
		{"comma decimal", "12,5", 0, false},
		{"NaN", "NaN", 0, false},
		{"infinity", "Inf", 0, false},
		{"boolean token", "true", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseMeasurement(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClean(t *testing.T) {
	t.Run("keeps fully numeric records in order", func(t *testing.T) {
		raws := []RawObservation{
			raw(testWarszawa, "12.5", "70", "1013.2", "3", "180", "0"),
			raw(testKrakow, "abc", "70", "1013.2", "3", "180", "0"),
			raw(testGdansk, "8", "90", "1009", "5", "270", "1.2"),
		}

		got := Clean(raws)

		want := []Reading{
			{Station: testWarszawa, Temperature: 12.5, Humidity: 70, Pressure: 1013.2, WindSpeed: 3, WindDirection: 180},
			{Station: testGdansk, Temperature: 8, Humidity: 90, Pressure: 1009, WindSpeed: 5, WindDirection: 270, Precipitation: 1.2},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Clean mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("drops a record with any missing measurement", func(t *testing.T) {
		for i := 0; i < 6; i++ {
			fields := []string{"1", "2", "3", "4", "5", "6"}
			fields[i] = ""
			r := raw(testWarszawa, fields[0], fields[1], fields[2], fields[3], fields[4], fields[5])
			assert.Empty(t, Clean([]RawObservation{r}), "field %d missing", i)
		}
	})

	t.Run("drops a record with no station name", func(t *testing.T) {
		got := Clean([]RawObservation{raw("", "1", "2", "3", "4", "5", "6")})
		assert.Empty(t, got)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Clean(nil))
	})

	t.Run("does not mutate input", func(t *testing.T) {
		raws := []RawObservation{raw(testWarszawa, " 12.5 ", "70", "1013", "3", "180", "0")}
		Clean(raws)
		assert.Equal(t, RawValue(" 12.5 "), raws[0].Temperature)
	})
}

func TestAggregate(t *testing.T) {
	t.Run("averages duplicates and sorts by name", func(t *testing.T) {
		readings := []Reading{
			{Station: testWarszawa, Temperature: 10, Humidity: 60, Pressure: 1010, WindSpeed: 2, WindDirection: 90, Precipitation: 0},
			{Station: testGdansk, Temperature: 5, Humidity: 80, Pressure: 1000, WindSpeed: 6, WindDirection: 270, Precipitation: 1},
			{Station: testWarszawa, Temperature: 20, Humidity: 80, Pressure: 1020, WindSpeed: 4, WindDirection: 270, Precipitation: 2},
		}

		got := Aggregate(readings)

		want := []Observation{
			{Station: testGdansk, Temperature: 5, Humidity: 80, Pressure: 1000, WindSpeed: 6, WindDirection: 270, Precipitation: 1},
			{Station: testWarszawa, Temperature: 15, Humidity: 70, Pressure: 1015, WindSpeed: 3, WindDirection: 180, Precipitation: 1},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Aggregate mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("one row per distinct station", func(t *testing.T) {
		readings := []Reading{
			{Station: "B"}, {Station: "A"}, {Station: "B"}, {Station: "C"}, {Station: "A"},
		}
		got := Aggregate(readings)
		require.Len(t, got, 3)
		assert.Equal(t, []string{"A", "B", "C"}, Snapshot{Observations: got}.Stations())
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Aggregate(nil))
	})
}

func TestCleanAndAggregate(t *testing.T) {
	raws := []RawObservation{
		raw(testKrakow, "25", "50", "1012", "1", "90", "0"),
		raw(testKrakow, "bad", "50", "1012", "1", "90", "0"),
		raw(testWarszawa, "5", "70", "1015", "10", "0", "0"),
		raw(testWarszawa, "15", "70", "1015", "10", "0", "0"),
	}

	got := CleanAndAggregate(raws)

	require.Len(t, got, 2)
	assert.Equal(t, testKrakow, got[0].Station)
	assert.Equal(t, 25.0, got[0].Temperature)
	assert.Equal(t, testWarszawa, got[1].Station)
	assert.Equal(t, 10.0, got[1].Temperature)

	t.Run("idempotent on aggregated data", func(t *testing.T) {
		again := make([]Reading, len(got))
		for i, o := range got {
			again[i] = Reading{
				Station:       o.Station,
				Temperature:   o.Temperature,
				Humidity:      o.Humidity,
				Pressure:      o.Pressure,
				WindSpeed:     o.WindSpeed,
				WindDirection: o.WindDirection,
				Precipitation: o.Precipitation,
			}
		}
		if diff := cmp.Diff(got, Aggregate(again)); diff != "" {
			t.Errorf("re-aggregation changed rows (-first +second):\n%s", diff)
		}
	})
}

func TestBuildObservations(t *testing.T) {
	raws := []RawObservation{
		raw(testKrakow, "25", "50", "1012", "1", "90", "0"),
		raw(testWarszawa, "5", "70", "1015", "10", "0", "0"),
		raw("Nieznana", "15", "70", "1015", "2", "0", "0"),
	}
	coords := NewCoordinateTable([]StationCoordinate{
		{Station: testKrakow, Latitude: 50.06, Longitude: 19.94},
		{Station: testWarszawa, Latitude: 52.23, Longitude: 21.01},
	})

	got := BuildObservations(raws, coords)

	require.Len(t, got, 3)
	assert.Equal(t, testKrakow, got[0].Station)
	assert.Equal(t, 25.9, got[0].FeelsLike)
	assert.True(t, got[0].HasPosition())

	assert.Equal(t, "Nieznana", got[1].Station)
	assert.False(t, got[1].HasPosition())
	assert.Equal(t, 15.0, got[1].FeelsLike)

	assert.Equal(t, testWarszawa, got[2].Station)
	assert.Equal(t, -0.4, got[2].FeelsLike)
	require.NotNil(t, got[2].Latitude)
	assert.Equal(t, 52.23, *got[2].Latitude)
}

func TestNewSnapshot(t *testing.T) {
	fixed := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	defer SetClock(nil)

	raws := []RawObservation{
		raw(testKrakow, "25", "50", "1012", "1", "90", "0"),
		raw(testKrakow, "", "50", "1012", "1", "90", "0"),
		raw(testWarszawa, "5", "70", "1015", "10", "0", "0"),
	}

	snap := NewSnapshot("run-1", raws, NewCoordinateTable(nil))

	assert.Equal(t, "run-1", snap.RunID)
	assert.Equal(t, fixed, snap.FetchedAt)
	assert.Equal(t, 3, snap.RawRecords)
	assert.Equal(t, 1, snap.Dropped)
	assert.Equal(t, []string{testKrakow, testWarszawa}, snap.Stations())

	obs, ok := snap.Find(testWarszawa)
	require.True(t, ok)
	assert.Equal(t, -0.4, obs.FeelsLike)

	_, ok = snap.Find("warszawa")
	assert.False(t, ok, "lookups are case-sensitive")
}

func TestNewSnapshot_MatchesBuildObservations(t *testing.T) {
	raws := []RawObservation{
		raw(testKrakow, "25", "50", "1012", "1", "90", "0"),
		raw(testWarszawa, "abc", "70", "1015", "10", "0", "0"),
		raw(testWarszawa, "5", "70", "1015", "10", "0", "0"),
		raw(testGdansk, "9", "88", "1009", "1.333", "270", "0.4"),
	}
	coords := NewCoordinateTable([]StationCoordinate{{Station: testWarszawa, Latitude: 52.23, Longitude: 21.01}})

	snap := NewSnapshot("run-2", raws, coords)

	assert.Equal(t, BuildObservations(raws, coords), snap.Observations)
	assert.Equal(t, 1, snap.Dropped)
	assert.Equal(t, 4, snap.RawRecords)
}

func TestHistoryEntries(t *testing.T) {
	capturedAt := time.Date(2024, 6, 1, 23, 45, 0, 0, time.FixedZone("CEST", 2*60*60))
	obs := []Observation{
		{Station: testWarszawa, Temperature: 15, Humidity: 70, Pressure: 1015, WindSpeed: 3},
	}

	got := HistoryEntries(obs, capturedAt)

	want := []HistoryEntry{{
		Station:     testWarszawa,
		Temperature: 15,
		Humidity:    70,
		Pressure:    1015,
		CapturedOn:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("HistoryEntries mismatch (-want +got):\n%s", diff)
	}
}

func TestSetClock(t *testing.T) {
	t.Run("set custom clock", func(t *testing.T) {
		fixedTime := time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC)
		SetClock(clockwork.NewFakeClockAt(fixedTime))

		assert.Equal(t, fixedTime, Now())
		assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Today())

		SetClock(nil) // reset
	})

	t.Run("reset to real clock", func(t *testing.T) {
		SetClock(clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
		SetClock(nil)

		now := Now()
		assert.True(t, time.Since(now) < time.Second)
	})
}
