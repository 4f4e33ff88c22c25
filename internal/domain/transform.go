package domain

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// parseMeasurement coerces a wire value to a finite float. The second return
// is false when the value is missing or malformed.
func parseMeasurement(v RawValue) (float64, bool) {
	s := strings.TrimSpace(string(v))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseReading coerces the six measurements of a raw record. It returns false
// if the station name is empty or any measurement is missing or malformed.
func ParseReading(raw RawObservation) (Reading, bool) {
	if raw.Station == "" {
		return Reading{}, false
	}

	fields := [...]RawValue{
		raw.Temperature,
		raw.Humidity,
		raw.Pressure,
		raw.WindSpeed,
		raw.WindDirection,
		raw.Precipitation,
	}
	var values [len(fields)]float64
	for i, f := range fields {
		v, ok := parseMeasurement(f)
		if !ok {
			return Reading{}, false
		}
		values[i] = v
	}

	return Reading{
		Station:       string(raw.Station),
		Temperature:   values[0],
		Humidity:      values[1],
		Pressure:      values[2],
		WindSpeed:     values[3],
		WindDirection: values[4],
		Precipitation: values[5],
	}, true
}

// Clean keeps the records whose measurements all parse and drops the rest.
// Input order is preserved.
func Clean(raws []RawObservation) []Reading {
	readings := make([]Reading, 0, len(raws))
	for _, raw := range raws {
		if r, ok := ParseReading(raw); ok {
			readings = append(readings, r)
		}
	}
	return readings
}

// Aggregate groups readings by station name and averages every measurement.
// The result has one row per station, sorted by name.
func Aggregate(readings []Reading) []Observation {
	type sums struct {
		n int
		Reading
	}

	groups := make(map[string]*sums)
	for _, r := range readings {
		g, ok := groups[r.Station]
		if !ok {
			g = &sums{}
			groups[r.Station] = g
		}
		g.n++
		g.Temperature += r.Temperature
		g.Humidity += r.Humidity
		g.Pressure += r.Pressure
		g.WindSpeed += r.WindSpeed
		g.WindDirection += r.WindDirection
		g.Precipitation += r.Precipitation
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Observation, 0, len(names))
	for _, name := range names {
		g := groups[name]
		n := float64(g.n)
		out = append(out, Observation{
			Station:       name,
			Temperature:   g.Temperature / n,
			Humidity:      g.Humidity / n,
			Pressure:      g.Pressure / n,
			WindSpeed:     g.WindSpeed / n,
			WindDirection: g.WindDirection / n,
			Precipitation: g.Precipitation / n,
		})
	}
	return out
}

// CleanAndAggregate runs Clean followed by Aggregate.
func CleanAndAggregate(raws []RawObservation) []Observation {
	return Aggregate(Clean(raws))
}

// BuildObservations is the full derivation: clean, aggregate, join
// coordinates and compute the feels-like temperature. It does no I/O and
// never mutates its inputs.
func BuildObservations(raws []RawObservation, coords CoordinateTable) []Observation {
	obs, _ := derive(raws, coords)
	return obs
}

// NewSnapshot derives observations from one fetch and stamps the result with
// the run ID and the current time.
func NewSnapshot(runID string, raws []RawObservation, coords CoordinateTable) Snapshot {
	obs, kept := derive(raws, coords)
	return Snapshot{
		RunID:        runID,
		FetchedAt:    clock.Now().UTC(),
		RawRecords:   len(raws),
		Dropped:      len(raws) - kept,
		Observations: obs,
	}
}

// derive returns the derived observations and the number of raw records that
// survived cleaning.
func derive(raws []RawObservation, coords CoordinateTable) ([]Observation, int) {
	readings := Clean(raws)
	obs := JoinCoordinates(Aggregate(readings), coords)
	return DeriveFeelsLike(obs), len(readings)
}
