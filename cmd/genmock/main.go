// Command genmock reads a captured synop JSON response and a station
// coordinates file and writes the derived observation fixture used by the
// pipeline test suite. It runs the real domain derivation so the fixture
// always matches pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -synop data/mock/synop_240601.json \
//	  -stations data/stations_coordinates.csv \
//	  -out data/mock/synop_240601_observations.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/synop-dashboard/internal/adapter/stations"
	"github.com/couchcryptid/synop-dashboard/internal/domain"
)

// Fixed clock so the fixture's capture time is reproducible.
var capturedAt = time.Date(2024, time.June, 1, 9, 30, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	synopPath := flag.String("synop", "", "path to a captured synop JSON response")
	stationsPath := flag.String("stations", "", "path to the station coordinates file (.csv or .yaml)")
	out := flag.String("out", "", "output path for the derived observations fixture")
	flag.Parse()

	if *synopPath == "" || *stationsPath == "" || *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -synop, -stations, -out")
	}

	domain.SetClock(clockwork.NewFakeClockAt(capturedAt))
	defer domain.SetClock(nil)

	data, err := os.ReadFile(*synopPath)
	if err != nil {
		return fmt.Errorf("read synop: %w", err)
	}
	var raws []domain.RawObservation
	if err := json.Unmarshal(data, &raws); err != nil {
		return fmt.Errorf("decode synop: %w", err)
	}

	table, err := stations.NewLoader(*stationsPath, slog.Default()).Load()
	if err != nil {
		return fmt.Errorf("load stations: %w", err)
	}

	snap := domain.NewSnapshot("genmock", raws, table)
	log.Printf("%d raw records, %d dropped, %d stations, %d coordinates",
		snap.RawRecords, snap.Dropped, len(snap.Observations), table.Len())

	if err := writeJSON(*out, snap.Observations); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote fixture: %s", *out)

	printStats(snap)
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", " ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

type conditionCount struct {
	condition domain.Condition
	count     int
}

// printStats reports the numbers the fixture-based tests assert on.
func printStats(snap domain.Snapshot) {
	obs := snap.Observations

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Stations: %d\n", len(obs))
	fmt.Printf("Dropped: %d\n", snap.Dropped)

	var unpositioned []string
	var adjusted int
	for _, o := range obs {
		if !o.HasPosition() {
			unpositioned = append(unpositioned, o.Station)
		}
		if o.FeelsLike != o.Temperature {
			adjusted++
		}
	}
	fmt.Printf("Without coordinates: %d %v\n", len(unpositioned), unpositioned)
	fmt.Printf("Feels-like differs from temperature: %d\n", adjusted)

	temp := domain.Summarize(obs, domain.FieldTemperature)
	fmt.Printf("Temperature: mean=%.2f stddev=%.2f\n", temp.Mean, temp.StdDev)

	counts := map[domain.Condition]int{}
	for _, o := range obs {
		counts[domain.Describe(o)]++
	}
	cc := make([]conditionCount, 0, len(counts))
	for c, n := range counts {
		cc = append(cc, conditionCount{c, n})
	}
	sort.Slice(cc, func(i, j int) bool { return cc[i].count > cc[j].count })
	fmt.Print("Conditions: ")
	for _, c := range cc {
		fmt.Printf("%s=%d ", c.condition, c.count)
	}
	fmt.Println()

	if ext, ok := domain.FindExtremes(obs); ok {
		fmt.Printf("Warmest: %s (%g)  Coldest: %s (%g)\n",
			ext.Warmest.Station, ext.Warmest.Value, ext.Coldest.Station, ext.Coldest.Value)
		fmt.Printf("Windiest: %s (%g)  Calmest: %s (%g)\n",
			ext.Windiest.Station, ext.Windiest.Value, ext.Calmest.Station, ext.Calmest.Value)
	}

	hot, cold := domain.Anomalies(obs, 5)
	fmt.Printf("Anomalies (delta 5): hot=%d cold=%d\n", len(hot), len(cold))
}
