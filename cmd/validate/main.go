// Command validate performs integrity checks on a CSV history log: header
// layout, row parseability, duplicate station/day entries and plausible
// measurement ranges.
//
// Usage:
//
//	go run ./cmd/validate -log weather_log.csv
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/couchcryptid/synop-dashboard/internal/adapter/history"
	"github.com/couchcryptid/synop-dashboard/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// row is a parsed log line.
type row struct {
	line  int
	entry domain.HistoryEntry
}

func main() {
	logPath := flag.String("log", "weather_log.csv", "path to the CSV history log")
	flag.Parse()

	os.Exit(run(*logPath))
}

func run(path string) int {
	fmt.Println("=== History Log Integrity Validation ===")
	fmt.Println()

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "FATAL: history log %s not found\n", path)
		return 1
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open history log: %v\n", err)
		return 1
	}
	defer f.Close()

	header := &phase{name: "Header and CSV structure"}
	parse := &phase{name: "Row parseability"}
	var rows []row

	err = history.ScanRows(f, func(line int, e domain.HistoryEntry, err error) {
		if err != nil {
			parse.errorf("line %d: %v", line, err)
			return
		}
		rows = append(rows, row{line: line, entry: e})
	})
	if err != nil {
		header.errorf("%v", err)
	}

	phases := []*phase{
		header,
		parse,
		validateDuplicates(rows),
		validateRanges(rows),
		validateDates(rows, domain.Today()),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d valid, %d unparseable, %d stations, %d days\n",
		len(rows), len(parse.errors), countStations(rows), countDays(rows))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// validateDuplicates flags stations logged more than once for the same day.
func validateDuplicates(rows []row) *phase {
	p := &phase{name: "Unique station per day"}
	type key struct {
		station string
		day     string
	}
	first := map[key]int{}
	for _, r := range rows {
		k := key{r.entry.Station, r.entry.CapturedOn.Format(history.DateLayout)}
		if prev, ok := first[k]; ok {
			p.errorf("line %d: %s on %s already logged at line %d", r.line, k.station, k.day, prev)
			continue
		}
		first[k] = r.line
	}
	return p
}

// validateRanges flags measurements outside what a Polish synop station can report.
func validateRanges(rows []row) *phase {
	p := &phase{name: "Plausible measurement ranges"}
	for _, r := range rows {
		e := r.entry
		if e.Temperature < -60 || e.Temperature > 60 {
			p.errorf("line %d: %s temperature %g out of range", r.line, e.Station, e.Temperature)
		}
		if e.Humidity < 0 || e.Humidity > 100 {
			p.errorf("line %d: %s humidity %g out of range", r.line, e.Station, e.Humidity)
		}
		if e.Pressure < 850 || e.Pressure > 1100 {
			p.errorf("line %d: %s pressure %g out of range", r.line, e.Station, e.Pressure)
		}
	}
	return p
}

// validateDates flags capture dates after today.
func validateDates(rows []row, today time.Time) *phase {
	p := &phase{name: "Capture dates not in the future"}
	for _, r := range rows {
		if r.entry.CapturedOn.After(today) {
			p.errorf("line %d: %s captured on %s", r.line, r.entry.Station, r.entry.CapturedOn.Format(history.DateLayout))
		}
	}
	return p
}

func countStations(rows []row) int {
	seen := map[string]struct{}{}
	for _, r := range rows {
		seen[r.entry.Station] = struct{}{}
	}
	return len(seen)
}

func countDays(rows []row) int {
	seen := map[time.Time]struct{}{}
	for _, r := range rows {
		seen[r.entry.CapturedOn] = struct{}{}
	}
	return len(seen)
}
