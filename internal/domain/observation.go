package domain

import (
	"encoding/json"
	"time"
)

// RawValue is a single wire value from the synop feed. It holds the text of a
// JSON string or number; null, absent and empty values are all "".
type RawValue string

// UnmarshalJSON accepts strings, numbers, null and any other JSON token without
// failing. Non-numeric tokens survive as text and are rejected during cleaning.
func (v *RawValue) UnmarshalJSON(data []byte) error {
	switch {
	case string(data) == "null":
		*v = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = RawValue(s)
	default:
		*v = RawValue(data)
	}
	return nil
}

// RawObservation is one station record as received from the synop endpoint.
type RawObservation struct {
	Station       RawValue `json:"stacja"`
	Temperature   RawValue `json:"temperatura"`
	Humidity      RawValue `json:"wilgotnosc_wzgledna"`
	Pressure      RawValue `json:"cisnienie"`
	WindSpeed     RawValue `json:"predkosc_wiatru"`
	WindDirection RawValue `json:"kierunek_wiatru"`
	Precipitation RawValue `json:"suma_opadu"`
}

// Reading is a RawObservation whose six measurements all coerced to numbers.
type Reading struct {
	Station       string
	Temperature   float64
	Humidity      float64
	Pressure      float64
	WindSpeed     float64
	WindDirection float64
	Precipitation float64
}

// StationCoordinate places a station on the map.
type StationCoordinate struct {
	Station   string  `json:"stacja" yaml:"stacja"`
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Observation is the per-station row the dashboard renders: averaged
// measurements, an optional position and the derived feels-like temperature.
type Observation struct {
	Station       string   `json:"station"`
	Temperature   float64  `json:"temperature"`
	Humidity      float64  `json:"relative_humidity"`
	Pressure      float64  `json:"pressure"`
	WindSpeed     float64  `json:"wind_speed"`
	WindDirection float64  `json:"wind_direction"`
	Precipitation float64  `json:"precipitation"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	FeelsLike     float64  `json:"feels_like_temperature"`
}

// HasPosition reports whether the station was found in the coordinate table.
func (o Observation) HasPosition() bool {
	return o.Latitude != nil && o.Longitude != nil
}

// Snapshot is the result of one refresh: every observation derived from a
// single fetch, plus bookkeeping about the fetch itself.
type Snapshot struct {
	RunID        string        `json:"run_id"`
	FetchedAt    time.Time     `json:"fetched_at"`
	RawRecords   int           `json:"raw_records"`
	Dropped      int           `json:"dropped_records"`
	Observations []Observation `json:"observations"`
}

// Find returns the observation for an exact station name.
func (s Snapshot) Find(station string) (Observation, bool) {
	for _, o := range s.Observations {
		if o.Station == station {
			return o, true
		}
	}
	return Observation{}, false
}

// Stations lists station names in table order.
func (s Snapshot) Stations() []string {
	names := make([]string, len(s.Observations))
	for i, o := range s.Observations {
		names[i] = o.Station
	}
	return names
}

// HistoryEntry is one row of the daily historical log.
type HistoryEntry struct {
	Station     string    `json:"station"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"relative_humidity"`
	Pressure    float64   `json:"pressure"`
	CapturedOn  time.Time `json:"captured_on"`
}

// HistoryEntries projects observations onto log rows for the given capture date.
func HistoryEntries(obs []Observation, capturedOn time.Time) []HistoryEntry {
	day := DateOf(capturedOn)
	entries := make([]HistoryEntry, len(obs))
	for i, o := range obs {
		entries[i] = HistoryEntry{
			Station:     o.Station,
			Temperature: o.Temperature,
			Humidity:    o.Humidity,
			Pressure:    o.Pressure,
			CapturedOn:  day,
		}
	}
	return entries
}
