package domain

// CoordinateTable maps station names to positions. Lookups are exact-string.
type CoordinateTable struct {
	byStation map[string]StationCoordinate
}

// NewCoordinateTable indexes coordinates by station name. When a name appears
// more than once the first entry wins.
func NewCoordinateTable(coords []StationCoordinate) CoordinateTable {
	t := CoordinateTable{byStation: make(map[string]StationCoordinate, len(coords))}
	for _, c := range coords {
		if _, dup := t.byStation[c.Station]; dup {
			continue
		}
		t.byStation[c.Station] = c
	}
	return t
}

// Lookup returns the coordinate for a station name.
func (t CoordinateTable) Lookup(station string) (StationCoordinate, bool) {
	c, ok := t.byStation[station]
	return c, ok
}

// Len returns the number of distinct stations in the table.
func (t CoordinateTable) Len() int {
	return len(t.byStation)
}

// JoinCoordinates left-joins observations with the coordinate table. Every
// row is kept; rows without a match have nil Latitude and Longitude.
func JoinCoordinates(obs []Observation, table CoordinateTable) []Observation {
	out := make([]Observation, len(obs))
	for i, o := range obs {
		o.Latitude, o.Longitude = nil, nil
		if c, ok := table.Lookup(o.Station); ok {
			lat, lon := c.Latitude, c.Longitude
			o.Latitude = &lat
			o.Longitude = &lon
		}
		out[i] = o
	}
	return out
}
