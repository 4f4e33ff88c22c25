package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ErrStationNotFound is returned when a station name has no observation.
var ErrStationNotFound = errors.New("station not found")

// Field names a numeric column of an Observation.
type Field string

const (
	FieldTemperature   Field = "temperature"
	FieldHumidity      Field = "relative_humidity"
	FieldPressure      Field = "pressure"
	FieldWindSpeed     Field = "wind_speed"
	FieldWindDirection Field = "wind_direction"
	FieldPrecipitation Field = "precipitation"
	FieldFeelsLike     Field = "feels_like_temperature"
)

// Fields lists every numeric column in display order.
var Fields = []Field{
	FieldTemperature,
	FieldHumidity,
	FieldPressure,
	FieldWindSpeed,
	FieldWindDirection,
	FieldPrecipitation,
	FieldFeelsLike,
}

// CorrelationFields are the columns compared in the correlation matrix.
var CorrelationFields = []Field{
	FieldTemperature,
	FieldHumidity,
	FieldPressure,
	FieldFeelsLike,
	FieldWindSpeed,
	FieldPrecipitation,
}

// ParseField validates a column name.
func ParseField(s string) (Field, error) {
	for _, f := range Fields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown field %q", s)
}

// Value returns the column value of an observation.
func (o Observation) Value(f Field) float64 {
	switch f {
	case FieldTemperature:
		return o.Temperature
	case FieldHumidity:
		return o.Humidity
	case FieldPressure:
		return o.Pressure
	case FieldWindSpeed:
		return o.WindSpeed
	case FieldWindDirection:
		return o.WindDirection
	case FieldPrecipitation:
		return o.Precipitation
	case FieldFeelsLike:
		return o.FeelsLike
	default:
		return math.NaN()
	}
}

// Condition is a coarse, human-readable weather description.
type Condition string

const (
	ConditionSnow         Condition = "snow"
	ConditionRain         Condition = "rain"
	ConditionCloudy       Condition = "cloudy"
	ConditionSunny        Condition = "sunny"
	ConditionPartlyCloudy Condition = "partly_cloudy"
)

// Describe classifies an observation. Rules are checked in order: any
// precipitation below 0 °C is snow, more than 2.5 mm is rain, humidity above
// 85% is cloudy, below 60% is sunny, anything else is partly cloudy.
func Describe(o Observation) Condition {
	switch {
	case o.Precipitation > 0 && o.Temperature < 0:
		return ConditionSnow
	case o.Precipitation > 2.5:
		return ConditionRain
	case o.Humidity > 85:
		return ConditionCloudy
	case o.Humidity < 60:
		return ConditionSunny
	default:
		return ConditionPartlyCloudy
	}
}

var compassPoints = [...]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// CompassDirection maps a wind direction in degrees to an 8-point compass label.
func CompassDirection(degrees float64) string {
	i := int(math.RoundToEven(degrees/45)) % len(compassPoints)
	if i < 0 {
		i += len(compassPoints)
	}
	return compassPoints[i]
}

// Stats summarizes the national temperature field.
type Stats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// Summarize computes the mean and sample standard deviation of a column.
// StdDev is zero when fewer than two rows are present.
func Summarize(obs []Observation, f Field) Stats {
	s := Stats{Count: len(obs)}
	if s.Count == 0 {
		return s
	}
	xs := column(obs, f)
	s.Mean = stat.Mean(xs, nil)
	if s.Count > 1 {
		s.StdDev = stat.StdDev(xs, nil)
	}
	return s
}

func mean(obs []Observation, f Field) float64 {
	if len(obs) == 0 {
		return 0
	}
	return stat.Mean(column(obs, f), nil)
}

func column(obs []Observation, f Field) []float64 {
	xs := make([]float64, len(obs))
	for i, o := range obs {
		xs[i] = o.Value(f)
	}
	return xs
}

// Anomalies splits out stations whose temperature is more than delta degrees
// above or below the national mean.
func Anomalies(obs []Observation, delta float64) (hot, cold []Observation) {
	hot, cold = []Observation{}, []Observation{}
	if len(obs) == 0 {
		return hot, cold
	}
	m := mean(obs, FieldTemperature)
	for _, o := range obs {
		switch {
		case o.Temperature > m+delta:
			hot = append(hot, o)
		case o.Temperature < m-delta:
			cold = append(cold, o)
		}
	}
	return hot, cold
}

// Extreme is the station holding a column's maximum or minimum.
type Extreme struct {
	Station string  `json:"station"`
	Value   float64 `json:"value"`
}

// Extremes holds the warmest, coldest, most and least humid, and windiest and
// calmest stations.
type Extremes struct {
	Warmest    Extreme `json:"warmest"`
	Coldest    Extreme `json:"coldest"`
	MostHumid  Extreme `json:"most_humid"`
	LeastHumid Extreme `json:"least_humid"`
	Windiest   Extreme `json:"windiest"`
	Calmest    Extreme `json:"calmest"`
}

// FindExtremes returns the first station holding each extreme. It returns
// false for an empty table.
func FindExtremes(obs []Observation) (Extremes, bool) {
	if len(obs) == 0 {
		return Extremes{}, false
	}
	maxOf := func(f Field) Extreme { return pick(obs, f, func(a, b float64) bool { return a > b }) }
	minOf := func(f Field) Extreme { return pick(obs, f, func(a, b float64) bool { return a < b }) }

	return Extremes{
		Warmest:    maxOf(FieldTemperature),
		Coldest:    minOf(FieldTemperature),
		MostHumid:  maxOf(FieldHumidity),
		LeastHumid: minOf(FieldHumidity),
		Windiest:   maxOf(FieldWindSpeed),
		Calmest:    minOf(FieldWindSpeed),
	}, true
}

func pick(obs []Observation, f Field, better func(a, b float64) bool) Extreme {
	best := Extreme{Station: obs[0].Station, Value: obs[0].Value(f)}
	for _, o := range obs[1:] {
		if v := o.Value(f); better(v, best.Value) {
			best = Extreme{Station: o.Station, Value: v}
		}
	}
	return best
}

// Rank returns a copy of obs sorted by a column. Ties keep table order.
func Rank(obs []Observation, f Field, descending bool) []Observation {
	out := make([]Observation, len(obs))
	copy(out, obs)
	sort.SliceStable(out, func(i, j int) bool {
		if descending {
			return out[i].Value(f) > out[j].Value(f)
		}
		return out[i].Value(f) < out[j].Value(f)
	})
	return out
}

// Compare returns the observations for two stations, in argument order.
func Compare(obs []Observation, a, b string) ([]Observation, error) {
	snap := Snapshot{Observations: obs}
	first, ok := snap.Find(a)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStationNotFound, a)
	}
	second, ok := snap.Find(b)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStationNotFound, b)
	}
	return []Observation{first, second}, nil
}

// MapPoint is one plottable station.
type MapPoint struct {
	Station   string  `json:"station"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Value     float64 `json:"value"`
}

// MapPoints returns the column value for every station with a known position.
// Stations without coordinates are left out.
func MapPoints(obs []Observation, f Field) []MapPoint {
	points := make([]MapPoint, 0, len(obs))
	for _, o := range obs {
		if !o.HasPosition() {
			continue
		}
		points = append(points, MapPoint{
			Station:   o.Station,
			Latitude:  *o.Latitude,
			Longitude: *o.Longitude,
			Value:     o.Value(f),
		})
	}
	return points
}

// Deviation is how far a station's temperature sits from the national mean.
type Deviation struct {
	Station string  `json:"station"`
	Delta   float64 `json:"delta"`
}

// Deviations computes every station's temperature minus the national mean.
func Deviations(obs []Observation) []Deviation {
	m := mean(obs, FieldTemperature)
	out := make([]Deviation, len(obs))
	for i, o := range obs {
		out[i] = Deviation{Station: o.Station, Delta: o.Temperature - m}
	}
	return out
}

// CorrelationMatrix holds pairwise Pearson coefficients. A nil cell means the
// coefficient is undefined because a column has no variance.
type CorrelationMatrix struct {
	Fields []Field      `json:"fields"`
	Values [][]*float64 `json:"values"`
}

// Correlations computes the Pearson correlation between every pair of fields.
func Correlations(obs []Observation, fields []Field) CorrelationMatrix {
	m := CorrelationMatrix{Fields: fields, Values: make([][]*float64, len(fields))}
	for i, fi := range fields {
		m.Values[i] = make([]*float64, len(fields))
		for j, fj := range fields {
			if r, ok := pearson(obs, fi, fj); ok {
				m.Values[i][j] = &r
			}
		}
	}
	return m
}

func pearson(obs []Observation, x, y Field) (float64, bool) {
	if len(obs) < 2 {
		return 0, false
	}
	xs, ys := column(obs, x), column(obs, y)
	if constant(xs) || constant(ys) {
		return 0, false
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) {
		return 0, false
	}
	return r, true
}

func constant(xs []float64) bool {
	for _, v := range xs[1:] {
		if v != xs[0] {
			return false
		}
	}
	return true
}

// Round2 rounds to two decimals for display.
func Round2(v float64) float64 {
	return roundTo(v, 2)
}
