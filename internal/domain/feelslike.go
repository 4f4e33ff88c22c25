package domain

import "math"

const (
	// heatIndexMinC is exclusive: the heat index applies strictly above it.
	heatIndexMinC = 20.0
	// windChillMaxC is inclusive.
	windChillMaxC = 10.0
	// windChillMinKPH is compared with windChillTolerance of slack so that
	// 4.7988 km/h (1.333 m/s) still counts.
	windChillMinKPH    = 4.8
	windChillTolerance = 0.005

	msToKPH = 3.6
)

// FeelsLike returns the perceived temperature in °C, rounded to one decimal.
// Above 20 °C it is the heat index; at or below 10 °C with at least 4.8 km/h
// of wind it is the wind chill; otherwise it is the air temperature. A NaN wind
// speed counts as calm.
func FeelsLike(tempC, humidity, windMS float64) float64 {
	if math.IsNaN(windMS) {
		windMS = 0
	}
	kph := windMS * msToKPH

	v := tempC
	switch {
	case tempC > heatIndexMinC:
		v = HeatIndex(tempC, humidity)
	case tempC <= windChillMaxC && kph >= windChillMinKPH-windChillTolerance:
		v = WindChill(tempC, kph)
	}
	return roundTo(v, 1)
}

// HeatIndex applies the Rothfusz regression. Input and output are in °C; the
// regression itself runs in °F.
func HeatIndex(tempC, humidity float64) float64 {
	t := tempC*9/5 + 32
	rh := humidity

	hi := -42.379 +
		2.04901523*t +
		10.14333127*rh -
		0.22475541*t*rh -
		0.00683783*t*t -
		0.05481717*rh*rh +
		0.00122874*t*t*rh +
		0.00085282*t*rh*rh -
		0.00000199*t*t*rh*rh

	return (hi - 32) * 5 / 9
}

// WindChill is the Environment Canada wind chill index for a temperature in
// °C and a wind speed in km/h.
func WindChill(tempC, windKPH float64) float64 {
	v := math.Pow(windKPH, 0.16)
	return 13.12 + 0.6215*tempC - 11.37*v + 0.3965*tempC*v
}

// DeriveFeelsLike returns a copy of obs with FeelsLike computed for every row.
func DeriveFeelsLike(obs []Observation) []Observation {
	out := make([]Observation, len(obs))
	for i, o := range obs {
		o.FeelsLike = FeelsLike(o.Temperature, o.Humidity, o.WindSpeed)
		out[i] = o
	}
	return out
}

// roundTo rounds half to even at the given number of decimal places.
func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.RoundToEven(v*p) / p
}
