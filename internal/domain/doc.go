// Package domain models IMGW synoptic observations and the derivations the
// dashboard shows on top of them.
//
// # Data Source
//
// Observations come from the IMGW public data API
// (https://danepubliczne.imgw.pl/api/data/synop). The endpoint returns a JSON
// array with one object per synoptic station. Every measurement is transmitted
// as a string ("12.4"), occasionally as a bare number, and is null when the
// station did not report it.
//
// # Wire Fields
//
//	stacja               station name, e.g. "Bielsko Biała"
//	temperatura          air temperature, °C
//	wilgotnosc_wzgledna  relative humidity, %
//	cisnienie            pressure, hPa
//	predkosc_wiatru      wind speed, m/s
//	kierunek_wiatru      wind direction, degrees
//	suma_opadu           precipitation sum, mm
//
// Any other key in the record (id_stacji, data_pomiaru, ...) is ignored.
//
// # Cleaning
//
// Each field is coerced to a float. A value that does not parse, or parses to
// NaN or ±Inf, is missing. A record with any missing field is dropped whole;
// nothing is imputed. Surviving records are grouped by the verbatim station
// name and every field is averaged. The feed normally carries one record per
// station, so a group is usually a single reading.
//
// # Feels-Like Temperature
//
// One comfort value is derived per station, see [FeelsLike]:
//
//	T > 20 °C                    Rothfusz heat index (computed in °F)
//	T ≤ 10 °C and V ≥ 4.8 km/h   Environment Canada wind chill
//	otherwise                    the air temperature itself
//
// Wind speed arrives in m/s and is converted with V = 3.6 × m/s. The result is
// rounded to one decimal.
//
// # Coordinates
//
// Station positions come from a static side file keyed by station name. The
// join is exact-string and left-outer: a station missing from the file keeps
// its measurements and has nil latitude and longitude.
package domain
