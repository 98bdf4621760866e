package models

import (
	"fmt"
	"time"
)

// Coordinate is a latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Key returns the normalized cache key: both axes rounded to 4 decimal places,
// so requests within roughly 11m share an entry.
func (c Coordinate) Key() string {
	return fmt.Sprintf("%.4f,%.4f", c.Lat, c.Lon)
}

// Forecast is the subset of the met.no locationforecast payload the service reads.
type Forecast struct {
	Properties struct {
		Timeseries []TimeseriesPoint `json:"timeseries"`
	} `json:"properties"`
}

// TimeseriesPoint is a single forecast instant. Time is UTC as sent upstream.
type TimeseriesPoint struct {
	Time time.Time `json:"time"`
	Data struct {
		Instant struct {
			Details InstantDetails `json:"details"`
		} `json:"instant"`
	} `json:"data"`
}

// InstantDetails holds instant readings. AirTemperature is nil when upstream omits it.
type InstantDetails struct {
	AirTemperature *float64 `json:"air_temperature,omitempty"`
}

// DailyTemperature is the 14:00 local reading for one calendar date.
type DailyTemperature struct {
	Date        string  `json:"date"`
	Temperature float64 `json:"temperature"`
}

// ForecastResult is returned by the forecast service. Exactly one of
// Temperatures and ErrorMessage is non-nil.
type ForecastResult struct {
	Temperatures []DailyTemperature `json:"temperatures"`
	ErrorMessage *string            `json:"error_message"`
}

// Failed builds an error result.
func Failed(message string) ForecastResult {
	return ForecastResult{ErrorMessage: &message}
}

// Succeeded builds a success result; a nil slice is normalized to empty.
func Succeeded(temps []DailyTemperature) ForecastResult {
	if temps == nil {
		temps = []DailyTemperature{}
	}
	return ForecastResult{Temperatures: temps}
}

// GeocodeResult is one element of a Nominatim search response.
type GeocodeResult struct {
	Lat *string `json:"lat"`
	Lon *string `json:"lon"`
}
