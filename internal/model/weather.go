package model

import (
	"time"
)

// Location is a resolved weather-provider location.
type Location struct {
	ID   string
	Name string
}

// WeatherSample is one hourly forecast data point, ordered by time ascending
// as returned by the provider.
type WeatherSample struct {
	Time                        time.Time
	TemperatureC                float64
	Condition                   string
	PrecipitationProbabilityPct int
}
