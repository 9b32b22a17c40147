// Package weather provides an AccuWeather-style forecast client.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/walkingday-ai/walkbot/internal/model"
	"github.com/walkingday-ai/walkbot/internal/retry"
	"github.com/walkingday-ai/walkbot/pkg/logger"
	"github.com/walkingday-ai/walkbot/pkg/metrics"
)

// ErrLocationNotFound is returned when no location matches the city name.
var ErrLocationNotFound = errors.New("no location found for city")

// ErrNoForecastData is returned when the provider answers with an empty payload.
var ErrNoForecastData = errors.New("forecast payload is empty")

const providerName = "accuweather"

// Client calls the weather provider's city-search and hourly-forecast APIs.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	policy     retry.Policy
	logger     *logger.Logger
}

// New creates a weather client.
func New(baseURL, apiKey string, policy retry.Policy, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		policy:     policy,
		logger:     log,
	}
}

type locationResult struct {
	Key           string `json:"Key"`
	LocalizedName string `json:"LocalizedName"`
}

type hourlyForecast struct {
	DateTime    string `json:"DateTime"`
	IconPhrase  string `json:"IconPhrase"`
	Temperature struct {
		Value float64 `json:"Value"`
		Unit  string  `json:"Unit"`
	} `json:"Temperature"`
	PrecipitationProbability int `json:"PrecipitationProbability"`
}

// ResolveLocation resolves a city name to a provider location. The first
// search result wins, matching provider semantics.
func (c *Client) ResolveLocation(ctx context.Context, city string) (model.Location, error) {
	return retry.DoValue(ctx, c.policy, func() (model.Location, error) {
		endpoint := fmt.Sprintf("%s/locations/v1/cities/search?%s", c.baseURL, url.Values{
			"apikey": {c.apiKey},
			"q":      {city},
		}.Encode())

		var results []locationResult
		if err := c.getJSON(ctx, endpoint, &results); err != nil {
			return model.Location{}, err
		}
		if len(results) == 0 {
			c.logger.Warn("no location found", zap.String("city", city))
			return model.Location{}, retry.Permanent(ErrLocationNotFound)
		}

		return model.Location{ID: results[0].Key, Name: results[0].LocalizedName}, nil
	})
}

// Forecast fetches the 12-hour hourly forecast for a location, ordered by
// time ascending as the provider returns it.
func (c *Client) Forecast(ctx context.Context, locationID string) ([]model.WeatherSample, error) {
	return retry.DoValue(ctx, c.policy, func() ([]model.WeatherSample, error) {
		endpoint := fmt.Sprintf("%s/forecasts/v1/hourly/12hour/%s?%s", c.baseURL, url.PathEscape(locationID), url.Values{
			"apikey": {c.apiKey},
			"metric": {"true"},
		}.Encode())

		var hours []hourlyForecast
		if err := c.getJSON(ctx, endpoint, &hours); err != nil {
			return nil, err
		}
		if len(hours) == 0 {
			return nil, ErrNoForecastData
		}

		samples := make([]model.WeatherSample, 0, len(hours))
		for _, h := range hours {
			ts, err := time.Parse(time.RFC3339, h.DateTime)
			if err != nil {
				return nil, fmt.Errorf("failed to parse forecast time %q: %w", h.DateTime, err)
			}
			samples = append(samples, model.WeatherSample{
				Time:                        ts,
				TemperatureC:                h.Temperature.Value,
				Condition:                   h.IconPhrase,
				PrecipitationProbabilityPct: h.PrecipitationProbability,
			})
		}
		return samples, nil
	})
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordProviderRequest(providerName, "error", time.Since(start).Seconds())
		return fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordProviderRequest(providerName, http.StatusText(resp.StatusCode), time.Since(start).Seconds())
		c.logger.Error("weather provider returned non-success status",
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("weather provider status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.RecordProviderRequest(providerName, "decode_error", time.Since(start).Seconds())
		return fmt.Errorf("failed to decode weather payload: %w", err)
	}

	metrics.RecordProviderRequest(providerName, "success", time.Since(start).Seconds())
	return nil
}
