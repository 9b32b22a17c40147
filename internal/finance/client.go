// Package finance provides an Alpha Vantage-style daily series client.
package finance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/walkingday-ai/walkbot/internal/model"
	"github.com/walkingday-ai/walkbot/internal/retry"
	"github.com/walkingday-ai/walkbot/pkg/logger"
	"github.com/walkingday-ai/walkbot/pkg/metrics"
)

// ErrSymbolNotFound is returned when the provider rejects the symbol.
var ErrSymbolNotFound = errors.New("unknown stock symbol")

// ErrNoSeriesData is returned when the payload carries no daily bars.
var ErrNoSeriesData = errors.New("daily series payload is empty")

const providerName = "alphavantage"

// Client calls the finance provider's daily time series API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	policy     retry.Policy
	logger     *logger.Logger
}

// New creates a finance client.
func New(baseURL, apiKey string, policy retry.Policy, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		policy:     policy,
		logger:     log,
	}
}

type dailyPayload struct {
	MetaData struct {
		Symbol        string `json:"2. Symbol"`
		LastRefreshed string `json:"3. Last Refreshed"`
		Timezone      string `json:"5. Time Zone"`
	} `json:"Meta Data"`
	Series map[string]struct {
		Open   string `json:"1. open"`
		High   string `json:"2. high"`
		Low    string `json:"3. low"`
		Close  string `json:"4. close"`
		Volume string `json:"5. volume"`
	} `json:"Time Series (Daily)"`
	ErrorMessage string `json:"Error Message"`
}

// DailySeries fetches the daily bars for a symbol. Bars in the returned
// snapshot are ordered most-recent-first.
func (c *Client) DailySeries(ctx context.Context, symbol string) (model.StockSnapshot, error) {
	return retry.DoValue(ctx, c.policy, func() (model.StockSnapshot, error) {
		start := time.Now()

		endpoint := fmt.Sprintf("%s/query?%s", c.baseURL, url.Values{
			"function": {"TIME_SERIES_DAILY"},
			"symbol":   {symbol},
			"apikey":   {c.apiKey},
		}.Encode())

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return model.StockSnapshot{}, fmt.Errorf("failed to build request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			metrics.RecordProviderRequest(providerName, "error", time.Since(start).Seconds())
			return model.StockSnapshot{}, fmt.Errorf("finance request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			metrics.RecordProviderRequest(providerName, http.StatusText(resp.StatusCode), time.Since(start).Seconds())
			c.logger.Error("finance provider returned non-success status",
				zap.Int("status", resp.StatusCode))
			return model.StockSnapshot{}, fmt.Errorf("finance provider status %d", resp.StatusCode)
		}

		var payload dailyPayload
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			metrics.RecordProviderRequest(providerName, "decode_error", time.Since(start).Seconds())
			return model.StockSnapshot{}, fmt.Errorf("failed to decode finance payload: %w", err)
		}

		// The provider reports bad symbols as 200 with an error body.
		if payload.ErrorMessage != "" {
			metrics.RecordProviderRequest(providerName, "not_found", time.Since(start).Seconds())
			c.logger.Warn("symbol rejected by provider", zap.String("symbol", symbol))
			return model.StockSnapshot{}, retry.Permanent(ErrSymbolNotFound)
		}
		if len(payload.Series) == 0 {
			metrics.RecordProviderRequest(providerName, "empty", time.Since(start).Seconds())
			return model.StockSnapshot{}, ErrNoSeriesData
		}

		metrics.RecordProviderRequest(providerName, "success", time.Since(start).Seconds())
		return buildSnapshot(payload)
	})
}

func buildSnapshot(payload dailyPayload) (model.StockSnapshot, error) {
	dates := make([]string, 0, len(payload.Series))
	for date := range payload.Series {
		dates = append(dates, date)
	}
	// Dates are ISO formatted, so lexical descending order is newest-first.
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	bars := make([]model.DailyBar, 0, len(dates))
	for _, date := range dates {
		raw := payload.Series[date]
		bar, err := parseBar(date, raw.Open, raw.High, raw.Low, raw.Close, raw.Volume)
		if err != nil {
			return model.StockSnapshot{}, err
		}
		bars = append(bars, bar)
	}

	return model.StockSnapshot{
		Symbol:        payload.MetaData.Symbol,
		LastRefreshed: payload.MetaData.LastRefreshed,
		Timezone:      payload.MetaData.Timezone,
		Bars:          bars,
	}, nil
}

func parseBar(date, open, high, low, close, volume string) (model.DailyBar, error) {
	bar := model.DailyBar{Date: date}
	var err error
	if bar.Open, err = strconv.ParseFloat(open, 64); err != nil {
		return bar, fmt.Errorf("bad open for %s: %w", date, err)
	}
	if bar.High, err = strconv.ParseFloat(high, 64); err != nil {
		return bar, fmt.Errorf("bad high for %s: %w", date, err)
	}
	if bar.Low, err = strconv.ParseFloat(low, 64); err != nil {
		return bar, fmt.Errorf("bad low for %s: %w", date, err)
	}
	if bar.Close, err = strconv.ParseFloat(close, 64); err != nil {
		return bar, fmt.Errorf("bad close for %s: %w", date, err)
	}
	if bar.Volume, err = strconv.ParseInt(volume, 10, 64); err != nil {
		return bar, fmt.Errorf("bad volume for %s: %w", date, err)
	}
	return bar, nil
}
