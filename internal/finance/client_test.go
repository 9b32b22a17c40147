package finance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/walkingday-ai/walkbot/internal/retry"
	"github.com/walkingday-ai/walkbot/pkg/logger"
)

const dailyBody = `{
	"Meta Data": {
		"1. Information": "Daily Prices",
		"2. Symbol": "NVDA",
		"3. Last Refreshed": "2024-06-03",
		"4. Output Size": "Compact",
		"5. Time Zone": "US/Eastern"
	},
	"Time Series (Daily)": {
		"2024-05-31": {"1. open": "114.0", "2. high": "119.0", "3. low": "113.0", "4. close": "118.0", "5. volume": "900"},
		"2024-06-03": {"1. open": "118.0", "2. high": "122.0", "3. low": "117.0", "4. close": "120.0", "5. volume": "1000"}
	}
}`

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, "test-key", retry.Policy{MaxAttempts: 1}, logger.NewNop())
}

func TestDailySeriesNewestFirst(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("function") != "TIME_SERIES_DAILY" {
			t.Errorf("unexpected function %q", q.Get("function"))
		}
		if q.Get("symbol") != "NVDA" {
			t.Errorf("symbol not forwarded: %q", q.Get("symbol"))
		}
		w.Write([]byte(dailyBody))
	})

	snapshot, err := client.DailySeries(context.Background(), "NVDA")
	if err != nil {
		t.Fatalf("DailySeries: %v", err)
	}
	if snapshot.Symbol != "NVDA" || snapshot.LastRefreshed != "2024-06-03" {
		t.Errorf("metadata not mapped: %+v", snapshot)
	}
	if len(snapshot.Bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(snapshot.Bars))
	}
	if snapshot.Bars[0].Date != "2024-06-03" || snapshot.Bars[1].Date != "2024-05-31" {
		t.Errorf("bars not newest-first: %+v", snapshot.Bars)
	}
	if snapshot.Bars[0].Close != 120 || snapshot.Bars[0].Volume != 1000 {
		t.Errorf("bar values not parsed: %+v", snapshot.Bars[0])
	}
}

func TestDailySeriesErrorBodyIsNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Error Message": "Invalid API call."}`))
	})

	_, err := client.DailySeries(context.Background(), "XXXX")
	if !errors.Is(err, ErrSymbolNotFound) {
		t.Fatalf("expected ErrSymbolNotFound, got %v", err)
	}
}

func TestDailySeriesEmptySeries(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Meta Data": {"2. Symbol": "NVDA"}, "Time Series (Daily)": {}}`))
	})

	_, err := client.DailySeries(context.Background(), "NVDA")
	if !errors.Is(err, ErrNoSeriesData) {
		t.Fatalf("expected ErrNoSeriesData, got %v", err)
	}
}

func TestDailySeriesServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.DailySeries(context.Background(), "NVDA")
	if err == nil {
		t.Fatal("expected error on 500")
	}
	if errors.Is(err, ErrSymbolNotFound) {
		t.Error("a server error is not a not-found")
	}
}

func TestDailySeriesMalformedBar(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Meta Data": {"2. Symbol": "NVDA"}, "Time Series (Daily)": {"2024-06-03": {"1. open": "n/a", "2. high": "1", "3. low": "1", "4. close": "1", "5. volume": "1"}}}`))
	})

	_, err := client.DailySeries(context.Background(), "NVDA")
	if err == nil {
		t.Fatal("expected error on malformed bar")
	}
}

func TestNotFoundIsNotRetried(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"Error Message": "Invalid API call."}`))
	})
	client.policy = retry.Policy{MaxAttempts: 3}

	_, err := client.DailySeries(context.Background(), "XXXX")
	if !errors.Is(err, ErrSymbolNotFound) {
		t.Fatalf("expected ErrSymbolNotFound, got %v", err)
	}
	if calls != 1 {
		t.Errorf("permanent failure must not be retried, got %d calls", calls)
	}
}
