package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/walkingday-ai/walkbot/internal/retry"
	"github.com/walkingday-ai/walkbot/pkg/logger"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, "test-key", retry.Policy{MaxAttempts: 1}, logger.NewNop()), srv
}

func TestResolveLocationFirstResultWins(t *testing.T) {
	var gotQuery string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/locations/v1/cities/search" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		gotQuery = r.URL.Query().Get("q")
		if r.URL.Query().Get("apikey") != "test-key" {
			t.Error("api key not sent")
		}
		w.Write([]byte(`[{"Key":"12345","LocalizedName":"Atlanta"},{"Key":"99999","LocalizedName":"Atlanta, TX"}]`))
	})

	loc, err := client.ResolveLocation(context.Background(), "Atlanta")
	if err != nil {
		t.Fatalf("ResolveLocation: %v", err)
	}
	if gotQuery != "Atlanta" {
		t.Errorf("query not forwarded: %q", gotQuery)
	}
	if loc.ID != "12345" || loc.Name != "Atlanta" {
		t.Errorf("expected first result, got %+v", loc)
	}
}

func TestResolveLocationEmptyResult(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := client.ResolveLocation(context.Background(), "Nowhereville")
	if !errors.Is(err, ErrLocationNotFound) {
		t.Fatalf("expected ErrLocationNotFound, got %v", err)
	}
}

func TestResolveLocationServerError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.ResolveLocation(context.Background(), "Atlanta")
	if err == nil {
		t.Fatal("expected error on 503")
	}
	if errors.Is(err, ErrLocationNotFound) {
		t.Error("a server error is not a not-found")
	}
}

func TestForecastParsesSamples(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forecasts/v1/hourly/12hour/12345" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("metric") != "true" {
			t.Error("metric flag not sent")
		}
		w.Write([]byte(`[
			{"DateTime":"2024-06-01T08:00:00-04:00","IconPhrase":"Sunny","Temperature":{"Value":21.5,"Unit":"C"},"PrecipitationProbability":5},
			{"DateTime":"2024-06-01T09:00:00-04:00","IconPhrase":"Cloudy","Temperature":{"Value":23.0,"Unit":"C"},"PrecipitationProbability":40}
		]`))
	})

	samples, err := client.Forecast(context.Background(), "12345")
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	first := samples[0]
	if first.TemperatureC != 21.5 || first.Condition != "Sunny" || first.PrecipitationProbabilityPct != 5 {
		t.Errorf("unexpected first sample %+v", first)
	}
	if first.Time.Hour() != 8 {
		t.Errorf("expected local hour 8, got %d", first.Time.Hour())
	}
}

func TestForecastEmptyPayload(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := client.Forecast(context.Background(), "12345")
	if !errors.Is(err, ErrNoForecastData) {
		t.Fatalf("expected ErrNoForecastData, got %v", err)
	}
}

func TestForecastBadTimestamp(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"DateTime":"yesterday","IconPhrase":"Sunny","Temperature":{"Value":20,"Unit":"C"},"PrecipitationProbability":0}]`))
	})

	_, err := client.Forecast(context.Background(), "12345")
	if err == nil {
		t.Fatal("expected error on unparseable timestamp")
	}
}

func TestResolveLocationRetriesTransientFailures(t *testing.T) {
	var calls int
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[{"Key":"1","LocalizedName":"Oslo"}]`))
	})
	client.policy = retry.Policy{MaxAttempts: 3}

	loc, err := client.ResolveLocation(context.Background(), "Oslo")
	if err != nil {
		t.Fatalf("ResolveLocation: %v", err)
	}
	if loc.ID != "1" {
		t.Errorf("unexpected location %+v", loc)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}
