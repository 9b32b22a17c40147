package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/walkingday-ai/walkbot/pkg/logger"
	"github.com/walkingday-ai/walkbot/pkg/metrics"
)

const secretToken = "7123456789:AAE-SECRET-BOT-TOKEN"

func newObservedLogger() (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.InfoLevel)
	return &logger.Logger{Logger: zap.New(core)}, logs
}

func loggedPathField(t *testing.T, logs *observer.ObservedLogs) string {
	t.Helper()
	entries := logs.FilterMessage("request completed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one request log entry, got %d", len(entries))
	}
	for _, field := range entries[0].Context {
		if field.Key == "path" {
			return field.String
		}
	}
	t.Fatal("request log entry has no path field")
	return ""
}

func TestLoggingUsesRoutePatternForWebhookPath(t *testing.T) {
	log, logs := newObservedLogger()

	r := chi.NewRouter()
	r.Use(Logging(log))
	r.Route("/webhook/{token}", func(r chi.Router) {
		r.Post("/", func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	req := httptest.NewRequest(http.MethodPost, "/webhook/"+secretToken+"/", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	path := loggedPathField(t, logs)
	if strings.Contains(path, secretToken) {
		t.Fatalf("bot token leaked into request log path field: %q", path)
	}
	if path != "/webhook/{token}/" {
		t.Errorf("expected the route pattern, got %q", path)
	}

	count := testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues(http.MethodPost, "/webhook/{token}/", http.StatusText(http.StatusOK)))
	if count < 1 {
		t.Error("request not counted under the route pattern label")
	}
	leaked := testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues(http.MethodPost, "/webhook/"+secretToken+"/", http.StatusText(http.StatusOK)))
	if leaked != 0 {
		t.Error("bot token leaked into the path metric label")
	}
}

func TestLoggingRedactsUnmatchedWebhookPath(t *testing.T) {
	log, logs := newObservedLogger()

	r := chi.NewRouter()
	r.Use(Logging(log))
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {})

	// Wrong method against the webhook prefix never matches a route, so the
	// fallback must still hide the token.
	req := httptest.NewRequest(http.MethodGet, "/webhook/"+secretToken+"/", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	path := loggedPathField(t, logs)
	if strings.Contains(path, secretToken) {
		t.Fatalf("bot token leaked into request log path field: %q", path)
	}
	if path != "/webhook/{token}" {
		t.Errorf("expected the redacted webhook path, got %q", path)
	}
}

func TestLoggingKeepsPlainPaths(t *testing.T) {
	log, logs := newObservedLogger()

	r := chi.NewRouter()
	r.Use(Logging(log))
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	if path := loggedPathField(t, logs); path != "/health" {
		t.Errorf("expected /health, got %q", path)
	}
}
