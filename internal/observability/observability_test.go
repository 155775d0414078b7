package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/trace"
)

func TestLoggerAddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "prod")

	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	log.InfoContext(ctx, "hello")
	log.DebugContext(ctx, "dropped at info level")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1: %s", len(lines), buf.String())
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec["trace_id"] != traceID.String() || rec["span_id"] != spanID.String() {
		t.Fatalf("missing trace attrs: %v", rec)
	}
	if rec["service"] != "userhub" {
		t.Fatalf("missing service attr: %v", rec)
	}
}

func TestObserveDB(t *testing.T) {
	p := NewProm()

	_ = p.ObserveDB("users.get_by_id", func() error { return pgx.ErrNoRows })
	_ = p.ObserveDB("users.create", func() error { return &pgconn.PgError{Code: "23505"} })
	err := p.ObserveDB("users.list", func() error { return context.DeadlineExceeded })

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("ObserveDB must return fn's error, got %v", err)
	}
	if got := testutil.ToFloat64(p.DbErrorsTotal.WithLabelValues("users.create", "unique_violation")); got != 1 {
		t.Fatalf("unique_violation count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.DbErrorsTotal.WithLabelValues("users.list", "timeout")); got != 1 {
		t.Fatalf("timeout count = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(p.DbErrorsTotal); got != 2 {
		t.Fatalf("error series = %d, want 2 (no rows is not an error)", got)
	}
}

func TestPromHandlerExposesRequestMetrics(t *testing.T) {
	p := NewProm()
	p.RequestsTotal.WithLabelValues("GET", "/api/users", "200").Inc()
	p.ObserveCache("hit")

	w := httptest.NewRecorder()
	p.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := w.Body.String()
	for _, want := range []string{"userhub_http_requests_total", "userhub_cache_lookups_total", "go_goroutines"} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %s", want)
		}
	}
}
