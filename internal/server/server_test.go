package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mkessler/pulsetrack/internal/analyze"
	"github.com/mkessler/pulsetrack/internal/extract"
	"github.com/mkessler/pulsetrack/internal/store"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	return st
}

func seedEntity(t *testing.T, st *store.Store, entity string) {
	t.Helper()
	bundle := &analyze.Bundle{
		Entity: entity,
		Items: []extract.Features{
			{Summary: "launch day...", Engagement: extract.Engagement{Total: 31}},
		},
		Summary: analyze.Summary{
			TotalItems:            1,
			SentimentDistribution: map[string]int{"bullish": 1},
			TotalEngagement:       31,
			AvgEngagement:         31,
		},
		Insights: analyze.Insights{
			EngagementBySentiment: map[string]float64{"bullish": 31},
			EngagementByMedia:     map[string]float64{},
		},
		GeneratedAt: time.Now().UTC(),
	}
	if _, err := st.Store(store.KindAnalyzed, entity, bundle); err != nil {
		t.Fatalf("storing bundle: %v", err)
	}
	if _, err := st.Store(store.KindInsights, entity, analyze.BuildInsights(bundle)); err != nil {
		t.Fatalf("storing insights: %v", err)
	}
}

func TestIndexRoute(t *testing.T) {
	st := testStore(t)
	seedEntity(t, st, "acme")

	srv, err := New(st, nil, nil)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "acme") {
		t.Error("expected entity 'acme' in response body")
	}
	if !strings.Contains(body, "bullish") {
		t.Error("expected dominant sentiment in response body")
	}
}

func TestIndexEmpty(t *testing.T) {
	srv, err := New(testStore(t), nil, nil)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No entities analyzed yet") {
		t.Error("expected empty-state message")
	}
}

func TestEntityRoute(t *testing.T) {
	st := testStore(t)
	seedEntity(t, st, "acme")

	srv, err := New(st, nil, nil)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	req := httptest.NewRequest("GET", "/entity/acme", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Analytics Report: acme") {
		t.Error("expected rendered report heading in response")
	}
	if !strings.Contains(body, "total engagement") {
		t.Error("expected metric cards in response")
	}
}

func TestEntityRouteUnknown(t *testing.T) {
	srv, err := New(testStore(t), nil, nil)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	req := httptest.NewRequest("GET", "/entity/nobody", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestMetricsRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	srv, err := New(testStore(t), nil, reg)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestStaticRoute(t *testing.T) {
	srv, err := New(testStore(t), nil, nil)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	req := httptest.NewRequest("GET", "/static/style.css", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "font-sans") {
		t.Error("expected CSS content")
	}
}
