package server

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mkessler/pulsetrack/internal/analyze"
	"github.com/mkessler/pulsetrack/internal/database"
	"github.com/mkessler/pulsetrack/internal/report"
	"github.com/mkessler/pulsetrack/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Server is the HTTP server for browsing entity analytics.
type Server struct {
	store *store.Store
	db    *database.DB
	pages map[string]*template.Template
	mux   *http.ServeMux
}

// New creates a new Server. db may be nil, in which case run history is
// not shown. gatherer may be nil to disable the /metrics endpoint.
func New(st *store.Store, db *database.DB, gatherer prometheus.Gatherer) (*Server, error) {
	funcMap := template.FuncMap{
		"percent": func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// For each page template, clone the base and parse the page into the clone.
	// This gives each page its own {{define "content"}} and {{define "title"}}.
	pageNames := []string{"index.html", "entity.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{store: st, db: db, pages: pages, mux: http.NewServeMux()}
	s.routes(gatherer)
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes(gatherer prometheus.Gatherer) {
	// Static files
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	// Routes
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/entity/", s.handleEntity)

	if gatherer != nil {
		s.mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
}

// entitySummary is the index row for one entity.
type entitySummary struct {
	Entity        string
	TotalItems    int
	AvgEngagement float64
	Dominant      string
	GeneratedAt   string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	entities, err := s.store.Entities(store.KindInsights)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	sort.Strings(entities)

	summaries := make([]entitySummary, 0, len(entities))
	for _, entity := range entities {
		var insights analyze.InsightsReport
		found, err := s.store.RetrieveLatest(entity, store.KindInsights, &insights)
		if err != nil || !found {
			continue
		}
		summaries = append(summaries, entitySummary{
			Entity:        entity,
			TotalItems:    insights.KeyMetrics.TotalItems,
			AvgEngagement: insights.KeyMetrics.AvgEngagement,
			Dominant:      insights.Sentiment.Dominant,
			GeneratedAt:   insights.GeneratedAt.Format("2006-01-02 15:04"),
		})
	}

	var recentRuns []database.Run
	if s.db != nil {
		recentRuns, _ = s.db.GetRecentRuns(10)
	}

	s.render(w, "index.html", map[string]any{
		"Entities": summaries,
		"Runs":     recentRuns,
	})
}

func (s *Server) handleEntity(w http.ResponseWriter, r *http.Request) {
	entity := strings.TrimPrefix(r.URL.Path, "/entity/")
	if entity == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	var bundle analyze.Bundle
	found, err := s.store.RetrieveLatest(entity, store.KindAnalyzed, &bundle)
	if err != nil {
		log.Printf("Retrieving analysis for %s: %v", entity, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if !found {
		http.NotFound(w, r)
		return
	}

	insights := analyze.BuildInsights(&bundle)
	rep := report.Build(&bundle, insights)
	html, err := rep.HTML()
	if err != nil {
		log.Printf("Rendering report for %s: %v", entity, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, "entity.html", map[string]any{
		"Entity":   entity,
		"Insights": insights,
		"Report":   template.HTML(html), //nolint: gosec
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
	}
}

// Serve starts the HTTP server on the given port.
func Serve(st *store.Store, db *database.DB, gatherer prometheus.Gatherer, port int) error {
	srv, err := New(st, db, gatherer)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
