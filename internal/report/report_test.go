package report

import (
	"strings"
	"testing"

	"github.com/mkessler/pulsetrack/internal/analyze"
	"github.com/mkessler/pulsetrack/internal/extract"
)

func sampleBundle() *analyze.Bundle {
	hour := 15
	return &analyze.Bundle{
		Entity: "acme",
		Summary: analyze.Summary{
			TotalItems:            2,
			SentimentDistribution: map[string]int{"bullish": 1, "bearish": 0, "neutral": 1},
			TotalEngagement:       48,
			AvgEngagement:         24,
			MediaPercentage:       50,
		},
		Insights: analyze.Insights{
			TopByEngagement: []extract.Features{
				{Summary: "big launch announcement...", Engagement: extract.Engagement{Total: 31}},
				{Summary: "quarterly update...", Engagement: extract.Engagement{Total: 17}},
			},
			DailyPostCounts:       map[string]int{"2026-08-30": 1, "2026-08-31": 1},
			MostActiveHour:        &hour,
			EngagementBySentiment: map[string]float64{"bullish": 31, "neutral": 17},
			EngagementByMedia:     map[string]float64{"with_media": 31, "without_media": 17},
			Recommendations:       []string{"Increase media usage in posts to boost engagement"},
		},
	}
}

func TestBuild(t *testing.T) {
	b := sampleBundle()
	r := Build(b, analyze.BuildInsights(b))

	if r.Entity != "acme" {
		t.Errorf("entity = %q", r.Entity)
	}
	for _, want := range []string{
		"# Analytics Report: acme",
		"Total posts analyzed: 2",
		"Average engagement per post: 24.0",
		"## Top Posts by Engagement",
		"1. big launch announcement... (31 engagement)",
		"Most active hour: 15:00",
		"- 2026-08-30: 1 posts",
		"Increase media usage in posts to boost engagement",
	} {
		if !strings.Contains(r.Markdown, want) {
			t.Errorf("markdown missing %q", want)
		}
	}

	// Daily counts come out in date order.
	first := strings.Index(r.Markdown, "2026-08-30")
	second := strings.Index(r.Markdown, "2026-08-31")
	if first == -1 || second == -1 || first > second {
		t.Error("daily counts not sorted by date")
	}
}

func TestBuildEmptyBundle(t *testing.T) {
	b := &analyze.Bundle{
		Entity: "acme",
		Summary: analyze.Summary{
			SentimentDistribution: map[string]int{},
		},
		Insights: analyze.Insights{
			EngagementBySentiment: map[string]float64{},
			EngagementByMedia:     map[string]float64{},
		},
	}
	r := Build(b, analyze.BuildInsights(b))

	if strings.Contains(r.Markdown, "## Top Posts") {
		t.Error("empty bundle should not have a top posts section")
	}
	if !strings.Contains(r.Markdown, "No recommendations") {
		t.Error("empty bundle should report no recommendations")
	}
}

func TestHTML(t *testing.T) {
	b := sampleBundle()
	r := Build(b, analyze.BuildInsights(b))

	html, err := r.HTML()
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	if !strings.Contains(html, "<h1") {
		t.Errorf("rendered HTML missing heading: %q", html[:min(len(html), 200)])
	}
	if !strings.Contains(html, "acme") {
		t.Error("rendered HTML missing entity name")
	}
}
