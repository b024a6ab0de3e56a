// Package report turns analysis bundles into human-readable reports.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/mkessler/pulsetrack/internal/analyze"
)

var md = goldmark.New()

// Report is the persisted report artifact for one entity run.
type Report struct {
	Entity      string    `json:"entity"`
	GeneratedAt time.Time `json:"generated_at"`
	Markdown    string    `json:"markdown"`
}

// Build assembles a markdown report from an analysis bundle and its
// derived insights.
func Build(b *analyze.Bundle, insights *analyze.InsightsReport) *Report {
	var sections []string

	sections = append(sections, fmt.Sprintf("# Analytics Report: %s", b.Entity))
	sections = append(sections, keyMetricsSection(insights))
	sections = append(sections, sentimentSection(insights))
	sections = append(sections, engagementSection(b, insights))
	if len(b.Insights.TopByEngagement) > 0 {
		sections = append(sections, topPostsSection(b))
	}
	if len(b.Insights.DailyPostCounts) > 0 {
		sections = append(sections, activitySection(b))
	}
	sections = append(sections, recommendationsSection(insights))

	return &Report{
		Entity:      b.Entity,
		GeneratedAt: time.Now().UTC(),
		Markdown:    strings.Join(sections, "\n\n"),
	}
}

// HTML renders the report's markdown body to HTML.
func (r *Report) HTML() (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(r.Markdown), &buf); err != nil {
		return "", fmt.Errorf("rendering report for %s: %w", r.Entity, err)
	}
	return buf.String(), nil
}

func keyMetricsSection(insights *analyze.InsightsReport) string {
	km := insights.KeyMetrics
	return strings.Join([]string{
		"## Key Metrics",
		"",
		fmt.Sprintf("- Total posts analyzed: %d", km.TotalItems),
		fmt.Sprintf("- Total engagement: %d", km.TotalEngagement),
		fmt.Sprintf("- Average engagement per post: %.1f", km.AvgEngagement),
		fmt.Sprintf("- Posts with media: %.1f%%", km.MediaPercentage),
	}, "\n")
}

func sentimentSection(insights *analyze.InsightsReport) string {
	si := insights.Sentiment
	lines := []string{
		"## Sentiment",
		"",
		fmt.Sprintf("Dominant sentiment: **%s**", si.Dominant),
		"",
	}
	for _, label := range []string{"bullish", "bearish", "neutral"} {
		lines = append(lines, fmt.Sprintf("- %s: %.1f%%", label, si.Percentages[label]))
	}
	return strings.Join(lines, "\n")
}

func engagementSection(b *analyze.Bundle, insights *analyze.InsightsReport) string {
	lines := []string{"## Engagement Drivers", ""}
	if best := insights.Engagement.BestSentiment; best != "" {
		lines = append(lines, fmt.Sprintf("Best performing sentiment: **%s** (%.1f avg engagement)",
			best, b.Insights.EngagementBySentiment[best]))
		lines = append(lines, "")
	}
	withMedia := insights.Engagement.MediaImpact["with_media"]
	withoutMedia := insights.Engagement.MediaImpact["without_media"]
	lines = append(lines,
		fmt.Sprintf("- Posts with media: %.1f avg engagement", withMedia),
		fmt.Sprintf("- Posts without media: %.1f avg engagement", withoutMedia),
	)
	return strings.Join(lines, "\n")
}

func topPostsSection(b *analyze.Bundle) string {
	lines := []string{"## Top Posts by Engagement", ""}
	for i, f := range b.Insights.TopByEngagement {
		lines = append(lines, fmt.Sprintf("%d. %s (%d engagement)", i+1, f.Summary, f.Engagement.Total))
	}
	return strings.Join(lines, "\n")
}

func activitySection(b *analyze.Bundle) string {
	lines := []string{"## Posting Activity", ""}
	if b.Insights.MostActiveHour != nil {
		lines = append(lines, fmt.Sprintf("Most active hour: %02d:00", *b.Insights.MostActiveHour))
		lines = append(lines, "")
	}

	days := make([]string, 0, len(b.Insights.DailyPostCounts))
	for day := range b.Insights.DailyPostCounts {
		days = append(days, day)
	}
	sort.Strings(days)
	for _, day := range days {
		lines = append(lines, fmt.Sprintf("- %s: %d posts", day, b.Insights.DailyPostCounts[day]))
	}
	return strings.Join(lines, "\n")
}

func recommendationsSection(insights *analyze.InsightsReport) string {
	lines := []string{"## Recommendations", ""}
	if len(insights.Recommendations) == 0 {
		lines = append(lines, "No recommendations. Current posting strategy is performing well.")
		return strings.Join(lines, "\n")
	}
	for _, rec := range insights.Recommendations {
		lines = append(lines, "- "+rec)
	}
	return strings.Join(lines, "\n")
}
