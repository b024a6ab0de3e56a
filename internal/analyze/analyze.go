package analyze

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/mkessler/pulsetrack/internal/extract"
	"github.com/mkessler/pulsetrack/internal/fetch"
)

// Extractor derives features from one item. The production implementation
// is extract.Extractor.
type Extractor interface {
	Extract(ctx context.Context, item fetch.Item) (extract.Features, error)
}

// Summary holds per-entity aggregates over one analysis run.
type Summary struct {
	TotalItems            int            `json:"total_items"`
	SentimentDistribution map[string]int `json:"sentiment_distribution"`
	TotalEngagement       int            `json:"total_engagement"`
	AvgEngagement         float64        `json:"average_engagement"`
	TotalWords            int            `json:"total_words"`
	TotalHashtags         int            `json:"total_hashtags"`
	TotalMentions         int            `json:"total_mentions"`
	ItemsWithMedia        int            `json:"items_with_media"`
	MediaPercentage       float64        `json:"media_percentage"`
}

// Insights holds the derived patterns over one analysis run.
type Insights struct {
	TopByEngagement       []extract.Features        `json:"top_by_engagement"`
	DailyPostCounts       map[string]int            `json:"daily_post_counts"`
	HourlyHistogram       map[int]int               `json:"hourly_histogram"`
	MostActiveHour        *int                      `json:"most_active_hour,omitempty"`
	SentimentByDay        map[string]map[string]int `json:"sentiment_by_day"`
	EngagementBySentiment map[string]float64        `json:"engagement_by_sentiment"`
	EngagementByMedia     map[string]float64        `json:"engagement_by_media"`
	Recommendations       []string                  `json:"recommendations"`
}

// Bundle is the complete analysis output for one entity and one run.
// Immutable after persistence; item order is fetch order.
type Bundle struct {
	Entity      string             `json:"entity"`
	Items       []extract.Features `json:"items"`
	Summary     Summary            `json:"summary"`
	Insights    Insights           `json:"insights"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// Thresholds are the recommendation and ranking cutoffs. Zero values select
// the defaults.
type Thresholds struct {
	TopK               int
	MinAvgEngagement   float64
	MinMediaPercentage float64
	MaxNeutralRatio    float64
}

func (t Thresholds) withDefaults() Thresholds {
	if t.TopK <= 0 {
		t.TopK = 5
	}
	if t.MinAvgEngagement <= 0 {
		t.MinAvgEngagement = 10
	}
	if t.MinMediaPercentage <= 0 {
		t.MinMediaPercentage = 30
	}
	if t.MaxNeutralRatio <= 0 {
		t.MaxNeutralRatio = 0.70
	}
	return t
}

// Recommendation rules fire in fixed order; the output list preserves it.
const (
	recEngagement = "Consider posting more engaging content to increase interaction rates"
	recMedia      = "Increase media usage in posts to boost engagement"
	recEmotion    = "Consider adding more emotional content to increase engagement"
	recTiming     = "Analyze optimal posting times based on engagement patterns"
)

// Analyzer folds item features into entity bundles.
type Analyzer struct {
	extractor  Extractor
	thresholds Thresholds
}

// New creates an Analyzer.
func New(extractor Extractor, thresholds Thresholds) *Analyzer {
	return &Analyzer{extractor: extractor, thresholds: thresholds.withDefaults()}
}

// Analyze derives an entity bundle from a sequence of items. A single
// item's extraction failure leaves a degraded neutral entry instead of
// aborting the run; empty input yields a zeroed bundle with no
// recommendations.
func (a *Analyzer) Analyze(ctx context.Context, entity string, items []fetch.Item) *Bundle {
	bundle := &Bundle{
		Entity:      entity,
		GeneratedAt: time.Now().UTC(),
		Summary: Summary{
			SentimentDistribution: make(map[string]int),
		},
		Insights: Insights{
			DailyPostCounts: make(map[string]int),
			HourlyHistogram: make(map[int]int),
			SentimentByDay:  make(map[string]map[string]int),
			EngagementBySentiment: map[string]float64{
				extract.LabelBullish: 0,
				extract.LabelBearish: 0,
				extract.LabelNeutral: 0,
			},
			EngagementByMedia: map[string]float64{
				"with_media":    0,
				"without_media": 0,
			},
		},
	}

	if len(items) == 0 {
		return bundle
	}

	for _, item := range items {
		f, err := a.extractor.Extract(ctx, item)
		if err != nil {
			log.Printf("Extraction failed for item %s of %s, recording degraded features: %v", item.ID, entity, err)
			f = extract.Degraded(item)
		}
		bundle.Items = append(bundle.Items, f)
	}

	a.summarize(bundle)
	a.deriveInsights(bundle)
	bundle.Insights.Recommendations = a.recommend(bundle)
	return bundle
}

func (a *Analyzer) summarize(b *Bundle) {
	s := &b.Summary
	s.TotalItems = len(b.Items)

	for _, f := range b.Items {
		s.SentimentDistribution[f.Sentiment.Label]++
		s.TotalEngagement += f.Engagement.Total
		s.TotalWords += f.TextStats.WordCount
		s.TotalHashtags += len(f.TextStats.Hashtags)
		s.TotalMentions += len(f.TextStats.Mentions)
		if f.Media.HasMedia {
			s.ItemsWithMedia++
		}
	}

	n := s.TotalItems
	if n < 1 {
		n = 1
	}
	s.AvgEngagement = float64(s.TotalEngagement) / float64(n)
	s.MediaPercentage = float64(s.ItemsWithMedia) / float64(n) * 100
}

func (a *Analyzer) deriveInsights(b *Bundle) {
	in := &b.Insights

	// Temporal histograms. Items with unparseable created_at are excluded
	// here but still count everywhere else.
	for _, f := range b.Items {
		t, err := fetch.ParseCreatedAt(f.CreatedAt)
		if err != nil {
			continue
		}
		day := t.UTC().Format("2006-01-02")
		in.DailyPostCounts[day]++
		in.HourlyHistogram[t.UTC().Hour()]++

		if in.SentimentByDay[day] == nil {
			in.SentimentByDay[day] = map[string]int{
				extract.LabelBullish: 0,
				extract.LabelBearish: 0,
				extract.LabelNeutral: 0,
			}
		}
		in.SentimentByDay[day][f.Sentiment.Label]++
	}
	in.MostActiveHour = mostActiveHour(in.HourlyHistogram)

	// Top-k by total engagement, stable for ties.
	top := make([]extract.Features, len(b.Items))
	copy(top, b.Items)
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].Engagement.Total > top[j].Engagement.Total
	})
	if len(top) > a.thresholds.TopK {
		top = top[:a.thresholds.TopK]
	}
	in.TopByEngagement = top

	// Mean engagement grouped by sentiment and media presence. Empty
	// groups stay 0.
	sums := make(map[string]int)
	counts := make(map[string]int)
	var withSum, withCount, withoutSum, withoutCount int
	for _, f := range b.Items {
		sums[f.Sentiment.Label] += f.Engagement.Total
		counts[f.Sentiment.Label]++
		if f.Media.HasMedia {
			withSum += f.Engagement.Total
			withCount++
		} else {
			withoutSum += f.Engagement.Total
			withoutCount++
		}
	}
	for label, count := range counts {
		in.EngagementBySentiment[label] = float64(sums[label]) / float64(count)
	}
	if withCount > 0 {
		in.EngagementByMedia["with_media"] = float64(withSum) / float64(withCount)
	}
	if withoutCount > 0 {
		in.EngagementByMedia["without_media"] = float64(withoutSum) / float64(withoutCount)
	}
}

func (a *Analyzer) recommend(b *Bundle) []string {
	var recs []string

	if b.Summary.AvgEngagement < a.thresholds.MinAvgEngagement {
		recs = append(recs, recEngagement)
	}
	if b.Summary.MediaPercentage < a.thresholds.MinMediaPercentage {
		recs = append(recs, recMedia)
	}
	if b.Summary.TotalItems > 0 {
		neutralRatio := float64(b.Summary.SentimentDistribution[extract.LabelNeutral]) / float64(b.Summary.TotalItems)
		if neutralRatio > a.thresholds.MaxNeutralRatio {
			recs = append(recs, recEmotion)
		}
	}
	if len(b.Insights.DailyPostCounts) > 0 {
		recs = append(recs, recTiming)
	}

	return recs
}

// mostActiveHour returns the hour with the highest post count, ties broken
// by the smallest hour. Nil when the histogram is empty.
func mostActiveHour(hist map[int]int) *int {
	best := -1
	bestCount := 0
	for hour := 0; hour < 24; hour++ {
		if count, ok := hist[hour]; ok && count > bestCount {
			best = hour
			bestCount = count
		}
	}
	if best < 0 {
		return nil
	}
	return &best
}
