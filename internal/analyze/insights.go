package analyze

import (
	"time"

	"github.com/mkessler/pulsetrack/internal/extract"
)

// KeyMetrics are the headline numbers of an insights report.
type KeyMetrics struct {
	TotalItems      int     `json:"total_items"`
	TotalEngagement int     `json:"total_engagement"`
	AvgEngagement   float64 `json:"average_engagement"`
	MediaPercentage float64 `json:"media_usage_percentage"`
}

// SentimentInsights summarizes the sentiment mix.
type SentimentInsights struct {
	Dominant    string             `json:"dominant_sentiment"`
	Percentages map[string]float64 `json:"sentiment_distribution"`
	Balance     int                `json:"sentiment_balance"` // |bullish - bearish|
}

// EngagementInsights summarizes what drives engagement.
type EngagementInsights struct {
	BestSentiment string             `json:"best_performing_sentiment,omitempty"`
	MediaImpact   map[string]float64 `json:"media_impact"`
}

// ContentInsights summarizes content habits.
type ContentInsights struct {
	AvgWords        float64 `json:"average_words"`
	HashtagUsage    int     `json:"hashtag_usage"`
	MentionUsage    int     `json:"mention_usage"`
	InteractionRate float64 `json:"interaction_rate"` // mentions per item
}

// InsightsReport is the persisted insights artifact for one entity run.
type InsightsReport struct {
	Entity          string             `json:"entity"`
	GeneratedAt     time.Time          `json:"generated_at"`
	KeyMetrics      KeyMetrics         `json:"key_metrics"`
	Sentiment       SentimentInsights  `json:"sentiment_insights"`
	Engagement      EngagementInsights `json:"engagement_insights"`
	Content         ContentInsights    `json:"content_insights"`
	Recommendations []string           `json:"recommendations"`
}

// BuildInsights derives the insights report from an analysis bundle.
func BuildInsights(b *Bundle) *InsightsReport {
	r := &InsightsReport{
		Entity:      b.Entity,
		GeneratedAt: time.Now().UTC(),
		KeyMetrics: KeyMetrics{
			TotalItems:      b.Summary.TotalItems,
			TotalEngagement: b.Summary.TotalEngagement,
			AvgEngagement:   b.Summary.AvgEngagement,
			MediaPercentage: b.Summary.MediaPercentage,
		},
		Recommendations: b.Insights.Recommendations,
	}

	r.Sentiment = sentimentInsights(b)
	r.Engagement = engagementInsights(b)
	r.Content = contentInsights(b)
	return r
}

func sentimentInsights(b *Bundle) SentimentInsights {
	si := SentimentInsights{
		Dominant:    extract.LabelNeutral,
		Percentages: make(map[string]float64),
	}
	total := b.Summary.TotalItems
	if total == 0 {
		return si
	}

	best := 0
	for _, label := range []string{extract.LabelBullish, extract.LabelBearish, extract.LabelNeutral} {
		count := b.Summary.SentimentDistribution[label]
		if count > best {
			best = count
			si.Dominant = label
		}
		si.Percentages[label] = float64(count) / float64(total) * 100
	}

	balance := b.Summary.SentimentDistribution[extract.LabelBullish] - b.Summary.SentimentDistribution[extract.LabelBearish]
	if balance < 0 {
		balance = -balance
	}
	si.Balance = balance
	return si
}

func engagementInsights(b *Bundle) EngagementInsights {
	ei := EngagementInsights{MediaImpact: b.Insights.EngagementByMedia}

	var bestMean float64
	for _, label := range []string{extract.LabelBullish, extract.LabelBearish, extract.LabelNeutral} {
		// Only labels that actually occurred can be the best performer.
		if b.Summary.SentimentDistribution[label] == 0 {
			continue
		}
		if mean := b.Insights.EngagementBySentiment[label]; ei.BestSentiment == "" || mean > bestMean {
			ei.BestSentiment = label
			bestMean = mean
		}
	}
	return ei
}

func contentInsights(b *Bundle) ContentInsights {
	n := b.Summary.TotalItems
	if n < 1 {
		n = 1
	}
	return ContentInsights{
		AvgWords:        float64(b.Summary.TotalWords) / float64(n),
		HashtagUsage:    b.Summary.TotalHashtags,
		MentionUsage:    b.Summary.TotalMentions,
		InteractionRate: float64(b.Summary.TotalMentions) / float64(n),
	}
}
