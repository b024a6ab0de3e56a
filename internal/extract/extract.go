package extract

import (
	"context"
	"log"
	"regexp"
	"strings"

	"github.com/mkessler/pulsetrack/internal/fetch"
)

var (
	hashtagRe = regexp.MustCompile(`#\w+`)
	mentionRe = regexp.MustCompile(`@\w+`)
	urlRe     = regexp.MustCompile(`https?://[^\s]+`)
	emojiRe   = regexp.MustCompile(`[\x{1F300}-\x{1F5FF}\x{1F600}-\x{1F64F}\x{1F680}-\x{1F6FF}\x{1F1E0}-\x{1F1FF}\x{2702}-\x{27B0}]`)
)

// Extractor derives Features from items. The lexicon scoring is
// deterministic; the remote classifier, when configured, only adds
// model_label/model_score and never blocks extraction.
type Extractor struct {
	threshold  float64
	classifier Classifier
	summarizer Summarizer
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithClassifier attaches a remote sentiment classifier.
func WithClassifier(c Classifier) Option {
	return func(e *Extractor) { e.classifier = c }
}

// WithSummarizer attaches a remote summarizer.
func WithSummarizer(s Summarizer) Option {
	return func(e *Extractor) { e.summarizer = s }
}

// New creates an Extractor. threshold is the polarity cutoff for the
// bullish/bearish labels; <= 0 selects the default 0.1.
func New(threshold float64, opts ...Option) *Extractor {
	if threshold <= 0 {
		threshold = 0.1
	}
	e := &Extractor{threshold: threshold}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract derives Features from one item.
func (e *Extractor) Extract(ctx context.Context, item fetch.Item) (Features, error) {
	f := Features{
		ItemID:    item.ID,
		Text:      item.Text,
		CreatedAt: item.CreatedAt,
		IsReply:   item.IsReply,
		IsRepost:  item.IsRepost,
	}

	f.Sentiment = e.scoreSentiment(ctx, item.Text)
	f.Engagement = extractEngagement(item)
	f.TextStats = analyzeText(item.Text)
	f.Media = summarizeMedia(item.Media)
	f.Summary = e.summarize(ctx, item.Text)

	return f, nil
}

// Degraded returns the neutral, zeroed Features recorded for an item whose
// extraction failed. The item still counts toward item totals but
// contributes nothing to engagement or media aggregates.
func Degraded(item fetch.Item) Features {
	return Features{
		ItemID:    item.ID,
		Text:      item.Text,
		CreatedAt: item.CreatedAt,
		Sentiment: Sentiment{Label: LabelNeutral},
		IsReply:   item.IsReply,
		IsRepost:  item.IsRepost,
		Degraded:  true,
	}
}

// Classify maps a polarity to its sentiment label.
func Classify(polarity, threshold float64) string {
	switch {
	case polarity > threshold:
		return LabelBullish
	case polarity < -threshold:
		return LabelBearish
	default:
		return LabelNeutral
	}
}

func (e *Extractor) scoreSentiment(ctx context.Context, text string) Sentiment {
	polarity, subjectivity := scoreLexicon(text)
	s := Sentiment{
		Polarity:     polarity,
		Subjectivity: subjectivity,
		Label:        Classify(polarity, e.threshold),
	}

	if e.classifier != nil {
		label, score, err := e.classifier.ClassifySentiment(ctx, clip(text, 512))
		if err != nil {
			log.Printf("Classifier unavailable, using lexicon label: %v", err)
		} else {
			s.ModelLabel = label
			s.ModelScore = score
		}
	}

	return s
}

func (e *Extractor) summarize(ctx context.Context, text string) string {
	if e.summarizer != nil && len(strings.Fields(text)) >= 10 {
		summary, err := e.summarizer.Summarize(ctx, text)
		if err == nil && summary != "" {
			return summary
		}
		if err != nil {
			log.Printf("Summarizer unavailable, truncating: %v", err)
		}
	}

	if len(text) > 100 {
		return text[:100] + "..."
	}
	return text
}

func extractEngagement(item fetch.Item) Engagement {
	total := item.TotalEngagement()
	var rate float64
	if item.Author.Followers > 0 {
		rate = float64(total) / float64(item.Author.Followers) * 100
	}
	return Engagement{
		Likes:   item.Likes,
		Shares:  item.Shares,
		Replies: item.Replies,
		Quotes:  item.Quotes,
		Total:   total,
		Rate:    rate,
	}
}

func analyzeText(text string) TextStats {
	words := strings.Fields(text)
	stats := TextStats{
		WordCount:  len(words),
		CharCount:  len([]rune(text)),
		Hashtags:   hashtagRe.FindAllString(text, -1),
		Mentions:   mentionRe.FindAllString(text, -1),
		URLs:       urlRe.FindAllString(text, -1),
		EmojiCount: len(emojiRe.FindAllString(text, -1)),
	}
	if stats.WordCount > 0 {
		stats.AvgWordLength = float64(stats.CharCount) / float64(stats.WordCount)
	}
	return stats
}

func summarizeMedia(media []fetch.MediaRef) MediaSummary {
	s := MediaSummary{HasMedia: len(media) > 0}
	for _, m := range media {
		switch m.Type {
		case "photo":
			s.Images++
		case "video":
			s.Videos++
		case "animated_gif":
			s.GIFs++
		}
	}
	return s
}

func clip(text string, n int) string {
	if len(text) > n {
		return text[:n]
	}
	return text
}
