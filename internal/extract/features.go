package extract

// Sentiment labels. The polarity cutoffs that map to them are fixed
// contract values (±0.1 by default).
const (
	LabelBullish = "bullish"
	LabelBearish = "bearish"
	LabelNeutral = "neutral"
)

// Sentiment holds per-item sentiment scores.
type Sentiment struct {
	Polarity     float64 `json:"polarity"`
	Subjectivity float64 `json:"subjectivity"`
	Label        string  `json:"label"`
	ModelLabel   string  `json:"model_label,omitempty"`
	ModelScore   float64 `json:"model_score,omitempty"`
}

// Engagement holds per-item engagement counts and derived metrics.
type Engagement struct {
	Likes   int     `json:"likes"`
	Shares  int     `json:"shares"`
	Replies int     `json:"replies"`
	Quotes  int     `json:"quotes"`
	Total   int     `json:"total"`
	Rate    float64 `json:"rate"` // total / author followers * 100
}

// TextStats holds basic text content metrics.
type TextStats struct {
	WordCount     int      `json:"word_count"`
	CharCount     int      `json:"char_count"`
	AvgWordLength float64  `json:"avg_word_length"`
	Hashtags      []string `json:"hashtags,omitempty"`
	Mentions      []string `json:"mentions,omitempty"`
	URLs          []string `json:"urls,omitempty"`
	EmojiCount    int      `json:"emoji_count"`
}

// MediaSummary counts media attachments by type.
type MediaSummary struct {
	HasMedia bool `json:"has_media"`
	Images   int  `json:"images"`
	Videos   int  `json:"videos"`
	GIFs     int  `json:"gifs"`
}

// Features is everything derived from one item. Never mutated after
// creation.
type Features struct {
	ItemID     string       `json:"item_id"`
	Text       string       `json:"text"`
	Summary    string       `json:"summary"`
	CreatedAt  string       `json:"created_at"`
	Sentiment  Sentiment    `json:"sentiment"`
	Engagement Engagement   `json:"engagement"`
	TextStats  TextStats    `json:"text_stats"`
	Media      MediaSummary `json:"media"`
	IsReply    bool         `json:"is_reply"`
	IsRepost   bool         `json:"is_repost"`
	Degraded   bool         `json:"degraded,omitempty"`
}
