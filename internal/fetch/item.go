package fetch

import "time"

// CreatedAtLayout is the source timestamp format on fetched items,
// e.g. "Mon Jan 02 15:04:05 +0000 2006".
const CreatedAtLayout = "Mon Jan 02 15:04:05 -0700 2006"

// Item is one unit of fetched content for an entity. Immutable once fetched.
// The JSON field names match the scraping service's wire format so raw
// artifacts stay compatible with it.
type Item struct {
	ID        string     `json:"id_str"`
	Text      string     `json:"full_text"`
	CreatedAt string     `json:"created_at"`
	URL       string     `json:"url,omitempty"`
	Lang      string     `json:"lang,omitempty"`
	Likes     int        `json:"favorite_count"`
	Shares    int        `json:"retweet_count"`
	Replies   int        `json:"reply_count"`
	Quotes    int        `json:"quote_count"`
	Media     []MediaRef `json:"media,omitempty"`
	Author    AuthorInfo `json:"user"`
	IsReply   bool       `json:"is_reply"`
	IsRepost  bool       `json:"is_repost"`
}

// MediaRef is a reference to one media attachment.
type MediaRef struct {
	URL      string `json:"url"`
	Type     string `json:"type"` // photo, video, animated_gif
	MediaURL string `json:"media_url_https,omitempty"`
}

// AuthorInfo holds the author snapshot attached to an item.
type AuthorInfo struct {
	Username  string `json:"screen_name"`
	Name      string `json:"name,omitempty"`
	Followers int    `json:"followers_count"`
	Following int    `json:"friends_count"`
	ItemCount int    `json:"statuses_count"`
	Verified  bool   `json:"verified"`
}

// ParseCreatedAt parses an item's created_at timestamp.
func ParseCreatedAt(s string) (time.Time, error) {
	return time.Parse(CreatedAtLayout, s)
}

// HasMedia reports whether the item has any media attached.
func (it Item) HasMedia() bool {
	return len(it.Media) > 0
}

// TotalEngagement is the sum of all engagement counts.
func (it Item) TotalEngagement() int {
	return it.Likes + it.Shares + it.Replies + it.Quotes
}
