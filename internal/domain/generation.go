package domain

import "github.com/kapu/pulse-kit-go/internal/constants"

// Attempt is one generation try. Retries differ only in these fields.
type Attempt struct {
	Temperature float64
	Reminder    string
}

// Label names the attempt for logs.
func (a Attempt) Label() string {
	if a.Reminder == "" {
		return "primary"
	}
	return "strict"
}

// DefaultAttempts is the retry schedule shared by both pipelines.
func DefaultAttempts() []Attempt {
	return []Attempt{
		{Temperature: 0.2},
		{Temperature: 0.1, Reminder: constants.ProviderConfig.StrictJSONReminder},
	}
}

// IdeaPrompt is everything the idea provider sees for one generation.
type IdeaPrompt struct {
	Snippets     []string       `json:"snippets"`
	StyleProfile StyleProfile   `json:"style_profile"`
	Clusters     []ClusterTopic `json:"clusters"`
	TrendNotes   []string       `json:"trend_notes"`
	Niche        string         `json:"niche,omitempty"`
	Model        ProviderChoice `json:"-"`
}

// ReplyPrompt is everything the reply provider sees for one generation.
type ReplyPrompt struct {
	TweetText      string         `json:"tweet_text"`
	ContextSummary string         `json:"context_summary,omitempty"`
	StyleProfile   StyleProfile   `json:"style_profile"`
	Model          ProviderChoice `json:"-"`
}
