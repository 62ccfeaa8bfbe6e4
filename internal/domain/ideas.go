package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kapu/pulse-kit-go/internal/constants"
	"github.com/kapu/pulse-kit-go/pkg/errors"
)

// TimeSlot is the recommended posting window for an idea.
type TimeSlot string

const (
	TimeMorning   TimeSlot = "morning"
	TimeAfternoon TimeSlot = "afternoon"
	TimeEvening   TimeSlot = "evening"
)

// ParseTimeSlot accepts any casing and surrounding whitespace.
func ParseTimeSlot(s string) (TimeSlot, bool) {
	switch TimeSlot(strings.ToLower(strings.TrimSpace(s))) {
	case TimeMorning:
		return TimeMorning, true
	case TimeAfternoon:
		return TimeAfternoon, true
	case TimeEvening:
		return TimeEvening, true
	}
	return "", false
}

// ProviderChoice selects which LLM vendor serves a request.
type ProviderChoice string

const (
	ProviderOpenAI ProviderChoice = "openai"
	ProviderXAI    ProviderChoice = "xai"
)

func (p ProviderChoice) Valid() bool {
	return p == "" || p == ProviderOpenAI || p == ProviderXAI
}

// ClusterTopic is one theme found across the input snippets.
type ClusterTopic struct {
	Topic      string   `json:"topic"`
	PainPoints []string `json:"pain_points"`
	Quotes     []string `json:"quotes"`
}

// IdeaOutlineItem is a single post idea.
type IdeaOutlineItem struct {
	Hook            string   `json:"hook"`
	MiniOutline     []string `json:"mini_outline"`
	ViralityScore   int      `json:"virality_score"`
	RecommendedTime TimeSlot `json:"recommended_time"`
}

// IdeaTopic groups idea items under a topic.
type IdeaTopic struct {
	Topic      string            `json:"topic"`
	TrendNotes []string          `json:"trend_notes"`
	Items      []IdeaOutlineItem `json:"items"`
}

// Source is a citation for trend notes.
type Source struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// IdeasResponse is the sanitized payload returned to clients.
type IdeasResponse struct {
	Ideas       []IdeaTopic `json:"ideas"`
	SourcesUsed []Source    `json:"sources_used"`
}

// Score decodes a provider's virality score leniently: numbers, numeric
// strings and null are all accepted. Set is false when nothing usable came in.
type Score struct {
	Value float64
	Set   bool
}

func (s *Score) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = Score{}
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil {
			*s = Score{}
			return nil
		}
		*s = Score{Value: v, Set: true}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("virality_score: %w", err)
	}
	*s = Score{Value: v, Set: true}
	return nil
}

func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Set {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

// RawIdeaItem is an untrusted idea candidate straight from a provider.
type RawIdeaItem struct {
	Hook            string   `json:"hook"`
	MiniOutline     []string `json:"mini_outline"`
	ViralityScore   Score    `json:"virality_score"`
	RecommendedTime string   `json:"recommended_time"`
}

// RawIdeaTopic is an untrusted topic candidate.
type RawIdeaTopic struct {
	Topic      string        `json:"topic"`
	TrendNotes []string      `json:"trend_notes"`
	Items      []RawIdeaItem `json:"items"`
}

// RawIdeasPayload is the untrusted ideas document a provider returns.
type RawIdeasPayload struct {
	Ideas       []RawIdeaTopic `json:"ideas"`
	SourcesUsed []Source       `json:"sources_used"`
}

// IdeasRequest is the body of POST /ai/ideas.
type IdeasRequest struct {
	Snippets        []string       `json:"snippets"`
	StyleProfile    *StyleProfile  `json:"style_profile"`
	WantTrends      bool           `json:"want_trends"`
	Niche           *string        `json:"niche"`
	TrendSourcesMax *int           `json:"trend_sources_max"`
	Model           ProviderChoice `json:"model,omitempty"`
}

// TrendSourceCap returns trend_sources_max with its default applied.
func (r *IdeasRequest) TrendSourceCap() int {
	if r.TrendSourcesMax == nil {
		return constants.RequestLimits.TrendSourcesDefault
	}
	return *r.TrendSourcesMax
}

// Validate enforces the request schema.
func (r *IdeasRequest) Validate() error {
	limits := constants.RequestLimits

	if len(r.Snippets) > limits.SnippetsMax {
		return errors.NewValidationError(
			fmt.Sprintf("at most %d snippets allowed", limits.SnippetsMax), "snippets", len(r.Snippets))
	}
	for i, snippet := range r.Snippets {
		field := fmt.Sprintf("snippets[%d]", i)
		if snippet == "" {
			return errors.NewValidationError(field+" is required", field, snippet)
		}
		if err := maxText(field, snippet, limits.SnippetMaxChars); err != nil {
			return err
		}
	}

	if r.StyleProfile == nil {
		return errors.NewValidationError("style_profile is required", "style_profile", nil)
	}
	if err := r.StyleProfile.Validate("style_profile"); err != nil {
		return err
	}

	if r.Niche != nil {
		if err := requireText("niche", *r.Niche, limits.NicheMaxChars); err != nil {
			return err
		}
	}

	if n := r.TrendSourceCap(); n < 0 || n > limits.TrendSourcesMax {
		return errors.NewValidationError("trend_sources_max must be 0, 1 or 2", "trend_sources_max", n)
	}

	if !r.Model.Valid() {
		return errors.NewValidationError("model must be openai or xai", "model", string(r.Model))
	}
	return nil
}

// TrendResult is what the trend provider returns for a set of clusters.
type TrendResult struct {
	TrendNotes       []string `json:"trend_notes"`
	SourcesUsed      []Source `json:"sources_used"`
	EstimatedCostUSD float64  `json:"estimated_cost_usd"`
}
