package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/kapu/pulse-kit-go/pkg/errors"
)

// User is the identity recorded on login.
type User struct {
	ID        string `json:"id"`
	Handle    string `json:"handle"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Settings are per-user generation preferences.
type Settings struct {
	Model           ProviderChoice `json:"model"`
	Temperature     *float64       `json:"temp,omitempty"`
	WantTrends      *bool          `json:"want_trends,omitempty"`
	TrendSourcesMax *int           `json:"trend_sources_max,omitempty"`
	WantAnalytics   *bool          `json:"want_analytics,omitempty"`
}

func (s *Settings) Validate() error {
	if s.Model == "" {
		s.Model = ProviderOpenAI
	}
	if !s.Model.Valid() {
		return errors.NewValidationError("model must be openai or xai", "settings.model", string(s.Model))
	}
	if s.Temperature != nil && (*s.Temperature < 0 || *s.Temperature > 1) {
		return errors.NewValidationError("temp must be between 0 and 1", "settings.temp", *s.Temperature)
	}
	if s.TrendSourcesMax != nil && (*s.TrendSourcesMax < 0 || *s.TrendSourcesMax > 2) {
		return errors.NewValidationError("trend_sources_max must be 0, 1 or 2", "settings.trend_sources_max", *s.TrendSourcesMax)
	}
	return nil
}

// KeyProvider names a third-party service a user can bring a key for.
type KeyProvider string

const (
	KeyProviderOpenAI KeyProvider = "openai"
	KeyProviderXAI    KeyProvider = "xai"
	KeyProviderX      KeyProvider = "x"
)

// ProviderKey is a plaintext key submitted by a user.
type ProviderKey struct {
	Provider KeyProvider `json:"provider"`
	Value    string      `json:"value"`
}

// KeysRequest is the body of POST /keys.
type KeysRequest struct {
	Keys []ProviderKey `json:"keys"`
}

func (r *KeysRequest) Validate() error {
	if len(r.Keys) == 0 {
		return errors.NewValidationError("at least one key is required", "keys", 0)
	}
	for i, key := range r.Keys {
		switch key.Provider {
		case KeyProviderOpenAI, KeyProviderXAI, KeyProviderX:
		default:
			return errors.NewValidationError("provider must be openai, xai or x",
				fmt.Sprintf("keys[%d].provider", i), string(key.Provider))
		}
		if len(strings.TrimSpace(key.Value)) < 10 {
			return errors.NewValidationError("key value must be at least 10 characters",
				fmt.Sprintf("keys[%d].value", i), len(key.Value))
		}
	}
	return nil
}

// EventType names an analytics event.
type EventType string

const (
	EventPanelOpen    EventType = "panel_open"
	EventPanelClose   EventType = "panel_close"
	EventFeatureUsage EventType = "feature_usage"
)

// Feature names the surface an event belongs to.
type Feature string

const (
	FeatureIdeas   Feature = "ideas"
	FeatureReplies Feature = "replies"
	FeaturePanel   Feature = "panel"
)

// AnalyticsEvent is one row in the events table.
type AnalyticsEvent struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Event       EventType `json:"event"`
	Feature     Feature   `json:"feature,omitempty"`
	DurationMS  int64     `json:"duration_ms,omitempty"`
	TrendsUsed  bool      `json:"trends_used,omitempty"`
	SourcesUsed int       `json:"sources_used,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// PanelEventRequest is the body of POST /analytics/events.
type PanelEventRequest struct {
	Event EventType `json:"event"`
}

func (r *PanelEventRequest) Validate() error {
	if r.Event != EventPanelOpen && r.Event != EventPanelClose {
		return errors.NewValidationError("event must be panel_open or panel_close", "event", string(r.Event))
	}
	return nil
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	UserID       string    `json:"user_id"`
	Handle       string    `json:"handle"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	SessionToken string    `json:"session_token,omitempty"`
	Settings     *Settings `json:"settings,omitempty"`
}

func (r *RefreshRequest) Validate() error {
	if len(strings.TrimSpace(r.UserID)) < 3 {
		return errors.NewValidationError("user_id must be at least 3 characters", "user_id", r.UserID)
	}
	if strings.TrimSpace(r.Handle) == "" {
		return errors.NewValidationError("handle is required", "handle", r.Handle)
	}
	if r.Settings != nil {
		return r.Settings.Validate()
	}
	return nil
}

// TrendSummary is the rolling-window usage for one user.
type TrendSummary struct {
	Cost  float64 `json:"cost"`
	Calls int     `json:"calls"`
}
