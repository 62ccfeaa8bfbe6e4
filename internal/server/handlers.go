package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/pulse-kit-go/internal/constants"
	"github.com/kapu/pulse-kit-go/internal/domain"
	"github.com/kapu/pulse-kit-go/internal/service/analytics"
	"github.com/kapu/pulse-kit-go/internal/service/snippet"
	"github.com/kapu/pulse-kit-go/internal/service/style"
	"github.com/kapu/pulse-kit-go/internal/util"
	"github.com/kapu/pulse-kit-go/pkg/errors"
)

type refreshResponse struct {
	Token            string `json:"token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int    `json:"expires_in"`
	AnalyticsEnabled bool   `json:"analytics_enabled"`
}

type trendMetricsResponse struct {
	EstimatedUSD  float64 `json:"estimated_usd_rolling_24h"`
	Calls         int     `json:"calls_24h"`
	WantAnalytics bool    `json:"want_analytics"`
}

type extractRequest struct {
	HTML    string `json:"html"`
	Context string `json:"context,omitempty"`
	URL     string `json:"url,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

var success = map[string]bool{"success": true}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{"service": "pulse-kit-api", "ok": true})
}

func (s *Server) handleAuthHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleHealth reports every registered check. Any failing check turns the
// response into a 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	healthy := true
	for _, check := range s.health {
		for name, ok := range check(r.Context()) {
			if ok {
				checks[name] = "ok"
				continue
			}
			checks[name] = "error"
			healthy = false
		}
	}

	status, code := "ok", http.StatusOK
	if !healthy {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	s.respondJSON(w, code, map[string]any{"status": status, "checks": checks})
}

// handleRefresh trades a bearer token, a refresh token or the shared session
// secret for a fresh token pair. The verified subject must match user_id.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, r, err)
		return
	}

	if s.verifiedSubject(r, req) != req.UserID {
		s.respondError(w, r, errors.NewUnauthorizedError("Unauthorized"))
		return
	}

	ctx := r.Context()
	if s.accounts != nil {
		user := domain.User{ID: req.UserID, Handle: req.Handle, AvatarURL: req.AvatarURL}
		if err := s.accounts.UpsertUser(ctx, user); err != nil {
			s.respondError(w, r, err)
			return
		}
		if req.Settings != nil {
			if err := s.accounts.UpdateSettings(ctx, req.UserID, *req.Settings); err != nil {
				s.respondError(w, r, err)
				return
			}
		}
	}
	if req.Settings != nil && req.Settings.WantAnalytics != nil {
		s.analytics.SetOptIn(ctx, req.UserID, *req.Settings.WantAnalytics)
	}

	scopes := append([]string{}, constants.AuthConfig.AccessScopes...)
	if req.Settings != nil || req.SessionToken != "" {
		scopes = append(scopes, constants.AuthConfig.SettingsScope)
	}

	accessTTL := s.cfg.Auth.AccessTokenTTL
	access, err := s.tokens.Issue(req.UserID, scopes, accessTTL)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	refresh, err := s.tokens.Issue(req.UserID, []string{constants.AuthConfig.RefreshScope}, s.cfg.Auth.RefreshTokenTTL)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, refreshResponse{
		Token:            access,
		RefreshToken:     refresh,
		ExpiresIn:        int(accessTTL / time.Second),
		AnalyticsEnabled: s.analytics.OptIn(ctx, req.UserID),
	})
}

func (s *Server) verifiedSubject(r *http.Request, req domain.RefreshRequest) string {
	if token, ok := bearerToken(r); ok {
		if claims, err := s.tokens.Verify(token); err == nil {
			return claims.Subject
		}
	}
	if req.RefreshToken != "" {
		if claims, err := s.tokens.Verify(req.RefreshToken); err == nil {
			return claims.Subject
		}
	}
	if req.SessionToken != "" {
		expected := s.cfg.Auth.SessionSecret
		if expected == "" {
			expected = s.cfg.Auth.JWTSecret
		}
		if subtle.ConstantTimeCompare([]byte(req.SessionToken), []byte(expected)) == 1 {
			return req.UserID
		}
	}
	return ""
}

func (s *Server) handleIdeas(w http.ResponseWriter, r *http.Request) {
	var req domain.IdeasRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	user := userID(r)
	start := s.now()
	result, err := s.ideas.GenerateIdeas(r.Context(), req, user)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.analytics.LogFeatureEvent(r.Context(), analytics.FeatureEvent{
		UserID:      user,
		Feature:     domain.FeatureIdeas,
		Duration:    s.now().Sub(start),
		TrendsUsed:  result.Metrics.TrendsUsed,
		SourcesUsed: result.Metrics.SourcesUsedCount,
	})
	s.respondJSON(w, http.StatusOK, result.Response)
}

func (s *Server) handleReplies(w http.ResponseWriter, r *http.Request) {
	var req domain.RepliesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	user := userID(r)
	start := s.now()
	result, err := s.replies.GenerateReplies(r.Context(), req, user)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.analytics.LogFeatureEvent(r.Context(), analytics.FeatureEvent{
		UserID:   user,
		Feature:  domain.FeatureReplies,
		Duration: s.now().Sub(start),
	})
	s.respondJSON(w, http.StatusOK, result.Response)
}

func (s *Server) handleStyleProfile(w http.ResponseWriter, r *http.Request) {
	var req domain.StyleProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	profile, err := style.BuildStyleProfile(req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]domain.StyleProfile{"style_profile": profile})
}

func (s *Server) handleTrendMetrics(w http.ResponseWriter, r *http.Request) {
	user := userID(r)

	var summary domain.TrendSummary
	if s.usage != nil {
		var err error
		summary, err = s.usage.Summary(r.Context(), user, s.now())
		if err != nil {
			s.respondError(w, r, err)
			return
		}
	}

	s.respondJSON(w, http.StatusOK, trendMetricsResponse{
		EstimatedUSD:  util.RoundTo(summary.Cost, 2),
		Calls:         summary.Calls,
		WantAnalytics: s.analytics.OptIn(r.Context(), user),
	})
}

func (s *Server) handleAnalyticsEvent(w http.ResponseWriter, r *http.Request) {
	var req domain.PanelEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, r, err)
		return
	}

	s.analytics.LogPanelEvent(r.Context(), userID(r), req.Event)
	s.respondJSON(w, http.StatusOK, success)
}

// handleSaveKeys only accepts writes from the web origin with a settings
// scoped token.
func (s *Server) handleSaveKeys(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin != "" && s.cfg.CORS.WebOrigin != "" && origin != s.cfg.CORS.WebOrigin {
		s.respondError(w, r, errors.NewForbiddenError("Forbidden"))
		return
	}

	claims, _ := ClaimsFromContext(r.Context())
	if !claims.HasScope(constants.AuthConfig.SettingsScope) {
		s.respondError(w, r, errors.NewForbiddenError("Forbidden"))
		return
	}

	var req domain.KeysRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, r, err)
		return
	}

	if s.keys == nil {
		s.respondError(w, r, unavailable("key storage"))
		return
	}
	if err := s.keys.SaveKeys(r.Context(), claims.Subject, req.Keys); err != nil {
		s.respondError(w, r, err)
		return
	}

	s.logger.Info("Provider keys saved",
		zap.String("user_id", claims.Subject),
		zap.Int("count", len(req.Keys)),
	)
	s.respondJSON(w, http.StatusOK, success)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings domain.Settings
	if err := decodeJSON(w, r, &settings); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := settings.Validate(); err != nil {
		s.respondError(w, r, err)
		return
	}

	if s.accounts == nil {
		s.respondError(w, r, unavailable("settings storage"))
		return
	}

	user := userID(r)
	if err := s.accounts.UpdateSettings(r.Context(), user, settings); err != nil {
		s.respondError(w, r, err)
		return
	}
	if settings.WantAnalytics != nil {
		s.analytics.SetOptIn(r.Context(), user, *settings.WantAnalytics)
	}
	s.respondJSON(w, http.StatusOK, success)
}

func (s *Server) handleExtractSnippets(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if strings.TrimSpace(req.HTML) == "" {
		s.respondError(w, r, errors.NewValidationError("html is required", "html", ""))
		return
	}

	key, ok := pageContext(req)
	if !ok {
		s.respondError(w, r, errors.NewValidationError("context must be home, mentions, tweet or messages", "context", req.Context))
		return
	}

	result, err := s.snippets.ExtractString(req.HTML, key, req.Limit)
	if err != nil {
		s.respondError(w, r, errors.NewValidationError(err.Error(), "html", nil))
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

// pageContext prefers an explicit context over one inferred from url.
func pageContext(req extractRequest) (snippet.Key, bool) {
	if req.Context != "" {
		key := snippet.Key(strings.ToLower(strings.TrimSpace(req.Context)))
		_, ok := snippet.SelectorMap[key]
		return key, ok
	}
	if req.URL != "" {
		return snippet.InferPageContext(req.URL)
	}
	return "", false
}
