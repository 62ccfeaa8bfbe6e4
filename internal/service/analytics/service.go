// Package analytics records opt-in usage events.
package analytics

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/pulse-kit-go/internal/constants"
	"github.com/kapu/pulse-kit-go/internal/domain"
)

const optInKeyPrefix = "pulse:analytics_opt_in:"

// Store is the persistent side of analytics.
type Store interface {
	GetAnalyticsOptIn(ctx context.Context, userID string) (bool, error)
	InsertEvent(ctx context.Context, event domain.AnalyticsEvent) error
}

// PreferenceCache caches resolved opt-in flags across instances.
type PreferenceCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// FeatureEvent describes one ideas or replies generation.
type FeatureEvent struct {
	UserID      string
	Feature     domain.Feature
	Duration    time.Duration
	TrendsUsed  bool
	SourcesUsed int
}

// Service resolves opt-in preferences and writes events for opted-in users.
// A nil store or cache disables that layer.
type Service struct {
	store  Store
	cache  PreferenceCache
	logger *zap.Logger
	now    func() time.Time

	mu     sync.RWMutex
	optIns map[string]bool
}

func NewService(store Store, cache PreferenceCache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		cache:  cache,
		logger: logger,
		now:    time.Now,
		optIns: make(map[string]bool),
	}
}

// SetOptIn records a preference change made through settings.
func (s *Service) SetOptIn(ctx context.Context, userID string, enabled bool) {
	s.mu.Lock()
	s.optIns[userID] = enabled
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.Set(ctx, optInKeyPrefix+userID, enabled, constants.CacheTTL.AnalyticsOptIn); err != nil {
			s.logger.Warn("Failed to cache analytics preference", zap.String("user_id", userID), zap.Error(err))
		}
	}
}

// OptIn resolves the preference from memory, then the cache, then the
// store. Lookup failures resolve to false.
func (s *Service) OptIn(ctx context.Context, userID string) bool {
	if userID == "" || userID == constants.AnonymousUser {
		return false
	}

	s.mu.RLock()
	enabled, ok := s.optIns[userID]
	s.mu.RUnlock()
	if ok {
		return enabled
	}

	if s.cache != nil {
		var cached bool
		found, err := s.cache.Get(ctx, optInKeyPrefix+userID, &cached)
		if err != nil {
			s.logger.Warn("Failed to read cached analytics preference", zap.String("user_id", userID), zap.Error(err))
		} else if found {
			s.remember(userID, cached)
			return cached
		}
	}

	if s.store == nil {
		return false
	}

	enabled, err := s.store.GetAnalyticsOptIn(ctx, userID)
	if err != nil {
		s.logger.Warn("Failed to fetch analytics preference", zap.String("user_id", userID), zap.Error(err))
		return false
	}
	s.SetOptIn(ctx, userID, enabled)
	return enabled
}

func (s *Service) remember(userID string, enabled bool) {
	s.mu.Lock()
	s.optIns[userID] = enabled
	s.mu.Unlock()
}

// LogFeatureEvent records a feature_usage event for opted-in users.
func (s *Service) LogFeatureEvent(ctx context.Context, event FeatureEvent) {
	if !s.OptIn(ctx, event.UserID) {
		return
	}
	s.insert(ctx, domain.AnalyticsEvent{
		UserID:      event.UserID,
		Event:       domain.EventFeatureUsage,
		Feature:     event.Feature,
		DurationMS:  event.Duration.Milliseconds(),
		TrendsUsed:  event.TrendsUsed,
		SourcesUsed: event.SourcesUsed,
	})
}

// LogPanelEvent records a panel_open or panel_close event for opted-in users.
func (s *Service) LogPanelEvent(ctx context.Context, userID string, eventType domain.EventType) {
	if !s.OptIn(ctx, userID) {
		return
	}
	s.insert(ctx, domain.AnalyticsEvent{
		UserID:  userID,
		Event:   eventType,
		Feature: domain.FeaturePanel,
	})
}

func (s *Service) insert(ctx context.Context, event domain.AnalyticsEvent) {
	if s.store == nil {
		return
	}
	event.CreatedAt = s.now().UTC()
	if err := s.store.InsertEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to record analytics event",
			zap.String("user_id", event.UserID),
			zap.String("event", string(event.Event)),
			zap.Error(err),
		)
	}
}
