package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/pulse-kit-go/internal/domain"
)

type fakeStore struct {
	optIn   map[string]bool
	lookups int
	events  []domain.AnalyticsEvent
	err     error
}

func (f *fakeStore) GetAnalyticsOptIn(ctx context.Context, userID string) (bool, error) {
	f.lookups++
	if f.err != nil {
		return false, f.err
	}
	return f.optIn[userID], nil
}

func (f *fakeStore) InsertEvent(ctx context.Context, event domain.AnalyticsEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fakeCache struct {
	values map[string][]byte
}

func (f *fakeCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, ok := f.values[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (f *fakeCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if f.values == nil {
		f.values = map[string][]byte{}
	}
	raw, _ := json.Marshal(value)
	f.values[key] = raw
	return nil
}

func TestOptInResolvesOnceAndCaches(t *testing.T) {
	store := &fakeStore{optIn: map[string]bool{"user-1": true}}
	cache := &fakeCache{}
	svc := NewService(store, cache, zap.NewNop())

	if !svc.OptIn(context.Background(), "user-1") {
		t.Fatalf("expected opt-in from store")
	}
	if !svc.OptIn(context.Background(), "user-1") {
		t.Fatalf("expected cached opt-in")
	}
	if store.lookups != 1 {
		t.Fatalf("expected a single store lookup, got %d", store.lookups)
	}
	if string(cache.values["pulse:analytics_opt_in:user-1"]) != "true" {
		t.Fatalf("expected preference written to shared cache")
	}

	fresh := NewService(store, cache, zap.NewNop())
	if !fresh.OptIn(context.Background(), "user-1") || store.lookups != 1 {
		t.Fatalf("second instance should read the shared cache")
	}
}

func TestEventsOnlyForOptedInUsers(t *testing.T) {
	store := &fakeStore{optIn: map[string]bool{"in": true}}
	svc := NewService(store, nil, zap.NewNop())
	ctx := context.Background()

	svc.LogFeatureEvent(ctx, FeatureEvent{UserID: "out", Feature: domain.FeatureIdeas})
	svc.LogFeatureEvent(ctx, FeatureEvent{UserID: "in", Feature: domain.FeatureIdeas, Duration: 1500 * time.Millisecond, TrendsUsed: true, SourcesUsed: 2})
	svc.LogPanelEvent(ctx, "in", domain.EventPanelOpen)
	svc.LogPanelEvent(ctx, "anonymous", domain.EventPanelOpen)

	if len(store.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(store.events))
	}
	feature := store.events[0]
	if feature.Event != domain.EventFeatureUsage || feature.DurationMS != 1500 || !feature.TrendsUsed || feature.SourcesUsed != 2 {
		t.Fatalf("unexpected feature event %+v", feature)
	}
	if store.events[1].Feature != domain.FeaturePanel || store.events[1].Event != domain.EventPanelOpen {
		t.Fatalf("unexpected panel event %+v", store.events[1])
	}
}

func TestOptInLookupFailureIsFalse(t *testing.T) {
	svc := NewService(&fakeStore{err: errors.New("db down")}, nil, zap.NewNop())
	if svc.OptIn(context.Background(), "user-1") {
		t.Fatalf("lookup failure should resolve to false")
	}
}

func TestSetOptInOverridesStore(t *testing.T) {
	store := &fakeStore{optIn: map[string]bool{"user-1": true}}
	svc := NewService(store, nil, zap.NewNop())
	svc.SetOptIn(context.Background(), "user-1", false)
	if svc.OptIn(context.Background(), "user-1") || store.lookups != 0 {
		t.Fatalf("explicit preference should win without a lookup")
	}
}
