// Package usage keeps a rolling 24 hour record of trend lookup spend per user.
package usage

import (
	"context"
	"sync"
	"time"

	"github.com/kapu/pulse-kit-go/internal/constants"
	"github.com/kapu/pulse-kit-go/internal/domain"
	"github.com/kapu/pulse-kit-go/internal/util"
)

// Store records trend spend and summarizes the rolling window.
type Store interface {
	Record(ctx context.Context, userID string, cost float64, at time.Time) error
	Summary(ctx context.Context, userID string, now time.Time) (domain.TrendSummary, error)
	Prune(ctx context.Context, userID string, now time.Time) error
}

type record struct {
	at   time.Time
	cost float64
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.Mutex
	window  time.Duration
	records map[string][]record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		window:  constants.TrendConfig.Window,
		records: make(map[string][]record),
	}
}

func (s *MemoryStore) Record(_ context.Context, userID string, cost float64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[userID] = s.prune(append(s.records[userID], record{at: at, cost: cost}), at)
	return nil
}

func (s *MemoryStore) Summary(_ context.Context, userID string, now time.Time) (domain.TrendSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.prune(s.records[userID], now)
	s.store(userID, list)
	return summarize(list), nil
}

func (s *MemoryStore) Prune(_ context.Context, userID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store(userID, s.prune(s.records[userID], now))
	return nil
}

// must be called with mu held
func (s *MemoryStore) store(userID string, list []record) {
	if len(list) == 0 {
		delete(s.records, userID)
		return
	}
	s.records[userID] = list
}

// prune keeps records no older than the window relative to now.
func (s *MemoryStore) prune(list []record, now time.Time) []record {
	kept := list[:0]
	for _, r := range list {
		if now.Sub(r.at) <= s.window {
			kept = append(kept, r)
		}
	}
	return kept
}

func summarize(list []record) domain.TrendSummary {
	total := 0.0
	for _, r := range list {
		total += r.cost
	}
	return domain.TrendSummary{Cost: util.RoundTo(total, 3), Calls: len(list)}
}
