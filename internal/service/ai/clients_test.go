package ai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kapu/pulse-kit-go/internal/domain"
	apperrors "github.com/kapu/pulse-kit-go/pkg/errors"
)

type fakeGenerator struct {
	payload string
	err     error
	choice  domain.ProviderChoice
	req     Request
}

func (f *fakeGenerator) GenerateJSON(ctx context.Context, choice domain.ProviderChoice, req Request, dest any) (*GenerateMetadata, error) {
	f.choice = choice
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	if err := json.Unmarshal([]byte(f.payload), dest); err != nil {
		return nil, err
	}
	return &GenerateMetadata{Provider: "fake"}, nil
}

func TestClusterClientValidatesShape(t *testing.T) {
	gen := &fakeGenerator{payload: `{"clusters":[{"topic":"Pricing","pain_points":["a","b","c"],"quotes":["q1","q2"]}]}`}
	clusters, err := NewClusterClient(gen).ClusterSnippets(context.Background(), []string{"x"}, domain.ProviderXAI)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clusters) != 1 || clusters[0].Topic != "Pricing" {
		t.Fatalf("unexpected clusters %+v", clusters)
	}
	if gen.choice != domain.ProviderXAI {
		t.Fatalf("expected model choice forwarded")
	}

	gen.payload = `{"clusters":[{"topic":"Pricing","pain_points":["a"],"quotes":["q1","q2"]}]}`
	_, err = NewClusterClient(gen).ClusterSnippets(context.Background(), []string{"x"}, "")
	var providerErr *apperrors.ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestIdeaClientAppliesReminder(t *testing.T) {
	gen := &fakeGenerator{payload: `{"ideas":[{"topic":"A","trend_notes":[],"items":[{"hook":"h","mini_outline":["1"],"virality_score":142.4,"recommended_time":"noon"}]}],"sources_used":[]}`}
	raw, err := NewIdeaClient(gen).GenerateIdeas(context.Background(), domain.IdeaPrompt{}, domain.Attempt{Temperature: 0.1, Reminder: "STRICT JSON ONLY, NO PROSE."})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(raw.Ideas) != 1 || raw.Ideas[0].Items[0].ViralityScore.Value != 142.4 {
		t.Fatalf("loose payload should pass through, got %+v", raw)
	}
	if !strings.HasSuffix(gen.req.Messages.System, "STRICT JSON ONLY, NO PROSE.") || gen.req.Temperature != 0.1 {
		t.Fatalf("attempt not applied: %+v", gen.req)
	}
}

func TestIdeaClientRejectsEmptyIdeas(t *testing.T) {
	gen := &fakeGenerator{payload: `{"ideas":[]}`}
	if _, err := NewIdeaClient(gen).GenerateIdeas(context.Background(), domain.IdeaPrompt{}, domain.Attempt{}); err == nil {
		t.Fatalf("expected error for empty ideas")
	}
}

func TestReplyClientRejectsEmptyReplies(t *testing.T) {
	gen := &fakeGenerator{payload: `{"replies":[]}`}
	if _, err := NewReplyClient(gen).GenerateReplies(context.Background(), domain.ReplyPrompt{}, domain.Attempt{}); err == nil {
		t.Fatalf("expected error for empty replies")
	}
}

func TestTrendClientCapZeroOrDisabled(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("should not be called")}

	result, err := NewTrendClient(gen, true, zap.NewNop()).FetchTrends(context.Background(), nil, 0)
	if err != nil || len(result.TrendNotes) != 0 || result.EstimatedCostUSD != 0 {
		t.Fatalf("cap 0 should be empty, got %+v %v", result, err)
	}
	result, err = NewTrendClient(gen, false, zap.NewNop()).FetchTrends(context.Background(), nil, 2)
	if err != nil || len(result.SourcesUsed) != 0 {
		t.Fatalf("disabled client should be empty, got %+v %v", result, err)
	}
}

func TestTrendClientTruncatesToCapAndPricesSources(t *testing.T) {
	gen := &fakeGenerator{payload: `{"trend_notes":["n1","n2","n3"],"sources_used":[{"name":"X","url":"https://x.com/a"},{"name":"News","url":null},{"name":"Blog"}]}`}
	result, err := NewTrendClient(gen, true, zap.NewNop()).FetchTrends(context.Background(), nil, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.SourcesUsed) != 2 || len(result.TrendNotes) != 2 {
		t.Fatalf("expected results trimmed to cap 2, got %+v", result)
	}
	if result.EstimatedCostUSD != 0.05 {
		t.Fatalf("expected cost 0.05, got %v", result.EstimatedCostUSD)
	}
	if gen.choice != domain.ProviderXAI || !gen.req.Pinned {
		t.Fatalf("trend lookups must be pinned to xAI")
	}
	search, ok := gen.req.Extra["search_parameters"].(map[string]any)
	if !ok || search["max_search_results"] != 2 {
		t.Fatalf("unexpected search parameters %+v", gen.req.Extra)
	}
	if !strings.Contains(gen.req.Messages.User, "X and News") {
		t.Fatalf("expected preferred sources in prompt: %s", gen.req.Messages.User)
	}
}

func TestTrendClientRejectsBadURL(t *testing.T) {
	gen := &fakeGenerator{payload: `{"trend_notes":[],"sources_used":[{"name":"X","url":"not a url"}]}`}
	if _, err := NewTrendClient(gen, true, nil).FetchTrends(context.Background(), nil, 1); err == nil {
		t.Fatalf("expected validation error")
	}
}
