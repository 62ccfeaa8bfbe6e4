package idea

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/pulse-kit-go/internal/domain"
	apperrors "github.com/kapu/pulse-kit-go/pkg/errors"
)

type fakeClusters struct {
	clusters []domain.ClusterTopic
	err      error
	calls    int
}

func (f *fakeClusters) ClusterSnippets(ctx context.Context, snippets []string, model domain.ProviderChoice) ([]domain.ClusterTopic, error) {
	f.calls++
	return f.clusters, f.err
}

type fakeIdeas struct {
	responses []domain.RawIdeasPayload
	errs      []error
	attempts  []domain.Attempt
	prompts   []domain.IdeaPrompt
}

func (f *fakeIdeas) GenerateIdeas(ctx context.Context, prompt domain.IdeaPrompt, attempt domain.Attempt) (domain.RawIdeasPayload, error) {
	i := len(f.attempts)
	f.attempts = append(f.attempts, attempt)
	f.prompts = append(f.prompts, prompt)
	if i < len(f.errs) && f.errs[i] != nil {
		return domain.RawIdeasPayload{}, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return domain.RawIdeasPayload{}, errors.New("no scripted response")
}

type fakeTrends struct {
	result domain.TrendResult
	err    error
}

func (f *fakeTrends) FetchTrends(ctx context.Context, clusters []domain.ClusterTopic, maxSources int) (domain.TrendResult, error) {
	return f.result, f.err
}

type usageCall struct {
	userID string
	cost   float64
}

type fakeUsage struct {
	calls []usageCall
}

func (f *fakeUsage) Record(ctx context.Context, userID string, cost float64, at time.Time) error {
	f.calls = append(f.calls, usageCall{userID: userID, cost: cost})
	return nil
}

func validRequest() domain.IdeasRequest {
	return domain.IdeasRequest{
		Snippets: []string{"Shipping faster with tiny teams", "pricing pages that convert"},
		StyleProfile: &domain.StyleProfile{
			Voice:          "Energetic creator",
			Cadence:        "Conversational and direct",
			SentenceLength: "Short bursts",
		},
	}
}

func TestGenerateIdeasFallsBackToLiteWhenProvidersFail(t *testing.T) {
	failing := errors.New("provider down")
	clusters := &fakeClusters{err: failing}
	ideas := &fakeIdeas{errs: []error{failing, failing}}

	engine := NewEngine(clusters, ideas, nil, nil, zap.NewNop())
	req := validRequest()
	req.Snippets = nil

	result, err := engine.GenerateIdeas(context.Background(), req, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Metrics.Lite {
		t.Fatalf("expected lite result")
	}
	if len(result.Response.Ideas) != 5 {
		t.Fatalf("expected exactly 5 topics, got %d", len(result.Response.Ideas))
	}
	if err := ValidateIdeasResponse(result.Response); err != nil {
		t.Fatalf("lite response invalid: %v", err)
	}
	if len(ideas.attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(ideas.attempts))
	}
	if ideas.attempts[0].Temperature != 0.2 || ideas.attempts[0].Reminder != "" {
		t.Fatalf("unexpected first attempt %+v", ideas.attempts[0])
	}
	if ideas.attempts[1].Temperature != 0.1 || ideas.attempts[1].Reminder != "STRICT JSON ONLY, NO PROSE." {
		t.Fatalf("unexpected second attempt %+v", ideas.attempts[1])
	}
}

func TestGenerateIdeasRetriesThenNormalizes(t *testing.T) {
	clusters := &fakeClusters{clusters: []domain.ClusterTopic{{Topic: "Shipping"}}}
	ideas := &fakeIdeas{
		errs: []error{errors.New("bad json")},
		responses: []domain.RawIdeasPayload{{}, {Ideas: []domain.RawIdeaTopic{{
			Topic: "Shipping",
			Items: []domain.RawIdeaItem{{Hook: "Ship daily", ViralityScore: domain.Score{Value: 81, Set: true}}},
		}}}},
	}

	engine := NewEngine(clusters, ideas, nil, nil, zap.NewNop())
	result, err := engine.GenerateIdeas(context.Background(), validRequest(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Metrics.Lite {
		t.Fatalf("expected provider result, got lite")
	}
	if result.Response.Ideas[0].Topic != "Shipping" || result.Response.Ideas[0].Items[0].ViralityScore != 81 {
		t.Fatalf("unexpected first topic %+v", result.Response.Ideas[0])
	}
	if len(ideas.prompts[1].Clusters) != 1 {
		t.Fatalf("expected clusters passed to the idea provider")
	}
}

func TestGenerateIdeasRecordsTrendUsage(t *testing.T) {
	trends := &fakeTrends{result: domain.TrendResult{
		TrendNotes:       []string{"Agents are trending"},
		SourcesUsed:      []domain.Source{{Name: "X"}},
		EstimatedCostUSD: 0.025,
	}}
	ideas := &fakeIdeas{responses: []domain.RawIdeasPayload{{Ideas: []domain.RawIdeaTopic{{
		Topic: "Agents", Items: []domain.RawIdeaItem{{Hook: "Agents everywhere"}},
	}}}}}
	usage := &fakeUsage{}

	engine := NewEngine(&fakeClusters{err: errors.New("skip")}, ideas, trends, usage, zap.NewNop())
	req := validRequest()
	req.WantTrends = true

	result, err := engine.GenerateIdeas(context.Background(), req, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Metrics.TrendsUsed || result.Metrics.TrendCost != 0.025 || result.Metrics.TrendCalls != 1 {
		t.Fatalf("unexpected metrics %+v", result.Metrics)
	}
	if len(result.SourcesUsed) != 1 || result.SourcesUsed[0].Name != "X" {
		t.Fatalf("expected trend sources as fallback, got %+v", result.SourcesUsed)
	}
	if len(usage.calls) != 1 || usage.calls[0].cost != 0.025 {
		t.Fatalf("unexpected usage calls %+v", usage.calls)
	}
	if got := ideas.prompts[0].TrendNotes; len(got) != 1 {
		t.Fatalf("expected trend notes in prompt, got %v", got)
	}

	if _, err := engine.GenerateIdeas(context.Background(), req, "anonymous"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(usage.calls) != 1 {
		t.Fatalf("expected anonymous usage not to be recorded")
	}
}

func TestGenerateIdeasLiteRecordsZeroCost(t *testing.T) {
	trends := &fakeTrends{result: domain.TrendResult{TrendNotes: []string{"note"}, EstimatedCostUSD: 0.05}}
	usage := &fakeUsage{}
	engine := NewEngine(nil, &fakeIdeas{}, trends, usage, zap.NewNop())

	req := validRequest()
	req.WantTrends = true
	result, err := engine.GenerateIdeas(context.Background(), req, "user-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Metrics.TrendCost != 0 || result.Metrics.TrendsUsed {
		t.Fatalf("expected zero trend cost on lite path, got %+v", result.Metrics)
	}
	if len(usage.calls) != 1 || usage.calls[0].cost != 0 {
		t.Fatalf("expected zero-cost usage record, got %+v", usage.calls)
	}
}

func TestGenerateIdeasRejectsInvalidRequest(t *testing.T) {
	ideas := &fakeIdeas{}
	engine := NewEngine(nil, ideas, nil, nil, zap.NewNop())

	req := validRequest()
	req.Snippets = make([]string, 31)
	for i := range req.Snippets {
		req.Snippets[i] = "snippet"
	}

	_, err := engine.GenerateIdeas(context.Background(), req, "user-1")
	var validation *apperrors.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(ideas.attempts) != 0 {
		t.Fatalf("expected provider not to be called")
	}
}

func TestLiteIdeasIsDeterministic(t *testing.T) {
	snippets := []string{"Shipping faster with tiny teams", "pricing pages that convert"}
	first, err := LiteIdeas(snippets)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := LiteIdeas(snippets)
	if len(first.Ideas) != 5 || first.Ideas[0].Topic != "shipping faster" {
		t.Fatalf("unexpected lite ideas %+v", first.Ideas)
	}
	for i := range first.Ideas {
		if first.Ideas[i].Topic != second.Ideas[i].Topic {
			t.Fatalf("expected deterministic output")
		}
	}
}
