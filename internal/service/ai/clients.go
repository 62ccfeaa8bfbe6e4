package ai

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/kapu/pulse-kit-go/internal/constants"
	"github.com/kapu/pulse-kit-go/internal/domain"
	"github.com/kapu/pulse-kit-go/internal/prompt"
	"github.com/kapu/pulse-kit-go/internal/util"
	"github.com/kapu/pulse-kit-go/pkg/errors"
)

// Generator is the part of ModelManager the clients depend on.
type Generator interface {
	GenerateJSON(ctx context.Context, choice domain.ProviderChoice, req Request, dest any) (*GenerateMetadata, error)
}

// ClusterClient groups snippets into 1..5 themes.
type ClusterClient struct {
	gen Generator
}

func NewClusterClient(gen Generator) *ClusterClient {
	return &ClusterClient{gen: gen}
}

type clusterEnvelope struct {
	Clusters []domain.ClusterTopic `json:"clusters"`
}

func (c *ClusterClient) ClusterSnippets(ctx context.Context, snippets []string, model domain.ProviderChoice) ([]domain.ClusterTopic, error) {
	req := Request{
		Operation:   "cluster",
		Messages:    prompt.BuildClusterPrompt(snippets),
		Schema:      clustersSchema,
		Temperature: constants.ProviderConfig.ClusterTemp,
		MaxTokens:   constants.ProviderConfig.ClusterMaxTokens,
	}

	var out clusterEnvelope
	meta, err := c.gen.GenerateJSON(ctx, model, req, &out)
	if err != nil {
		return nil, err
	}
	if err := validateClusters(out.Clusters); err != nil {
		return nil, errors.NewProviderError("cluster payload failed validation", meta.Provider, req.Operation, err)
	}
	return out.Clusters, nil
}

func validateClusters(clusters []domain.ClusterTopic) error {
	limits := constants.IdeaLimits
	if len(clusters) == 0 || len(clusters) > limits.ClustersMax {
		return fmt.Errorf("expected 1..%d clusters, got %d", limits.ClustersMax, len(clusters))
	}
	for i, cluster := range clusters {
		if strings.TrimSpace(cluster.Topic) == "" {
			return fmt.Errorf("clusters[%d].topic is empty", i)
		}
		if len(cluster.PainPoints) != limits.PainPoints {
			return fmt.Errorf("clusters[%d] has %d pain points", i, len(cluster.PainPoints))
		}
		if len(cluster.Quotes) != limits.Quotes {
			return fmt.Errorf("clusters[%d] has %d quotes", i, len(cluster.Quotes))
		}
	}
	return nil
}

// IdeaClient asks for idea candidates. Only the document shape is checked
// here; bounds are applied by the idea normalizer.
type IdeaClient struct {
	gen Generator
}

func NewIdeaClient(gen Generator) *IdeaClient {
	return &IdeaClient{gen: gen}
}

func (c *IdeaClient) GenerateIdeas(ctx context.Context, p domain.IdeaPrompt, attempt domain.Attempt) (domain.RawIdeasPayload, error) {
	req := Request{
		Operation:   "ideas",
		Messages:    prompt.BuildIdeasPrompt(p).WithReminder(attempt.Reminder),
		Schema:      ideasSchema,
		Temperature: attempt.Temperature,
		MaxTokens:   constants.ProviderConfig.IdeasMaxTokens,
	}

	var out domain.RawIdeasPayload
	meta, err := c.gen.GenerateJSON(ctx, p.Model, req, &out)
	if err != nil {
		return domain.RawIdeasPayload{}, err
	}
	if len(out.Ideas) == 0 {
		return domain.RawIdeasPayload{}, errors.NewProviderError("ideas payload has no ideas", meta.Provider, req.Operation, nil)
	}
	for i, topic := range out.Ideas {
		if len(topic.Items) == 0 {
			return domain.RawIdeasPayload{}, errors.NewProviderError(
				fmt.Sprintf("ideas[%d] has no items", i), meta.Provider, req.Operation, nil)
		}
	}
	return out, nil
}

// ReplyClient asks for reply candidates.
type ReplyClient struct {
	gen Generator
}

func NewReplyClient(gen Generator) *ReplyClient {
	return &ReplyClient{gen: gen}
}

func (c *ReplyClient) GenerateReplies(ctx context.Context, p domain.ReplyPrompt, attempt domain.Attempt) (domain.RawReplies, error) {
	req := Request{
		Operation:   "replies",
		Messages:    prompt.BuildRepliesPrompt(p).WithReminder(attempt.Reminder),
		Schema:      repliesSchema,
		Temperature: attempt.Temperature,
		MaxTokens:   constants.ProviderConfig.RepliesMaxTokens,
	}

	var out domain.RawReplies
	meta, err := c.gen.GenerateJSON(ctx, p.Model, req, &out)
	if err != nil {
		return domain.RawReplies{}, err
	}
	if len(out.Replies) == 0 {
		return domain.RawReplies{}, errors.NewProviderError("replies payload is empty", meta.Provider, req.Operation, nil)
	}
	return out, nil
}

// TrendClient looks up live trend sparks through xAI search.
type TrendClient struct {
	gen     Generator
	enabled bool
	logger  *zap.Logger
}

// NewTrendClient returns a client that answers empty results when enabled is
// false (no xAI key).
func NewTrendClient(gen Generator, enabled bool, logger *zap.Logger) *TrendClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrendClient{gen: gen, enabled: enabled, logger: logger}
}

func (c *TrendClient) FetchTrends(ctx context.Context, clusters []domain.ClusterTopic, maxSources int) (domain.TrendResult, error) {
	empty := domain.TrendResult{TrendNotes: []string{}, SourcesUsed: []domain.Source{}}
	if !c.enabled || maxSources <= 0 {
		return empty, nil
	}

	sourceCap := util.ClampInt(maxSources, 0, constants.TrendConfig.MaxSources)
	preferred := []string{"X"}
	searchSources := []map[string]any{{"type": "x"}}
	if sourceCap == 2 {
		preferred = append(preferred, "News")
		searchSources = append(searchSources, map[string]any{"type": "news"})
	}

	req := Request{
		Operation:   "trends",
		Messages:    prompt.BuildTrendsPrompt(clusters, sourceCap, preferred),
		Schema:      trendsSchema,
		Temperature: constants.ProviderConfig.TrendsTemp,
		MaxTokens:   constants.ProviderConfig.TrendsMaxTokens,
		Pinned:      true,
		Extra: map[string]any{
			"search_parameters": map[string]any{
				"mode":               "on",
				"sources":            searchSources,
				"max_search_results": sourceCap,
				"return_citations":   true,
			},
		},
	}

	var out domain.TrendResult
	meta, err := c.gen.GenerateJSON(ctx, domain.ProviderXAI, req, &out)
	if err != nil {
		return empty, err
	}
	if err := validateTrends(out); err != nil {
		return empty, errors.NewProviderError("trend payload failed validation", meta.Provider, req.Operation, err)
	}

	sources := out.SourcesUsed
	if len(sources) > sourceCap {
		sources = sources[:sourceCap]
	}
	notes := out.TrendNotes
	if len(notes) > sourceCap {
		notes = notes[:sourceCap]
	}
	if notes == nil {
		notes = []string{}
	}
	if sources == nil {
		sources = []domain.Source{}
	}

	result := domain.TrendResult{
		TrendNotes:       notes,
		SourcesUsed:      sources,
		EstimatedCostUSD: util.RoundTo(float64(len(sources))*constants.TrendConfig.CostPerSource, 3),
	}
	c.logger.Debug("Trend sparks fetched",
		zap.Int("source_cap", sourceCap),
		zap.Int("notes", len(notes)),
		zap.Int("sources", len(sources)),
	)
	return result, nil
}

func validateTrends(result domain.TrendResult) error {
	if len(result.TrendNotes) > constants.TrendConfig.MaxNotes {
		return fmt.Errorf("too many trend notes: %d", len(result.TrendNotes))
	}
	if len(result.SourcesUsed) > 3 {
		return fmt.Errorf("too many sources: %d", len(result.SourcesUsed))
	}
	for i, source := range result.SourcesUsed {
		if source.URL == "" {
			continue
		}
		if u, err := url.Parse(source.URL); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("sources_used[%d].url is not a URL", i)
		}
	}
	return nil
}
