package idea

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/pulse-kit-go/internal/constants"
	"github.com/kapu/pulse-kit-go/internal/domain"
	"github.com/kapu/pulse-kit-go/internal/util"
)

// ClusterProvider groups snippets into themes.
type ClusterProvider interface {
	ClusterSnippets(ctx context.Context, snippets []string, model domain.ProviderChoice) ([]domain.ClusterTopic, error)
}

// IdeaProvider produces an untrusted ideas payload.
type IdeaProvider interface {
	GenerateIdeas(ctx context.Context, prompt domain.IdeaPrompt, attempt domain.Attempt) (domain.RawIdeasPayload, error)
}

// TrendProvider looks up live trend notes for clusters.
type TrendProvider interface {
	FetchTrends(ctx context.Context, clusters []domain.ClusterTopic, maxSources int) (domain.TrendResult, error)
}

// UsageRecorder books trend spend per user.
type UsageRecorder interface {
	Record(ctx context.Context, userID string, cost float64, at time.Time) error
}

// Metrics describes the trend side of one generation.
type Metrics struct {
	TrendCost        float64 `json:"trend_cost"`
	TrendCalls       int     `json:"trend_calls"`
	TrendsUsed       bool    `json:"trends_used"`
	SourcesUsedCount int     `json:"sources_used_count"`
	Lite             bool    `json:"lite"`
}

// Result is returned by Engine.GenerateIdeas.
type Result struct {
	Response    domain.IdeasResponse
	SourcesUsed []domain.Source
	Metrics     Metrics
}

// Engine runs cluster, trend, generate and normalize for ideas. Provider
// failures never escape: after the last attempt it serves lite ideas.
type Engine struct {
	clusters ClusterProvider
	ideas    IdeaProvider
	trends   TrendProvider
	usage    UsageRecorder
	attempts []domain.Attempt
	now      func() time.Time
	logger   *zap.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithAttempts replaces the retry schedule.
func WithAttempts(attempts []domain.Attempt) Option {
	return func(e *Engine) { e.attempts = attempts }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine wires the collaborators. trends and usage may be nil.
func NewEngine(clusters ClusterProvider, ideas IdeaProvider, trends TrendProvider, usage UsageRecorder, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		clusters: clusters,
		ideas:    ideas,
		trends:   trends,
		usage:    usage,
		attempts: domain.DefaultAttempts(),
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GenerateIdeas validates req and produces a normalized ideas response.
// The only errors returned are request validation errors and
// normalization defects.
func (e *Engine) GenerateIdeas(ctx context.Context, req domain.IdeasRequest, userID string) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	snippets := safeSnippets(req.Snippets)
	clusters := e.cluster(ctx, snippets, req.Model)

	var (
		trendNotes   []string
		trendSources []domain.Source
		trendCost    float64
	)
	if req.WantTrends {
		trend := e.fetchTrends(ctx, clusters, req.TrendSourceCap())
		trendNotes, trendSources, trendCost = trend.TrendNotes, trend.SourcesUsed, trend.EstimatedCostUSD
	}

	prompt := domain.IdeaPrompt{
		Snippets:     snippets,
		StyleProfile: *req.StyleProfile,
		Clusters:     clusters,
		TrendNotes:   trendNotes,
		Model:        req.Model,
	}
	if req.Niche != nil {
		prompt.Niche = util.NormalizeWhitespace(*req.Niche)
	}

	trendCalls := 0
	if req.WantTrends {
		trendCalls = 1
	}

	for i, attempt := range e.attempts {
		raw, err := e.ideas.GenerateIdeas(ctx, prompt, attempt)
		if err != nil {
			e.logger.Warn("Idea generation attempt failed",
				zap.Int("attempt", i+1),
				zap.String("label", attempt.Label()),
				zap.Float64("temperature", attempt.Temperature),
				zap.Error(err),
			)
			continue
		}

		normalized, err := NormalizeIdeasPayload(raw, snippets, trendSources)
		if err != nil {
			e.logger.Error("Normalized ideas failed validation", zap.Error(err))
			return nil, err
		}

		trendsUsed := req.WantTrends && (len(trendNotes) > 0 || len(normalized.SourcesUsed) > 0)
		cost := 0.0
		if trendsUsed {
			cost = trendCost
		}
		e.recordUsage(ctx, req.WantTrends, userID, cost)

		return &Result{
			Response:    normalized,
			SourcesUsed: normalized.SourcesUsed,
			Metrics: Metrics{
				TrendCost:        cost,
				TrendCalls:       trendCalls,
				TrendsUsed:       trendsUsed,
				SourcesUsedCount: len(normalized.SourcesUsed),
			},
		}, nil
	}

	e.logger.Warn("All idea attempts failed, serving lite ideas",
		zap.Int("attempts", len(e.attempts)),
		zap.Int("snippets", len(snippets)),
	)

	lite, err := e.liteIdeas(snippets)
	if err != nil {
		return nil, err
	}
	e.recordUsage(ctx, req.WantTrends, userID, 0)

	return &Result{
		Response:    lite,
		SourcesUsed: lite.SourcesUsed,
		Metrics: Metrics{
			TrendCalls:       trendCalls,
			SourcesUsedCount: len(lite.SourcesUsed),
			Lite:             true,
		},
	}, nil
}

// LiteIdeas builds the deterministic no-provider response for snippets.
func LiteIdeas(snippets []string) (domain.IdeasResponse, error) {
	snippets = safeSnippets(snippets)
	desired := constants.IdeaLimits.IdeasMin
	if constants.IdeaLimits.LiteIdeasMin > desired {
		desired = constants.IdeaLimits.LiteIdeasMin
	}

	topics := BuildFallbackTopics(snippets, desired)
	raw := domain.RawIdeasPayload{Ideas: make([]domain.RawIdeaTopic, 0, len(topics))}
	for _, topic := range topics {
		raw.Ideas = append(raw.Ideas, toRaw(topic))
	}
	return NormalizeIdeasPayload(raw, snippets, nil)
}

func (e *Engine) liteIdeas(snippets []string) (domain.IdeasResponse, error) {
	lite, err := LiteIdeas(snippets)
	if err != nil {
		e.logger.Error("Lite ideas failed validation", zap.Error(err))
		return domain.IdeasResponse{}, err
	}
	return lite, nil
}

func (e *Engine) cluster(ctx context.Context, snippets []string, model domain.ProviderChoice) []domain.ClusterTopic {
	if e.clusters == nil || len(snippets) == 0 {
		return FallbackCluster(snippets)
	}
	clusters, err := e.clusters.ClusterSnippets(ctx, snippets, model)
	if err != nil {
		e.logger.Warn("Clustering failed, using keyword buckets", zap.Error(err))
		return FallbackCluster(snippets)
	}
	return clusters
}

func (e *Engine) fetchTrends(ctx context.Context, clusters []domain.ClusterTopic, maxSources int) domain.TrendResult {
	if e.trends == nil {
		return domain.TrendResult{}
	}
	result, err := e.trends.FetchTrends(ctx, clusters, maxSources)
	if err != nil {
		e.logger.Warn("Trend lookup failed", zap.Error(err))
		return domain.TrendResult{}
	}
	if len(result.SourcesUsed) > 0 {
		names := make([]string, 0, len(result.SourcesUsed))
		for _, source := range result.SourcesUsed {
			names = append(names, source.Name)
		}
		e.logger.Info("Trend sources used",
			zap.Strings("sources", names),
			zap.Float64("estimated_cost_usd", result.EstimatedCostUSD),
		)
	}
	return result
}

func (e *Engine) recordUsage(ctx context.Context, wantTrends bool, userID string, cost float64) {
	if !wantTrends || e.usage == nil || userID == "" || userID == constants.AnonymousUser {
		return
	}
	if err := e.usage.Record(ctx, userID, cost, e.now()); err != nil {
		e.logger.Warn("Failed to record trend usage", zap.String("user_id", userID), zap.Error(err))
	}
}

func safeSnippets(snippets []string) []string {
	limits := constants.RequestLimits
	if len(snippets) > limits.SnippetsMax {
		snippets = snippets[:limits.SnippetsMax]
	}
	result := make([]string, 0, len(snippets))
	for _, snippet := range snippets {
		result = append(result, util.ClipText(snippet, limits.SnippetMaxChars))
	}
	return result
}

func toRaw(topic domain.IdeaTopic) domain.RawIdeaTopic {
	raw := domain.RawIdeaTopic{
		Topic:      topic.Topic,
		TrendNotes: topic.TrendNotes,
		Items:      make([]domain.RawIdeaItem, 0, len(topic.Items)),
	}
	for _, item := range topic.Items {
		raw.Items = append(raw.Items, domain.RawIdeaItem{
			Hook:            item.Hook,
			MiniOutline:     item.MiniOutline,
			ViralityScore:   domain.Score{Value: float64(item.ViralityScore), Set: true},
			RecommendedTime: string(item.RecommendedTime),
		})
	}
	return raw
}
