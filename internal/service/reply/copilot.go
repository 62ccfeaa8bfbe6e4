package reply

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/pulse-kit-go/internal/domain"
	"github.com/kapu/pulse-kit-go/internal/util"
)

// Provider produces untrusted reply candidates.
type Provider interface {
	GenerateReplies(ctx context.Context, prompt domain.ReplyPrompt, attempt domain.Attempt) (domain.RawReplies, error)
}

// Metrics describes one reply generation.
type Metrics struct {
	GeneratedAt time.Time `json:"generated_at"`
	Fallback    bool      `json:"fallback"`
}

// Result is returned by Copilot.GenerateReplies.
type Result struct {
	Response domain.RepliesResponse
	Metrics  Metrics
}

// Copilot drafts three replies to a tweet in the user's voice.
type Copilot struct {
	provider Provider
	attempts []domain.Attempt
	now      func() time.Time
	logger   *zap.Logger
}

// NewCopilot returns a Copilot using the default retry schedule.
func NewCopilot(provider Provider, logger *zap.Logger) *Copilot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Copilot{
		provider: provider,
		attempts: domain.DefaultAttempts(),
		now:      time.Now,
		logger:   logger,
	}
}

// GenerateReplies validates req and returns exactly three replies. Provider
// failures fall through to deterministic replies.
func (c *Copilot) GenerateReplies(ctx context.Context, req domain.RepliesRequest, userID string) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	prompt := domain.ReplyPrompt{
		TweetText:    util.NormalizeWhitespace(req.TweetText),
		StyleProfile: *req.StyleProfile,
		Model:        req.Model,
	}
	if req.ContextSummary != nil {
		prompt.ContextSummary = util.NormalizeWhitespace(*req.ContextSummary)
	}

	for i, attempt := range c.attempts {
		raw, err := c.provider.GenerateReplies(ctx, prompt, attempt)
		if err != nil {
			c.logger.Warn("Reply generation attempt failed",
				zap.Int("attempt", i+1),
				zap.String("label", attempt.Label()),
				zap.String("user_id", userID),
				zap.Error(err),
			)
			continue
		}

		replies, err := NormalizeReplies(raw.Replies)
		if err != nil {
			c.logger.Error("Normalized replies failed validation", zap.Error(err))
			return nil, err
		}
		return &Result{
			Response: toResponse(replies),
			Metrics:  Metrics{GeneratedAt: c.now()},
		}, nil
	}

	c.logger.Warn("All reply attempts failed, serving fallback replies", zap.String("user_id", userID))

	replies, err := FallbackReplies(req.TweetText)
	if err != nil {
		c.logger.Error("Fallback replies failed validation", zap.Error(err))
		return nil, err
	}
	return &Result{
		Response: toResponse(replies),
		Metrics:  Metrics{GeneratedAt: c.now(), Fallback: true},
	}, nil
}
