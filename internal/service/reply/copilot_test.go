package reply

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kapu/pulse-kit-go/internal/domain"
	"github.com/kapu/pulse-kit-go/internal/util"
	apperrors "github.com/kapu/pulse-kit-go/pkg/errors"
)

type fakeProvider struct {
	replies  []string
	err      error
	attempts []domain.Attempt
}

func (f *fakeProvider) GenerateReplies(ctx context.Context, prompt domain.ReplyPrompt, attempt domain.Attempt) (domain.RawReplies, error) {
	f.attempts = append(f.attempts, attempt)
	if f.err != nil {
		return domain.RawReplies{}, f.err
	}
	return domain.RawReplies{Replies: f.replies}, nil
}

func request(tweet string) domain.RepliesRequest {
	return domain.RepliesRequest{
		TweetText: tweet,
		StyleProfile: &domain.StyleProfile{
			Voice:          "Energetic creator",
			Cadence:        "Conversational and direct",
			SentenceLength: "Short bursts",
		},
	}
}

func TestNormalizeRepliesCardinality(t *testing.T) {
	cases := [][]string{
		nil,
		{"one"},
		{"one", "two"},
		{"one", "two", "three", "four", "five"},
		{"", "  ", "one"},
	}
	for _, input := range cases {
		got, err := NormalizeReplies(input)
		if err != nil {
			t.Fatalf("NormalizeReplies(%v): unexpected error %v", input, err)
		}
		for i, r := range got {
			if r == "" {
				t.Fatalf("NormalizeReplies(%v): slot %d empty", input, i)
			}
		}
	}

	got, _ := NormalizeReplies([]string{"one"})
	if got[0] != "one" || got[1] != slotFillers[1] || got[2] != slotFillers[2] {
		t.Fatalf("expected fillers by slot index, got %v", got)
	}

	got, _ = NormalizeReplies([]string{"one", "two", "three", "four", "five"})
	if got[2] != "three" {
		t.Fatalf("expected extras to be discarded, got %v", got)
	}
}

func TestGenerateRepliesClampsLongReplies(t *testing.T) {
	long := strings.Repeat("a", 220)
	provider := &fakeProvider{replies: []string{long, "  B  ", "C"}}
	copilot := NewCopilot(provider, zap.NewNop())

	result, err := copilot.GenerateReplies(context.Background(), request("What do you ship this week?"), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	replies := result.Response.Replies
	if n := util.VisibleLength(replies[0]); n > 180 {
		t.Fatalf("expected first reply within 180 visible characters, got %d", n)
	}
	if !strings.HasSuffix(replies[0], util.Ellipsis) {
		t.Fatalf("expected truncated reply to end with ellipsis")
	}
	if replies[1] != "B" || replies[2] != "C" {
		t.Fatalf("unexpected replies %v", replies)
	}
	if result.Metrics.Fallback {
		t.Fatalf("expected provider replies, not fallback")
	}
}

func TestGenerateRepliesFallsBackAfterTwoFailures(t *testing.T) {
	provider := &fakeProvider{err: errors.New("timeout")}
	copilot := NewCopilot(provider, zap.NewNop())

	result, err := copilot.GenerateReplies(context.Background(), request("Launching our beta today"), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(provider.attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(provider.attempts))
	}
	if !result.Metrics.Fallback {
		t.Fatalf("expected fallback metrics flag")
	}
	replies := result.Response.Replies
	if replies[0] != "Insight: Launching our beta today Zoom out and call the hidden lever." {
		t.Fatalf("unexpected first fallback reply %q", replies[0])
	}
	if !strings.HasPrefix(replies[1], "Question:") || !strings.HasPrefix(replies[2], "Example:") {
		t.Fatalf("unexpected fallback replies %v", replies)
	}
}

func TestFallbackRepliesBoundsBase(t *testing.T) {
	replies, err := FallbackReplies(strings.Repeat("word ", 100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, r := range replies {
		if util.VisibleLength(r) > 180 {
			t.Fatalf("reply %d exceeds 180 visible characters", i)
		}
	}
}

func TestGenerateRepliesRejectsEmptyTweet(t *testing.T) {
	provider := &fakeProvider{}
	copilot := NewCopilot(provider, zap.NewNop())

	_, err := copilot.GenerateReplies(context.Background(), request("   "), "user-1")
	var validation *apperrors.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(provider.attempts) != 0 {
		t.Fatalf("expected provider not to be called")
	}
}
