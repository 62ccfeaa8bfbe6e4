package snippet

import (
	"strings"
	"testing"

	"go.uber.org/zap"
)

const timelinePrimary = `<html><body>
<div data-testid="cellInnerDiv"><article data-testid="tweet"><div data-testid="tweetText" lang="en">Primary selector tweet text one.</div></article></div>
<div data-testid="cellInnerDiv"><article data-testid="tweet"><div data-testid="tweetText" lang="en">Primary   selector
 tweet text two.</div></article></div>
<div data-testid="cellInnerDiv"><div data-testid="tweetText">Primary selector tweet text one.</div></div>
</body></html>`

const timelineFallback = `<html><body>
<article data-testid="tweet"><div lang="en">Fallback tweet content alpha.</div></article>
<article data-testid="tweet"><div lang="en">Fallback tweet content beta.</div></article>
</body></html>`

func TestExtractPrimarySelector(t *testing.T) {
	result, err := NewExtractor(zap.NewNop()).ExtractString(timelinePrimary, KeyHome, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Primary selector tweet text one.", "Primary selector tweet text two."}
	if len(result.Snippets) != len(want) {
		t.Fatalf("expected %v, got %v", want, result.Snippets)
	}
	for i := range want {
		if result.Snippets[i] != want[i] {
			t.Fatalf("expected %q, got %q", want[i], result.Snippets[i])
		}
	}
	if result.Diagnostics[0].Label != "Timeline primary" || result.Diagnostics[0].Matches != 3 {
		t.Fatalf("unexpected diagnostics %+v", result.Diagnostics)
	}
}

func TestExtractFallsBackWhenPrimaryMisses(t *testing.T) {
	result, err := NewExtractor(nil).ExtractString(timelineFallback, KeyHome, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Snippets) != 2 || result.Snippets[0] != "Fallback tweet content alpha." {
		t.Fatalf("unexpected snippets %v", result.Snippets)
	}
	if result.Diagnostics[0].Matches != 0 || result.Diagnostics[1].Matches != 2 {
		t.Fatalf("unexpected diagnostics %+v", result.Diagnostics)
	}
}

func TestExtractTweetStopsAtOne(t *testing.T) {
	html := `<article data-testid="tweet"><div data-testid="tweetText">Primary tweet text body.</div></article>
<article data-testid="tweet"><div data-testid="tweetText">Reply text.</div></article>`
	result, _ := NewExtractor(nil).ExtractString(html, KeyTweet, 30)
	if len(result.Snippets) != 1 || result.Snippets[0] != "Primary tweet text body." {
		t.Fatalf("unexpected tweet snippet %v", result.Snippets)
	}
	if len(result.Diagnostics) != 1 {
		t.Fatalf("fallback should not run once the cap is met")
	}
}

func TestExtractClipsLongText(t *testing.T) {
	html := `<div data-testid="cellInnerDiv"><div data-testid="tweetText">` + strings.Repeat("a", 300) + `</div></div>`
	result, _ := NewExtractor(nil).ExtractString(html, KeyHome, 5)
	if len([]rune(result.Snippets[0])) != 242 || !strings.HasSuffix(result.Snippets[0], "...") {
		t.Fatalf("expected clipped snippet, got %d runes", len([]rune(result.Snippets[0])))
	}
}

func TestExtractUnknownKey(t *testing.T) {
	if _, err := NewExtractor(nil).ExtractString("<p></p>", Key("profile"), 5); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

func TestInferPageContext(t *testing.T) {
	cases := map[string]Key{
		"https://x.com/home":                 KeyHome,
		"/":                                  KeyHome,
		"https://x.com/notifications":        KeyMentions,
		"https://x.com/jack/status/20":       KeyTweet,
		"https://twitter.com/messages/123-4": KeyMessages,
	}
	for raw, want := range cases {
		got, ok := InferPageContext(raw)
		if !ok || got != want {
			t.Fatalf("%s: expected %s, got %s (%v)", raw, want, got, ok)
		}
	}
	if _, ok := InferPageContext("https://x.com/settings"); ok {
		t.Fatalf("settings should be unknown")
	}
}

func TestExtractReportsTokenEstimate(t *testing.T) {
	result, err := NewExtractor(nil).ExtractString(timelinePrimary, KeyHome, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.EstimatedTokens != 16 {
		t.Fatalf("expected 16 estimated tokens, got %d", result.EstimatedTokens)
	}
	if result.Chunks != 1 {
		t.Fatalf("expected 1 chunk, got %d", result.Chunks)
	}

	empty, _ := NewExtractor(nil).ExtractString("<p>nothing here</p>", KeyHome, 30)
	if empty.EstimatedTokens != 0 || empty.Chunks != 0 {
		t.Fatalf("expected zero size for no snippets, got %+v", empty)
	}
}
