package util

import (
	"strings"
	"testing"
)

func TestNormalizeWhitespace(t *testing.T) {
	got := NormalizeWhitespace("  hello \n\t world  ")
	if got != "hello world" {
		t.Fatalf("expected %q, got %q", "hello world", got)
	}
	if NormalizeWhitespace("   ") != "" {
		t.Fatalf("expected blank input to normalize to empty string")
	}
}

func TestNormalizeWhitespaceMatchesClientSpaceClass(t *testing.T) {
	if got := NormalizeWhitespace("\uFEFFhello\uFEFFworld\u3000"); got != "hello world" {
		t.Fatalf("expected BOM and ideographic space to split, got %q", got)
	}
	if got := NormalizeWhitespace("a\u0085b"); got != "a\u0085b" {
		t.Fatalf("expected NEL to stay inside the token, got %q", got)
	}
	if got := NormalizeWhitespace("cafe\u0301"); got != "caf\u00e9" {
		t.Fatalf("expected NFC composition, got %q", got)
	}
}

func TestTruncateWords(t *testing.T) {
	text, truncated := TruncateWords("one two three four", 2)
	if !truncated {
		t.Fatalf("expected truncation")
	}
	if text != "one two…" {
		t.Fatalf("expected %q, got %q", "one two…", text)
	}
	if CountWords(text) != 2 {
		t.Fatalf("expected 2 words, got %d", CountWords(text))
	}

	text, truncated = TruncateWords("  one   two ", 5)
	if truncated || text != "one two" {
		t.Fatalf("expected untouched normalized text, got %q (truncated=%v)", text, truncated)
	}
}

func TestClipText(t *testing.T) {
	got := ClipText("Hello   world   from  IdeaEngine", 10)
	if got != "Hello wor..." {
		t.Fatalf("expected %q, got %q", "Hello wor...", got)
	}
	if got := ClipText("short", 10); got != "short" {
		t.Fatalf("expected short text unchanged, got %q", got)
	}
}

func TestClampVisibleLengthIgnoresInvisibleCodepoints(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 140; i++ {
		b.WriteString("a\u200d")
	}
	input := b.String()

	got, truncated := ClampVisibleLength(input, 140)
	if truncated {
		t.Fatalf("expected 140 visible characters to fit")
	}
	if got != input {
		t.Fatalf("expected input returned unchanged")
	}

	clipped := ClipText(input, 140)
	if !strings.HasSuffix(clipped, "...") {
		t.Fatalf("expected raw-length clip to truncate, got %d runes", len([]rune(clipped)))
	}
}

func TestClampVisibleLengthTruncates(t *testing.T) {
	input := strings.Repeat("a", 220)
	got, truncated := ClampVisibleLength(input, 180)
	if !truncated {
		t.Fatalf("expected truncation")
	}
	if !strings.HasSuffix(got, Ellipsis) {
		t.Fatalf("expected ellipsis suffix, got %q", got)
	}
	if n := VisibleLength(got); n > 180 {
		t.Fatalf("expected at most 180 visible characters, got %d", n)
	}

	again, truncated := ClampVisibleLength(got, 180)
	if truncated || again != got {
		t.Fatalf("expected clamp to be idempotent")
	}
}

func TestClampVisibleLengthKeepsGraphemesWhole(t *testing.T) {
	family := "\U0001F468\u200d\U0001F469\u200d\U0001F467"
	input := "ab" + family + "cdef"

	got, truncated := ClampVisibleLength(input, 4)
	if !truncated {
		t.Fatalf("expected truncation")
	}
	if strings.Contains(got, "\U0001F468") {
		t.Fatalf("expected emoji sequence to be dropped whole, got %q", got)
	}
	if got != "ab"+Ellipsis {
		t.Fatalf("expected %q, got %q", "ab"+Ellipsis, got)
	}
}

func TestStripVariantSelectors(t *testing.T) {
	got := StripVariantSelectors("a\u200bb\ufe0fc\u2060")
	if got != "abc" {
		t.Fatalf("expected %q, got %q", "abc", got)
	}
}

func TestChunkSnippets(t *testing.T) {
	snippets := []string{strings.Repeat("a", 40), strings.Repeat("b", 40), strings.Repeat("c", 40)}
	chunks := ChunkSnippets(snippets, 20)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 2 || len(chunks[1]) != 1 {
		t.Fatalf("unexpected chunk sizes: %d, %d", len(chunks[0]), len(chunks[1]))
	}
}

func TestDetectLanguage(t *testing.T) {
	cases := map[string]string{
		"shipping faster":  "en",
		"안녕하세요 여러분":        "ko",
		"こんにちは":            "ja",
		"你好世界":             "zh",
	}
	for input, want := range cases {
		if got := DetectLanguage(input); got != want {
			t.Fatalf("DetectLanguage(%q): expected %s, got %s", input, want, got)
		}
	}
}
