package util

import (
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
	"golang.org/x/text/unicode/norm"
)

// Ellipsis is appended by the word and visible-length truncators.
const Ellipsis = "…"

// clipSuffix is appended by ClipText, which operates on raw length.
const clipSuffix = "..."

// NormalizeWhitespace composes the text to NFC, collapses every whitespace
// run into a single space and trims both ends.
func NormalizeWhitespace(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.FieldsFunc(norm.NFC.String(s), IsSpace), " ")
}

// IsSpace reports whether r is whitespace as the web client's \s class sees
// it: unicode.IsSpace plus U+FEFF, minus U+0085.
func IsSpace(r rune) bool {
	switch r {
	case '\uFEFF':
		return true
	case '\u0085':
		return false
	}
	return unicode.IsSpace(r)
}

// TokenizeWords splits normalized text on single spaces.
func TokenizeWords(s string) []string {
	normalized := NormalizeWhitespace(s)
	if normalized == "" {
		return nil
	}
	return strings.Split(normalized, " ")
}

// CountWords returns the number of whitespace separated tokens.
func CountWords(s string) int {
	return len(TokenizeWords(s))
}

// TruncateWords keeps the first maxWords tokens. When anything was dropped
// the joined text ends with a single ellipsis.
func TruncateWords(s string, maxWords int) (string, bool) {
	words := TokenizeWords(s)
	if len(words) <= maxWords {
		return strings.Join(words, " "), false
	}
	if maxWords <= 0 {
		return "", true
	}
	return strings.Join(words[:maxWords], " ") + Ellipsis, true
}

// ClipText bounds normalized text to max runes, replacing the tail with "...".
// Invisible codepoints count toward the length here.
func ClipText(s string, max int) string {
	normalized := NormalizeWhitespace(s)
	runes := []rune(normalized)
	if len(runes) <= max {
		return normalized
	}
	if max <= 0 {
		return ""
	}
	return strings.TrimRightFunc(string(runes[:max-1]), IsSpace) + clipSuffix
}

// IsInvisible reports whether r renders with zero width: joiners,
// zero-width spaces, the word joiner, BOM and variation selectors.
func IsInvisible(r rune) bool {
	switch r {
	case '\u200b', '\u200c', '\u200d', '\u2060', '\ufeff':
		return true
	}
	if r >= 0xFE00 && r <= 0xFE0F {
		return true
	}
	return r >= 0xE0100 && r <= 0xE01EF
}

// StripVariantSelectors removes every invisible codepoint.
func StripVariantSelectors(s string) string {
	return strings.Map(func(r rune) rune {
		if IsInvisible(r) {
			return -1
		}
		return r
	}, s)
}

// VisibleLength counts runes that are not invisible.
func VisibleLength(s string) int {
	n := 0
	for _, r := range s {
		if !IsInvisible(r) {
			n++
		}
	}
	return n
}

// ClampVisibleLength bounds normalized text to max visible characters.
// Text that fits is returned unchanged (invisible codepoints kept). Otherwise
// whole grapheme clusters are kept while they fit in max-1 visible slots and
// a single ellipsis fills the last one, so the result never exceeds max.
func ClampVisibleLength(s string, max int) (string, bool) {
	normalized := NormalizeWhitespace(s)
	if VisibleLength(normalized) <= max {
		return normalized, false
	}
	if max <= 0 {
		return "", true
	}

	budget := max - 1
	used := 0
	var b strings.Builder
	graphemes := uniseg.NewGraphemes(normalized)
	for graphemes.Next() {
		cluster := graphemes.Str()
		width := VisibleLength(cluster)
		if used+width > budget {
			break
		}
		b.WriteString(cluster)
		used += width
	}

	return strings.TrimRightFunc(b.String(), func(r rune) bool {
		return IsSpace(r) || IsInvisible(r)
	}) + Ellipsis, true
}

// EstimateTokens approximates the token count of text at four characters per token.
func EstimateTokens(s string) int {
	n := len([]rune(s))
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}

// ChunkSnippets groups snippets so each chunk stays under maxTokens.
// A single oversized snippet still gets a chunk of its own.
func ChunkSnippets(snippets []string, maxTokens int) [][]string {
	var chunks [][]string
	var current []string
	tokens := 0

	for _, snippet := range snippets {
		cost := EstimateTokens(snippet)
		if len(current) > 0 && tokens+cost > maxTokens {
			chunks = append(chunks, current)
			current = nil
			tokens = 0
		}
		current = append(current, snippet)
		tokens += cost
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	return chunks
}

// DetectLanguage is a coarse script check used for prompt hints.
// It returns "ko", "ja", "zh" or "en".
func DetectLanguage(s string) string {
	var hangul, kana, han, letters int
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Hangul, r):
			hangul++
		case unicode.Is(unicode.Hiragana, r), unicode.Is(unicode.Katakana, r):
			kana++
		case unicode.Is(unicode.Han, r):
			han++
		case unicode.IsLetter(r):
			letters++
		}
	}

	switch {
	case hangul > 0 && hangul >= kana && hangul >= han:
		return "ko"
	case kana > 0:
		return "ja"
	case han > 0 && han > letters:
		return "zh"
	default:
		return "en"
	}
}

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "with": {}, "that": {}, "this": {}, "from": {},
	"have": {}, "what": {}, "your": {}, "about": {}, "into": {}, "just": {},
}

// IsStopWord reports whether a lowercased token carries no topical signal.
func IsStopWord(token string) bool {
	_, ok := stopWords[token]
	return ok
}
