package snippet

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/kapu/pulse-kit-go/internal/constants"
	"github.com/kapu/pulse-kit-go/internal/util"
)

// Diagnostics reports how many nodes a variant matched.
type Diagnostics struct {
	Label    string `json:"label"`
	Selector string `json:"selector"`
	Matches  int    `json:"matches"`
}

// Result is the outcome of one extraction.
// EstimatedTokens and Chunks size the snippets for a generation request.
type Result struct {
	Context         Key           `json:"context"`
	Snippets        []string      `json:"snippets"`
	Diagnostics     []Diagnostics `json:"diagnostics"`
	EstimatedTokens int           `json:"estimated_tokens"`
	Chunks          int           `json:"chunks"`
}

// Extractor runs the selector map over HTML documents.
type Extractor struct {
	logger *zap.Logger
}

func NewExtractor(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// Extract parses r and collects up to min(limit, entry max) unique snippets
// for key, walking the primary selector then the fallbacks.
func (e *Extractor) Extract(r io.Reader, key Key, limit int) (*Result, error) {
	entry, ok := SelectorMap[key]
	if !ok {
		return nil, fmt.Errorf("unknown page context %q", key)
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	if limit <= 0 {
		limit = constants.SnippetConfig.DefaultMaxItems
	}
	max := limit
	if entry.MaxItems < max {
		max = entry.MaxItems
	}

	result := &Result{Context: key, Snippets: []string{}, Diagnostics: []Diagnostics{}}
	seen := make(map[string]struct{})

	for _, variant := range entry.variants() {
		nodes := doc.Find(variant.Selector)
		result.Diagnostics = append(result.Diagnostics, Diagnostics{
			Label:    variant.Label,
			Selector: variant.Selector,
			Matches:  nodes.Length(),
		})

		nodes.EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if len(result.Snippets) >= max {
				return false
			}
			text := util.ClipText(util.NormalizeWhitespace(s.Text()), constants.RequestLimits.SnippetMaxChars)
			if text == "" {
				return true
			}
			if _, dup := seen[text]; dup {
				return true
			}
			seen[text] = struct{}{}
			result.Snippets = append(result.Snippets, text)
			return true
		})

		if len(result.Snippets) >= max {
			break
		}
	}

	for _, text := range result.Snippets {
		result.EstimatedTokens += util.EstimateTokens(text)
	}
	result.Chunks = len(util.ChunkSnippets(result.Snippets, constants.SnippetConfig.ChunkTokens))

	e.logger.Debug("Snippets extracted",
		zap.String("context", string(key)),
		zap.Int("snippets", len(result.Snippets)),
		zap.Int("variants_tried", len(result.Diagnostics)),
	)

	return result, nil
}

// ExtractString is Extract over an HTML string.
func (e *Extractor) ExtractString(html string, key Key, limit int) (*Result, error) {
	return e.Extract(strings.NewReader(html), key, limit)
}

// InferPageContext maps an X/Twitter URL or path to a layout key. ok is
// false for unknown pages.
func InferPageContext(rawURL string) (Key, bool) {
	base, _ := url.Parse("https://x.com")
	ref, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", false
	}
	path := base.ResolveReference(ref).Path

	switch {
	case path == "/" || strings.HasPrefix(path, "/home"):
		return KeyHome, true
	case strings.HasPrefix(path, "/notifications") || strings.HasPrefix(path, "/mentions"):
		return KeyMentions, true
	case strings.Contains(path, "/status/"):
		return KeyTweet, true
	case strings.HasPrefix(path, "/messages"):
		return KeyMessages, true
	}
	return "", false
}
