package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kapu/pulse-kit-go/internal/domain"
)

// Fallback renderers used when an embedded template fails to load or execute.

func fallbackClusterPrompt(vars clusterVars) string {
	return fmt.Sprintf("Snippets JSON: %s", mustJSON(vars.Snippets))
}

func fallbackIdeasPrompt(p domain.IdeaPrompt) string {
	var b strings.Builder
	b.WriteString("Using topics + style_profile + optional trend_notes, return 5-6 ideas as strict JSON ")
	b.WriteString(`{"ideas":[{"topic":string,"trend_notes":string[],"items":[{"hook":string,"mini_outline":string[5..7],"virality_score":0..100,"recommended_time":"morning"|"afternoon"|"evening"}]}]}.`)
	b.WriteString("\nConstraints: hooks <=18 words, no hashtags, outlines <140 chars per bullet, obey banned_words.")
	if p.Niche != "" {
		fmt.Fprintf(&b, "\nNiche: %s", p.Niche)
	}
	fmt.Fprintf(&b, "\nClusters JSON: %s", mustJSON(p.Clusters))
	fmt.Fprintf(&b, "\nSnippets JSON: %s", mustJSON(p.Snippets))
	fmt.Fprintf(&b, "\nStyle Profile JSON: %s", mustJSON(p.StyleProfile))
	fmt.Fprintf(&b, "\nTrend Notes JSON: %s", mustJSON(p.TrendNotes))
	return b.String()
}

func fallbackRepliesPrompt(payload replyPayload) string {
	return fmt.Sprintf(`Given tweet_text, optional context_summary, and style_profile, produce strict JSON {"replies":[string,string,string]}. Each <180 chars; angles: insight, question, example; no hashtags.
Tweet Payload JSON: %s`, mustJSON(payload))
}

func fallbackTrendsPrompt(vars trendVars) string {
	return fmt.Sprintf("Analyze these clusters JSON: %s. Provide up to %d timely sparks referencing %s.",
		mustJSON(vars.Clusters), vars.SourceCap, strings.Join(vars.PreferredSources, " and "))
}

func mustJSON(v any) string {
	out, err := toJSON(v)
	if err != nil {
		data, _ := json.Marshal(v)
		return string(data)
	}
	return out
}
