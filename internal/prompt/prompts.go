// Package prompt renders the system and user messages sent to the JSON
// providers.
package prompt

import (
	"strings"

	"github.com/kapu/pulse-kit-go/internal/domain"
	"github.com/kapu/pulse-kit-go/internal/util"
)

const (
	ClusterSystemPrompt = `You group short social snippets into 3-5 topics. Output strict JSON: {"clusters": [{ "topic": string, "pain_points": string[3], "quotes": string[2] }]}. No prose.`
	IdeasSystemPrompt   = "You are IdeaEngine, a strategist who returns strict JSON."
	RepliesSystemPrompt = "You are ReplyCopilot, crafting concise on-brand replies."
	TrendsSystemPrompt  = "You are TrendSpark, surfacing breaking insights for social creators. Return strict JSON."
)

// Messages is one system/user pair.
type Messages struct {
	System string
	User   string
}

// WithReminder appends a retry reminder to the system message.
func (m Messages) WithReminder(reminder string) Messages {
	if strings.TrimSpace(reminder) == "" {
		return m
	}
	m.System = m.System + "\n" + reminder
	return m
}

type clusterVars struct {
	Snippets []string
	Language string
}

type trendVars struct {
	Clusters         []domain.ClusterTopic
	SourceCap        int
	PreferredSources []string
}

// BuildClusterPrompt renders the clustering request for snippets.
func BuildClusterPrompt(snippets []string) Messages {
	vars := clusterVars{Snippets: snippets}
	if lang := util.DetectLanguage(strings.Join(snippets, " ")); lang != "en" {
		vars.Language = lang
	}
	user, err := DefaultPromptBuilder().Render(TemplateClusterUser, vars)
	if err != nil {
		user = fallbackClusterPrompt(vars)
	}
	return Messages{System: ClusterSystemPrompt, User: user}
}

// BuildIdeasPrompt renders the idea generation request.
func BuildIdeasPrompt(p domain.IdeaPrompt) Messages {
	user, err := DefaultPromptBuilder().Render(TemplateIdeasUser, p)
	if err != nil {
		user = fallbackIdeasPrompt(p)
	}
	return Messages{System: IdeasSystemPrompt, User: user}
}

// BuildRepliesPrompt renders the reply generation request. A blank context
// summary is sent as null.
func BuildRepliesPrompt(p domain.ReplyPrompt) Messages {
	payload := replyPayload{
		TweetText:    p.TweetText,
		StyleProfile: p.StyleProfile,
	}
	if p.ContextSummary != "" {
		summary := p.ContextSummary
		payload.ContextSummary = &summary
	}
	user, err := DefaultPromptBuilder().Render(TemplateRepliesUser, payload)
	if err != nil {
		user = fallbackRepliesPrompt(payload)
	}
	return Messages{System: RepliesSystemPrompt, User: user}
}

// BuildTrendsPrompt renders the trend lookup request.
func BuildTrendsPrompt(clusters []domain.ClusterTopic, sourceCap int, preferred []string) Messages {
	vars := trendVars{Clusters: clusters, SourceCap: sourceCap, PreferredSources: preferred}
	user, err := DefaultPromptBuilder().Render(TemplateTrendsUser, vars)
	if err != nil {
		user = fallbackTrendsPrompt(vars)
	}
	return Messages{System: TrendsSystemPrompt, User: user}
}

type replyPayload struct {
	TweetText      string              `json:"tweet_text"`
	ContextSummary *string             `json:"context_summary"`
	StyleProfile   domain.StyleProfile `json:"style_profile"`
}
