package idea

import (
	"fmt"

	"github.com/kapu/pulse-kit-go/internal/constants"
	"github.com/kapu/pulse-kit-go/internal/domain"
	"github.com/kapu/pulse-kit-go/internal/util"
	"github.com/kapu/pulse-kit-go/pkg/errors"
)

// NormalizeIdeasPayload turns an untrusted provider payload into a response
// that satisfies every output bound. Sources from the payload win over
// fallbackSources when present.
func NormalizeIdeasPayload(raw domain.RawIdeasPayload, snippets []string, fallbackSources []domain.Source) (domain.IdeasResponse, error) {
	limits := constants.IdeaLimits

	sanitized := make([]domain.IdeaTopic, 0, len(raw.Ideas))
	for _, topic := range raw.Ideas {
		sanitized = append(sanitized, sanitizeTopic(topic))
	}
	topics := collapseTopics(sanitized)
	if len(topics) > limits.IdeasMax {
		topics = topics[:limits.IdeasMax]
	}

	if len(topics) < limits.IdeasMin {
		taken := make([]string, 0, len(topics))
		for _, topic := range topics {
			taken = append(taken, topic.Topic)
		}
		topics = append(topics, BuildFallbackTopics(snippets, limits.IdeasMin-len(topics), taken...)...)
	}

	sources := sanitizeSources(raw.SourcesUsed)
	if len(sources) == 0 {
		sources = sanitizeSources(fallbackSources)
	}

	response := domain.IdeasResponse{Ideas: topics, SourcesUsed: sources}
	if err := ValidateIdeasResponse(response); err != nil {
		return domain.IdeasResponse{}, errors.NewNormalizationError(
			"ideas payload failed post-normalization validation", "ideas", err)
	}
	return response, nil
}

// ValidateIdeasResponse checks a response against the public output schema.
func ValidateIdeasResponse(resp domain.IdeasResponse) error {
	limits := constants.IdeaLimits

	if n := len(resp.Ideas); n < limits.IdeasMin || n > limits.IdeasMax {
		return fmt.Errorf("ideas: expected %d-%d topics, got %d", limits.IdeasMin, limits.IdeasMax, n)
	}

	pairs := make(map[string]struct{})
	for i, topic := range resp.Ideas {
		if topic.Topic == "" || util.VisibleLength(topic.Topic) > limits.TopicMaxChars {
			return fmt.Errorf("ideas[%d].topic: invalid length", i)
		}
		if len(topic.TrendNotes) > limits.TrendNotesMax {
			return fmt.Errorf("ideas[%d].trend_notes: too many notes", i)
		}
		for j, note := range topic.TrendNotes {
			if note == "" || util.VisibleLength(note) > limits.TrendNoteMaxChars {
				return fmt.Errorf("ideas[%d].trend_notes[%d]: invalid length", i, j)
			}
		}
		if n := len(topic.Items); n < 1 || n > limits.ItemsPerTopicMax {
			return fmt.Errorf("ideas[%d].items: expected 1-%d items, got %d", i, limits.ItemsPerTopicMax, n)
		}
		for j, item := range topic.Items {
			if err := validateItem(item); err != nil {
				return fmt.Errorf("ideas[%d].items[%d]: %w", i, j, err)
			}
			key := itemKey(topic.Topic, item.Hook)
			if _, dup := pairs[key]; dup {
				return fmt.Errorf("ideas[%d].items[%d]: duplicate topic and hook", i, j)
			}
			pairs[key] = struct{}{}
		}
	}

	for i, source := range resp.SourcesUsed {
		if source.Name == "" {
			return fmt.Errorf("sources_used[%d].name: required", i)
		}
	}
	return nil
}

func validateItem(item domain.IdeaOutlineItem) error {
	limits := constants.IdeaLimits

	if item.Hook == "" || util.VisibleLength(item.Hook) > limits.HookMaxChars {
		return fmt.Errorf("hook: invalid length")
	}
	if util.CountWords(item.Hook) > limits.HookWordLimit {
		return fmt.Errorf("hook: more than %d words", limits.HookWordLimit)
	}
	if n := len(item.MiniOutline); n < limits.OutlineMin || n > limits.OutlineMax {
		return fmt.Errorf("mini_outline: expected %d-%d lines, got %d", limits.OutlineMin, limits.OutlineMax, n)
	}
	for k, line := range item.MiniOutline {
		if line == "" || util.VisibleLength(line) > limits.OutlineLineMax {
			return fmt.Errorf("mini_outline[%d]: invalid length", k)
		}
	}
	if item.ViralityScore < 0 || item.ViralityScore > 100 {
		return fmt.Errorf("virality_score: out of range")
	}
	if _, ok := domain.ParseTimeSlot(string(item.RecommendedTime)); !ok {
		return fmt.Errorf("recommended_time: invalid value %q", item.RecommendedTime)
	}
	return nil
}
