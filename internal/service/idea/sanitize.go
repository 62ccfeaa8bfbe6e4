package idea

import (
	"math"
	"net/url"
	"strings"

	"github.com/kapu/pulse-kit-go/internal/constants"
	"github.com/kapu/pulse-kit-go/internal/domain"
	"github.com/kapu/pulse-kit-go/internal/util"
)

const (
	defaultHook  = "Fresh angle worth sharing"
	defaultTopic = "Audience pulse"
)

var outlineFillers = []string{
	"Ground the angle with a clear proof point.",
	"Name the friction your audience is feeling.",
	"Offer a micro action they can ship today.",
	"Share a personal example or lesson learned.",
	"Close with a question that invites replies.",
	"Contrast the old playbook vs. new approach.",
	"Highlight a metric that signals momentum.",
}

// ClampVirality rounds v to an integer in [0, 100]. Missing or non-finite
// scores map to 50.
func ClampVirality(v float64, set bool) int {
	if !set || math.IsNaN(v) || math.IsInf(v, 0) {
		return constants.IdeaLimits.ViralityDefault
	}
	return util.ClampInt(int(math.Round(v)), 0, 100)
}

func sanitizeHook(hook string) string {
	limits := constants.IdeaLimits

	text := util.NormalizeWhitespace(hook)
	if text == "" {
		text = defaultHook
	}
	text, _ = util.TruncateWords(text, limits.HookWordLimit)
	text, _ = util.ClampVisibleLength(text, limits.HookMaxChars)
	return text
}

// sanitizeOutline clamps every line, drops empties and duplicates, then pads
// short outlines with fillers and cuts long ones.
func sanitizeOutline(lines []string) []string {
	limits := constants.IdeaLimits

	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		clamped, _ := util.ClampVisibleLength(line, limits.OutlineLineMax)
		if clamped != "" {
			cleaned = append(cleaned, clamped)
		}
	}
	cleaned = util.UniqueStrings(cleaned)

	for i := 0; len(cleaned) < limits.OutlineMin; i++ {
		filler := outlineFillers[i%len(outlineFillers)]
		if i < len(outlineFillers) && containsString(cleaned, filler) {
			continue
		}
		cleaned = append(cleaned, filler)
	}

	if len(cleaned) > limits.OutlineMax {
		cleaned = cleaned[:limits.OutlineMax]
	}
	return cleaned
}

func sanitizeIdeaItem(item domain.RawIdeaItem) domain.IdeaOutlineItem {
	slot, ok := domain.ParseTimeSlot(item.RecommendedTime)
	if !ok {
		slot = domain.TimeMorning
	}
	return domain.IdeaOutlineItem{
		Hook:            sanitizeHook(item.Hook),
		MiniOutline:     sanitizeOutline(item.MiniOutline),
		ViralityScore:   ClampVirality(item.ViralityScore.Value, item.ViralityScore.Set),
		RecommendedTime: slot,
	}
}

func sanitizeTopic(raw domain.RawIdeaTopic) domain.IdeaTopic {
	limits := constants.IdeaLimits

	topic, _ := util.ClampVisibleLength(raw.Topic, limits.TopicMaxChars)
	if topic == "" {
		topic = defaultTopic
	}

	notes := make([]string, 0, limits.TrendNotesMax)
	for _, note := range raw.TrendNotes {
		if len(notes) == limits.TrendNotesMax {
			break
		}
		if clamped, _ := util.ClampVisibleLength(note, limits.TrendNoteMaxChars); clamped != "" {
			notes = append(notes, clamped)
		}
	}

	items := make([]domain.IdeaOutlineItem, 0, len(raw.Items))
	seen := make(map[string]struct{}, len(raw.Items))
	for _, rawItem := range raw.Items {
		item := sanitizeIdeaItem(rawItem)
		key := itemKey(topic, item.Hook)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		items = append(items, item)
	}

	if len(items) == 0 {
		items = append(items, domain.IdeaOutlineItem{
			Hook:            sanitizeHook("Fresh angle on " + topic),
			MiniOutline:     sanitizeOutline(buildOutline(topic, nil)),
			ViralityScore:   55,
			RecommendedTime: domain.TimeMorning,
		})
	}
	if len(items) > limits.ItemsPerTopicMax {
		items = items[:limits.ItemsPerTopicMax]
	}

	return domain.IdeaTopic{Topic: topic, TrendNotes: notes, Items: items}
}

// collapseTopics merges topics that share a name, keeping first-seen order.
// A merged topic holds at most TopicMergeCap items.
func collapseTopics(topics []domain.IdeaTopic) []domain.IdeaTopic {
	mergeCap := constants.IdeaLimits.TopicMergeCap

	order := make([]string, 0, len(topics))
	byName := make(map[string]domain.IdeaTopic, len(topics))

	for _, topic := range topics {
		existing, ok := byName[topic.Topic]
		if !ok {
			order = append(order, topic.Topic)
			byName[topic.Topic] = topic
			continue
		}

		seen := make(map[string]struct{}, len(existing.Items))
		for _, item := range existing.Items {
			seen[itemKey(existing.Topic, item.Hook)] = struct{}{}
		}
		merged := append([]domain.IdeaOutlineItem(nil), existing.Items...)
		for _, item := range topic.Items {
			key := itemKey(existing.Topic, item.Hook)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, item)
		}
		if len(merged) > mergeCap {
			merged = merged[:mergeCap]
		}
		existing.Items = merged
		byName[topic.Topic] = existing
	}

	result := make([]domain.IdeaTopic, 0, len(order))
	for _, name := range order {
		result = append(result, byName[name])
	}
	return result
}

// sanitizeSources drops unnamed sources and unparseable URLs.
func sanitizeSources(sources []domain.Source) []domain.Source {
	result := make([]domain.Source, 0, len(sources))
	for _, source := range sources {
		name := util.NormalizeWhitespace(source.Name)
		if name == "" {
			continue
		}
		link := strings.TrimSpace(source.URL)
		if link != "" {
			if u, err := url.Parse(link); err != nil || u.Scheme == "" || u.Host == "" {
				link = ""
			}
		}
		result = append(result, domain.Source{Name: name, URL: link})
	}
	return result
}

func itemKey(topic, hook string) string {
	return util.StableObjectHash(map[string]any{"topic": topic, "hook": hook})
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
