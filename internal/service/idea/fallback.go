package idea

import (
	"fmt"
	"strings"

	"github.com/kapu/pulse-kit-go/internal/constants"
	"github.com/kapu/pulse-kit-go/internal/domain"
	"github.com/kapu/pulse-kit-go/internal/util"
)

var genericTopicLabels = []string{
	"Momentum check-in",
	"Audience friction audit",
	"Behind-the-scenes builder note",
	"Lessons from the last sprint",
	"Myth versus reality breakdown",
	"Tooling teardown",
}

// FallbackCluster groups snippets by their first two non-stopword tokens,
// lowercased and joined by a space. Snippets without such tokens land in the
// "general" bucket. At most five buckets are kept in first-seen order; each
// keeps its first three snippets as pain points and first two as quotes.
func FallbackCluster(snippets []string) []domain.ClusterTopic {
	limits := constants.IdeaLimits

	order := make([]string, 0, limits.ClustersMax)
	buckets := make(map[string][]string)

	for _, snippet := range snippets {
		key := clusterKey(snippet)
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], snippet)
	}

	if len(order) > limits.ClustersMax {
		order = order[:limits.ClustersMax]
	}

	clusters := make([]domain.ClusterTopic, 0, len(order))
	for _, key := range order {
		members := buckets[key]
		clusters = append(clusters, domain.ClusterTopic{
			Topic:      key,
			PainPoints: firstN(members, limits.PainPoints),
			Quotes:     firstN(members, limits.Quotes),
		})
	}
	return clusters
}

const generalClusterKey = "general"

func clusterKey(snippet string) string {
	keyTokens := make([]string, 0, 2)
	for _, token := range util.TokenizeWords(strings.ToLower(snippet)) {
		if util.IsStopWord(token) {
			continue
		}
		keyTokens = append(keyTokens, token)
		if len(keyTokens) == 2 {
			break
		}
	}
	if len(keyTokens) == 0 {
		return generalClusterKey
	}
	return strings.Join(keyTokens, " ")
}

// buildOutline produces the five-line skeleton used by fallback ideas.
// Pain points fill lines two to four when present.
func buildOutline(topic string, painPoints []string) []string {
	pick := func(i int, fallback string) string {
		if i < len(painPoints) && strings.TrimSpace(painPoints[i]) != "" {
			return painPoints[i]
		}
		return fallback
	}
	return []string{
		fmt.Sprintf("Why %s matters right now", topic),
		pick(0, fmt.Sprintf("Hidden friction creators face with %s", topic)),
		pick(1, fmt.Sprintf("Quick win to move on %s today", topic)),
		pick(2, fmt.Sprintf("Story from the field about %s", topic)),
		fmt.Sprintf("Prompt your audience with an open question on %s", topic),
	}
}

// BuildFallbackTopics synthesizes desired topics without any provider call.
// Snippet clusters come first, then generic labels. Names listed in taken
// are skipped so the result never collides with topics already emitted.
func BuildFallbackTopics(snippets []string, desired int, taken ...string) []domain.IdeaTopic {
	if desired <= 0 {
		return nil
	}

	used := make(map[string]struct{}, len(taken)+desired)
	for _, name := range taken {
		used[name] = struct{}{}
	}

	topics := make([]domain.IdeaTopic, 0, desired)
	add := func(raw domain.RawIdeaTopic) {
		topic := sanitizeTopic(raw)
		if _, dup := used[topic.Topic]; dup {
			return
		}
		used[topic.Topic] = struct{}{}
		topics = append(topics, topic)
	}

	for _, cluster := range FallbackCluster(snippets) {
		if len(topics) == desired {
			break
		}
		add(domain.RawIdeaTopic{
			Topic: cluster.Topic,
			Items: []domain.RawIdeaItem{{
				Hook:            "Fresh angle on " + cluster.Topic,
				MiniOutline:     buildOutline(cluster.Topic, cluster.PainPoints),
				ViralityScore:   domain.Score{Value: 55, Set: true},
				RecommendedTime: string(domain.TimeMorning),
			}},
		})
	}

	for i := 0; len(topics) < desired; i++ {
		label := genericTopicLabels[i%len(genericTopicLabels)]
		if round := i / len(genericTopicLabels); round > 0 {
			label = fmt.Sprintf("%s #%d", label, round+1)
		}
		add(domain.RawIdeaTopic{
			Topic: label,
			Items: []domain.RawIdeaItem{{
				Hook:            "Share a " + strings.ToLower(label),
				MiniOutline:     buildOutline(label, nil),
				ViralityScore:   domain.Score{Value: 52, Set: true},
				RecommendedTime: string(domain.TimeAfternoon),
			}},
		})
	}

	return topics
}

func firstN(values []string, n int) []string {
	if len(values) <= n {
		return append([]string(nil), values...)
	}
	return append([]string(nil), values[:n]...)
}
