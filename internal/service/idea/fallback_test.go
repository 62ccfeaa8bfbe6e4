package idea

import (
	"testing"
)

func TestFallbackClusterBucketsByFirstTwoKeywords(t *testing.T) {
	snippets := []string{
		"Shipping faster with tiny teams",
		"The new pricing page converts",
		"shipping faster keeps momentum",
		"an ai tip",
		"Shipping faster beats polish",
		"shipping faster again",
	}

	clusters := FallbackCluster(snippets)
	if len(clusters) != 3 {
		t.Fatalf("expected 3 clusters, got %d", len(clusters))
	}
	want := []string{"shipping faster", "new pricing", "an ai"}
	for i, topic := range want {
		if clusters[i].Topic != topic {
			t.Fatalf("cluster %d: expected %q, got %q", i, topic, clusters[i].Topic)
		}
	}
	if len(clusters[0].PainPoints) != 3 || len(clusters[0].Quotes) != 2 {
		t.Fatalf("expected 3 pain points and 2 quotes, got %d and %d",
			len(clusters[0].PainPoints), len(clusters[0].Quotes))
	}
	if clusters[0].PainPoints[0] != snippets[0] || clusters[0].PainPoints[1] != snippets[2] {
		t.Fatalf("expected original snippet text preserved, got %v", clusters[0].PainPoints)
	}
}

func TestFallbackClusterStopWordsOnlyGoToGeneral(t *testing.T) {
	clusters := FallbackCluster([]string{"the and", "   ", "Long form snippet to exercise clamping."})
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
	if clusters[0].Topic != "general" {
		t.Fatalf("expected general bucket first, got %q", clusters[0].Topic)
	}
	if len(clusters[0].PainPoints) != 2 {
		t.Fatalf("expected both keyless snippets in general, got %v", clusters[0].PainPoints)
	}
	if clusters[1].Topic != "long form" {
		t.Fatalf("expected long form bucket, got %q", clusters[1].Topic)
	}
}

func TestLiteIdeasKeepsShortWordSnippets(t *testing.T) {
	topics, err := LiteIdeas([]string{"an ai tip", "go is fun"})
	if err != nil {
		t.Fatalf("LiteIdeas: %v", err)
	}
	if len(topics.Ideas) != 5 {
		t.Fatalf("expected 5 topics, got %d", len(topics.Ideas))
	}
	if topics.Ideas[0].Topic != "an ai" || topics.Ideas[1].Topic != "go is" {
		t.Fatalf("expected snippet buckets first, got %q and %q", topics.Ideas[0].Topic, topics.Ideas[1].Topic)
	}
}

func TestFallbackClusterCapsAtFive(t *testing.T) {
	snippets := []string{"alpha one", "bravo two", "charlie three", "delta four", "echo five", "foxtrot six"}
	if got := len(FallbackCluster(snippets)); got != 5 {
		t.Fatalf("expected 5 clusters, got %d", got)
	}
}

func TestBuildOutlineUsesPainPoints(t *testing.T) {
	outline := buildOutline("pricing", []string{"Too many tiers"})
	if len(outline) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(outline))
	}
	if outline[0] != "Why pricing matters right now" || outline[1] != "Too many tiers" {
		t.Fatalf("unexpected outline head %v", outline[:2])
	}
	if outline[2] != "Quick win to move on pricing today" {
		t.Fatalf("expected default third line, got %q", outline[2])
	}
}

func TestBuildFallbackTopicsWithoutSnippets(t *testing.T) {
	topics := BuildFallbackTopics(nil, 5)
	if len(topics) != 5 {
		t.Fatalf("expected 5 topics, got %d", len(topics))
	}

	seen := map[string]bool{}
	for _, topic := range topics {
		if seen[topic.Topic] {
			t.Fatalf("duplicate fallback topic %q", topic.Topic)
		}
		seen[topic.Topic] = true
		if len(topic.Items) != 1 || topic.Items[0].ViralityScore != 52 {
			t.Fatalf("unexpected fallback item %+v", topic.Items)
		}
	}
	if topics[0].Items[0].Hook != "Share a momentum check-in" {
		t.Fatalf("unexpected first hook %q", topics[0].Items[0].Hook)
	}
}

func TestBuildFallbackTopicsSkipsTakenNames(t *testing.T) {
	topics := BuildFallbackTopics([]string{"pricing is confusing"}, 3, "pricing is", "Momentum check-in")
	if len(topics) != 3 {
		t.Fatalf("expected 3 topics, got %d", len(topics))
	}
	for _, topic := range topics {
		if topic.Topic == "pricing is" || topic.Topic == "Momentum check-in" {
			t.Fatalf("expected taken topic %q to be skipped", topic.Topic)
		}
	}
}

func TestBuildFallbackTopicsCyclesLabels(t *testing.T) {
	topics := BuildFallbackTopics(nil, len(genericTopicLabels)+1)
	last := topics[len(topics)-1]
	if last.Topic != "Momentum check-in #2" {
		t.Fatalf("expected second round label, got %q", last.Topic)
	}
}
