package style

import (
	"errors"
	"strings"
	"testing"

	"github.com/kapu/pulse-kit-go/internal/domain"
	apperrors "github.com/kapu/pulse-kit-go/pkg/errors"
)

func TestDeriveStyleProfileFromPosts(t *testing.T) {
	posts := []string{
		"Ship small. Ship often. Learn fast.",
		"We ship the onboarding fix today!",
		"Onboarding matters more than features.",
	}

	profile, err := DeriveStyleProfile(posts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.Voice != "Energetic creator focused on ship and onboarding" {
		t.Fatalf("unexpected voice %q", profile.Voice)
	}
	if profile.Cadence != "Action-first builder cadence" {
		t.Fatalf("unexpected cadence %q", profile.Cadence)
	}
	if profile.SentenceLength != "Short bursts" {
		t.Fatalf("unexpected sentence length %q", profile.SentenceLength)
	}
	if len(profile.FavoritePhrases) != 5 || profile.FavoritePhrases[0] != "Keep ship sharp" {
		t.Fatalf("unexpected phrases %v", profile.FavoritePhrases)
	}
	if profile.BannedWords == nil || len(profile.BannedWords) != 0 {
		t.Fatalf("expected empty banned words")
	}
}

func TestDeriveStyleProfileSkipsStopWords(t *testing.T) {
	posts := []string{"the the the and and growth", "the growth", "with your"}
	profile, err := DeriveStyleProfile(posts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.Voice != "Energetic creator focused on growth" {
		t.Fatalf("unexpected voice %q", profile.Voice)
	}
	if profile.Cadence != "Conversational and direct" {
		t.Fatalf("unexpected cadence %q", profile.Cadence)
	}
}

func TestSentenceLengthBuckets(t *testing.T) {
	medium := strings.Repeat("word ", 14) + "."
	long := strings.Repeat("word ", 25) + "."
	if got := sentenceLengthBucket([]string{medium}); got != "Medium length" {
		t.Fatalf("expected Medium length, got %q", got)
	}
	if got := sentenceLengthBucket([]string{long}); got != "Long-form cadence" {
		t.Fatalf("expected Long-form cadence, got %q", got)
	}
	if got := sentenceLengthBucket([]string{"...", "!!"}); got != "Short sentences" {
		t.Fatalf("expected Short sentences, got %q", got)
	}
}

func TestBuildStyleProfileValidatesPostCount(t *testing.T) {
	_, err := BuildStyleProfile(domain.StyleProfileRequest{UserPosts: []string{"one", "two"}})
	var validation *apperrors.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
