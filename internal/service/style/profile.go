package style

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/kapu/pulse-kit-go/internal/constants"
	"github.com/kapu/pulse-kit-go/internal/domain"
	"github.com/kapu/pulse-kit-go/internal/util"
	"github.com/kapu/pulse-kit-go/pkg/errors"
)

const topTermCount = 5

var sentenceSplitter = regexp.MustCompile(`[.!?]+`)

// BuildStyleProfile validates the request and derives a profile from it.
func BuildStyleProfile(req domain.StyleProfileRequest) (domain.StyleProfile, error) {
	if err := req.Validate(); err != nil {
		return domain.StyleProfile{}, err
	}
	return DeriveStyleProfile(req.UserPosts)
}

// DeriveStyleProfile infers voice, cadence and sentence length from posts
// without any provider call.
func DeriveStyleProfile(posts []string) (domain.StyleProfile, error) {
	terms := topTerms(util.TokenizeWords(strings.ToLower(strings.Join(posts, " "))), topTermCount)

	headline := "momentum"
	if len(terms) > 0 {
		headline = strings.Join(terms[:min(2, len(terms))], " and ")
	}

	cadence := "Conversational and direct"
	for _, term := range terms {
		if term == "ship" {
			cadence = "Action-first builder cadence"
			break
		}
	}

	phrases := make([]string, 0, len(terms))
	for _, term := range terms {
		phrases = append(phrases, util.ClipText(fmt.Sprintf("Keep %s sharp", term), constants.RequestLimits.PhraseMaxChars))
	}

	profile := domain.StyleProfile{
		Voice:           util.ClipText("Energetic creator focused on "+headline, constants.RequestLimits.VoiceMaxChars),
		Cadence:         cadence,
		SentenceLength:  sentenceLengthBucket(posts),
		FavoritePhrases: phrases,
		BannedWords:     []string{},
	}
	if err := profile.Validate("style_profile"); err != nil {
		return domain.StyleProfile{}, errors.NewNormalizationError("derived style profile failed validation", "style_profile", err)
	}
	return profile, nil
}

// topTerms ranks non-stopword tokens by frequency. Ties keep first-seen order.
func topTerms(tokens []string, limit int) []string {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, token := range tokens {
		if token == "" || util.IsStopWord(token) {
			continue
		}
		if _, ok := counts[token]; !ok {
			order = append(order, token)
		}
		counts[token]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > limit {
		order = order[:limit]
	}
	return order
}

func sentenceLengthBucket(posts []string) string {
	var sentences []string
	for _, post := range posts {
		for _, part := range sentenceSplitter.Split(post, -1) {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				sentences = append(sentences, trimmed)
			}
		}
	}
	if len(sentences) == 0 {
		return "Short sentences"
	}

	total := 0
	for _, sentence := range sentences {
		total += util.CountWords(sentence)
	}
	avg := int(math.Round(float64(total) / float64(len(sentences))))

	switch {
	case avg <= 10:
		return "Short bursts"
	case avg <= 18:
		return "Medium length"
	default:
		return "Long-form cadence"
	}
}
