package reply

import (
	"fmt"

	"github.com/kapu/pulse-kit-go/internal/constants"
	"github.com/kapu/pulse-kit-go/internal/domain"
	"github.com/kapu/pulse-kit-go/internal/util"
	"github.com/kapu/pulse-kit-go/pkg/errors"
)

// slotFillers pad missing replies; index i fills slot i.
var slotFillers = [3]string{
	"Insight: Zoom out and highlight the strategic shift hiding in this thread.",
	"Question: What would change if you doubled the pace on this experiment tomorrow?",
	"Example: We ran a similar playbook last quarter and doubled replies inside 48 hours.",
}

// SanitizeReply normalizes whitespace and clamps to the visible reply limit.
func SanitizeReply(reply string) string {
	text, _ := util.ClampVisibleLength(reply, constants.ReplyLimits.MaxChars)
	return text
}

// NormalizeReplies sanitizes candidates, drops empties and returns exactly
// three replies, padding by slot index and discarding extras.
func NormalizeReplies(candidates []string) ([3]string, error) {
	var out [3]string

	n := 0
	for _, candidate := range candidates {
		if n == len(out) {
			break
		}
		if text := SanitizeReply(candidate); text != "" {
			out[n] = text
			n++
		}
	}
	for ; n < len(out); n++ {
		out[n] = slotFillers[n]
	}

	if err := ValidateReplies(out); err != nil {
		return [3]string{}, errors.NewNormalizationError(
			"replies payload failed post-normalization validation", "replies", err)
	}
	return out, nil
}

// FallbackReplies builds three deterministic replies seeded with the tweet.
func FallbackReplies(tweet string) ([3]string, error) {
	base := []rune(SanitizeReply(tweet))
	if len(base) > constants.ReplyLimits.FallbackBaseLen {
		base = base[:constants.ReplyLimits.FallbackBaseLen]
	}

	lead := "Insight: "
	if len(base) > 0 {
		lead += string(base) + " "
	}
	return NormalizeReplies([]string{
		lead + "Zoom out and call the hidden lever.",
		"Question: Where does this unlock compounding replies for your audience?",
		"Example: We applied this play last season and doubled engagement in 48 hours.",
	})
}

// ValidateReplies checks the output schema: three non-empty replies within
// the visible length limit.
func ValidateReplies(replies [3]string) error {
	for i, r := range replies {
		if r == "" {
			return fmt.Errorf("replies[%d]: empty", i)
		}
		if n := util.VisibleLength(r); n > constants.ReplyLimits.MaxChars {
			return fmt.Errorf("replies[%d]: %d visible characters exceeds %d", i, n, constants.ReplyLimits.MaxChars)
		}
	}
	return nil
}

func toResponse(replies [3]string) domain.RepliesResponse {
	return domain.RepliesResponse{Replies: replies}
}
