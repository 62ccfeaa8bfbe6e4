package domain

import (
	"fmt"

	"github.com/kapu/pulse-kit-go/internal/constants"
	"github.com/kapu/pulse-kit-go/pkg/errors"
)

// RepliesRequest is the body of POST /ai/replies.
type RepliesRequest struct {
	TweetText      string         `json:"tweet_text"`
	ContextSummary *string        `json:"context_summary"`
	StyleProfile   *StyleProfile  `json:"style_profile"`
	Model          ProviderChoice `json:"model,omitempty"`
}

func (r *RepliesRequest) Validate() error {
	limits := constants.RequestLimits

	if err := requireText("tweet_text", r.TweetText, limits.TweetMaxChars); err != nil {
		return err
	}
	if r.ContextSummary != nil {
		if err := requireText("context_summary", *r.ContextSummary, limits.ContextMaxChars); err != nil {
			return err
		}
	}
	if r.StyleProfile == nil {
		return errors.NewValidationError("style_profile is required", "style_profile", nil)
	}
	if err := r.StyleProfile.Validate("style_profile"); err != nil {
		return err
	}
	if !r.Model.Valid() {
		return errors.NewValidationError("model must be openai or xai", "model", string(r.Model))
	}
	return nil
}

// RepliesResponse always carries exactly three replies.
type RepliesResponse struct {
	Replies [3]string `json:"replies"`
}

// RawReplies is the untrusted replies document a provider returns.
type RawReplies struct {
	Replies []string `json:"replies"`
}

// StyleProfileRequest is the body of POST /ai/style-profile.
type StyleProfileRequest struct {
	UserPosts []string `json:"user_posts"`
}

func (r *StyleProfileRequest) Validate() error {
	limits := constants.RequestLimits

	if n := len(r.UserPosts); n < limits.UserPostsMin || n > limits.UserPostsMax {
		return errors.NewValidationError(
			fmt.Sprintf("user_posts must contain between %d and %d posts", limits.UserPostsMin, limits.UserPostsMax),
			"user_posts", n)
	}
	for i, post := range r.UserPosts {
		if err := requireText(fmt.Sprintf("user_posts[%d]", i), post, limits.UserPostMaxChars); err != nil {
			return err
		}
	}
	return nil
}
