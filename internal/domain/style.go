package domain

import (
	"fmt"

	"github.com/kapu/pulse-kit-go/internal/constants"
	"github.com/kapu/pulse-kit-go/pkg/errors"
)

// StyleProfile describes a creator's writing voice. It is passed through to
// providers as-is and never mutated by the pipelines.
type StyleProfile struct {
	Voice           string   `json:"voice"`
	Cadence         string   `json:"cadence"`
	SentenceLength  string   `json:"sentence_length"`
	FavoritePhrases []string `json:"favorite_phrases"`
	BannedWords     []string `json:"banned_words"`
}

// Validate checks the profile against the public schema bounds.
func (p *StyleProfile) Validate(field string) error {
	limits := constants.RequestLimits

	if err := requireText(field+".voice", p.Voice, limits.VoiceMaxChars); err != nil {
		return err
	}
	if err := requireText(field+".cadence", p.Cadence, limits.CadenceMaxChars); err != nil {
		return err
	}
	if err := requireText(field+".sentence_length", p.SentenceLength, limits.SentenceLengthMaxChar); err != nil {
		return err
	}

	if len(p.FavoritePhrases) > limits.PhrasesMax {
		return errors.NewValidationError(
			fmt.Sprintf("at most %d favorite phrases allowed", limits.PhrasesMax),
			field+".favorite_phrases", len(p.FavoritePhrases))
	}
	for i, phrase := range p.FavoritePhrases {
		if err := requireText(fmt.Sprintf("%s.favorite_phrases[%d]", field, i), phrase, limits.PhraseMaxChars); err != nil {
			return err
		}
	}

	if len(p.BannedWords) > limits.BannedWordsMax {
		return errors.NewValidationError(
			fmt.Sprintf("at most %d banned words allowed", limits.BannedWordsMax),
			field+".banned_words", len(p.BannedWords))
	}
	for i, word := range p.BannedWords {
		if err := requireText(fmt.Sprintf("%s.banned_words[%d]", field, i), word, limits.BannedWordMaxChars); err != nil {
			return err
		}
	}
	return nil
}
