package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kapu/pulse-kit-go/pkg/errors"
)

// requireText rejects empty values and values longer than max runes.
func requireText(field, value string, max int) error {
	if strings.TrimSpace(value) == "" {
		return errors.NewValidationError(field+" is required", field, value)
	}
	return maxText(field, value, max)
}

func maxText(field, value string, max int) error {
	if n := utf8.RuneCountInString(value); n > max {
		return errors.NewValidationError(
			fmt.Sprintf("%s exceeds %d characters", field, max), field, n)
	}
	return nil
}
