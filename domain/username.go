package domain

import (
	"chat-panel/errors"
	"fmt"
	"regexp"
	"unicode/utf8"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 20
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// ValidateUsername applies the local rules checked before any claim reaches the backend.
func ValidateUsername(username string) error {
	length := utf8.RuneCountInString(username)
	if length < MinUsernameLength || length > MaxUsernameLength {
		return fmt.Errorf("%w: username must be between %d and %d characters",
			errors.ErrValidation, MinUsernameLength, MaxUsernameLength)
	}
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("%w: username can only contain letters, numbers, and underscores",
			errors.ErrValidation)
	}
	return nil
}
