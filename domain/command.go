package domain

import (
	"chat-panel/errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Command is a locally-originated write on the transcript.
// Every command is validated before any network call.
type Command interface {
	Validate() error
}

type PostMessageCommand struct {
	Content string `validate:"required,max=500"`
}

func (c PostMessageCommand) Validate() error {
	return validateContent(c)
}

type EditMessageCommand struct {
	ID      string `validate:"required"`
	Content string `validate:"required,max=500"`
}

func (c EditMessageCommand) Validate() error {
	return validateContent(c)
}

type DeleteMessageCommand struct {
	ID string `validate:"required"`
}

func (c DeleteMessageCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	return nil
}

// NormalizeContent trims surrounding whitespace, the form in which content is validated and sent.
func NormalizeContent(content string) string {
	return strings.TrimSpace(content)
}

func validateContent(cmd any) error {
	if err := validate.Struct(cmd); err != nil {
		return fmt.Errorf("%w: message must contain 1 to %d characters: %v",
			errors.ErrValidation, MaxContentLength, err)
	}
	return nil
}
