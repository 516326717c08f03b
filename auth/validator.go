package auth

import (
	"chat-panel/errors"
	"fmt"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type LoginRequest struct {
	Email    string `validate:"required,email"`
	Password string `validate:"omitempty,max=72"`
}

type SignUpRequest struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8,max=72"`
	Username string `validate:"omitempty,min=3,max=20"`
}

func ValidateLogin(req LoginRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	return nil
}

func ValidateSignUp(req SignUpRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	if !isPasswordComplex(req.Password) {
		return fmt.Errorf("%w: password needs at least one letter and one digit", errors.ErrValidation)
	}
	return nil
}

func isPasswordComplex(s string) bool {
	var (
		hasLetter = false
		hasNumber = false
	)
	for _, char := range s {
		switch {
		case unicode.IsLetter(char):
			hasLetter = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}
	return hasLetter && hasNumber
}
