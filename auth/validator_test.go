package auth

import (
	"chat-panel/errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateLogin(t *testing.T) {
	t.Run("should accept an email with an empty secret for magic links", func(t *testing.T) {
		req := require.New(t)
		req.NoError(ValidateLogin(LoginRequest{Email: "alice@example.com"}))
	})

	t.Run("should reject a malformed email", func(t *testing.T) {
		req := require.New(t)
		err := ValidateLogin(LoginRequest{Email: "alice", Password: "secret"})
		req.ErrorIs(err, errors.ErrValidation)
	})

	t.Run("should reject an oversized password", func(t *testing.T) {
		req := require.New(t)
		err := ValidateLogin(LoginRequest{Email: "alice@example.com", Password: strings.Repeat("a", 73)})
		req.ErrorIs(err, errors.ErrValidation)
	})
}

func TestValidateSignUp(t *testing.T) {
	tests := []struct {
		name    string
		request SignUpRequest
		wantErr bool
	}{
		{"valid", SignUpRequest{Email: "bob@example.com", Password: "hunter22", Username: "bob"}, false},
		{"no username", SignUpRequest{Email: "bob@example.com", Password: "hunter22"}, false},
		{"short password", SignUpRequest{Email: "bob@example.com", Password: "abc1"}, true},
		{"letters only", SignUpRequest{Email: "bob@example.com", Password: "onlyletters"}, true},
		{"digits only", SignUpRequest{Email: "bob@example.com", Password: "1234567890"}, true},
		{"short username", SignUpRequest{Email: "bob@example.com", Password: "hunter22", Username: "bo"}, true},
		{"bad email", SignUpRequest{Email: "bob", Password: "hunter22"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			err := ValidateSignUp(tt.request)
			if tt.wantErr {
				req.ErrorIs(err, errors.ErrValidation)
				return
			}
			req.NoError(err)
		})
	}
}
