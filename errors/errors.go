package errors

import "fmt"

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	// Authentication
	ErrCaptchaMissing = fmt.Errorf("captcha not completed")
	ErrAuthRejected   = fmt.Errorf("authentication rejected")

	// Network and backend
	ErrTransport        = fmt.Errorf("transport error")
	ErrUnauthorized     = fmt.Errorf("not allowed for the current identity")
	ErrAlreadyTaken     = fmt.Errorf("already taken")
	ErrMalformedPayload = fmt.Errorf("malformed realtime payload")

	// Raised before any network call
	ErrValidation = fmt.Errorf("validation failed")
)
