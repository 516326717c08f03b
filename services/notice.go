package services

import (
	"chat-panel/contract"
	"chat-panel/errors"
	stderrors "errors"
	"time"
)

// NoticeFor turns any error into the notice shown to the user.
func NoticeFor(err error, duration time.Duration) contract.Notice {
	notice := contract.Notice{Level: contract.NoticeError, Duration: duration, Message: err.Error()}
	switch {
	case stderrors.Is(err, errors.ErrValidation):
		notice.Level = contract.NoticeWarning
		notice.Title = "Invalid input"
	case stderrors.Is(err, errors.ErrCaptchaMissing):
		notice.Level = contract.NoticeWarning
		notice.Title = "Captcha required"
		notice.Message = "Complete the captcha, paste it with /captcha <token>, then try again."
	case stderrors.Is(err, errors.ErrAlreadyTaken):
		notice.Level = contract.NoticeWarning
		notice.Title = "Already taken"
		notice.Message = "Username already exists. Please choose another."
	case stderrors.Is(err, errors.ErrUnauthorized):
		notice.Title = "Not allowed"
	case stderrors.Is(err, errors.ErrAuthRejected):
		notice.Title = "Login failed"
	case stderrors.Is(err, errors.ErrTransport):
		notice.Title = "Network error"
		notice.Message = "The server could not be reached. Please try again."
	default:
		notice.Title = "Error"
	}
	return notice
}

func success(title, message string, duration time.Duration) contract.Notice {
	return contract.Notice{Level: contract.NoticeSuccess, Title: title, Message: message, Duration: duration}
}

func info(title, message string, duration time.Duration) contract.Notice {
	return contract.Notice{Level: contract.NoticeInfo, Title: title, Message: message, Duration: duration}
}
