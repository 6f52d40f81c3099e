package core

import (
	"errors"
	"fmt"
)

var (
	ErrTransport         = errors.New("language model request failed")
	ErrExtraction        = errors.New("could not understand the reply")
	ErrValidation        = errors.New("invalid input")
	ErrCredentialMissing = errors.New("API key is not configured")
	ErrPromptOpen        = errors.New("a new food is waiting for its calories")
	ErrNoPending         = errors.New("no food is waiting for its calories")
	ErrSuperseded        = errors.New("request was superseded by a newer one")
	ErrEntryNotFound     = errors.New("log entry not found")

	ErrBadCalories = fmt.Errorf("%w: calories per 100g must be a positive whole number", ErrValidation)
)

// Notices shown to the user for the terminal errors of one interaction.
const (
	NoticeNotUnderstood  = "Sorry, I couldn't understand the food and weight."
	NoticeBadCalories    = "Please enter a valid calorie amount."
	NoticeTransport      = "Could not process your request. Please check your API key and network connection."
	NoticeNeedCredential = "Please enter your Gemini API key first."
)

// UserNotice maps an error to the message shown to the user.
func UserNotice(err error) string {
	switch {
	case errors.Is(err, ErrTransport):
		return NoticeTransport
	case errors.Is(err, ErrExtraction):
		return NoticeNotUnderstood
	case errors.Is(err, ErrBadCalories):
		return NoticeBadCalories
	case errors.Is(err, ErrCredentialMissing):
		return NoticeNeedCredential
	default:
		return err.Error()
	}
}
