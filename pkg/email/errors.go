package email

import "errors"

var (
	ErrNoRecipient      = errors.New("email: recipient is required")
	ErrInvalidRecipient = errors.New("email: invalid recipient")
	ErrEmptyMessage     = errors.New("email: message has no content")
	ErrRejected         = errors.New("email: provider rejected the message")
	ErrMissingAPIKey    = errors.New("email: sendgrid api key is required")
)
