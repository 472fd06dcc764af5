package marketd

import (
	"errors"
)

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrNotFound            = errors.New("not_found")
	ErrAlreadyExists       = errors.New("already_exists")
	ErrInvalidState        = errors.New("invalid_state")
	ErrSubscriptionInvalid = errors.New("subscription_invalid")
	ErrSignatureInvalid    = errors.New("signature_invalid")
)
