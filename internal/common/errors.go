package common

import "errors"

var (
	// repository specific errors
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// service specific errors
	ErrValidation           = errors.New("validation error")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidToken         = errors.New("invalid token")
	ErrSubscriptionRequired = errors.New("subscription required")
	ErrProfileMissing       = errors.New("profile missing")
	ErrInvalidTransition    = errors.New("invalid checkout transition")

	// integration errors
	ErrPaymentProvider = errors.New("payment provider error")
)
