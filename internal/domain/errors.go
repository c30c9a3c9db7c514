package domain

import "errors"

var (
	ErrValidation        = errors.New("validation failed")
	ErrTurnNotFound      = errors.New("turn not found")
	ErrNotLoggedIn       = errors.New("miam id not registered")
	ErrInvalidFeedback   = errors.New("feedback must be 'good' or 'bad'")
	ErrUnrecognizedShape = errors.New("unrecognized response shape")
)
