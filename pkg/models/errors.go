package models

import "errors"

var (
	ErrInvalidTransition = errors.New("invalid suggestion status transition")
	ErrSuggestionExpired = errors.New("suggestion expired")
)
