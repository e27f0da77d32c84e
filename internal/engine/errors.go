package engine

import "errors"

var (
	ErrFeatureDisabled  = errors.New("feature disabled for tenant")
	ErrInsufficientData = errors.New("insufficient data for tenant")
	ErrInvalidRequest   = errors.New("invalid request")
)
