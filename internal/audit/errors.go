package audit

import "errors"

var (
	ErrInvalidType      = errors.New("invalid decision type")
	ErrInvalidRange     = errors.New("invalid time range")
	ErrInvalidRetention = errors.New("retention must be at least one day")
)
