package platform

import "errors"

// Sentinel errors for platform API failures.
var (
	ErrPlatformUnreachable = errors.New("platform unreachable")
	ErrPlatformResponse    = errors.New("platform response error")
	ErrPlatformTimeout     = errors.New("platform request timeout")
)
