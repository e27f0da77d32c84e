package deadline

import "errors"

var ErrDeadlineExceeded = errors.New("deadline exceeded")
