package track

import "errors"

// ErrInvalidArgument is returned for inputs that indicate a caller bug.
var ErrInvalidArgument = errors.New("invalid argument")
