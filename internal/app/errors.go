package service

import "errors"

// ErrNotStarted is returned by operations called before Start or after Stop.
var ErrNotStarted = errors.New("service is not running")
