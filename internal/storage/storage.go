package storage

import "errors"

var ErrContextCancelled = errors.New("context cancelled")
