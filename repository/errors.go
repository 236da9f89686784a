package repository

import "errors"

// ErrNotFound is returned when a score id does not exist in the store.
var ErrNotFound = errors.New("score not found")
