package storage

import "errors"

var ErrItemNotFound = errors.New("item not found in storage")
var ErrItemWithIDAlreadyExists = errors.New("item with the same key already exists")

// ErrConditionFailed reports a guarded update whose precondition no longer holds,
// e.g. decrementing a quota that is already at zero.
var ErrConditionFailed = errors.New("storage condition check failed")
