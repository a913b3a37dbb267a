package domain

import "errors"

// ErrDuplicateKey is returned by repositories when a unique constraint
// rejects a write. The Logic layer translates it into a business error.
var ErrDuplicateKey = errors.New("duplicate key")
