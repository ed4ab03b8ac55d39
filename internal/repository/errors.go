package repository

import "errors"

// ErrVersionConflict reports that a session changed between read and write.
var ErrVersionConflict = errors.New("session version conflict")
