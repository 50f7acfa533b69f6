package services

import "errors"

// ErrSelfFollow is returned when a user attempts to follow itself.
var ErrSelfFollow = errors.New("cannot follow own account")

// ErrForbidden is returned when the caller is authenticated but does not
// own the target record.
var ErrForbidden = errors.New("forbidden")
