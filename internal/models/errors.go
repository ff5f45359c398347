package models

import "errors"

// Error taxonomy surfaced to API callers. Internal causes are logged
// server-side and wrapped with %w; handlers map these to status codes.
var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrTransactionFailed = errors.New("transaction failed")
)
