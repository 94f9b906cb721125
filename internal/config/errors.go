package config

import "errors"

// Sentinel construction-time validation errors, wrapped with fmt.Errorf
// for context the way the teacher wraps store/client errors.
var (
	ErrInvalidEnvSecret = errors.New("invalid env secret")
	ErrInvalidURL       = errors.New("invalid url")
)
