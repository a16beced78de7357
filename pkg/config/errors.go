package config

import "errors"

var (
	ErrParsingConfig     = errors.New("config: failed to parse environment")
	ErrInvalidConfigType = errors.New("config: configuration must be a struct")
	ErrLoadingEnvFile    = errors.New("config: failed to load env file")
	ErrNilPointer        = errors.New("config: nil pointer passed to loader")
)
