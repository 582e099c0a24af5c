package config

import "errors"

// Validation errors returned by Config.Validate and Load. Callers match them
// with errors.Is.
var (
	ErrConfigNotFound   = errors.New("configuration file not found")
	ErrNoServices       = errors.New("no services enabled")
	ErrInvalidPort      = errors.New("invalid service port")
	ErrDuplicatePort    = errors.New("two services share a port")
	ErrInvalidThreshold = errors.New("invalid classifier threshold: must be within [0,1]")
	ErrInvalidTimeout   = errors.New("invalid timeout: must be non-negative")

	ErrInvalidTemperature = errors.New("invalid llm temperature: must be within [0,2]")
	ErrInvalidLimit       = errors.New("invalid request limit: must be positive")
)
