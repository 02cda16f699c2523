package config

import "errors"

// Validation errors returned by Config.Validate.
var (
	ErrInvalidPort = errors.New("invalid port: must be a number between 1 and 65535")

	ErrNoModelPath = errors.New("model path is required for both classifiers")

	ErrInvalidUploadLimit = errors.New("invalid max upload size: must be positive")

	ErrInvalidConcurrency = errors.New("invalid inference concurrency: must be non-negative")

	ErrInvalidSessionTTL = errors.New("invalid session ttl: must be positive")

	ErrNoTelegramToken = errors.New("TELEGRAM_TOKEN is required for the dashboard")
)
