package domain

import "errors"

var (
	// Common domain errors
	ErrCodeNotFound     = errors.New("reward code not found")
	ErrCodeAlreadyUsed  = errors.New("reward code already used")
	ErrCodeExpired      = errors.New("reward code expired")
	ErrDuplicateCode    = errors.New("reward code already exists")
	ErrGenerationFailed = errors.New("code generation exhausted retries")
	ErrInvalidArgument  = errors.New("invalid argument")

	// Infrastructure errors surfaced by the persistence layer
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid executor context")
)
