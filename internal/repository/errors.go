package repository

import "errors"

// Common repository errors
var (
	// ErrPoemNotFound is returned when a mutation targets a poem that does not exist
	ErrPoemNotFound = errors.New("poem not found")
)
