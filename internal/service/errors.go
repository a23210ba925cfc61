package service

import "errors"

// Common service errors
var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrSessionAlreadyOpen is returned when an estimate already has an open editing session
	ErrSessionAlreadyOpen = errors.New("estimate session already open")

	// ErrSessionNotFound is returned when no session is open for an estimate
	ErrSessionNotFound = errors.New("estimate session not found")
)
