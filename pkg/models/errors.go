package models

import "errors"

var (
	// ErrInvalidAudio marks a clip that could not be decoded or transcoded.
	ErrInvalidAudio = errors.New("invalid audio")
	// ErrModelUnavailable marks a model artifact that is missing or failed to load.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrExternalService marks a failing third-party call. Callers convert it
	// to a default value and never return it to clients.
	ErrExternalService = errors.New("external service error")
	// ErrPipelineExhausted marks a scrape that found no links or no readable pages.
	ErrPipelineExhausted = errors.New("pipeline exhausted")
	ErrNotFound          = errors.New("session not found")
	ErrInvalidInput      = errors.New("invalid input")
)
