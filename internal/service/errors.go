package service

import "errors"

var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("authentication required")
	ErrPersistence     = errors.New("persistence failure")
)

// ValidationError is a user-correctable input problem. It matches ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Enrichment steps that can degrade without failing an operation.
const (
	StepImage     = "image"
	StepGeocoding = "geocoding"
)

// EnrichmentWarning reports a best-effort step that did not complete. It is
// carried in results and never returned as an error.
type EnrichmentWarning struct {
	Step    string `json:"step"`
	Message string `json:"message"`
}

// MutationResult is returned by create and update. Unchanged is set when an
// update had nothing left to write.
type MutationResult struct {
	ID        string              `json:"id"`
	Warnings  []EnrichmentWarning `json:"warnings,omitempty"`
	Unchanged bool                `json:"unchanged,omitempty"`
}
