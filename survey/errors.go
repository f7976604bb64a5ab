package survey

import "errors"

var (
	// ErrFrozen is returned on any write to a survey that has been published.
	ErrFrozen = errors.New("survey is frozen")

	// ErrNotFound is returned when a service, resource type, or resource
	// id is not present in the survey.
	ErrNotFound = errors.New("not found in survey")

	// ErrQuery is returned for malformed search queries: unknown
	// operators or attribute paths that cannot be resolved.
	ErrQuery = errors.New("invalid search query")
)
