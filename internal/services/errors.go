package services

import "errors"

// Sentinel errors returned by the region service. Handlers translate these
// into HTTP status codes and JSON error bodies.
var (
	ErrRegionNotFound = errors.New("region not found")
	ErrNameRequired   = errors.New("region name is required")
	ErrDuplicateCode  = errors.New("region code already exists")
	ErrParentNotFound = errors.New("parent region not found")
	ErrHierarchyCycle = errors.New("parent_id would create a hierarchy cycle")
)
