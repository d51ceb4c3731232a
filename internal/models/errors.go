package models

import "errors"

// Errors returned by element and report operations.
var (
	ErrEmptyName          = errors.New("report name cannot be empty")
	ErrInvalidElementType = errors.New("invalid element type")
	ErrElementNotFound    = errors.New("element not found")
	ErrDuplicateElement   = errors.New("duplicate element id")
	ErrTypeMismatch       = errors.New("operation does not apply to this element type")
	ErrIndexOutOfRange    = errors.New("index out of range")
	ErrEmptyHeader        = errors.New("column header cannot be empty")
	ErrInvalidSize        = errors.New("element size must be positive")
	ErrInvalidSchedule    = errors.New("invalid schedule")
)
