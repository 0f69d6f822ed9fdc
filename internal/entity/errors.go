package entity

import "errors"

// Error kinds shared by repositories, services and transports. Callers wrap
// them with fmt.Errorf("...: %w", ...) and classify with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrStore      = errors.New("store error")
	ErrUpload     = errors.New("upload error")
	ErrExpired    = errors.New("survey expired")
	ErrForbidden  = errors.New("forbidden")
)
