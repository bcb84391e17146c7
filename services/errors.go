package services

import "errors"

// Fehler-Taxonomie der Engine-Services. Die Handler mappen sie per
// errors.Is auf HTTP-Statuscodes (400/404/409).
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)
