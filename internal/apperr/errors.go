package apperr

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrNotEligible = errors.New("not eligible for markdown")
)
