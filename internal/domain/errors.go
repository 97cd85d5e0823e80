package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateImage = errors.New("duplicate image")
	ErrMissingRequest = errors.New("missing image request")
)
