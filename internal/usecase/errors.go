package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrUpstreamRequest       = errors.New("upstream request failed")
	ErrMalformedResponse     = errors.New("malformed upstream response")
	ErrExportWrite           = errors.New("export write failed")
)
