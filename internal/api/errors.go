package api

import (
	"errors"
	"fmt"
)

var (
	ErrBadStatus     = errors.New("unexpected status")
	ErrMalformedBody = errors.New("malformed body")
	ErrNoEventID     = errors.New("no event id")
)

// ProviderError is a failed call to the odds provider. Body holds the start
// of the answer when there was one.
type ProviderError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
