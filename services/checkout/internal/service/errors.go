package service

import (
	"errors"
	"fmt"
)

// ErrUpstream matches every UpstreamError through errors.Is
var ErrUpstream = errors.New("payment gateway unavailable")

// ErrReferenceRequired is returned when a confirmation carries no external reference
var ErrReferenceRequired = errors.New("externalReference is required")

// UpstreamError describes a failed call to the payment gateway:
// transport error, non-2xx status or an undecodable body
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrUpstream) true for any UpstreamError
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}
