package server

import (
	"errors"
	"fmt"
)

type Error struct {
	orig error
	msg  string
	code error
}

func (e *Error) Error() string {
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.orig
}

func WrapErrorf(orig error, code error, format string, a ...interface{}) error {
	return &Error{
		code: code,
		orig: orig,
		msg:  fmt.Sprintf(format, a...),
	}
}

func (e *Error) Code() error {
	return e.code
}

// Is matches both the wrapped error and the code, so errors.Is(err, ErrNoLoopFound) works on wrapped errors.
func (e *Error) Is(target error) bool {
	return e.code == target
}

var (
	// ErrInternalServerError will throw if any the Internal Server Error happen
	ErrInternalServerError = errors.New("internal server error")
	// ErrBadParamInput will throw if the given request-body or params is not valid
	ErrBadParamInput = errors.New("given param is not valid")
	// ErrAddressNotGeocodable start address could not be resolved to a coordinate
	ErrAddressNotGeocodable = errors.New("address could not be geocoded")
	// ErrNoNetworkNearPoint no junction or network node near the start point
	ErrNoNetworkNearPoint = errors.New("no cycling network near this point")
	// ErrTooFewJunctions fewer than 3 junctions around the start
	ErrTooFewJunctions = errors.New("too few junctions near this point")
	// ErrNoLoopFound search exhausted every tolerance
	ErrNoLoopFound = errors.New("no loop found for this distance")
	// ErrServiceUnavailable collaborator down or routing graph not loaded
	ErrServiceUnavailable = errors.New("service unavailable")
)
