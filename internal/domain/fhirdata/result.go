package fhirdata

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// ErrorKind classifies why a lookup produced nothing. The exported service
// methods fold every kind into their documented empty value.
type ErrorKind string

func (k ErrorKind) Error() string { return string(k) }

const (
	ErrNotReady   ErrorKind = "fhir client not initialized"
	ErrNoData     ErrorKind = "no matching resource"
	ErrRestricted ErrorKind = "resource is restricted"
	ErrTransport  ErrorKind = "fhir request failed"
	ErrDecode     ErrorKind = "malformed fhir resource"
)

// KindOf extracts the ErrorKind of err, or "" when err carries none.
func KindOf(err error) ErrorKind {
	var k ErrorKind
	if errors.As(err, &k) {
		return k
	}
	return ""
}

type result[T any] struct {
	val T
	err error
}

func ok[T any](v T) result[T] { return result[T]{val: v} }

func fail[T any](kind ErrorKind, cause error) result[T] {
	if cause == nil {
		return result[T]{err: kind}
	}
	return result[T]{err: fmt.Errorf("%w: %v", kind, cause)}
}

// failWith keeps the kind of an upstream failure.
func failWith[T any](err error) result[T] {
	return result[T]{err: err}
}

// settle returns the value, or def after logging the failure at a level
// matching its kind. Absence is routine and stays at debug.
func settle[T any](logger zerolog.Logger, r result[T], def T, op, subject string) T {
	if r.err == nil {
		return r.val
	}
	switch KindOf(r.err) {
	case ErrNotReady, ErrNoData:
		logger.Debug().Err(r.err).Str("op", op).Str("subject", subject).Msg("no data")
	case ErrRestricted:
		logger.Info().Str("op", op).Str("subject", subject).Msg("restricted resource withheld")
	default:
		logger.Error().Err(r.err).Str("op", op).Str("subject", subject).Msg("fhir data lookup failed")
	}
	return def
}
