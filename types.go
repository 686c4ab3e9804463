package routerx

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// ReduceOp names the associative operator used to fold the scores of one key.
type ReduceOp string

const (
	// OpSum adds all values.
	OpSum ReduceOp = "sum"
	// OpProd multiplies all values.
	OpProd ReduceOp = "prod"
	// OpMax keeps the largest value.
	OpMax ReduceOp = "max"
	// OpMin keeps the smallest value.
	OpMin ReduceOp = "min"
	// OpAvg divides the sum by the number of values.
	OpAvg ReduceOp = "avg"
)

// reduceFunc folds a non-empty list of values into one.
type reduceFunc func(values []float64) float64

var reducers = map[ReduceOp]reduceFunc{
	OpSum: func(v []float64) float64 {
		total := v[0]
		for _, x := range v[1:] {
			total += x
		}
		return total
	},
	OpProd: func(v []float64) float64 {
		total := v[0]
		for _, x := range v[1:] {
			total *= x
		}
		return total
	},
	OpMax: func(v []float64) float64 {
		m := v[0]
		for _, x := range v[1:] {
			m = max(m, x)
		}
		return m
	},
	OpMin: func(v []float64) float64 {
		m := v[0]
		for _, x := range v[1:] {
			m = min(m, x)
		}
		return m
	},
	OpAvg: func(v []float64) float64 {
		total := v[0]
		for _, x := range v[1:] {
			total += x
		}
		return total / float64(len(v))
	},
}

// ParseReduceOp converts a case-insensitive operator name into a ReduceOp.
func ParseReduceOp(name string) (ReduceOp, error) {
	op := ReduceOp(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := reducers[op]; !ok {
		return "", errors.WithSecondaryError(
			ErrInvalidConfiguration,
			errors.Newf("reduce_op=%q is not acceptable", name),
		)
	}
	return op, nil
}

// ErrorCode represents specific error codes for router operations.
type ErrorCode int

const (
	// ErrCodeInvalidConfiguration is returned when a router is built with unacceptable settings.
	ErrCodeInvalidConfiguration ErrorCode = iota + 1000

	// ErrCodeUnsupportedOperation is returned when a required key accessor is missing.
	ErrCodeUnsupportedOperation

	// ErrCodeFanInMismatch is reported when a reduce happens with no fan-in level left.
	ErrCodeFanInMismatch

	// ErrCodeEmptyPipeline is returned when a pipeline without stages is applied.
	ErrCodeEmptyPipeline

	// ErrCodeMalformedResult is returned when a scored result lacks the reference its key needs.
	ErrCodeMalformedResult
)

// String returns the human-readable string representation of the error code.
func (e ErrorCode) String() string {
	switch e {
	case ErrCodeInvalidConfiguration:
		return "invalid configuration"
	case ErrCodeUnsupportedOperation:
		return "unsupported operation"
	case ErrCodeFanInMismatch:
		return "fan-in mismatch"
	case ErrCodeEmptyPipeline:
		return "empty pipeline"
	case ErrCodeMalformedResult:
		return "malformed result"
	default:
		return "unknown error"
	}
}

// newErrorWithCode creates a new error with a code and message.
func newErrorWithCode(code ErrorCode, msg string) error {
	err := errors.New(msg)
	return errors.WithSecondaryError(err, errors.Newf("code: %d", int(code)))
}

// Errors returned or reported by routers.
var (
	// ErrInvalidConfiguration is returned when a router cannot be constructed from its settings.
	ErrInvalidConfiguration = newErrorWithCode(ErrCodeInvalidConfiguration, "routerx: invalid configuration")

	// ErrUnsupportedOperation is returned when a top-k reduce runs without key accessors.
	ErrUnsupportedOperation = newErrorWithCode(ErrCodeUnsupportedOperation, "routerx: unsupported operation")

	// ErrFanInMismatch is reported, never returned, when num_part has no level left to pop.
	ErrFanInMismatch = newErrorWithCode(ErrCodeFanInMismatch, "routerx: fan-in mismatch")

	// ErrEmptyPipeline is returned when a pipeline with no routers is applied.
	ErrEmptyPipeline = newErrorWithCode(ErrCodeEmptyPipeline, "routerx: empty pipeline")

	// ErrMalformedResult is returned when a scored result cannot produce a key.
	ErrMalformedResult = newErrorWithCode(ErrCodeMalformedResult, "routerx: malformed result")
)
