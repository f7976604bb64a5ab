package fetch

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// Kind classifies a fetch failure for retry decisions and reporting.
type Kind int

const (
	// KindFailed is any failure with no more specific classification.
	KindFailed Kind = iota
	// KindThrottled means the provider rejected the call for rate limiting.
	KindThrottled
	// KindInvalidParams means the request itself was malformed.
	KindInvalidParams
)

func (k Kind) String() string {
	switch k {
	case KindThrottled:
		return "throttled"
	case KindInvalidParams:
		return "invalid_params"
	default:
		return "failed"
	}
}

// Error wraps a provider failure with the operation and scan context it
// happened under, so a multi-account run can attribute failures.
type Error struct {
	Op      string
	Context string
	Kind    Kind
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s in %s: %v", e.Kind, e.Op, e.Context, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// throttleCodes are the provider error codes treated as rate limiting.
var throttleCodes = map[string]bool{
	"Throttling":                true,
	"ThrottlingException":       true,
	"ThrottledException":        true,
	"RequestThrottled":          true,
	"RequestThrottledException": true,
	"TooManyRequestsException":  true,
	"RequestLimitExceeded":      true,
	"SlowDown":                  true,
}

var paramCodes = map[string]bool{
	"ValidationError":           true,
	"ValidationException":       true,
	"InvalidParameterValue":     true,
	"InvalidParameterException": true,
	"MissingParameter":          true,
}

// IsThrottle reports whether err is a provider rate-limit rejection.
func IsThrottle(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return throttleCodes[apiErr.ErrorCode()]
	}
	return false
}

// Classify folds a raw provider error into a fetch Error for the given
// operation and context.
func Classify(op, context string, err error) *Error {
	kind := KindFailed
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch {
		case throttleCodes[apiErr.ErrorCode()]:
			kind = KindThrottled
		case paramCodes[apiErr.ErrorCode()]:
			kind = KindInvalidParams
		}
	}
	return &Error{Op: op, Context: context, Kind: kind, Err: err}
}
