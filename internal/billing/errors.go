package billing

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable classification of a billing error. Handlers
// map kinds to HTTP statuses; messages name the offending item, customer or
// amount for the caller.
type Kind string

const (
	KindValidation        Kind = "ValidationError"
	KindInsufficientStock Kind = "InsufficientStock"
	KindNotFound          Kind = "NotFound"
	KindInvalidAmount     Kind = "InvalidAmount"
	KindConsistency       Kind = "ConsistencyError"
	KindForbidden         Kind = "Forbidden"
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func Validationf(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func InsufficientStockf(format string, args ...interface{}) error {
	return &Error{Kind: KindInsufficientStock, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func InvalidAmountf(format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidAmount, Message: fmt.Sprintf(format, args...)}
}

func Consistencyf(format string, args ...interface{}) error {
	return &Error{Kind: KindConsistency, Message: fmt.Sprintf(format, args...)}
}

func Forbiddenf(format string, args ...interface{}) error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of err, or "" if err is not a billing error.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
