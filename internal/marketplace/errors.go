package marketplace

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation was rejected.
type Kind int

const (
	KindInvalidInput Kind = iota + 1
	KindUnauthorized
	KindInvalidState
	KindPaymentMismatch
	KindEscrowNotDisputed
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindUnauthorized:
		return "unauthorized"
	case KindInvalidState:
		return "invalid_state"
	case KindPaymentMismatch:
		return "payment_mismatch"
	case KindEscrowNotDisputed:
		return "escrow_not_disputed"
	case KindNotFound:
		return "not_found"
	}
	return "unknown"
}

// Error is returned by every rejected operation. The registry is unchanged
// when an Error is returned.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Msg
	}
	return e.Op + ": " + e.Msg
}

// Is matches any *Error of the same Kind, so errors.Is(err, ErrUnauthorized)
// works on errors produced by any operation.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidInput      = &Error{Kind: KindInvalidInput, Msg: "invalid input"}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized, Msg: "unauthorized"}
	ErrInvalidState      = &Error{Kind: KindInvalidState, Msg: "invalid state"}
	ErrPaymentMismatch   = &Error{Kind: KindPaymentMismatch, Msg: "payment mismatch"}
	ErrEscrowNotDisputed = &Error{Kind: KindEscrowNotDisputed, Msg: "escrow not disputed"}
	ErrNotFound          = &Error{Kind: KindNotFound, Msg: "not found"}
)

// KindOf returns the Kind carried by err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func errorf(op string, kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}
