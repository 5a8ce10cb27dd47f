package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies a member of the closed error taxonomy. Handlers map kinds to
// HTTP status codes; everything outside the taxonomy surfaces as Internal.
type Kind int

const (
	Internal Kind = iota
	InvalidAmount
	WalletNotFound
	InsufficientFunds
	RecipientNotFound
	SelfTransferNotAllowed
	Conflict
	Unauthorized
	NotFound
)

func (k Kind) String() string {
	switch k {
	case InvalidAmount:
		return "invalid_amount"
	case WalletNotFound:
		return "wallet_not_found"
	case InsufficientFunds:
		return "insufficient_funds"
	case RecipientNotFound:
		return "recipient_not_found"
	case SelfTransferNotAllowed:
		return "self_transfer_not_allowed"
	case Conflict:
		return "conflict"
	case Unauthorized:
		return "unauthorized"
	case NotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// HTTPStatus returns the status code advertised for the kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case InvalidAmount, InsufficientFunds, SelfTransferNotAllowed:
		return http.StatusBadRequest
	case WalletNotFound, RecipientNotFound, NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case Unauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error carrying a stable kind plus an operator-facing cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a domain error without an underlying cause.
func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind and message to an underlying failure, preserving it for
// logging while keeping the caller-facing message stable.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from err, or Internal when err is not a domain error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// MessageOf returns the caller-facing message for err. Non-domain errors get a
// generic message so low-level details never leak to clients.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}

// Is reports whether err is a domain error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
