package models

import "errors"

// Kind is the machine-checkable class of an error returned across the API boundary.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindSignature         Kind = "signature"
	KindConflict          Kind = "conflict"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindStore             Kind = "store"
)

var (
	// ErrInvalidAmount indicates a non-positive amount or a tip below the minimum.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidInput indicates a malformed request field.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSenderNotFound indicates the tipping account does not exist.
	ErrSenderNotFound = errors.New("sender not found")
	// ErrReceiverNotFound indicates no creator has the requested routing key.
	ErrReceiverNotFound = errors.New("receiver not found")
	// ErrAccountNotFound indicates an unknown account.
	ErrAccountNotFound = errors.New("account not found")
	// ErrProfileNotFound indicates an unknown creator profile.
	ErrProfileNotFound = errors.New("creator profile not found")
	// ErrInsufficientFunds indicates the balance does not cover the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInvalidSignature indicates a webhook body whose signature does not verify.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrMissingTarget indicates a payment event without a target username.
	ErrMissingTarget = errors.New("payment has no target username")
	// ErrDuplicatePayment indicates a payment reference that was already credited.
	ErrDuplicatePayment = errors.New("payment already credited")
	// ErrUsernameTaken indicates a registration with an existing username.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrSlugTaken indicates a creator slug that is already in use.
	ErrSlugTaken = errors.New("slug already taken")
	// ErrAlreadyCreator indicates the account already has a creator profile.
	ErrAlreadyCreator = errors.New("account is already a creator")
	// ErrNotCreator indicates a creator-only operation by a viewer account.
	ErrNotCreator = errors.New("account is not a creator")
	// ErrInvalidCredentials indicates a wrong username or password.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUnauthorized indicates a missing or invalid session token.
	ErrUnauthorized = errors.New("unauthorized")
)

// ErrorKind classifies err. Anything unknown is a store error.
func ErrorKind(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidInput), errors.Is(err, ErrMissingTarget):
		return KindValidation
	case errors.Is(err, ErrSenderNotFound), errors.Is(err, ErrReceiverNotFound), errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrProfileNotFound):
		return KindNotFound
	case errors.Is(err, ErrInsufficientFunds):
		return KindInsufficientFunds
	case errors.Is(err, ErrInvalidSignature):
		return KindSignature
	case errors.Is(err, ErrUsernameTaken), errors.Is(err, ErrSlugTaken), errors.Is(err, ErrAlreadyCreator), errors.Is(err, ErrDuplicatePayment):
		return KindConflict
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrNotCreator):
		return KindForbidden
	default:
		return KindStore
	}
}
