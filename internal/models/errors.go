package models

import "fmt"

// ValidationError reports malformed input, share overflow, or missing
// required configuration.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// AuthorizationError reports a non-owner/non-admin attempting an owner-only
// mutation.
type AuthorizationError struct {
	Msg string
}

func (e *AuthorizationError) Error() string { return e.Msg }

// NotFoundError reports an absent group, course, user, or membership.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s not found", e.Resource) }

// PaymentError reports a missing or unconfirmed payment.
type PaymentError struct {
	Msg string
}

func (e *PaymentError) Error() string { return e.Msg }

// OnchainStateError reports a chain-side state that blocks the operation,
// decoded from the revert reason at the RPC boundary. AvailableAt is set for
// cooldown rejections (epoch milliseconds).
type OnchainStateError struct {
	Reason      string
	AvailableAt *int64
}

func (e *OnchainStateError) Error() string { return e.Reason }

// ConcurrencyError reports an unexpected state transition, e.g. a double-join
// race observed between the membership write and the counter adjustment.
type ConcurrencyError struct {
	Msg string
}

func (e *ConcurrencyError) Error() string { return e.Msg }

// ChainError wraps a transport-level RPC failure. It is deliberately distinct
// from OnchainStateError so callers can tell "the chain said no" from "the
// chain could not be reached".
type ChainError struct {
	Op  string
	Err error
}

func (e *ChainError) Error() string { return fmt.Sprintf("chain %s failed: %v", e.Op, e.Err) }

func (e *ChainError) Unwrap() error { return e.Err }

var (
	ErrShareOverflow       = &ValidationError{Msg: "administrator shares exceed 10000 bps"}
	ErrPaymentRequired     = &PaymentError{Msg: "payment proof required to join a paid group"}
	ErrPaymentNotConfirmed = &PaymentError{Msg: "payment transaction is not confirmed"}
	ErrOwnerCannotLeave    = &AuthorizationError{Msg: "owner cannot leave their own group"}
	ErrNotOwner            = &AuthorizationError{Msg: "only the group owner may perform this action"}
	ErrGroupNotFound       = &NotFoundError{Resource: "group"}
	ErrUserNotFound        = &NotFoundError{Resource: "user"}
	ErrMembershipNotFound  = &NotFoundError{Resource: "membership"}
	ErrCourseNotFound      = &NotFoundError{Resource: "course"}
	ErrListingNotFound     = &NotFoundError{Resource: "listing"}
	ErrAlreadyRegistered   = &OnchainStateError{Reason: "course id is already registered on-chain"}
)

// NewCooldownActiveError builds the cooldown rejection carrying the moment
// the pass becomes transferable.
func NewCooldownActiveError(availableAt int64) *OnchainStateError {
	return &OnchainStateError{Reason: "transfer cooldown active", AvailableAt: &availableAt}
}
