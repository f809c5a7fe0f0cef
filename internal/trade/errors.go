package trade

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a trade error into the three outcomes callers act on
type Kind string

const (
	KindNotFound         Kind = "NOT_FOUND"
	KindInvalidRequest   Kind = "INVALID_REQUEST"
	KindExecutionFailure Kind = "EXECUTION_FAILURE"
)

// Reason narrows a Kind to the check that failed
type Reason string

const (
	ReasonOwner      Reason = "owner"
	ReasonPossession Reason = "possession"
	ReasonTrade      Reason = "trade"

	ReasonSameTraderTwice   Reason = "same_trader_twice"
	ReasonTraderNotInTrade  Reason = "trader_not_in_trade"
	ReasonOwnershipMismatch Reason = "ownership_mismatch"
	ReasonItemNotOffered    Reason = "item_not_offered"
	ReasonNotAccepted       Reason = "not_accepted"

	ReasonStoreTransaction Reason = "store_transaction"
)

// Error is returned by every registry operation that rejects a request.
// Two errors match under errors.Is when Kind and Reason agree, so the
// sentinels below can be compared against detailed errors.
type Error struct {
	Kind    Kind
	Reason  Reason
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Reason == t.Reason
}

// StatusCode maps the error kind onto an HTTP status
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidRequest:
		return http.StatusBadRequest
	case KindExecutionFailure:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// Code is the machine readable error code, e.g. NOT_FOUND
func (e *Error) Code() string {
	return string(e.Kind)
}

// Retryable reports whether the trade survived the failure and the same
// request can be issued again
func (e *Error) Retryable() bool {
	return e.Kind == KindExecutionFailure
}

var (
	ErrOwnerNotFound      = &Error{Kind: KindNotFound, Reason: ReasonOwner}
	ErrPossessionNotFound = &Error{Kind: KindNotFound, Reason: ReasonPossession}
	ErrTradeNotFound      = &Error{Kind: KindNotFound, Reason: ReasonTrade}

	ErrSameTraderTwice   = &Error{Kind: KindInvalidRequest, Reason: ReasonSameTraderTwice}
	ErrTraderNotInTrade  = &Error{Kind: KindInvalidRequest, Reason: ReasonTraderNotInTrade}
	ErrOwnershipMismatch = &Error{Kind: KindInvalidRequest, Reason: ReasonOwnershipMismatch}
	ErrItemNotOffered    = &Error{Kind: KindInvalidRequest, Reason: ReasonItemNotOffered}
	ErrNotAccepted       = &Error{Kind: KindInvalidRequest, Reason: ReasonNotAccepted}

	ErrExecutionFailure = &Error{Kind: KindExecutionFailure, Reason: ReasonStoreTransaction}
)

func ownerNotFound(id uint) error {
	return &Error{Kind: KindNotFound, Reason: ReasonOwner, Message: fmt.Sprintf("owner with id %d not found", id)}
}

func possessionNotFound(id uint) error {
	return &Error{Kind: KindNotFound, Reason: ReasonPossession, Message: fmt.Sprintf("possession with id %d not found", id)}
}

func tradeNotFound(id uint64) error {
	return &Error{Kind: KindNotFound, Reason: ReasonTrade, Message: fmt.Sprintf("trade with id %d not found", id)}
}

func traderNotInTrade(ownerID uint, tradeID uint64) error {
	return &Error{
		Kind:    KindInvalidRequest,
		Reason:  ReasonTraderNotInTrade,
		Message: fmt.Sprintf("owner %d is not a party to trade %d", ownerID, tradeID),
	}
}

func ownershipMismatch(possessionID, ownerID uint) error {
	return &Error{
		Kind:    KindInvalidRequest,
		Reason:  ReasonOwnershipMismatch,
		Message: fmt.Sprintf("possession %d is not owned by owner %d", possessionID, ownerID),
	}
}

func itemNotOffered(possessionID, ownerID uint) error {
	return &Error{
		Kind:    KindInvalidRequest,
		Reason:  ReasonItemNotOffered,
		Message: fmt.Sprintf("possession %d is not offered by owner %d", possessionID, ownerID),
	}
}

func notAccepted(tradeID uint64) error {
	return &Error{
		Kind:    KindInvalidRequest,
		Reason:  ReasonNotAccepted,
		Message: fmt.Sprintf("trade %d has not been accepted by both traders", tradeID),
	}
}

func sameTraderTwice(ownerID uint) error {
	return &Error{
		Kind:    KindInvalidRequest,
		Reason:  ReasonSameTraderTwice,
		Message: fmt.Sprintf("cannot create trade with owner %d on both sides", ownerID),
	}
}

func executionFailure(tradeID uint64, err error) error {
	return &Error{
		Kind:    KindExecutionFailure,
		Reason:  ReasonStoreTransaction,
		Message: fmt.Sprintf("trade %d could not be executed", tradeID),
		Err:     err,
	}
}

// KindOf returns the Kind of err, or "" when err is not a trade error
func KindOf(err error) Kind {
	var tErr *Error
	if errors.As(err, &tErr) {
		return tErr.Kind
	}
	return ""
}

// ReasonOf returns the Reason of err, or "" when err is not a trade error
func ReasonOf(err error) Reason {
	var tErr *Error
	if errors.As(err, &tErr) {
		return tErr.Reason
	}
	return ""
}
