// Package fault defines the structured error taxonomy shared by the ledger packages.
//
// Callers should branch on Kind/RuleID rather than matching error strings.
// Error() strings are human-readable and may evolve.
package fault

import (
	"errors"
	"fmt"
)

// Kind is a stable category for programmatic error handling.
type Kind string

const (
	// KindInvalidProof: a presented credential proof does not validate against
	// the expected registry.
	KindInvalidProof Kind = "InvalidProof"
	// KindUnauthorized: a mint/update was attempted without a live capability proof.
	KindUnauthorized Kind = "Unauthorized"
	// KindUnknownCredential: the target credential id is not in the registry.
	KindUnknownCredential Kind = "UnknownCredential"
	// KindInsufficientFunds: a pool withdrawal exceeds the pool balance.
	KindInsufficientFunds Kind = "InsufficientFunds"
	// KindUninitialized: the ledger was used before Instantiate.
	KindUninitialized Kind = "Uninitialized"

	KindInvalidAmount Kind = "InvalidAmount"
	KindWrongResource Kind = "WrongResource"
	KindConsumed      Kind = "Consumed"
	KindCorruptState  Kind = "CorruptState"
	KindInternal      Kind = "Internal"
)

// Error is the structured error type returned by every ledger package.
//
// RuleID names the violated rule (e.g. STAKE-PROOF-001). Message is for humans.
type Error struct {
	Kind    Kind
	RuleID  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// New returns a structured error.
func New(kind Kind, ruleID, msg string) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg}
}

// Newf is New with a format string.
func Newf(kind Kind, ruleID, format string, args ...any) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns a structured error carrying cause. A nil cause behaves like New.
func Wrap(kind Kind, ruleID, msg string, cause error) error {
	if cause == nil {
		return New(kind, ruleID, msg)
	}
	return &Error{Kind: kind, RuleID: ruleID, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// KindOf returns the Kind of a structured error, or "" if err is not one.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}
