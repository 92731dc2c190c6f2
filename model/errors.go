package model

import (
	"errors"
	"fmt"

	"xdao.co/stakeledger/fault"
)

type ErrorCode string

const (
	ErrInvalidProof      ErrorCode = "INVALID_PROOF"
	ErrUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrUnknownCredential ErrorCode = "UNKNOWN_CREDENTIAL"
	ErrInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"
	ErrUninitialized     ErrorCode = "UNINITIALIZED"
	ErrInvalidAmount     ErrorCode = "INVALID_AMOUNT"
	ErrWrongResource     ErrorCode = "WRONG_RESOURCE"
	ErrConsumed          ErrorCode = "CONSUMED"
	ErrCorruptState      ErrorCode = "CORRUPT_STATE"
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"
	ErrNotFound          ErrorCode = "NOT_FOUND"
	ErrInternal          ErrorCode = "INTERNAL"
)

var kindCodes = map[fault.Kind]ErrorCode{
	fault.KindInvalidProof:      ErrInvalidProof,
	fault.KindUnauthorized:      ErrUnauthorized,
	fault.KindUnknownCredential: ErrUnknownCredential,
	fault.KindInsufficientFunds: ErrInsufficientFunds,
	fault.KindUninitialized:     ErrUninitialized,
	fault.KindInvalidAmount:     ErrInvalidAmount,
	fault.KindWrongResource:     ErrWrongResource,
	fault.KindConsumed:          ErrConsumed,
	fault.KindCorruptState:      ErrCorruptState,
	fault.KindInternal:          ErrInternal,
}

// CodedError is a stable error with a machine-readable code and a human message.
type CodedError struct {
	Code    ErrorCode `json:"code"`
	RuleID  string    `json:"ruleId,omitempty"`
	Message string    `json:"message"`
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(code ErrorCode, message string) *CodedError {
	return &CodedError{Code: code, Message: message}
}

// FromError projects err onto a CodedError. Unstructured errors map to ErrInternal.
func FromError(err error) *CodedError {
	if err == nil {
		return nil
	}
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded
	}
	code, ok := kindCodes[fault.KindOf(err)]
	if !ok {
		code = ErrInternal
	}
	return &CodedError{Code: code, RuleID: fault.RuleID(err), Message: err.Error()}
}
