// Package apperr is the error taxonomy shared by services and handlers.
package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindBusinessRule
	KindStorage
)

// Stable machine-readable reason codes.
const (
	CodeInvalidInput        = "INVALID_INPUT"
	CodeNotFound            = "NOT_FOUND"
	CodeMissingActor        = "MISSING_ACTOR"
	CodeAlreadyPopulated    = "ALREADY_POPULATED"
	CodeBarcodeNotFound     = "BARCODE_NOT_FOUND"
	CodeItemNotInCount      = "ITEM_NOT_IN_COUNT"
	CodeSessionNotActive    = "SESSION_NOT_ACTIVE"
	CodeSessionsActive      = "SESSIONS_ACTIVE"
	CodeCountClosed         = "COUNT_CLOSED"
	CodeCountCancelled      = "COUNT_CANCELLED"
	CodeCountNotStarted     = "COUNT_NOT_STARTED"
	CodeCountNotFinalized   = "COUNT_NOT_FINALIZED"
	CodeCountNotDeletable   = "COUNT_NOT_DELETABLE"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeAlreadyFinalized    = "ALREADY_FINALIZED"
	CodeAlreadyApproved     = "ALREADY_APPROVED"
	CodeFirstCountRequired  = "FIRST_COUNT_REQUIRED"
	CodeItemFinalized       = "ITEM_FINALIZED"
	CodeNothingToAdjust     = "NOTHING_TO_ADJUST"
	CodeAdjustmentExists    = "ADJUSTMENT_EXISTS"
	CodeAlreadyApplied      = "ALREADY_APPLIED"
	CodeDuplicate           = "DUPLICATE"
	CodeStorageFailure      = "STORAGE_FAILURE"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Status maps the kind onto an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation, KindBusinessRule:
		return fiber.StatusBadRequest
	case KindNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Code: CodeInvalidInput, Message: msg}
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: what + " not found"}
}

func Rule(code, msg string) *Error {
	return &Error{Kind: KindBusinessRule, Code: code, Message: msg}
}

func Storage(op string, err error) *Error {
	return &Error{Kind: KindStorage, Code: CodeStorageFailure, Message: op, Err: err}
}

func MissingActor() *Error {
	return Rule(CodeMissingActor, "Actor identity is required for this operation")
}

// As extracts an *Error from the chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func IsKind(err error, k Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == k
}

func HasCode(err error, code string) bool {
	e, ok := As(err)
	return ok && e.Code == code
}
