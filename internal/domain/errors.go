package domain

import (
	"errors"
)

// ErrNotFound is returned by repositories when a row does not exist.
// Services translate it into ErrEventNotFound or ErrReportNotFound.
var ErrNotFound = errors.New("not found")

// Sentinel errors for workflow operations. Each one maps to exactly one ErrorKind.
var (
	ErrEventNotFound       = errors.New("event not found")
	ErrReportNotFound      = errors.New("report not found")
	ErrEventNotApproved    = errors.New("event is not approved")
	ErrEventAlreadyStarted = errors.New("event has already started")
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrAlreadyRegistered   = errors.New("already registered for this event")
	ErrNotRegistered       = errors.New("not registered for this event")
	ErrCapacityExceeded    = errors.New("event is full")
	ErrValidation          = errors.New("validation error")
	ErrForbidden           = errors.New("forbidden")
	ErrBusy                = errors.New("resource busy")
	ErrTimeout             = errors.New("operation timed out")
)

// ErrLedgerUnderflow is returned by CapacityLedger.Release when the counter is already zero.
// The counter is left at zero.
var ErrLedgerUnderflow = errors.New("ledger release below zero")

// ErrorKind is the stable failure identifier returned to callers.
type ErrorKind string

const (
	KindEventNotFound       ErrorKind = "EventNotFound"
	KindReportNotFound      ErrorKind = "ReportNotFound"
	KindEventNotApproved    ErrorKind = "EventNotApproved"
	KindEventAlreadyStarted ErrorKind = "EventAlreadyStarted"
	KindInvalidTransition   ErrorKind = "InvalidTransition"
	KindAlreadyRegistered   ErrorKind = "AlreadyRegistered"
	KindNotRegistered       ErrorKind = "NotRegistered"
	KindCapacityExceeded    ErrorKind = "CapacityExceeded"
	KindValidationError     ErrorKind = "ValidationError"
	KindForbidden           ErrorKind = "Forbidden"
	KindBusy                ErrorKind = "Busy"
	KindTimeout             ErrorKind = "Timeout"
	KindInternal            ErrorKind = "Internal"
)

var kindBySentinel = []struct {
	err  error
	kind ErrorKind
}{
	{ErrEventNotFound, KindEventNotFound},
	{ErrReportNotFound, KindReportNotFound},
	{ErrEventNotApproved, KindEventNotApproved},
	{ErrEventAlreadyStarted, KindEventAlreadyStarted},
	{ErrInvalidTransition, KindInvalidTransition},
	{ErrAlreadyRegistered, KindAlreadyRegistered},
	{ErrNotRegistered, KindNotRegistered},
	{ErrCapacityExceeded, KindCapacityExceeded},
	{ErrValidation, KindValidationError},
	{ErrForbidden, KindForbidden},
	{ErrBusy, KindBusy},
	{ErrTimeout, KindTimeout},
}

// KindOf returns the ErrorKind for err. Errors outside the taxonomy are KindInternal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, m := range kindBySentinel {
		if errors.Is(err, m.err) {
			return m.kind
		}
	}
	return KindInternal
}

var kindMessages = map[ErrorKind]string{
	KindEventNotFound:       "event not found",
	KindReportNotFound:      "report not found",
	KindEventNotApproved:    "registration is only open for approved events",
	KindEventAlreadyStarted: "registration has closed because the event has started",
	KindInvalidTransition:   "this action is not allowed in the current state",
	KindAlreadyRegistered:   "you are already registered for this event",
	KindNotRegistered:       "you are not registered for this event",
	KindCapacityExceeded:    "event is full",
	KindValidationError:     "request is missing required fields",
	KindForbidden:           "you are not allowed to perform this action",
	KindBusy:                "the resource is busy, please retry",
	KindTimeout:             "the operation timed out, please retry",
	KindInternal:            "internal error",
}

// Message returns the stable user-facing message for the kind.
func (k ErrorKind) Message() string {
	if m, ok := kindMessages[k]; ok {
		return m
	}
	return kindMessages[KindInternal]
}

// Retryable reports whether an operation that failed with this kind may be retried automatically.
func (k ErrorKind) Retryable() bool {
	return k == KindBusy || k == KindTimeout
}
