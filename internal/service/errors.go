package service

import (
	"context"
	"errors"
	"fmt"

	"hackhub/internal/model"
	"hackhub/internal/repo"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindAdmission
	KindNotFound
	KindForbidden
	KindUnauthorized
	KindConflict
	KindUnavailable
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAdmission:
		return "admission"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindUnauthorized:
		return "unauthorized"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	case KindInternal:
		return "internal"
	}
	return "unknown"
}

// Error is the only error type the service returns. Two Errors match under
// errors.Is when their Kind and Code are equal.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  []model.FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Code == e.Code
}

const (
	CodeValidation          = "VALIDATION_FAILED"
	CodeDeadlinePassed      = "DEADLINE_PASSED"
	CodeCapacityExceeded    = "CAPACITY_EXCEEDED"
	CodeInvalidTeamSize     = "INVALID_TEAM_SIZE"
	CodeNoLeader            = "NO_LEADER_DESIGNATED"
	CodeDuplicateMember     = "DUPLICATE_MEMBER"
	CodePaymentRefRequired  = "PAYMENT_REFERENCE_REQUIRED"
	CodePaymentNotRequired  = "PAYMENT_NOT_REQUIRED"
	CodeEventNotFound       = "EVENT_NOT_FOUND"
	CodeTeamNotFound        = "TEAM_NOT_FOUND"
	CodeAccountNotFound     = "ACCOUNT_NOT_FOUND"
	CodeForbidden           = "FORBIDDEN"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeEmailTaken          = "EMAIL_TAKEN"
	CodeCoreFieldsLocked    = "CORE_FIELDS_LOCKED"
	CodeEventChanged        = "EVENT_CHANGED"
	CodeEventHasTeams       = "EVENT_HAS_TEAMS"
	CodeEventAlreadyStarted = "EVENT_ALREADY_STARTED"
	CodePaymentRejected     = "PAYMENT_REJECTED"
	CodeUnavailable         = "SERVICE_UNAVAILABLE"
	CodeInternal            = "INTERNAL_ERROR"
)

// Admission failures, in the order the checks run.
var (
	ErrDeadlinePassed           = &Error{Kind: KindAdmission, Code: CodeDeadlinePassed, Message: "registration deadline has passed"}
	ErrCapacityExceeded         = &Error{Kind: KindAdmission, Code: CodeCapacityExceeded, Message: "event has no open team slots"}
	ErrInvalidTeamSize          = &Error{Kind: KindAdmission, Code: CodeInvalidTeamSize, Message: "team size is outside the allowed range"}
	ErrNoLeaderDesignated       = &Error{Kind: KindAdmission, Code: CodeNoLeader, Message: "exactly one member must be the team leader"}
	ErrDuplicateMember          = &Error{Kind: KindAdmission, Code: CodeDuplicateMember, Message: "member is already registered in another team"}
	ErrPaymentReferenceRequired = &Error{Kind: KindAdmission, Code: CodePaymentRefRequired, Message: "a payment transaction reference is required"}
)

var (
	ErrEventNotFound       = &Error{Kind: KindNotFound, Code: CodeEventNotFound, Message: "event not found"}
	ErrTeamNotFound        = &Error{Kind: KindNotFound, Code: CodeTeamNotFound, Message: "team not found"}
	ErrAccountNotFound     = &Error{Kind: KindNotFound, Code: CodeAccountNotFound, Message: "account not found"}
	ErrForbidden           = &Error{Kind: KindForbidden, Code: CodeForbidden, Message: "only the event owner may do this"}
	ErrUnauthorized        = &Error{Kind: KindUnauthorized, Code: CodeUnauthorized, Message: "missing or invalid credentials"}
	ErrInvalidCredentials  = &Error{Kind: KindUnauthorized, Code: CodeInvalidCredentials, Message: "invalid email or password"}
	ErrCoreFieldsLocked    = &Error{Kind: KindConflict, Code: CodeCoreFieldsLocked, Message: "core fields cannot change once registration has begun"}
	ErrEventAlreadyStarted = &Error{Kind: KindValidation, Code: CodeEventAlreadyStarted, Message: "event has already started"}
	ErrPaymentRejected     = &Error{Kind: KindConflict, Code: CodePaymentRejected, Message: "team payment was rejected"}
)

func admission(base *Error, format string, args ...any) *Error {
	return &Error{Kind: base.Kind, Code: base.Code, Message: fmt.Sprintf(format, args...)}
}

func validation(fields []model.FieldError) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidation, Message: "request failed validation", Fields: fields}
}

func fieldError(field, message string) *Error {
	return validation([]model.FieldError{{Field: field, Message: message}})
}

func conflict(code, message string, fields ...model.FieldError) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message, Fields: fields}
}

func internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: "internal error", Err: err}
}

// fromRepo maps storage failures to service errors.
func fromRepo(err error) error {
	if err == nil {
		return nil
	}
	var svcErr *Error
	switch {
	case errors.As(err, &svcErr):
		return svcErr
	case errors.Is(err, repo.ErrEventNotFound):
		return ErrEventNotFound
	case errors.Is(err, repo.ErrTeamNotFound):
		return ErrTeamNotFound
	case errors.Is(err, repo.ErrAccountNotFound):
		return ErrAccountNotFound
	case errors.Is(err, repo.ErrEventFull):
		return ErrCapacityExceeded
	case errors.Is(err, repo.ErrDuplicateMember):
		return ErrDuplicateMember
	case errors.Is(err, repo.ErrEmailTaken):
		return conflict(CodeEmailTaken, "email is already registered", model.FieldError{Field: "email", Message: "is already registered"})
	case errors.Is(err, repo.ErrStaleEvent):
		return conflict(CodeEventChanged, "event changed while it was being edited, retry")
	case errors.Is(err, repo.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return &Error{Kind: KindUnavailable, Code: CodeUnavailable, Message: "storage is unavailable, retry later", Err: err}
	}
	return internal(err)
}
