package appointment

import "net/http"

// Code identifies an expected failure mode of a scheduling command. Codes are
// part of the API contract and surface verbatim in response envelopes.
type Code string

const (
	CodeUnauthenticated     Code = "UNAUTHENTICATED"
	CodeForbidden           Code = "FORBIDDEN"
	CodeInvalidInput        Code = "INVALID_INPUT"
	CodeNotFound            Code = "NOT_FOUND"
	CodeAppointmentNotFound Code = "APPOINTMENT_NOT_FOUND"
	CodeUserNotFound        Code = "USER_NOT_FOUND"
	CodeConflict            Code = "CONFLICT"
	CodeAlreadyBooked       Code = "ALREADY_BOOKED"
	CodePastAppointment     Code = "PAST_APPOINTMENT"
	CodeServerError         Code = "SERVER_ERROR"
	CodeInternalServerError Code = "INTERNAL_SERVER_ERROR"
)

// Error is the typed failure every service operation returns for expected
// failure paths. Infrastructure causes are retained for logging but never
// serialized to the caller.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return string(e.Code) + ": " + e.Message + ": " + e.cause.Error()
	}
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound, CodeAppointmentNotFound, CodeUserNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeAlreadyBooked:
		return http.StatusConflict
	case CodePastAppointment:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func newError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func wrapError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}
