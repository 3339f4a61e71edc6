package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError provides a structured error that can be rendered to API consumers.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}

	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// WithInternal returns a copy of the AppError with an attached internal error.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Internal = err
	return &cpy
}

// WithMessage returns a copy of the AppError carrying a more specific message.
func (e *AppError) WithMessage(message string) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Message = message
	return &cpy
}

// Common errors exposed to the rest of the application.
var (
	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	// ErrNoAttributes means the matching target has no tags assigned, so the
	// scorer has nothing to work with. Surfaced to operators as an instruction
	// to tag the member first, never as an empty result.
	ErrNoAttributes = &AppError{
		Code:       "matching.no_attributes",
		Message:    "Member has no tags; add tags to their profile before matching",
		StatusCode: http.StatusUnprocessableEntity,
	}

	// ErrDuplicatePair means a non-declined introduction already exists for the
	// unordered member pair.
	ErrDuplicatePair = &AppError{
		Code:       "introductions.duplicate_pair",
		Message:    "An open introduction already exists for this pair of members",
		StatusCode: http.StatusConflict,
	}

	// ErrInvalidTransition means the requested lifecycle event does not apply to
	// the introduction's current status. Use NewInvalidTransition to include the
	// offending states in the message.
	ErrInvalidTransition = &AppError{
		Code:       "introductions.invalid_transition",
		Message:    "Lifecycle transition not permitted",
		StatusCode: http.StatusConflict,
	}

	// ErrEventNotBookable means the event is not open for booking.
	ErrEventNotBookable = &AppError{
		Code:       "bookings.event_not_bookable",
		Message:    "Event is not available for booking",
		StatusCode: http.StatusBadRequest,
	}

	// ErrCapacityExceeded means the event has no remaining seats.
	ErrCapacityExceeded = &AppError{
		Code:       "bookings.capacity_exceeded",
		Message:    "Event is fully booked",
		StatusCode: http.StatusConflict,
	}

	ErrInternalServer = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}
)

// New builds a new application error with the provided metadata.
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// NewInvalidTransition builds an ErrInvalidTransition whose message names the
// current status and the rejected event, so operators see exactly what failed.
func NewInvalidTransition(current, event string) *AppError {
	return ErrInvalidTransition.WithMessage(
		fmt.Sprintf("cannot %s an introduction in status %q", event, current),
	)
}

// Wrap turns any error into an AppError while keeping the original error for logging.
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   err,
	}
}

// FromError converts a generic error into an AppError, defaulting to ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return ErrInternalServer.WithInternal(err)
}

// NewBadRequest wraps validation errors with a helpful message.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:       ErrBadRequest.Code,
		Message:    message,
		StatusCode: ErrBadRequest.StatusCode,
	}
}
