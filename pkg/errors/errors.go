package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Status  int                    `json:"status"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors by code so predefined values work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// WithDetail returns a copy of the error carrying an extra context field.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Details = make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		clone.Details[k] = v
	}
	clone.Details[key] = value
	return &clone
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
	ErrServiceUnavailable = New("SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, "service unavailable")
)

// Scheduling and enrollment failures. Codes are stable and part of the API contract.
var (
	ErrEntityNotFound             = New("ENTITY_NOT_FOUND", http.StatusNotFound, "entity not found")
	ErrInvalidTimeRange           = New("INVALID_TIME_RANGE", http.StatusBadRequest, "end time must be after start time")
	ErrInvalidTeacher             = New("INVALID_TEACHER", http.StatusUnprocessableEntity, "user is not a qualified teacher")
	ErrInvalidStudent             = New("INVALID_STUDENT", http.StatusUnprocessableEntity, "user is not an eligible student")
	ErrClassroomCapacityExceeded  = New("CLASSROOM_CAPACITY_EXCEEDED", http.StatusConflict, "classroom capacity is below the class roster")
	ErrClassroomNotAvailable      = New("CLASSROOM_NOT_AVAILABLE", http.StatusConflict, "classroom is already booked for this time")
	ErrNoSuitableClassroom        = New("NO_SUITABLE_CLASSROOM", http.StatusConflict, "no classroom can hold the class roster")
	ErrSchoolClassFull            = New("SCHOOL_CLASS_FULL", http.StatusConflict, "school class has no available seats")
	ErrDuplicateRegistration      = New("DUPLICATE_REGISTRATION", http.StatusConflict, "student already has an active registration in this class")
	ErrInvalidMaxStudents         = New("INVALID_MAX_STUDENTS", http.StatusUnprocessableEntity, "max students cannot be below the current roster")
	ErrMinimumTeachersViolation   = New("MINIMUM_TEACHERS_VIOLATION", http.StatusConflict, "school class must keep at least one teacher")
	ErrInvalidCapacityRequirement = New("INVALID_CAPACITY_REQUIREMENT", http.StatusBadRequest, "capacity must be greater than zero")
	ErrInvalidExamScore           = New("INVALID_EXAM_SCORE", http.StatusBadRequest, "passing score must be positive and not exceed max score")
	ErrInvalidDuration            = New("INVALID_DURATION", http.StatusBadRequest, "duration must be greater than zero")
)

// NotFound builds an ENTITY_NOT_FOUND error for the given entity kind and id.
func NotFound(kind, id string) *Error {
	err := Clone(ErrEntityNotFound, fmt.Sprintf("%s not found", kind))
	err.Details = map[string]interface{}{"kind": kind, "id": id}
	return err
}

// HasCode reports whether err normalises to an *Error with the given code.
func HasCode(err error, code string) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	if err.Details != nil {
		clone.Details = make(map[string]interface{}, len(err.Details))
		for k, v := range err.Details {
			clone.Details[k] = v
		}
	}
	return &clone
}
