package errors

import (
	stderrors "errors"
	"fmt"
)

// Error represents a placeholder-editing failure with enough context to report it to the user
type Error struct {
	Type          ErrorType `json:"type"`
	Message       string    `json:"message"`
	Context       string    `json:"context,omitempty"`
	Page          int       `json:"page,omitempty"`
	PositionIndex int       `json:"position_index,omitempty"`
	Recoverable   bool      `json:"recoverable"`
	Err           error     `json:"-"`
}

// ErrorType represents the categories of failures the editor distinguishes
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeRegionTooSmall
	ErrorTypeDuplicateIndex
	ErrorTypeInvalidIndex
	ErrorTypeSurfaceNotMounted
	ErrorTypeInvalidGesture
	ErrorTypeRegionNotFound
	ErrorTypeFontEmbedFailure
	ErrorTypeGlyphRenderFailure
	ErrorTypeOverflow
	ErrorTypeMissingValue
	ErrorTypeDocumentUnreadable
	ErrorTypeSessionNotFound
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

// Sentinels for errors.Is matching by type
var (
	ErrRegionTooSmall     = &Error{Type: ErrorTypeRegionTooSmall}
	ErrDuplicateIndex     = &Error{Type: ErrorTypeDuplicateIndex}
	ErrInvalidIndex       = &Error{Type: ErrorTypeInvalidIndex}
	ErrSurfaceNotMounted  = &Error{Type: ErrorTypeSurfaceNotMounted}
	ErrInvalidGesture     = &Error{Type: ErrorTypeInvalidGesture}
	ErrRegionNotFound     = &Error{Type: ErrorTypeRegionNotFound}
	ErrFontEmbedFailure   = &Error{Type: ErrorTypeFontEmbedFailure}
	ErrGlyphRenderFailure = &Error{Type: ErrorTypeGlyphRenderFailure}
	ErrOverflow           = &Error{Type: ErrorTypeOverflow}
	ErrMissingValue       = &Error{Type: ErrorTypeMissingValue}
	ErrDocumentUnreadable = &Error{Type: ErrorTypeDocumentUnreadable}
	ErrSessionNotFound    = &Error{Type: ErrorTypeSessionNotFound}
)

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Type.defaultMessage()
	}
	if e.Context != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Context)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type.String(), msg)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same type, so the sentinels work with errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// String returns a string representation of the ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeRegionTooSmall:
		return "REGION_TOO_SMALL"
	case ErrorTypeDuplicateIndex:
		return "DUPLICATE_INDEX"
	case ErrorTypeInvalidIndex:
		return "INVALID_INDEX"
	case ErrorTypeSurfaceNotMounted:
		return "SURFACE_NOT_MOUNTED"
	case ErrorTypeInvalidGesture:
		return "INVALID_GESTURE"
	case ErrorTypeRegionNotFound:
		return "REGION_NOT_FOUND"
	case ErrorTypeFontEmbedFailure:
		return "FONT_EMBED_FAILURE"
	case ErrorTypeGlyphRenderFailure:
		return "GLYPH_RENDER_FAILURE"
	case ErrorTypeOverflow:
		return "OVERFLOW"
	case ErrorTypeMissingValue:
		return "MISSING_VALUE"
	case ErrorTypeDocumentUnreadable:
		return "DOCUMENT_UNREADABLE"
	case ErrorTypeSessionNotFound:
		return "SESSION_NOT_FOUND"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the type by name
func (et ErrorType) MarshalText() ([]byte, error) {
	return []byte(et.String()), nil
}

func (et ErrorType) defaultMessage() string {
	switch et {
	case ErrorTypeRegionTooSmall:
		return "selection too small"
	case ErrorTypeDuplicateIndex:
		return "position index already in use"
	case ErrorTypeInvalidIndex:
		return "position index must be a positive integer"
	case ErrorTypeSurfaceNotMounted:
		return "page surface is not mounted"
	case ErrorTypeInvalidGesture:
		return "event not valid in the current selection state"
	case ErrorTypeRegionNotFound:
		return "region not found"
	case ErrorTypeFontEmbedFailure:
		return "font could not be embedded"
	case ErrorTypeGlyphRenderFailure:
		return "text could not be rendered"
	case ErrorTypeOverflow:
		return "text may overflow region"
	case ErrorTypeMissingValue:
		return "no value supplied for region"
	case ErrorTypeDocumentUnreadable:
		return "document cannot be parsed"
	case ErrorTypeSessionNotFound:
		return "session not found"
	default:
		return "unknown error"
	}
}

// GetSeverity returns the severity level for a given error type
func (et ErrorType) GetSeverity() ErrorSeverity {
	switch et {
	case ErrorTypeOverflow, ErrorTypeMissingValue:
		return SeverityInfo
	case ErrorTypeRegionTooSmall, ErrorTypeFontEmbedFailure, ErrorTypeGlyphRenderFailure:
		return SeverityWarning
	case ErrorTypeDuplicateIndex, ErrorTypeInvalidIndex, ErrorTypeSurfaceNotMounted:
		return SeverityError
	case ErrorTypeInvalidGesture, ErrorTypeRegionNotFound, ErrorTypeSessionNotFound:
		return SeverityError
	case ErrorTypeDocumentUnreadable:
		return SeverityFatal
	default:
		return SeverityError
	}
}

// IsRecoverable determines if an error type leaves the surrounding operation usable
func (et ErrorType) IsRecoverable() bool {
	switch et {
	case ErrorTypeDocumentUnreadable, ErrorTypeUnknown:
		return false
	default:
		return true
	}
}

// New creates a new Error of the given type
func New(errorType ErrorType, message string) *Error {
	return &Error{
		Type:        errorType,
		Message:     message,
		Recoverable: errorType.IsRecoverable(),
	}
}

// Newf creates a new Error with a formatted message
func Newf(errorType ErrorType, format string, args ...any) *Error {
	return New(errorType, fmt.Sprintf(format, args...))
}

// Wrap wraps a standard error as an Error of the given type
func Wrap(errorType ErrorType, message string, err error) *Error {
	e := New(errorType, message)
	e.Err = err
	return e
}

// WithContext adds context to an existing Error
func (e *Error) WithContext(context string) *Error {
	e.Context = context
	return e
}

// WithPage adds page number information to an existing Error
func (e *Error) WithPage(page int) *Error {
	e.Page = page
	return e
}

// WithPositionIndex records which placeholder the error concerns
func (e *Error) WithPositionIndex(index int) *Error {
	e.PositionIndex = index
	return e
}

// GetSeverity returns the severity of this specific error
func (e *Error) GetSeverity() ErrorSeverity {
	return e.Type.GetSeverity()
}

// TypeOf returns the ErrorType carried anywhere in err's chain
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// As converts err into an *Error, wrapping foreign errors as ErrorTypeUnknown
func As(err error) *Error {
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return Wrap(ErrorTypeUnknown, "unexpected failure", err)
}
