package core

import "github.com/pkg/errors"

// FieldError is a failed validation of one request field, keyed by its JSON name.
type FieldError struct {
	Field string
	Error string
}

// ValidationError reports request data rejected by a domain rule the validator tags cannot express
// (uniqueness, referenced users, schedule ownership...). The API renders it as a 400 field map.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (err ValidationError) Error() string {
	if err.Err != nil {
		return err.Err.Error()
	}
	if len(err.Fields) > 0 {
		return err.Fields[0].Field + ": " + err.Fields[0].Error
	}
	return ""
}

// Unwrap exposes the domain error, eg. for errors.Is(err, attendance.ErrDuplicateStudent).
func (err ValidationError) Unwrap() error { return err.Err }

// FieldMap returns the messages by field; nil when no field is involved.
func (err ValidationError) FieldMap() map[string]string {
	if len(err.Fields) == 0 {
		return nil
	}
	m := make(map[string]string, len(err.Fields))
	for _, f := range err.Fields {
		m[f.Field] = f.Error
	}
	return m
}

// shutdown is returned by handlers hitting an unrecoverable state (eg. a lost database);
// the API stops gracefully when it sees one.
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s *shutdown) Error() string { return s.message }

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
