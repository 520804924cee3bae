package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCollectionNotFound signals a missing collection type.
	ErrCollectionNotFound = errors.New("collection type not found")
	// ErrDuplicateCollectionKey signals a collection key already taken within the tenant.
	ErrDuplicateCollectionKey = errors.New("collection key already exists")
	// ErrDuplicateFieldKey signals two field definitions sharing a key.
	ErrDuplicateFieldKey = errors.New("duplicate field key")
	// ErrInvalidSchema signals an invalid collection type definition.
	ErrInvalidSchema = errors.New("invalid schema")

	// ErrEntryNotFound signals a missing entry within tenant+collection scope.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrInvalidEntryID signals a syntactically invalid entry identifier.
	ErrInvalidEntryID = errors.New("invalid entry id")
	// ErrValidationFailed signals entry data rejected by the schema.
	ErrValidationFailed = errors.New("entry validation failed")
	// ErrUniqueViolation signals a duplicate value on a unique-flagged field.
	ErrUniqueViolation = errors.New("unique field violation")

	// ErrInvalidQuery signals a malformed query descriptor (bad field, operator or value).
	ErrInvalidQuery = errors.New("invalid query")
)

// FieldError is a single per-field validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates all per-field failures for one write.
// The write is all-or-nothing: any field error rejects the whole payload.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return fmt.Sprintf("%s: %s", ErrValidationFailed.Error(), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }

// NewValidationError creates a ValidationError from per-field failures.
func NewValidationError(fields []FieldError) error {
	return &ValidationError{Fields: fields}
}

// UniqueViolationError names the first unique-flagged field holding a duplicate value.
type UniqueViolationError struct {
	Field string
}

func (e *UniqueViolationError) Error() string {
	return fmt.Sprintf("%s: field %q", ErrUniqueViolation.Error(), e.Field)
}

func (e *UniqueViolationError) Unwrap() error { return ErrUniqueViolation }

// NewUniqueViolation creates a unique violation error for the given field.
func NewUniqueViolation(field string) error {
	return &UniqueViolationError{Field: field}
}

// QueryError ties a query rejection to the clause that caused it.
type QueryError struct {
	Clause string // "where", "orderBy", "select", "q", "sort", "filter"
	Field  string
	Msg    string
}

func (e *QueryError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s clause, field %q: %s", ErrInvalidQuery.Error(), e.Clause, e.Field, e.Msg)
	}
	return fmt.Sprintf("%s: %s clause: %s", ErrInvalidQuery.Error(), e.Clause, e.Msg)
}

func (e *QueryError) Unwrap() error { return ErrInvalidQuery }

// NewQueryError creates a query error local to one clause.
func NewQueryError(clause, field, msg string) error {
	return &QueryError{Clause: clause, Field: field, Msg: msg}
}
