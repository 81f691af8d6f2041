package store

import (
	"errors"
	"fmt"

	"threads/models"
)

var (
	// ErrNotFound is returned when a post, reply or user id does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when the actor may not perform a mutation.
	ErrUnauthorized = errors.New("not authorized")
)

// ValidationError is returned before anything is persisted when a document
// breaks a schema rule.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error (%s): %s", e.Field, e.Message)
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func IsValidationError(err error) bool {
	var valErr *ValidationError
	return errors.As(err, &valErr)
}

func postValidationError(err error) error {
	var fe *models.FieldError
	if !errors.As(err, &fe) {
		return NewValidationError("post", err.Error())
	}
	switch {
	case fe.Field == "text" && fe.Rule == "required_without":
		return NewValidationError("text", "post must contain text or image")
	case fe.Field == "text" && fe.Rule == "max":
		return NewValidationError("text", fmt.Sprintf("text must be at most %d characters", models.MaxPostTextLength))
	case fe.Field == "authorId":
		return NewValidationError("authorId", "author is required")
	}
	return NewValidationError(fe.Field, fe.Error())
}

func replyValidationError(err error) error {
	var fe *models.FieldError
	if !errors.As(err, &fe) {
		return NewValidationError("reply", err.Error())
	}
	switch {
	case fe.Field == "text" && fe.Rule == "required":
		return NewValidationError("text", "reply text is required")
	case fe.Field == "text" && fe.Rule == "max":
		return NewValidationError("text", fmt.Sprintf("reply must be at most %d characters", models.MaxReplyTextLength))
	case fe.Field == "authorId":
		return NewValidationError("authorId", "author is required")
	}
	return NewValidationError(fe.Field, fe.Error())
}
