package models

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// FieldError names the first rule a document broke.
type FieldError struct {
	Field string
	Rule  string
}

func (e *FieldError) Error() string {
	return e.Field + " failed " + e.Rule
}

// NormalizePost trims user supplied fields in place.
func NormalizePost(p *Post) {
	p.Text = strings.TrimSpace(p.Text)
	p.Image = strings.TrimSpace(p.Image)
}

// NormalizeReply trims user supplied fields in place.
func NormalizeReply(r *Reply) {
	r.Text = strings.TrimSpace(r.Text)
	r.AuthorUsername = strings.TrimSpace(r.AuthorUsername)
}

// ValidatePost checks a normalized post: text or image must be present and
// text must fit in MaxPostTextLength characters.
func ValidatePost(p *Post) error {
	if p.AuthorID.IsZero() {
		return &FieldError{Field: "authorId", Rule: "required"}
	}
	return structError(validate.Struct(p))
}

// ValidateReply checks a normalized reply: 1..MaxReplyTextLength characters.
func ValidateReply(r *Reply) error {
	if r.AuthorID.IsZero() {
		return &FieldError{Field: "authorId", Rule: "required"}
	}
	return structError(validate.Struct(r))
}

func structError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &FieldError{Field: jsonName(fe.Field()), Rule: fe.Tag()}
	}
	return err
}

func jsonName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
