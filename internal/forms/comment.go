package forms

import "strings"

// CommentInput is the raw comment submission.
type CommentInput struct {
	Text string `form:"text" validate:"required"`
}

// ValidateComment requires non-blank text and returns it trimmed.
func ValidateComment(in CommentInput) Result[string] {
	in.Text = strings.TrimSpace(in.Text)
	if errs := check(in); len(errs) > 0 {
		return invalid[string](errs...)
	}
	return ok(in.Text)
}
