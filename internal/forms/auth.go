package forms

import "strings"

// SignupInput is the raw registration form.
type SignupInput struct {
	FirstName       string `form:"first_name" validate:"max=150"`
	LastName        string `form:"last_name" validate:"max=150"`
	Username        string `form:"username" validate:"required,max=150,username"`
	Email           string `form:"email" validate:"omitempty,email"`
	Password        string `form:"password1" validate:"required,min=8"`
	PasswordConfirm string `form:"password2" validate:"required,eqfield=Password"`
}

// ValidateSignup checks a registration form and returns the trimmed input.
func ValidateSignup(in SignupInput) Result[SignupInput] {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if errs := check(in); len(errs) > 0 {
		return invalid[SignupInput](errs...)
	}
	return ok(in)
}

// LoginInput is the raw login form.
type LoginInput struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

func ValidateLogin(in LoginInput) Result[LoginInput] {
	in.Username = strings.TrimSpace(in.Username)
	if errs := check(in); len(errs) > 0 {
		return invalid[LoginInput](errs...)
	}
	return ok(in)
}
