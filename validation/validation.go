// Package validation provides the pure field validators and form validation
// used ahead of any network call. All messages are resolved through the
// language tables in the i18n package.
package validation

import (
	"regexp"
	"strings"

	"github.com/storefrontapp/authkit/i18n"
)

// DefaultMinPasswordLength is the minimum signup password length.
const DefaultMinPasswordLength = 6

// Field names used as keys in Result.Errors. FirstError reports errors in
// this declaration order.
const (
	FieldName     = "name"
	FieldEmail    = "email"
	FieldPassword = "password"
)

var fieldOrder = []string{FieldName, FieldEmail, FieldPassword}

// emailPattern requires a non-empty local part, exactly one @ and a dotted
// domain with non-empty segments on both sides of the dot.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValidEmail reports whether value is a well-formed email address. Non-string
// values are never valid. Whitespace is trimmed before matching.
func IsValidEmail(value any) bool {
	s, ok := value.(string)
	if !ok || s == "" {
		return false
	}
	return emailPattern.MatchString(strings.TrimSpace(s))
}

// IsValidPasswordLength reports whether value is a string of at least
// minLength characters. No trimming is applied; leading and trailing spaces
// count. Pass DefaultMinPasswordLength for the standard minimum.
func IsValidPasswordLength(value any, minLength int) bool {
	s, ok := value.(string)
	if !ok || s == "" {
		return false
	}
	return len(s) >= minLength
}

// IsNotEmpty reports whether value carries content. Nil is empty; strings are
// empty iff they trim to nothing; every other type is considered not empty
// regardless of its zero value (0, false and empty structures all count as
// content).
func IsNotEmpty(value any) bool {
	if value == nil {
		return false
	}
	if s, ok := value.(string); ok {
		return len(strings.TrimSpace(s)) > 0
	}
	return true
}

// LoginForm carries the raw login inputs.
type LoginForm struct {
	Email    string
	Password string
}

// SignupForm carries the raw signup inputs.
type SignupForm struct {
	Name     string
	Email    string
	Password string
}

// Result is the outcome of validating a form. Errors maps field names to
// localized messages; it is empty iff IsValid is true.
type Result struct {
	IsValid bool
	Errors  map[string]string
}

// FirstError returns the first error message in field declaration order
// (name, email, password), or "" when the result is valid.
func (r Result) FirstError() string {
	for _, field := range fieldOrder {
		if msg, ok := r.Errors[field]; ok {
			return msg
		}
	}
	return ""
}

// ValidateLoginForm checks the login inputs. Per field, requiredness takes
// priority over format.
func ValidateLoginForm(form LoginForm, lang i18n.Language) Result {
	t := i18n.Lookup(lang)
	errs := map[string]string{}

	if !IsNotEmpty(form.Email) {
		errs[FieldEmail] = t.Validation.EmailRequired
	} else if !IsValidEmail(form.Email) {
		errs[FieldEmail] = t.Validation.EmailInvalid
	}

	if !IsNotEmpty(form.Password) {
		errs[FieldPassword] = t.Validation.PasswordRequired
	}

	return Result{IsValid: len(errs) == 0, Errors: errs}
}

// ValidateSignupForm checks the signup inputs: the login rules plus a required
// name and a minimum password length, checked after requiredness so the two
// failures yield distinct messages.
func ValidateSignupForm(form SignupForm, lang i18n.Language) Result {
	t := i18n.Lookup(lang)
	errs := map[string]string{}

	if !IsNotEmpty(form.Name) {
		errs[FieldName] = t.Validation.NameRequired
	}

	if !IsNotEmpty(form.Email) {
		errs[FieldEmail] = t.Validation.EmailRequired
	} else if !IsValidEmail(form.Email) {
		errs[FieldEmail] = t.Validation.EmailInvalid
	}

	if !IsNotEmpty(form.Password) {
		errs[FieldPassword] = t.Validation.PasswordRequired
	} else if !IsValidPasswordLength(form.Password, DefaultMinPasswordLength) {
		errs[FieldPassword] = t.Validation.PasswordMinLength
	}

	return Result{IsValid: len(errs) == 0, Errors: errs}
}
