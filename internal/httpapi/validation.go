// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

package httpapi

import (
	"errors"
	"net/mail"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/samber/oops"

	"github.com/hellowebapp/hellowebapp/internal/auth"
)

const (
	maxFieldLength  = 255
	minPasswordLen  = 8
	passwordSymbols = "!@#$%^&*"
)

var (
	errEmailFormat      = errors.New("must be an email address")
	errPasswordFormat   = errors.New("must mix upper and lower case letters, digits and one of " + passwordSymbols + ", at least 8 characters")
	errPasswordMismatch = errors.New("passwords do not match")
)

func required() validation.Rule {
	return validation.Required.Error("is required")
}

func maxLength() validation.Rule {
	return validation.RuneLength(0, maxFieldLength).Error("must be at most 255 characters")
}

func emailRules() []validation.Rule {
	return []validation.Rule{required(), maxLength(), validation.By(emailFormat)}
}

func passwordRules() []validation.Rule {
	return []validation.Rule{required(), maxLength(), validation.By(passwordFormat)}
}

func emailFormat(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || !strings.Contains(s[strings.LastIndex(s, "@"):], ".") {
		return errEmailFormat
	}
	return nil
}

func passwordFormat(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	var lower, upper, digit bool
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	if !lower || !upper || !digit || !strings.ContainsAny(s, passwordSymbols) || len(s) < minPasswordLen {
		return errPasswordFormat
	}
	return nil
}

func matches(other string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != other {
			return errPasswordMismatch
		}
		return nil
	}
}

// validationFailed converts an ozzo result into a BadRequest error whose
// message reads "param: msg, param: msg" and whose context carries the
// individual field errors.
func validationFailed(err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return oops.Code("REQUEST_VALIDATION_INTERNAL").Wrap(err)
	}

	params := make([]string, 0, len(errs))
	for param := range errs {
		params = append(params, param)
	}
	sort.Strings(params)

	fields := make([]fieldError, 0, len(params))
	parts := make([]string, 0, len(params))
	for _, param := range params {
		msg := errs[param].Error()
		fields = append(fields, fieldError{Param: param, Msg: msg})
		parts = append(parts, param+": "+msg)
	}
	return oops.Code(auth.CodeValidationFailed).
		With("errors", fields).
		Errorf("%s", strings.Join(parts, ", "))
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *signupRequest) Validate() error {
	return validationFailed(validation.ValidateStruct(r,
		validation.Field(&r.Name, required(), maxLength()),
		validation.Field(&r.Email, emailRules()...),
		validation.Field(&r.Password, passwordRules()...),
	))
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *signinRequest) Validate() error {
	return validationFailed(validation.ValidateStruct(r,
		validation.Field(&r.Email, required()),
		validation.Field(&r.Password, required()),
	))
}

type withdrawRequest struct {
	Password string `json:"password"`
}

func (r *withdrawRequest) Validate() error {
	return validationFailed(validation.ValidateStruct(r,
		validation.Field(&r.Password, required()),
	))
}

type resetSendRequest struct {
	Email string `json:"email"`
}

func (r *resetSendRequest) Validate() error {
	return validationFailed(validation.ValidateStruct(r,
		validation.Field(&r.Email, required()),
	))
}

type resetSubmitRequest struct {
	Token                string `json:"token"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"passwordConfirmation"`
}

func (r *resetSubmitRequest) Validate() error {
	return validationFailed(validation.ValidateStruct(r,
		validation.Field(&r.Token, required()),
		validation.Field(&r.Email, required()),
		validation.Field(&r.Password, passwordRules()...),
		validation.Field(&r.PasswordConfirmation, required(), validation.By(matches(r.Password))),
	))
}

type profileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (r *profileRequest) Validate() error {
	return validationFailed(validation.ValidateStruct(r,
		validation.Field(&r.Name, required(), maxLength()),
		validation.Field(&r.Email, emailRules()...),
	))
}
