// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailTaken is returned by a UserRepository when the email is already registered.
var ErrEmailTaken = errors.New("email already registered")

// Error codes that callers outside the package can rely on.
const (
	CodeEmailTaken         = "AUTH_EMAIL_TAKEN"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeUserNotFound       = "AUTH_USER_NOT_FOUND"
	CodeAlreadyVerified    = "AUTH_ALREADY_VERIFIED"
	CodeIdentityURLInvalid = "IDENTITY_URL_INVALID"
	CodeEmailNotFound      = "RESET_EMAIL_NOT_FOUND"
	CodeResetTokenInvalid  = "RESET_TOKEN_INVALID"
	CodeAccessTokenInvalid = "ACCESS_TOKEN_INVALID"
	CodeRefreshTokenEmpty  = "REFRESH_TOKEN_EMPTY"
	CodeRefreshInvalid     = "REFRESH_TOKEN_INVALID"
	CodeAccessHeaderEmpty  = "ACCESS_HEADER_EMPTY"
	CodeValidationFailed   = "REQUEST_VALIDATION_FAILED"
	CodePasswordEmpty      = "PASSWORD_EMPTY"
)

// Kind classifies an error for the boundary layer.
type Kind int

// Error kinds, from least to most specific.
const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

var codeKinds = map[string]Kind{
	CodeEmailTaken:         KindConflict,
	CodeInvalidCredentials: KindUnauthorized,
	CodeUserNotFound:       KindNotFound,
	CodeAlreadyVerified:    KindForbidden,
	CodeIdentityURLInvalid: KindUnauthorized,
	CodeEmailNotFound:      KindUnauthorized,
	CodeResetTokenInvalid:  KindUnauthorized,
	CodeAccessTokenInvalid: KindUnauthorized,
	CodeRefreshTokenEmpty:  KindUnauthorized,
	CodeRefreshInvalid:     KindUnauthorized,
	CodeAccessHeaderEmpty:  KindBadRequest,
	CodeValidationFailed:   KindBadRequest,
}

// KindOf returns the classification of err. Errors without a known code are internal.
//
// Classified errors are always created fresh at the point of failure, so the
// code oops reports for them is the one that decides the kind.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return KindInternal
	}
	code, _ := oopsErr.Code().(string)
	if kind, known := codeKinds[code]; known {
		return kind
	}
	return KindInternal
}
