// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

// Package auth provides the credential and token lifecycle of Hello Web App.
//
// # Domain Types
//
// Domain types (User, Session, PasswordReset) should be created using their
// constructors:
//   - NewUser - creates an unverified User with a fresh ULID
//   - NewSession - binds a user to their current refresh token
//   - NewPasswordReset - creates an expiring reset request for an email
//
// Repository implementations receive pre-validated types from these constructors.
//
// # Components
//
//   - BcryptHasher - password hashing
//   - TokenIssuer - access/refresh JWT pair bound to one session row per user
//   - IdentityCodec - signed, expiring email verification links
//   - ResetCodec - single-use, expiring password reset tokens
//   - Service - the account flows built from the above
//
// Multi-step writes (session replace, reset replace, withdraw, reset submit)
// run inside a Transactor so a partial write is never committed.
//
// # Errors
//
// Errors are oops errors. KindOf maps their codes to the Kind the boundary
// layer reports; anything unclassified is KindInternal.
package auth
