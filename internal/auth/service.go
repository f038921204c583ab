// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/hellowebapp/hellowebapp/internal/mail"
)

// DefaultAppName is used in mail subjects and identity signatures.
const DefaultAppName = "Hello Web App"

// ServiceDeps holds the collaborators of a Service. Clock, Logger and AppName are optional.
type ServiceDeps struct {
	Users    UserRepository
	Sessions SessionRepository
	Tx       Transactor
	Hasher   PasswordHasher
	Tokens   *TokenIssuer
	Identity *IdentityCodec
	Resets   *ResetCodec
	Mailer   mail.Sender
	Clock    Clock
	Logger   *slog.Logger
	AppName  string
}

// Service runs the account flows: signup, signin, signout, withdraw,
// identity verification, password reset, token refresh and profile access.
type Service struct {
	users    UserRepository
	sessions SessionRepository
	tx       Transactor
	hasher   PasswordHasher
	tokens   *TokenIssuer
	identity *IdentityCodec
	resets   *ResetCodec
	mailer   mail.Sender
	clock    Clock
	logger   *slog.Logger
	appName  string

	// dummyHash is verified against when a user doesn't exist so that signin
	// takes the same time whether or not the email is registered.
	dummyHash string
}

// NewService creates a Service, validating that required dependencies are present.
func NewService(deps ServiceDeps) (*Service, error) {
	switch {
	case deps.Users == nil:
		return nil, oops.Code("SERVICE_CONFIG_INVALID").Errorf("users repository is required")
	case deps.Sessions == nil:
		return nil, oops.Code("SERVICE_CONFIG_INVALID").Errorf("sessions repository is required")
	case deps.Tx == nil:
		return nil, oops.Code("SERVICE_CONFIG_INVALID").Errorf("transactor is required")
	case deps.Hasher == nil:
		return nil, oops.Code("SERVICE_CONFIG_INVALID").Errorf("password hasher is required")
	case deps.Tokens == nil:
		return nil, oops.Code("SERVICE_CONFIG_INVALID").Errorf("token issuer is required")
	case deps.Identity == nil:
		return nil, oops.Code("SERVICE_CONFIG_INVALID").Errorf("identity codec is required")
	case deps.Resets == nil:
		return nil, oops.Code("SERVICE_CONFIG_INVALID").Errorf("reset codec is required")
	case deps.Mailer == nil:
		return nil, oops.Code("SERVICE_CONFIG_INVALID").Errorf("mailer is required")
	}

	s := &Service{
		users:    deps.Users,
		sessions: deps.Sessions,
		tx:       deps.Tx,
		hasher:   deps.Hasher,
		tokens:   deps.Tokens,
		identity: deps.Identity,
		resets:   deps.Resets,
		mailer:   deps.Mailer,
		clock:    deps.Clock,
		logger:   deps.Logger,
		appName:  deps.AppName,
	}
	if s.clock == nil {
		s.clock = SystemClock{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.appName == "" {
		s.appName = DefaultAppName
	}

	dummy, err := s.hasher.Hash(ulid.Make().String())
	if err != nil {
		return nil, oops.Code("SERVICE_CONFIG_INVALID").
			With("operation", "hash dummy password").
			Wrap(err)
	}
	s.dummyHash = dummy
	return s, nil
}

// Tokens returns the issuer used to validate inbound tokens.
func (s *Service) Tokens() *TokenIssuer {
	return s.tokens
}

// SignupInput is a validated signup request. Origin is the scheme and host links point at.
type SignupInput struct {
	Name     string
	Email    string
	Password string
	Origin   string
}

// Signup registers a user and mails an identity verification link.
func (s *Service) Signup(ctx context.Context, in SignupInput) error {
	_, err := s.users.GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return emailTaken(in.Email)
	case !errors.Is(err, ErrNotFound):
		return oops.Code("AUTH_SIGNUP_FAILED").With("operation", "get user by email").Wrap(err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return oops.Code("AUTH_SIGNUP_FAILED").With("operation", "hash password").Wrap(err)
	}

	user, err := NewUser(in.Name, in.Email, hash, s.clock.Now())
	if err != nil {
		return oops.Code("AUTH_SIGNUP_FAILED").With("operation", "new user").Wrap(err)
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return emailTaken(in.Email)
		}
		return oops.Code("AUTH_SIGNUP_FAILED").With("operation", "create user").Wrap(err)
	}

	s.logger.InfoContext(ctx, "user signed up", "user_id", user.ID.String())
	return s.sendIdentity(ctx, in.Origin, user)
}

// SigninInput is a validated signin request.
type SigninInput struct {
	Email    string
	Password string
}

// SigninResult is returned by a successful Signin.
type SigninResult struct {
	Tokens  TokenPair
	Profile Profile
}

// Signin checks credentials, issues a token pair and records the signin time.
// A missing user and a wrong password produce the same error.
func (s *Service) Signin(ctx context.Context, in SigninInput) (*SigninResult, error) {
	user, lookupErr := s.users.GetByEmail(ctx, in.Email)

	targetHash := ""
	userExists := false
	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
		userExists = true
	case !errors.Is(lookupErr, ErrNotFound):
		return nil, oops.Code("AUTH_SIGNIN_FAILED").
			With("operation", "get user by email").
			Wrap(lookupErr)
	default:
		targetHash = s.dummyHash
	}

	valid, verifyErr := s.hasher.Verify(in.Password, targetHash)
	if verifyErr != nil {
		if !userExists {
			return nil, invalidCredentials()
		}
		return nil, oops.Code("AUTH_SIGNIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}
	if !userExists || !valid {
		return nil, invalidCredentials()
	}

	tokens, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return nil, oops.Code("AUTH_SIGNIN_FAILED").With("operation", "issue tokens").Wrap(err)
	}

	now := s.clock.Now()
	user.SignedInAt = &now
	user.UpdatedAt = now
	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		if upgraded, hashErr := s.hasher.Hash(in.Password); hashErr == nil {
			user.PasswordHash = upgraded
		}
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, oops.Code("AUTH_SIGNIN_FAILED").
			With("operation", "record signin").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	return &SigninResult{Tokens: tokens, Profile: user.Profile()}, nil
}

// Signout deletes the user's session.
func (s *Service) Signout(ctx context.Context, userID ulid.ULID) error {
	if err := s.sessions.DeleteByUser(ctx, userID); err != nil {
		return oops.Code("AUTH_SIGNOUT_FAILED").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return nil
}

// Withdraw deletes the user and their session after checking the password.
func (s *Service) Withdraw(ctx context.Context, userID ulid.ULID, password string) error {
	user, err := s.userByID(ctx, userID, "AUTH_WITHDRAW_FAILED")
	if err != nil {
		return err
	}

	valid, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return oops.Code("AUTH_WITHDRAW_FAILED").With("operation", "verify password").Wrap(err)
	}
	if !valid {
		return invalidCredentials()
	}

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.sessions.DeleteByUser(ctx, userID); err != nil {
			return oops.With("operation", "delete session").Wrap(err)
		}
		if err := s.users.Delete(ctx, userID); err != nil {
			return oops.With("operation", "delete user").Wrap(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("AUTH_WITHDRAW_FAILED").With("user_id", userID.String()).Wrap(err)
	}

	s.logger.InfoContext(ctx, "user withdrew", "user_id", userID.String())
	return nil
}

// SendIdentity mails a fresh identity verification link to an unverified user.
func (s *Service) SendIdentity(ctx context.Context, userID ulid.ULID, origin string) error {
	user, err := s.userByID(ctx, userID, "AUTH_IDENTITY_SEND_FAILED")
	if err != nil {
		return err
	}
	if user.Verified {
		return oops.Code(CodeAlreadyVerified).
			With("user_id", userID.String()).
			Errorf("this account is already verified")
	}
	return s.sendIdentity(ctx, origin, user)
}

// IdentityOutcome tells the caller what VerifyIdentity did.
type IdentityOutcome int

// Identity verification outcomes.
const (
	IdentityVerified IdentityOutcome = iota + 1
	IdentityAlreadyVerified
)

// VerifyIdentity marks the user verified if req is a valid link for them.
// The link is the only credential; there is no authenticated caller.
func (s *Service) VerifyIdentity(ctx context.Context, rawUserID string, req IdentityRequest) (IdentityOutcome, error) {
	userID, err := ulid.Parse(rawUserID)
	if err != nil {
		return 0, identityURLInvalid(rawUserID)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, identityURLInvalid(rawUserID)
		}
		return 0, oops.Code("AUTH_IDENTITY_VERIFY_FAILED").With("operation", "get user by id").Wrap(err)
	}
	if user.Verified {
		return IdentityAlreadyVerified, nil
	}
	if !s.identity.Verify(req, user) {
		return 0, identityURLInvalid(rawUserID)
	}

	user.Verified = true
	user.UpdatedAt = s.clock.Now()
	if err := s.users.Update(ctx, user); err != nil {
		return 0, oops.Code("AUTH_IDENTITY_VERIFY_FAILED").
			With("operation", "mark verified").
			With("user_id", userID.String()).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "identity verified", "user_id", userID.String())
	return IdentityVerified, nil
}

// SendReset mails a password reset link to the user registered with email.
func (s *Service) SendReset(ctx context.Context, email, origin string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return emailNotFound(email)
		}
		return oops.Code("AUTH_RESET_SEND_FAILED").With("operation", "get user by email").Wrap(err)
	}

	link, err := s.resets.Generate(ctx, origin, user.Email)
	if err != nil {
		return oops.Code("AUTH_RESET_SEND_FAILED").With("operation", "generate reset url").Wrap(err)
	}
	msg, err := mail.ResetMessage(s.appName, user.Email, user.Name, link, s.resets.Window())
	if err != nil {
		return oops.Code("AUTH_RESET_SEND_FAILED").With("operation", "compose mail").Wrap(err)
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return oops.Code("AUTH_RESET_SEND_FAILED").With("operation", "send mail").Wrap(err)
	}
	return nil
}

// CheckReset reports whether token is the pending reset token for email.
// It backs the reset form, so nothing is consumed.
func (s *Service) CheckReset(ctx context.Context, email, token string) error {
	if _, err := s.resets.Verify(ctx, email, token); err != nil {
		return err //nolint:wrapcheck // classified by the codec
	}
	return nil
}

// ResetInput is a validated password reset submission.
type ResetInput struct {
	Email    string
	Token    string
	Password string
}

// SubmitReset sets a new password and consumes the reset token in one transaction.
func (s *Service) SubmitReset(ctx context.Context, in ResetInput) error {
	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return emailNotFound(in.Email)
		}
		return oops.Code("AUTH_RESET_SUBMIT_FAILED").With("operation", "get user by email").Wrap(err)
	}
	if _, err := s.resets.Verify(ctx, in.Email, in.Token); err != nil {
		return err //nolint:wrapcheck // classified by the codec
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return oops.Code("AUTH_RESET_SUBMIT_FAILED").With("operation", "hash password").Wrap(err)
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.clock.Now()

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.resets.Consume(ctx, in.Email, in.Token); err != nil {
			return err //nolint:wrapcheck // coded by the codec
		}
		if err := s.users.Update(ctx, user); err != nil {
			return oops.With("operation", "update password").Wrap(err)
		}
		return nil
	})
	if err != nil {
		if KindOf(err) == KindUnauthorized {
			return err //nolint:wrapcheck // classified by the codec
		}
		return oops.Code("AUTH_RESET_SUBMIT_FAILED").With("user_id", user.ID.String()).Wrap(err)
	}

	s.logger.InfoContext(ctx, "password reset", "user_id", user.ID.String())
	return nil
}

// Refresh rotates the user's token pair. The refresh token must be validated first.
func (s *Service) Refresh(ctx context.Context, userID ulid.ULID) (TokenPair, error) {
	tokens, err := s.tokens.Issue(ctx, userID)
	if err != nil {
		return TokenPair{}, oops.Code("AUTH_REFRESH_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	return tokens, nil
}

// Profile returns the signed-in user's profile.
func (s *Service) Profile(ctx context.Context, userID ulid.ULID) (Profile, error) {
	user, err := s.userByID(ctx, userID, "USER_READ_FAILED")
	if err != nil {
		return Profile{}, err
	}
	return user.Profile(), nil
}

// ProfileInput is a validated profile update.
type ProfileInput struct {
	Name   string
	Email  string
	Origin string
}

// UpdateProfile changes name and email. A changed email clears the verified
// flag and triggers a new identity verification mail.
func (s *Service) UpdateProfile(ctx context.Context, userID ulid.ULID, in ProfileInput) (Profile, error) {
	user, err := s.userByID(ctx, userID, "USER_UPDATE_FAILED")
	if err != nil {
		return Profile{}, err
	}

	emailChanged := user.Email != in.Email
	user.Name = in.Name
	user.Email = in.Email
	if emailChanged {
		user.Verified = false
	}
	user.UpdatedAt = s.clock.Now()

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return Profile{}, emailTaken(in.Email)
		}
		return Profile{}, oops.Code("USER_UPDATE_FAILED").
			With("operation", "update user").
			With("user_id", userID.String()).
			Wrap(err)
	}

	if emailChanged {
		if err := s.sendIdentity(ctx, in.Origin, user); err != nil {
			return Profile{}, err
		}
	}
	return user.Profile(), nil
}

func (s *Service) userByID(ctx context.Context, userID ulid.ULID, failCode string) (*User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeUserNotFound).
				With("user_id", userID.String()).
				Errorf("user not found")
		}
		return nil, oops.Code(failCode).
			With("operation", "get user by id").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return user, nil
}

func (s *Service) sendIdentity(ctx context.Context, origin string, user *User) error {
	link := s.identity.Generate(origin, user)
	s.logger.InfoContext(ctx, "identify url created", "user_id", user.ID.String())

	msg, err := mail.IdentityMessage(s.appName, user.Email, user.Name, link, s.identity.Window())
	if err != nil {
		return oops.Code("AUTH_IDENTITY_SEND_FAILED").With("operation", "compose mail").Wrap(err)
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return oops.Code("AUTH_IDENTITY_SEND_FAILED").
			With("operation", "send mail").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	return nil
}

func emailTaken(email string) error {
	return oops.Code(CodeEmailTaken).
		With("email", email).
		Errorf("this email address is already registered")
}

func invalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Errorf("invalid credentials")
}

func identityURLInvalid(userID string) error {
	return oops.Code(CodeIdentityURLInvalid).
		With("user_id", userID).
		Errorf("the url is invalid")
}

func emailNotFound(email string) error {
	return oops.Code(CodeEmailNotFound).
		With("email", email).
		Errorf("no user matches this email address")
}
