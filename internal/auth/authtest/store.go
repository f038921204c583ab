// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

// Package authtest provides in-memory collaborators for testing auth flows.
package authtest

import (
	"context"
	"html"
	"regexp"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hellowebapp/hellowebapp/internal/auth"
	"github.com/hellowebapp/hellowebapp/internal/mail"
)

// Store is an in-memory implementation of every auth repository plus a
// Transactor. A failed transaction restores the state from before it began.
type Store struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	users    map[ulid.ULID]auth.User
	sessions map[ulid.ULID]auth.Session
	resets   map[string]auth.PasswordReset
	failures map[string]error
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		users:    make(map[ulid.ULID]auth.User),
		sessions: make(map[ulid.ULID]auth.Session),
		resets:   make(map[string]auth.PasswordReset),
		failures: make(map[string]error),
	}
}

// Fail makes the named operation (e.g. "sessions.Create") return err until cleared with a nil err.
func (s *Store) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *Store) failure(op string) error {
	return s.failures[op]
}

// Users returns the UserRepository view of the store.
func (s *Store) Users() auth.UserRepository { return userRepo{s} }

// Sessions returns the SessionRepository view of the store.
func (s *Store) Sessions() auth.SessionRepository { return sessionRepo{s} }

// Resets returns the PasswordResetRepository view of the store.
func (s *Store) Resets() auth.PasswordResetRepository { return resetRepo{s} }

// InTransaction runs fn and rolls the store back if fn fails. Transactions are serialized.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	if err := s.failure("tx.Begin"); err != nil {
		s.mu.Unlock()
		return err
	}
	users, sessions, resets := cloneMap(s.users), cloneMap(s.sessions), cloneMap(s.resets)
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.users, s.sessions, s.resets = users, sessions, resets
		s.mu.Unlock()
		return err
	}
	return nil
}

// SessionCount returns how many session rows exist for userID (0 or 1).
func (s *Store) SessionCount(userID ulid.ULID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[userID]; ok {
		return 1
	}
	return 0
}

// Session returns the stored session for userID.
func (s *Store) Session(userID ulid.ULID) (auth.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	return sess, ok
}

// Reset returns the stored reset request for email.
func (s *Store) Reset(email string) (auth.PasswordReset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resets[email]
	return r, ok
}

// User returns the stored user with email.
func (s *Store) User(email string) (auth.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, true
		}
	}
	return auth.User{}, false
}

// PutUser stores u directly, replacing any user with the same ID.
func (s *Store) PutUser(u auth.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *auth.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("users.Create"); err != nil {
		return err
	}
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return auth.ErrEmailTaken
		}
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r userRepo) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("users.GetByID"); err != nil {
		return nil, err
	}
	u, ok := r.s.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &u, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("users.GetByEmail"); err != nil {
		return nil, err
	}
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (r userRepo) Update(_ context.Context, user *auth.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("users.Update"); err != nil {
		return err
	}
	if _, ok := r.s.users[user.ID]; !ok {
		return auth.ErrNotFound
	}
	for id, u := range r.s.users {
		if id != user.ID && u.Email == user.Email {
			return auth.ErrEmailTaken
		}
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r userRepo) Delete(_ context.Context, id ulid.ULID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("users.Delete"); err != nil {
		return err
	}
	if _, ok := r.s.users[id]; !ok {
		return auth.ErrNotFound
	}
	delete(r.s.users, id)
	return nil
}

type sessionRepo struct{ s *Store }

func (r sessionRepo) Create(_ context.Context, session *auth.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("sessions.Create"); err != nil {
		return err
	}
	if _, ok := r.s.sessions[session.UserID]; ok {
		return errDuplicateKey
	}
	r.s.sessions[session.UserID] = *session
	return nil
}

func (r sessionRepo) GetByUser(_ context.Context, userID ulid.ULID) (*auth.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("sessions.GetByUser"); err != nil {
		return nil, err
	}
	sess, ok := r.s.sessions[userID]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &sess, nil
}

func (r sessionRepo) DeleteByUser(_ context.Context, userID ulid.ULID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("sessions.DeleteByUser"); err != nil {
		return err
	}
	delete(r.s.sessions, userID)
	return nil
}

type resetRepo struct{ s *Store }

func (r resetRepo) Create(_ context.Context, reset *auth.PasswordReset) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("resets.Create"); err != nil {
		return err
	}
	if _, ok := r.s.resets[reset.Email]; ok {
		return errDuplicateKey
	}
	r.s.resets[reset.Email] = *reset
	return nil
}

func (r resetRepo) GetByEmail(_ context.Context, email string) (*auth.PasswordReset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("resets.GetByEmail"); err != nil {
		return nil, err
	}
	reset, ok := r.s.resets[email]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &reset, nil
}

func (r resetRepo) DeleteByEmail(_ context.Context, email string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("resets.DeleteByEmail"); err != nil {
		return err
	}
	delete(r.s.resets, email)
	return nil
}

func (r resetRepo) DeleteByToken(_ context.Context, email, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("resets.DeleteByToken"); err != nil {
		return err
	}
	reset, ok := r.s.resets[email]
	if !ok || reset.Token != token {
		return auth.ErrNotFound
	}
	delete(r.s.resets, email)
	return nil
}

type storeError string

func (e storeError) Error() string { return string(e) }

const errDuplicateKey = storeError("duplicate primary key")

// Mailer records every message it is asked to send.
type Mailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

// NewMailer creates a Mailer.
func NewMailer() *Mailer {
	return &Mailer{}
}

// FailWith makes subsequent sends return err.
func (m *Mailer) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Send records msg.
func (m *Mailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// Sent returns a copy of the recorded messages.
func (m *Mailer) Sent() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.sent...)
}

// Clock is a settable auth.Clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a Clock set to now.
func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var (
	_ auth.Transactor = (*Store)(nil)
	_ mail.Sender     = (*Mailer)(nil)
	_ auth.Clock      = (*Clock)(nil)
)

var hrefPattern = regexp.MustCompile(`href="([^"]+)"`)

// LastLink returns the link in the most recent message sent to addr, or "" if there is none.
func (m *Mailer) LastLink(addr string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].To != addr {
			continue
		}
		match := hrefPattern.FindStringSubmatch(m.sent[i].HTML)
		if match == nil {
			return ""
		}
		return html.UnescapeString(match[1])
	}
	return ""
}
