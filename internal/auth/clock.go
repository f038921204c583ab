// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

package auth

import "time"

// Clock supplies the current time to everything that computes an expiry.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time {
	return f()
}
