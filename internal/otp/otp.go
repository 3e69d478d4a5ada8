// Package otp issues and verifies one-time login codes.
package otp

import (
	"crypto/rand"
	"errors"
	"fmt"
)

// Digits is the length of every code.
const Digits = 6

var (
	// ErrNotFound means no code is pending for the mobile number, or it expired.
	ErrNotFound = errors.New("otp expired, request a new one")
	// ErrInvalid means the submitted code does not match.
	ErrInvalid = errors.New("invalid otp")
	// ErrTooManyAttempts means the pending code was discarded after too many
	// wrong submissions.
	ErrTooManyAttempts = errors.New("too many invalid attempts, request a new otp")
)

// Generate returns a random numeric code of Digits characters.
func Generate() (string, error) {
	b := make([]byte, Digits)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := make([]byte, Digits)
	for i := range s {
		s[i] = '0' + (b[i] % 10)
	}
	return string(s), nil
}

// Format renders a code received as a number, restoring leading zeros.
func Format(n int) (string, error) {
	if n < 0 || n > 999999 {
		return "", ErrInvalid
	}
	return fmt.Sprintf("%0*d", Digits, n), nil
}
