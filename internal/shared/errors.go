// Package shared holds the helpers every domain package leans on: money
// rounding and the cross-domain error sentinels.
package shared

import "errors"

var (
	// ErrNotFound signals a missing record regardless of backing table.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidCredentials signals a failed login without leaking which
	// part of the credential pair was wrong.
	ErrInvalidCredentials = errors.New("email or password incorrect")
)
