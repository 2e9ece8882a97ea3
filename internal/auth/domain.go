// Package auth stores application users and the warehouse scopes that gate
// invoice submission.
package auth

import "time"

// User is an application account.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	// Warehouses the user may post transactions in.
	Warehouses []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
