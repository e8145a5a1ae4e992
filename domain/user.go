package domain

import "time"

// User is the identity-store view of an account. The core never mutates
// users, it only resolves ids against the Identity Store.
type User struct {
	ID          string
	DisplayName string
	CreatedAt   time.Time
}
