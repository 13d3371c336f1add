// Package store is the relational record layer consumed by the HTTP handlers.
// The auth core only depends on the interfaces here; handlers get either the
// PostgreSQL implementation or the in-memory one.
package store

import (
	"context"
	"errors"
	"time"

	"bloodbridge.org/internal/rbac"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// User is an account record. PasswordHash is bcrypt output and never leaves
// the store layer in API responses.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         rbac.Role
	BloodType    string
	CreatedAt    time.Time
}

// BloodRequest is a hospital's request for donated units.
type BloodRequest struct {
	ID          string
	RequesterID string
	BloodType   string
	Units       int
	Status      string
	CreatedAt   time.Time
}

// Request statuses.
const (
	RequestStatusOpen      = "open"
	RequestStatusFulfilled = "fulfilled"
)

// Store bundles the record collections.
type Store interface {
	Users() UserStore
	BloodRequests() BloodRequestStore
}

// UserStore manages account records.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
}

// BloodRequestStore manages blood request records.
type BloodRequestStore interface {
	Create(ctx context.Context, r *BloodRequest) error
	Find(ctx context.Context, id string) (*BloodRequest, error)
	List(ctx context.Context) ([]*BloodRequest, error)
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) (map[string]int, error)
}
