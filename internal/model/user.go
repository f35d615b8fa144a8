package model

import "time"

// Roles and account statuses.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	UserActive    = "active"
	UserSuspended = "suspended"
)

// User represents an application user record as stored in the `users`
// table.  The password hash never leaves the repository layer in API
// responses; handlers render users through their own DTOs.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Name         – display name.
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – user or admin.
//  Phone        – optional phone number.
//  Status       – active or suspended.
//  JoinDate     – registration timestamp.
type User struct {
	ID           uint64    // users.id
	Name         string    // users.name
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	Phone        string    // users.phone
	Status       string    // users.status
	JoinDate     time.Time // users.join_date
}

// UserPatch carries the admin-editable user fields.  Nil pointers are left
// untouched.
type UserPatch struct {
	Name   *string
	Phone  *string
	Role   *string
	Status *string
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation.  The plain token is not stored; only its
// SHA‑256 hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
