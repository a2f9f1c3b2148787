package model

import (
    "strings"
    "time"
)

// Role is the account type of a user.  Students and faculty reserve
// rooms; staff process reservations and reports on their floor; admins
// manage everything.
type Role string

const (
    RoleStudent Role = "Student"
    RoleFaculty Role = "Faculty"
    RoleStaff   Role = "Staff"
    RoleAdmin   Role = "Admin"
)

// ParseRole accepts any casing of a role name.
func ParseRole(raw string) (Role, bool) {
    switch strings.ToLower(strings.TrimSpace(raw)) {
    case "student":
        return RoleStudent, true
    case "faculty":
        return RoleFaculty, true
    case "staff":
        return RoleStaff, true
    case "admin":
        return RoleAdmin, true
    }
    return "", false
}

// CanManage reports whether the role may approve reservations and work
// on reports.
func (r Role) CanManage() bool { return r == RoleStaff || r == RoleAdmin }

// User mirrors the `users` table.  Department, course and year level are
// only meaningful for students and faculty; Floor only for staff.
//
// Fields:
//  ID           – primary key.
//  IDNumber     – university id number, unique; participants are listed by it.
//  Name         – display name.
//  Email        – unique, lower-cased.
//  PasswordHash – bcrypt hash.
//  Role         – Student, Faculty, Staff or Admin.
//  Verified     – set once the signup OTP was confirmed.
//  Suspended    – suspended users cannot log in or reserve.
type User struct {
    ID           uint64    `json:"id"`                    // users.id
    IDNumber     string    `json:"id_number"`             // users.id_number
    Name         string    `json:"name"`                  // users.name
    Email        string    `json:"email"`                 // users.email
    PasswordHash string    `json:"-"`                     // users.password_hash
    Role         Role      `json:"role"`                  // users.role
    Department   *string   `json:"department,omitempty"`  // users.department (nullable)
    Course       *string   `json:"course,omitempty"`      // users.course (nullable)
    YearLevel    *string   `json:"year_level,omitempty"`  // users.year_level (nullable)
    Floor        *string   `json:"floor,omitempty"`       // users.floor (nullable, staff only)
    Verified     bool      `json:"verified"`              // users.verified
    Suspended    bool      `json:"suspended"`             // users.suspended
    CreatedAt    time.Time `json:"created_at"`            // users.created_at
    UpdatedAt    time.Time `json:"updated_at"`            // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA‑256 hash of the token handed to the client is stored.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}

// PendingSignup is a registration waiting for its OTP.  It lives in a
// short-TTL store and is never written to `users` until verified.
type PendingSignup struct {
    IDNumber     string    `json:"id_number"`
    Name         string    `json:"name"`
    Email        string    `json:"email"`
    PasswordHash string    `json:"password_hash"`
    Role         Role      `json:"role"`
    Department   *string   `json:"department,omitempty"`
    Course       *string   `json:"course,omitempty"`
    YearLevel    *string   `json:"year_level,omitempty"`
    OTPHash      string    `json:"otp_hash"`
    Attempts     int       `json:"attempts"`
    ExpiresAt    time.Time `json:"expires_at"`
}
