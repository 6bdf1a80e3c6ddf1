package models

import (
	"time"

	"github.com/lib/pq"
)

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleParent     UserRole = "PARENT"
)

// IsAdmin reports whether the role carries admin privileges.
func (r UserRole) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// User represents an application user stored in the users table.
type User struct {
	ID                  string         `db:"id" json:"id"`
	Email               string         `db:"email" json:"email"`
	PasswordHash        string         `db:"password_hash" json:"-"`
	FullName            string         `db:"full_name" json:"full_name"`
	Role                UserRole       `db:"role" json:"role"`
	Active              bool           `db:"active" json:"active"`
	CountyID            *string        `db:"county_id" json:"county_id,omitempty"`
	PrimarySchoolID     *string        `db:"primary_school_id" json:"primary_school_id,omitempty"`
	AdditionalSchoolIDs pq.StringArray `db:"additional_school_ids" json:"additional_school_ids"`
	LastLogin           *time.Time     `db:"last_login" json:"last_login,omitempty"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at" json:"updated_at"`
}

// SchoolIDs returns the user's full set of associated school ids.
func (u *User) SchoolIDs() []string {
	ids := make([]string, 0, len(u.AdditionalSchoolIDs)+1)
	if u.PrimarySchoolID != nil && *u.PrimarySchoolID != "" {
		ids = append(ids, *u.PrimarySchoolID)
	}
	ids = append(ids, u.AdditionalSchoolIDs...)
	return ids
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
