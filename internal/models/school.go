package models

import "time"

// SchoolLevel enumerates supported school levels.
type SchoolLevel string

const (
	SchoolLevelPrimary   SchoolLevel = "primary"
	SchoolLevelSecondary SchoolLevel = "secondary"
)

// Valid reports whether the level is a known enum member.
func (l SchoolLevel) Valid() bool {
	return l == SchoolLevelPrimary || l == SchoolLevelSecondary
}

// School is a canonical directory record. Rows are created either by seeding
// or by an approved submission.
type School struct {
	ID             string      `db:"id" json:"id"`
	Name           string      `db:"name" json:"name"`
	NormalizedName string      `db:"normalized_name" json:"-"`
	Address        string      `db:"address" json:"address"`
	CountyID       string      `db:"county_id" json:"countyId"`
	LocalityID     *string     `db:"locality_id" json:"localityId,omitempty"`
	Level          SchoolLevel `db:"level" json:"level"`
	Website        *string     `db:"website" json:"website,omitempty"`
	Phone          *string     `db:"phone" json:"phone,omitempty"`
	Email          *string     `db:"email" json:"email,omitempty"`
	Active         bool        `db:"active" json:"active"`
	CreatedAt      time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updatedAt"`
}

// County is a static geographic lookup.
type County struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Locality subdivides a county.
type Locality struct {
	ID       string `db:"id" json:"id"`
	CountyID string `db:"county_id" json:"countyId"`
	Name     string `db:"name" json:"name"`
}

// CountyWithLocalities is the directory lookup shape served to clients.
type CountyWithLocalities struct {
	County
	Localities []Locality `json:"localities"`
}

// SchoolFilter constrains directory queries.
type SchoolFilter struct {
	CountyID   string
	LocalityID string
	Level      SchoolLevel
	Search     string
	Limit      int
	Offset     int
}
