package models

import (
	"strings"
	"time"
	"unicode"
)

// SubmissionStatus captures the school submission workflow states.
// A submission leaves "pending" exactly once; the other three are terminal.
type SubmissionStatus string

const (
	SubmissionStatusPending   SubmissionStatus = "pending"
	SubmissionStatusApproved  SubmissionStatus = "approved"
	SubmissionStatusRejected  SubmissionStatus = "rejected"
	SubmissionStatusDuplicate SubmissionStatus = "duplicate"
)

// Terminal reports whether the status is not re-editable.
func (s SubmissionStatus) Terminal() bool {
	return s == SubmissionStatusApproved || s == SubmissionStatusRejected || s == SubmissionStatusDuplicate
}

// SubmissionAction enumerates admin disposition actions.
type SubmissionAction string

const (
	SubmissionActionApprove       SubmissionAction = "approve"
	SubmissionActionReject        SubmissionAction = "reject"
	SubmissionActionMarkDuplicate SubmissionAction = "mark_duplicate"
)

// SchoolSubmission is a user-proposed school awaiting admin review.
type SchoolSubmission struct {
	ID                string           `db:"id" json:"id"`
	SubmittedBy       string           `db:"submitted_by" json:"submittedBy"`
	SchoolName        string           `db:"school_name" json:"schoolName"`
	NormalizedName    string           `db:"normalized_name" json:"-"`
	Fingerprint       string           `db:"fingerprint" json:"-"`
	Address           string           `db:"address" json:"address"`
	CountyID          string           `db:"county_id" json:"countyId"`
	LocalityID        *string          `db:"locality_id" json:"localityId,omitempty"`
	Level             SchoolLevel      `db:"level" json:"level"`
	Website           *string          `db:"website" json:"website,omitempty"`
	Phone             *string          `db:"phone" json:"phone,omitempty"`
	Email             *string          `db:"email" json:"email,omitempty"`
	SubmissionReason  string           `db:"submission_reason" json:"submissionReason"`
	AdditionalNotes   *string          `db:"additional_notes" json:"additionalNotes,omitempty"`
	Status            SubmissionStatus `db:"status" json:"status"`
	ReviewedBy        *string          `db:"reviewed_by" json:"reviewedBy,omitempty"`
	ReviewedAt        *time.Time       `db:"reviewed_at" json:"reviewedAt,omitempty"`
	AdminNotes        *string          `db:"admin_notes" json:"adminNotes,omitempty"`
	RejectionReason   *string          `db:"rejection_reason" json:"rejectionReason,omitempty"`
	DuplicateSchoolID *string          `db:"duplicate_school_id" json:"duplicateSchoolId,omitempty"`
	CreatedSchoolID   *string          `db:"created_school_id" json:"createdSchoolId,omitempty"`
	EmailsSent        bool             `db:"emails_sent" json:"emailsSent"`
	CreatedAt         time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time        `db:"updated_at" json:"updatedAt"`
}

// SubmissionFilter constrains listing queries.
type SubmissionFilter struct {
	SubmittedBy string
	Status      []SubmissionStatus
	CountyID    string
	Limit       int
	Offset      int
}

// NormalizeSchoolName lowercases a school name, strips punctuation and
// collapses runs of whitespace, so "St. Mary's N.S." and "st marys ns"
// compare equal.
func NormalizeSchoolName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	lastSpace := true
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		default:
			// punctuation dropped entirely
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// LocationFingerprint builds the composite key scoping duplicate detection:
// the county id, combined with the locality id when one is supplied.
func LocationFingerprint(countyID string, localityID *string) string {
	if localityID != nil && *localityID != "" {
		return countyID + "|" + *localityID
	}
	return countyID
}

// NamesCollide applies the duplicate heuristic: two normalized names match
// when either is a substring of the other. Loose on purpose; admins get the
// final say through the review workflow.
func NamesCollide(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
