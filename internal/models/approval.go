package models

import (
	"time"

	"github.com/lib/pq"
)

// ApprovalStatus captures the school approval request workflow states.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusDenied   ApprovalStatus = "denied"
)

// Terminal reports whether the status is not re-editable.
func (s ApprovalStatus) Terminal() bool {
	return s == ApprovalStatusApproved || s == ApprovalStatusDenied
}

// ApprovalAction enumerates admin disposition actions for approval requests.
type ApprovalAction string

const (
	ApprovalActionApprove ApprovalAction = "approve"
	ApprovalActionDeny    ApprovalAction = "deny"
)

// SchoolApprovalRequest is a user's request to associate with additional
// schools beyond their current set.
type SchoolApprovalRequest struct {
	ID                 string         `db:"id" json:"id"`
	UserID             string         `db:"user_id" json:"userId"`
	CurrentSchoolIDs   pq.StringArray `db:"current_school_ids" json:"currentSchoolIds"`
	RequestedSchoolIDs pq.StringArray `db:"requested_school_ids" json:"requestedSchoolIds"`
	Reason             string         `db:"reason" json:"reason"`
	Status             ApprovalStatus `db:"status" json:"status"`
	ApprovedSchoolIDs  pq.StringArray `db:"approved_school_ids" json:"approvedSchoolIds,omitempty"`
	DenialReason       *string        `db:"denial_reason" json:"denialReason,omitempty"`
	SuggestedNextSteps *string        `db:"suggested_next_steps" json:"suggestedNextSteps,omitempty"`
	ReviewedBy         *string        `db:"reviewed_by" json:"reviewedBy,omitempty"`
	ReviewedAt         *time.Time     `db:"reviewed_at" json:"reviewedAt,omitempty"`
	EmailsSent         bool           `db:"emails_sent" json:"emailsSent"`
	CreatedAt          time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updatedAt"`
}

// ApprovalFilter constrains listing queries.
type ApprovalFilter struct {
	UserID string
	Status []ApprovalStatus
	Limit  int
	Offset int
}
