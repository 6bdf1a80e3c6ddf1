package models

import "time"

// EmailStatus captures the outcome of a dispatch attempt.
type EmailStatus string

const (
	EmailStatusSent   EmailStatus = "sent"
	EmailStatusFailed EmailStatus = "failed"
)

// Email template names. One template per workflow event.
const (
	TemplateSubmissionReceived  = "submission_received"
	TemplateSubmissionAdmin     = "submission_admin_alert"
	TemplateSubmissionApproved  = "submission_approved"
	TemplateSubmissionRejected  = "submission_rejected"
	TemplateSubmissionDuplicate = "submission_duplicate"
	TemplateApprovalReceived    = "approval_request_received"
	TemplateApprovalAdmin       = "approval_request_admin_alert"
	TemplateApprovalApproved    = "approval_request_approved"
	TemplateApprovalDenied      = "approval_request_denied"
	TemplateListingRequested    = "listing_requested"
	TemplateListingAccepted     = "listing_request_accepted"
	TemplateListingDeclined     = "listing_request_declined"
)

// EmailLog records each outbound email attempt for auditing.
type EmailLog struct {
	ID         string      `db:"id" json:"id"`
	Recipient  string      `db:"recipient" json:"recipient"`
	Template   string      `db:"template" json:"template"`
	Subject    string      `db:"subject" json:"subject"`
	Resource   string      `db:"resource" json:"resource"`
	ResourceID *string     `db:"resource_id" json:"resource_id,omitempty"`
	Status     EmailStatus `db:"status" json:"status"`
	Error      *string     `db:"error" json:"error,omitempty"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
}
