package dto

import "github.com/kitcycle/kitcycle-api/internal/models"

// CreateApprovalRequest is the payload requesting additional school associations.
type CreateApprovalRequest struct {
	RequestedSchoolIDs []string `json:"requestedSchoolIds" validate:"required,min=1,dive,required"`
	Reason             string   `json:"reason" validate:"required,min=10"`
}

// ReviewApprovalRequest captures the admin disposition of an approval request.
type ReviewApprovalRequest struct {
	Action models.ApprovalAction `json:"action" validate:"required"`
	// ApprovedSchoolIDs optionally narrows the approval to a subset of the
	// requested schools; empty means approve all requested.
	ApprovedSchoolIDs  []string `json:"approvedSchoolIds,omitempty"`
	DenialReason       string   `json:"denialReason,omitempty"`
	SuggestedNextSteps string   `json:"suggestedNextSteps,omitempty"`
}

// ApprovalQuery mirrors supported listing filters.
type ApprovalQuery struct {
	Admin  bool
	Status []models.ApprovalStatus
	Limit  int
	Offset int
}
