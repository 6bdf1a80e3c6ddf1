package dto

import "github.com/kitcycle/kitcycle-api/internal/models"

// CreateSubmissionRequest is the school submission intake payload.
type CreateSubmissionRequest struct {
	SchoolName       string  `json:"schoolName" validate:"required,min=2,max=200"`
	Address          string  `json:"address" validate:"required,min=5,max=300"`
	CountyID         string  `json:"countyId" validate:"required"`
	LocalityID       *string `json:"localityId,omitempty"`
	Level            string  `json:"level" validate:"required"`
	Website          *string `json:"website,omitempty" validate:"omitempty,url"`
	Phone            *string `json:"phone,omitempty"`
	Email            *string `json:"email,omitempty" validate:"omitempty,email"`
	SubmissionReason string  `json:"submissionReason" validate:"required,min=10"`
	AdditionalNotes  *string `json:"additionalNotes,omitempty"`
}

// ReviewSubmissionRequest captures the admin disposition.
type ReviewSubmissionRequest struct {
	Action            models.SubmissionAction `json:"action" validate:"required"`
	AdminNotes        string                  `json:"adminNotes,omitempty"`
	RejectionReason   string                  `json:"rejectionReason,omitempty"`
	DuplicateSchoolID string                  `json:"duplicateSchoolId,omitempty"`
}

// DuplicateSuggestion names the existing school a submission appears to duplicate.
type DuplicateSuggestion struct {
	SchoolID   string `json:"schoolId"`
	SchoolName string `json:"schoolName"`
}

// SubmissionQuery mirrors supported listing filters.
type SubmissionQuery struct {
	Admin  bool
	Status []models.SubmissionStatus
	Limit  int
	Offset int
}
