package dto

import "github.com/kitcycle/kitcycle-api/internal/models"

// CreateListingRequest is the marketplace listing payload.
type CreateListingRequest struct {
	SchoolID    string   `json:"schoolId" validate:"required"`
	ItemType    string   `json:"itemType" validate:"required"`
	Size        string   `json:"size" validate:"required,max=30"`
	Condition   string   `json:"condition" validate:"required"`
	PriceCents  int      `json:"priceCents" validate:"min=0"`
	Description string   `json:"description" validate:"max=2000"`
	Photos      []string `json:"photos,omitempty" validate:"max=6"`
}

// UpdateListingRequest mutates an owned listing. Nil fields are left untouched.
type UpdateListingRequest struct {
	Size        *string `json:"size,omitempty"`
	Condition   *string `json:"condition,omitempty"`
	PriceCents  *int    `json:"priceCents,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
}

// ListingQuery mirrors supported marketplace filters.
type ListingQuery struct {
	SchoolID      string
	ItemType      models.ItemType
	Size          string
	Condition     models.ItemCondition
	MaxPriceCents *int
	Search        string
	Mine          bool
	Limit         int
	Offset        int
}

// CreateListingRequestRequest is the payload requesting a listed item.
type CreateListingRequestRequest struct {
	Message string `json:"message" validate:"max=1000"`
}

// RespondListingRequest is the owner's (or requester's) disposition of an item request.
type RespondListingRequest struct {
	Action string `json:"action" validate:"required,oneof=accept decline cancel"`
}
