package models

import (
	"time"

	"github.com/lib/pq"
)

// ListingStatus captures the marketplace listing lifecycle.
type ListingStatus string

const (
	ListingStatusActive    ListingStatus = "active"
	ListingStatusReserved  ListingStatus = "reserved"
	ListingStatusCompleted ListingStatus = "completed"
	ListingStatusWithdrawn ListingStatus = "withdrawn"
)

// ItemType enumerates uniform item categories.
type ItemType string

const (
	ItemTypeJumper    ItemType = "jumper"
	ItemTypeShirt     ItemType = "shirt"
	ItemTypeTrousers  ItemType = "trousers"
	ItemTypeSkirt     ItemType = "skirt"
	ItemTypeTracksuit ItemType = "tracksuit"
	ItemTypeCoat      ItemType = "coat"
	ItemTypeShoes     ItemType = "shoes"
	ItemTypeOther     ItemType = "other"
)

// Valid reports whether the item type is a known enum member.
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeJumper, ItemTypeShirt, ItemTypeTrousers, ItemTypeSkirt,
		ItemTypeTracksuit, ItemTypeCoat, ItemTypeShoes, ItemTypeOther:
		return true
	}
	return false
}

// ItemCondition grades listing wear.
type ItemCondition string

const (
	ConditionNew       ItemCondition = "new"
	ConditionExcellent ItemCondition = "excellent"
	ConditionGood      ItemCondition = "good"
	ConditionFair      ItemCondition = "fair"
)

// Valid reports whether the condition is a known enum member.
func (c ItemCondition) Valid() bool {
	switch c {
	case ConditionNew, ConditionExcellent, ConditionGood, ConditionFair:
		return true
	}
	return false
}

// Listing is a marketplace uniform item offered by a parent.
type Listing struct {
	ID          string         `db:"id" json:"id"`
	OwnerID     string         `db:"owner_id" json:"ownerId"`
	SchoolID    string         `db:"school_id" json:"schoolId"`
	ItemType    ItemType       `db:"item_type" json:"itemType"`
	Size        string         `db:"size" json:"size"`
	Condition   ItemCondition  `db:"condition" json:"condition"`
	PriceCents  int            `db:"price_cents" json:"priceCents"`
	Description string         `db:"description" json:"description"`
	Photos      pq.StringArray `db:"photos" json:"photos,omitempty"`
	Status      ListingStatus  `db:"status" json:"status"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updatedAt"`
}

// ListingFilter constrains marketplace queries.
type ListingFilter struct {
	SchoolID      string
	OwnerID       string
	ItemType      ItemType
	Size          string
	Condition     ItemCondition
	MaxPriceCents *int
	Search        string
	Status        []ListingStatus
	Limit         int
	Offset        int
}

// ListingRequestStatus captures the item request lifecycle.
type ListingRequestStatus string

const (
	ListingRequestPending   ListingRequestStatus = "pending"
	ListingRequestAccepted  ListingRequestStatus = "accepted"
	ListingRequestDeclined  ListingRequestStatus = "declined"
	ListingRequestCancelled ListingRequestStatus = "cancelled"
)

// ListingRequest is a parent's request for a listed item.
type ListingRequest struct {
	ID          string               `db:"id" json:"id"`
	ListingID   string               `db:"listing_id" json:"listingId"`
	RequesterID string               `db:"requester_id" json:"requesterId"`
	Message     string               `db:"message" json:"message"`
	Status      ListingRequestStatus `db:"status" json:"status"`
	RespondedBy *string              `db:"responded_by" json:"respondedBy,omitempty"`
	RespondedAt *time.Time           `db:"responded_at" json:"respondedAt,omitempty"`
	CreatedAt   time.Time            `db:"created_at" json:"createdAt"`
}
