package dto

import "github.com/kitcycle/kitcycle-api/internal/models"

// SchoolQuery mirrors supported directory filters.
type SchoolQuery struct {
	CountyID   string
	LocalityID string
	Level      models.SchoolLevel
	Search     string
	Limit      int
	Offset     int
}
