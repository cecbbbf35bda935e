package dto

import (
	"time"

	"github.com/gabrielgalarza/orgmapper/internal/domain"
)

// OrganizationNameRequest is the body of create and rename calls.
type OrganizationNameRequest struct {
	Name string `json:"name"`
}

// IngestRequest carries a full share link.
type IngestRequest struct {
	URL string `json:"url"`
}

// OrganizationResponse is a catalog record plus whether it is current.
type OrganizationResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Current   bool      `json:"current"`
}

// NewOrganizationResponse maps a record.
func NewOrganizationResponse(record domain.OrganizationRecord, currentID string) OrganizationResponse {
	return OrganizationResponse{
		ID:        record.ID,
		Name:      record.Name,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
		Current:   record.ID == currentID,
	}
}

// ShareResponse returns a share link.
type ShareResponse struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// TeamResponse is a team with its members resolved.
type TeamResponse struct {
	domain.Team
	Members []domain.Person `json:"members"`
}
