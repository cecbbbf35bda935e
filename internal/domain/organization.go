package domain

import "time"

// OrganizationRecord is the catalog entry describing one persisted document.
type OrganizationRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
