package events

import (
	"time"

	"github.com/gabrielgalarza/orgmapper/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventDocumentChanged      EventType = "document_changed"
	EventOrganizationCreated  EventType = "organization_created"
	EventOrganizationImported EventType = "organization_imported"
	EventOrganizationSwitched EventType = "organization_switched"
	EventOrganizationRenamed  EventType = "organization_renamed"
	EventOrganizationDeleted  EventType = "organization_deleted"
	EventStorageReset         EventType = "storage_reset"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	OrgID     string      `json:"org_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// DocumentChangedPayload carries the document produced by a command.
type DocumentChangedPayload struct {
	Command  string          `json:"command"`
	Document domain.Document `json:"-"`
}

// OrganizationPayload describes a catalog change.
type OrganizationPayload struct {
	Name   string `json:"name"`
	Source string `json:"source,omitempty"`
}
