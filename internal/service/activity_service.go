package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gabrielgalarza/orgmapper/internal/events"
)

const defaultActivityLimit = 100

// ActivityEntry is one logged event.
type ActivityEntry struct {
	Type      events.EventType `json:"type"`
	OrgID     string           `json:"orgId"`
	Timestamp time.Time        `json:"timestamp"`
	Summary   string           `json:"summary"`
}

// ActivityService logs every domain event and keeps the most recent ones.
type ActivityService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	limit      int

	mu      sync.Mutex
	entries []ActivityEntry
}

// NewActivityService creates the service. A non-positive limit keeps 100 entries.
func NewActivityService(dispatcher events.Dispatcher, logger *zap.Logger, limit int) *ActivityService {
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{dispatcher: dispatcher, logger: logger, limit: limit}
}

// RegisterHandlers subscribes to events.
func (a *ActivityService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventDocumentChanged,
		events.EventOrganizationCreated,
		events.EventOrganizationImported,
		events.EventOrganizationSwitched,
		events.EventOrganizationRenamed,
		events.EventOrganizationDeleted,
		events.EventStorageReset,
	} {
		a.dispatcher.Subscribe(eventType, a.handle)
	}
}

// Recent returns up to n entries, newest first.
func (a *ActivityService) Recent(n int) []ActivityEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n <= 0 || n > len(a.entries) {
		n = len(a.entries)
	}
	out := make([]ActivityEntry, 0, n)
	for i := len(a.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, a.entries[i])
	}
	return out
}

func (a *ActivityService) handle(_ context.Context, event events.Event) error {
	entry := ActivityEntry{
		Type:      event.Type,
		OrgID:     event.OrgID,
		Timestamp: event.Timestamp,
		Summary:   summarize(event),
	}

	if event.Type == events.EventDocumentChanged {
		a.logger.Debug(string(event.Type), zap.String("org_id", event.OrgID), zap.String("summary", entry.Summary))
	} else {
		a.logger.Info(string(event.Type), zap.String("org_id", event.OrgID), zap.String("summary", entry.Summary))
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	if len(a.entries) > a.limit {
		a.entries = append(a.entries[:0:0], a.entries[len(a.entries)-a.limit:]...)
	}
	return nil
}

func summarize(event events.Event) string {
	switch payload := event.Payload.(type) {
	case events.DocumentChangedPayload:
		return payload.Command
	case events.OrganizationPayload:
		if payload.Source != "" {
			return payload.Name + " (" + payload.Source + ")"
		}
		return payload.Name
	default:
		return ""
	}
}
