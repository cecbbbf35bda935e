package worker

import (
	"context"

	"github.com/gabrielgalarza/orgmapper/internal/events"
)

// StartAutosaveWorker schedules a save for every document_changed event.
func StartAutosaveWorker(dispatcher events.Dispatcher, autosaver *Autosaver) {
	if dispatcher == nil || autosaver == nil {
		return
	}
	dispatcher.Subscribe(events.EventDocumentChanged, func(_ context.Context, evt events.Event) error {
		switch payload := evt.Payload.(type) {
		case events.DocumentChangedPayload:
			autosaver.Schedule(evt.OrgID, payload.Document)
		case *events.DocumentChangedPayload:
			autosaver.Schedule(evt.OrgID, payload.Document)
		}
		return nil
	})
}
