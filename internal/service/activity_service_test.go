package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gabrielgalarza/orgmapper/internal/events"
)

func TestActivityServiceKeepsNewestEntries(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	activity := NewActivityService(dispatcher, nil, 2)
	activity.RegisterHandlers()
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type: events.EventOrganizationCreated, OrgID: "a", Timestamp: now,
		Payload: events.OrganizationPayload{Name: "Alpha"},
	}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type: events.EventOrganizationImported, OrgID: "b", Timestamp: now,
		Payload: events.OrganizationPayload{Name: "Beta", Source: SourceShareLink},
	}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type: events.EventDocumentChanged, OrgID: "b", Timestamp: now,
		Payload: events.DocumentChangedPayload{Command: "toggle_tag"},
	}))

	recent := activity.Recent(0)
	require.Len(t, recent, 2)
	require.Equal(t, "toggle_tag", recent[0].Summary)
	require.Equal(t, "Beta (share_link)", recent[1].Summary)

	require.Len(t, activity.Recent(1), 1)
}
