package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gabrielgalarza/orgmapper/internal/clock"
	"github.com/gabrielgalarza/orgmapper/internal/domain"
	"github.com/gabrielgalarza/orgmapper/internal/events"
	"github.com/gabrielgalarza/orgmapper/internal/observability"
)

type savedDoc struct {
	orgID string
	doc   domain.Document
}

type recordingSaver struct {
	mu    sync.Mutex
	saves []savedDoc
	err   error
}

func (s *recordingSaver) Save(_ context.Context, id string, doc domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saves = append(s.saves, savedDoc{orgID: id, doc: doc})
	return nil
}

func (s *recordingSaver) all() []savedDoc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]savedDoc(nil), s.saves...)
}

func docWithTeam(name string) domain.Document {
	doc := domain.NewDocument()
	doc.Teams["t1"] = domain.Team{ID: "t1", Name: name, Color: "#fff", PersonIDs: []string{}, Products: []domain.Product{}}
	return doc
}

func newTestAutosaver(saver DocumentSaver) (*Autosaver, *clock.FakeClock) {
	clk := clock.Fake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return NewAutosaver(saver, clk, 300*time.Millisecond, nil, observability.NewMetrics()), clk
}

func TestAutosaverCoalescesBurst(t *testing.T) {
	saver := &recordingSaver{}
	a, clk := newTestAutosaver(saver)

	a.Schedule("org", docWithTeam("A"))
	clk.Advance(100 * time.Millisecond)
	a.Schedule("org", docWithTeam("B"))
	clk.Advance(100 * time.Millisecond)
	a.Schedule("org", docWithTeam("C"))

	clk.Advance(299 * time.Millisecond)
	require.Empty(t, saver.all())
	require.True(t, a.Pending())

	clk.Advance(time.Millisecond)
	saves := saver.all()
	require.Len(t, saves, 1)
	require.Equal(t, "org", saves[0].orgID)
	require.Equal(t, "C", saves[0].doc.Teams["t1"].Name)
	require.False(t, a.Pending())
	require.Zero(t, clk.Pending())
}

func TestAutosaverFlushWritesImmediately(t *testing.T) {
	saver := &recordingSaver{}
	a, clk := newTestAutosaver(saver)

	a.Schedule("org", docWithTeam("A"))
	require.NoError(t, a.Flush(context.Background()))
	require.Len(t, saver.all(), 1)

	clk.Advance(time.Second)
	require.Len(t, saver.all(), 1)
}

func TestAutosaverSkipsUnchangedDocument(t *testing.T) {
	saver := &recordingSaver{}
	a, clk := newTestAutosaver(saver)

	a.Remember("org", docWithTeam("A"))
	a.Schedule("org", docWithTeam("A"))
	clk.Advance(time.Second)
	require.Empty(t, saver.all())

	a.Schedule("org", docWithTeam("B"))
	clk.Advance(time.Second)
	require.Len(t, saver.all(), 1)

	a.Forget("org")
	a.Schedule("org", docWithTeam("B"))
	clk.Advance(time.Second)
	require.Len(t, saver.all(), 2)
}

func TestAutosaverCancelDropsPending(t *testing.T) {
	saver := &recordingSaver{}
	a, clk := newTestAutosaver(saver)

	a.Schedule("org", docWithTeam("A"))
	a.Cancel()
	clk.Advance(time.Second)
	require.Empty(t, saver.all())
	require.False(t, a.Pending())
}

func TestAutosaverKeepsLatestPerOrganization(t *testing.T) {
	saver := &recordingSaver{}
	a, _ := newTestAutosaver(saver)

	a.Schedule("b", docWithTeam("B"))
	a.Schedule("a", docWithTeam("A"))
	require.NoError(t, a.Flush(context.Background()))

	saves := saver.all()
	require.Len(t, saves, 2)
	require.Equal(t, "a", saves[0].orgID)
	require.Equal(t, "b", saves[1].orgID)
}

func TestAutosaverReportsWriteFailure(t *testing.T) {
	saver := &recordingSaver{err: errors.New("disk full")}
	a, _ := newTestAutosaver(saver)

	a.Schedule("org", docWithTeam("A"))
	err := a.Flush(context.Background())
	require.Error(t, err)

	saver.mu.Lock()
	saver.err = nil
	saver.mu.Unlock()

	a.Schedule("org", docWithTeam("A"))
	require.NoError(t, a.Flush(context.Background()))
	require.Len(t, saver.all(), 1)
}

func TestAutosaveWorkerSchedulesOnDocumentChanged(t *testing.T) {
	saver := &recordingSaver{}
	a, clk := newTestAutosaver(saver)
	dispatcher := events.NewInMemoryDispatcher()
	StartAutosaveWorker(dispatcher, a)

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:    events.EventDocumentChanged,
		OrgID:   "org",
		Payload: events.DocumentChangedPayload{Command: "rename_team", Document: docWithTeam("X")},
	})
	require.NoError(t, err)

	err = dispatcher.Publish(context.Background(), events.Event{
		Type:    events.EventOrganizationCreated,
		OrgID:   "other",
		Payload: events.OrganizationPayload{Name: "Other"},
	})
	require.NoError(t, err)

	clk.Advance(300 * time.Millisecond)
	saves := saver.all()
	require.Len(t, saves, 1)
	require.Equal(t, "X", saves[0].doc.Teams["t1"].Name)
}
