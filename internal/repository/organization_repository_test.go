package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gabrielgalarza/orgmapper/internal/clock"
	"github.com/gabrielgalarza/orgmapper/internal/codec"
	"github.com/gabrielgalarza/orgmapper/internal/domain"
	"github.com/gabrielgalarza/orgmapper/internal/mutation"
	"github.com/gabrielgalarza/orgmapper/internal/persistence"
)

var errDiskFull = errors.New("quota exceeded")

// flakyStore fails writes or reads on demand.
type flakyStore struct {
	*persistence.MemoryStore
	mu       sync.Mutex
	failSet  bool
	failGet  bool
	setCalls int
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryStore: persistence.NewMemoryStore()}
}

func (s *flakyStore) fail(get, set bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failGet, s.failSet = get, set
}

func (s *flakyStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	fail := s.failGet
	s.mu.Unlock()
	if fail {
		return nil, errDiskFull
	}
	return s.MemoryStore.Get(ctx, key)
}

func (s *flakyStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.setCalls++
	fail := s.failSet
	s.mu.Unlock()
	if fail {
		return errDiskFull
	}
	return s.MemoryStore.Set(ctx, key, value)
}

type fixture struct {
	kv    *flakyStore
	clock *clock.FakeClock
	repo  *OrganizationRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		kv:    newFlakyStore(),
		clock: clock.Fake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
	}
	f.repo = f.reopen()
	return f
}

func (f *fixture) reopen() *OrganizationRepository {
	n := 0
	repo := NewOrganizationRepository(f.kv, zap.NewNop(),
		WithClock(f.clock),
		WithKeyPrefix("test:"),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("org-%d-%d", f.clock.Now().Unix(), n)
		}),
	)
	repo.Open(context.Background())
	return repo
}

func TestOpenBootstrapsDefaultOrganization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	catalog := f.repo.ListCatalog()
	require.Len(t, catalog, 1)
	require.Equal(t, DefaultOrganizationName, catalog[0].Name)
	require.Equal(t, catalog[0].ID, f.repo.CurrentID())

	doc, ok := f.repo.Load(ctx, catalog[0].ID)
	require.True(t, ok)
	require.Equal(t, domain.NewDocument(), doc)

	// A second open finds the same catalog and does not bootstrap again.
	again := f.reopen()
	require.Len(t, again.ListCatalog(), 1)
	require.Equal(t, catalog[0].ID, again.CurrentID())
}

func TestSaveAndLoad(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.repo.CurrentID()

	doc, _ := mutation.Apply(domain.NewDocument(), mutation.AddPerson{Person: domain.Person{Name: "Ada", TeamID: "engineering"}})
	f.clock.Advance(time.Minute)
	require.NoError(t, f.repo.Save(ctx, id, doc))

	loaded, ok := f.repo.Load(ctx, id)
	require.True(t, ok)
	require.Equal(t, doc, loaded)

	record, ok := f.repo.Record(id)
	require.True(t, ok)
	require.True(t, record.UpdatedAt.After(record.CreatedAt))

	require.ErrorIs(t, f.repo.Save(ctx, "unknown", doc), ErrOrganizationNotFound)
}

func TestCreateOrganizationBecomesCurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.repo.CurrentID()

	record, doc, err := f.repo.CreateOrganization(ctx, "  Acme  ")
	require.NoError(t, err)
	require.Equal(t, "Acme", record.Name)
	require.Equal(t, domain.NewDocument(), doc)
	require.Equal(t, record.ID, f.repo.CurrentID())

	catalog := f.repo.ListCatalog()
	require.Len(t, catalog, 2)
	require.Equal(t, first, catalog[0].ID)
	require.Equal(t, record.ID, catalog[1].ID)

	_, _, err = f.repo.CreateOrganization(ctx, "   ")
	require.ErrorIs(t, err, ErrInvalidName)

	reopened := f.reopen()
	require.Equal(t, record.ID, reopened.CurrentID())
	require.Len(t, reopened.ListCatalog(), 2)
}

func TestCollidingIDGeneratorFallsBackToUUID(t *testing.T) {
	calls := 0
	repo := NewOrganizationRepository(newFlakyStore(), zap.NewNop(),
		WithIDGenerator(func() string {
			calls++
			return "org-fixed"
		}),
	)
	ctx := context.Background()
	repo.Open(ctx)
	require.Equal(t, "org-fixed", repo.CurrentID())

	calls = 0
	record, _, err := repo.CreateOrganization(ctx, "Second")
	require.NoError(t, err)
	require.Equal(t, maxIDAttempts, calls)
	require.NotEqual(t, "org-fixed", record.ID)
	_, err = uuid.Parse(record.ID)
	require.NoError(t, err)
	require.Len(t, repo.ListCatalog(), 2)
}

func TestImportNeverOverwrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	original := f.repo.CurrentID()
	originalDoc, _ := f.repo.Load(ctx, original)

	incoming, _ := mutation.Apply(domain.NewDocument(), mutation.ToggleOrgProduct{Product: domain.ProductAnalytics})
	record, err := f.repo.ImportOrganization(ctx, "Shared", incoming)
	require.NoError(t, err)
	require.NotEqual(t, original, record.ID)
	require.Equal(t, record.ID, f.repo.CurrentID())

	untouched, ok := f.repo.Load(ctx, original)
	require.True(t, ok)
	require.Equal(t, originalDoc, untouched)

	imported, ok := f.repo.Load(ctx, record.ID)
	require.True(t, ok)
	require.Equal(t, incoming, imported)
}

func TestSwitchCurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.repo.CurrentID()
	_, _, err := f.repo.CreateOrganization(ctx, "Second")
	require.NoError(t, err)

	require.NoError(t, f.repo.SwitchCurrent(ctx, first))
	require.Equal(t, first, f.repo.CurrentID())
	require.ErrorIs(t, f.repo.SwitchCurrent(ctx, "missing"), ErrOrganizationNotFound)
	require.Equal(t, first, f.repo.CurrentID())
}

func TestDeleteOrganization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.repo.CurrentID()

	require.ErrorIs(t, f.repo.DeleteOrganization(ctx, first), ErrLastOrganization)

	second, _, err := f.repo.CreateOrganization(ctx, "Second")
	require.NoError(t, err)
	require.Equal(t, second.ID, f.repo.CurrentID())

	require.NoError(t, f.repo.DeleteOrganization(ctx, second.ID))
	require.Equal(t, first, f.repo.CurrentID())
	require.Len(t, f.repo.ListCatalog(), 1)
	_, ok := f.repo.Load(ctx, second.ID)
	require.False(t, ok)

	require.ErrorIs(t, f.repo.DeleteOrganization(ctx, second.ID), ErrOrganizationNotFound)
}

func TestRenameOrganizationTouchesCatalogOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.repo.CurrentID()
	before, _ := f.repo.Load(ctx, id)

	require.NoError(t, f.repo.RenameOrganization(ctx, id, "Renamed"))
	record, _ := f.repo.Record(id)
	require.Equal(t, "Renamed", record.Name)

	after, _ := f.repo.Load(ctx, id)
	require.Equal(t, before, after)

	require.ErrorIs(t, f.repo.RenameOrganization(ctx, id, ""), ErrInvalidName)
	require.ErrorIs(t, f.repo.RenameOrganization(ctx, "missing", "x"), ErrOrganizationNotFound)
}

func TestLoadTreatsCorruptionAsAbsent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.repo.CurrentID()

	for name, payload := range map[string]string{
		"not json":       "{{{",
		"missing teams":  `{"people":{}}`,
		"missing people": `{"teams":{}}`,
	} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, f.kv.MemoryStore.Set(ctx, "test:org:"+id, []byte(payload)))
			_, ok := f.repo.Load(ctx, id)
			require.False(t, ok)
		})
	}

	_, ok := f.repo.Load(ctx, "never-saved")
	require.False(t, ok)
}

func TestCorruptedCatalogFallsBackToFreshOrganization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.kv.MemoryStore.Set(ctx, "test:catalog", []byte("not json")))

	reopened := f.reopen()

	catalog := reopened.ListCatalog()
	require.Len(t, catalog, 1)
	require.Equal(t, DefaultOrganizationName, catalog[0].Name)
}

func TestDanglingCurrentPointerIsRepaired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.repo.CurrentID()
	require.NoError(t, f.kv.MemoryStore.Set(ctx, "test:current", []byte("gone")))

	reopened := f.reopen()
	require.Equal(t, first, reopened.CurrentID())
}

func TestStorageFailuresDegradeGracefully(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.kv.fail(true, true)

	// Reads fail: the document is reported missing rather than erroring.
	_, ok := f.repo.Load(ctx, f.repo.CurrentID())
	require.False(t, ok)

	// Catalog operations still succeed in memory.
	record, _, err := f.repo.CreateOrganization(ctx, "Offline")
	require.NoError(t, err)
	require.Equal(t, record.ID, f.repo.CurrentID())
	require.NoError(t, f.repo.RenameOrganization(ctx, record.ID, "Still offline"))

	// Document writes report the failure so callers can count it.
	err = f.repo.Save(ctx, record.ID, domain.NewDocument())
	require.ErrorIs(t, err, errDiskFull)

	// A broken backend at startup yields a usable bootstrap organization.
	broken := f.reopen()
	require.Len(t, broken.ListCatalog(), 1)
}

func TestResetStartsFresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.repo.CurrentID()
	_, _, err := f.repo.CreateOrganization(ctx, "Second")
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	record := f.repo.Reset(ctx)

	catalog := f.repo.ListCatalog()
	require.Len(t, catalog, 1)
	require.Equal(t, record.ID, catalog[0].ID)
	require.Equal(t, record.ID, f.repo.CurrentID())
	_, ok := f.repo.Load(ctx, first)
	require.False(t, ok)
	doc, ok := f.repo.Load(ctx, record.ID)
	require.True(t, ok)
	require.Equal(t, domain.NewDocument(), doc)
}

func TestStoredDocumentUsesWireShape(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.repo.CurrentID()

	raw, err := f.kv.MemoryStore.Get(ctx, "test:org:"+id)
	require.NoError(t, err)
	doc, err := codec.UnmarshalDocument(raw)
	require.NoError(t, err)
	require.Equal(t, domain.NewDocument(), doc)
	require.Contains(t, string(raw), `"orgProducts":[]`)
}
