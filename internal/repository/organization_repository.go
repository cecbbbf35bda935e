package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gabrielgalarza/orgmapper/internal/clock"
	"github.com/gabrielgalarza/orgmapper/internal/codec"
	"github.com/gabrielgalarza/orgmapper/internal/domain"
	"github.com/gabrielgalarza/orgmapper/internal/persistence"
)

// DefaultOrganizationName names the organization created on first run.
const DefaultOrganizationName = "My Organization"

var (
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrLastOrganization     = errors.New("cannot delete the only organization")
	ErrInvalidName          = errors.New("organization name required")
)

// OrganizationRepository persists many named documents over a KVStore,
// together with the catalog of records and the current-organization pointer.
//
// The catalog and pointer are cached in memory and written through. Storage
// failures are logged and never surface as errors: reads fall back to
// "absent" and the in-memory state stays authoritative for the session.
type OrganizationRepository struct {
	kv     persistence.KVStore
	logger *zap.Logger
	clock  clock.Clock
	newID  func() string
	prefix string

	mu      sync.Mutex
	catalog []domain.OrganizationRecord
	current string
}

// Option customizes the repository.
type Option func(*OrganizationRepository)

// WithKeyPrefix namespaces every key written to the store.
func WithKeyPrefix(prefix string) Option {
	return func(r *OrganizationRepository) { r.prefix = prefix }
}

// WithClock overrides the time source for catalog timestamps.
func WithClock(c clock.Clock) Option {
	return func(r *OrganizationRepository) { r.clock = c }
}

// WithIDGenerator overrides organization id generation.
func WithIDGenerator(fn func() string) Option {
	return func(r *OrganizationRepository) { r.newID = fn }
}

// NewOrganizationRepository constructs the repository. Call Open before use.
func NewOrganizationRepository(kv persistence.KVStore, logger *zap.Logger, opts ...Option) *OrganizationRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &OrganizationRepository{
		kv:     kv,
		logger: logger,
		clock:  clock.Real(),
		newID:  uuid.NewString,
		prefix: "orgmapper:",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *OrganizationRepository) catalogKey() string { return r.prefix + "catalog" }
func (r *OrganizationRepository) currentKey() string { return r.prefix + "current" }
func (r *OrganizationRepository) orgKey(id string) string { return r.prefix + "org:" + id }

// Open loads the catalog and current pointer. An empty catalog is seeded
// with one empty organization, which becomes current.
func (r *OrganizationRepository) Open(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.catalog = r.readCatalog(ctx)
	r.current = r.readCurrent(ctx)

	if len(r.catalog) == 0 {
		r.bootstrapLocked(ctx)
		return
	}
	if _, ok := r.indexLocked(r.current); !ok {
		r.current = r.catalog[0].ID
		r.writeCurrentLocked(ctx)
	}
}

func (r *OrganizationRepository) bootstrapLocked(ctx context.Context) domain.OrganizationRecord {
	record := r.newRecordLocked(DefaultOrganizationName)
	r.writeDocument(ctx, record.ID, domain.NewDocument())
	r.catalog = []domain.OrganizationRecord{record}
	r.current = record.ID
	r.writeCatalogLocked(ctx)
	r.writeCurrentLocked(ctx)
	r.logger.Info("created default organization", zap.String("org_id", record.ID))
	return record
}

// Load returns the stored document for id. Missing, unreadable and
// structurally invalid documents all report false.
func (r *OrganizationRepository) Load(ctx context.Context, id string) (domain.Document, bool) {
	data, err := r.kv.Get(ctx, r.orgKey(id))
	if err != nil {
		if !errors.Is(err, persistence.ErrKeyNotFound) {
			r.logger.Warn("failed to read organization", zap.String("org_id", id), zap.Error(err))
		}
		return domain.Document{}, false
	}
	doc, err := codec.UnmarshalDocument(data)
	if err != nil {
		r.logger.Warn("discarding corrupted organization", zap.String("org_id", id), zap.Error(err))
		return domain.Document{}, false
	}
	return doc, true
}

// Save writes the document and bumps the record's update time. Saving an
// organization that is no longer in the catalog is refused.
func (r *OrganizationRepository) Save(ctx context.Context, id string, doc domain.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.indexLocked(id)
	if !ok {
		return ErrOrganizationNotFound
	}
	if err := r.writeDocument(ctx, id, doc); err != nil {
		return err
	}
	r.catalog[idx].UpdatedAt = r.now()
	r.writeCatalogLocked(ctx)
	return nil
}

// ListCatalog returns the records in creation order.
func (r *OrganizationRepository) ListCatalog() []domain.OrganizationRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.OrganizationRecord(nil), r.catalog...)
}

// CurrentID returns the id of the current organization.
func (r *OrganizationRepository) CurrentID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Record returns the catalog entry for id.
func (r *OrganizationRepository) Record(id string) (domain.OrganizationRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx, ok := r.indexLocked(id)
	if !ok {
		return domain.OrganizationRecord{}, false
	}
	return r.catalog[idx], true
}

// CreateOrganization records a new empty organization and makes it current.
func (r *OrganizationRepository) CreateOrganization(ctx context.Context, name string) (domain.OrganizationRecord, domain.Document, error) {
	doc := domain.NewDocument()
	record, err := r.ImportOrganization(ctx, name, doc)
	if err != nil {
		return domain.OrganizationRecord{}, domain.Document{}, err
	}
	return record, doc, nil
}

// ImportOrganization stores doc under a new catalog entry and makes it
// current. Existing organizations are never overwritten.
func (r *OrganizationRepository) ImportOrganization(ctx context.Context, name string, doc domain.Document) (domain.OrganizationRecord, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.OrganizationRecord{}, ErrInvalidName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	record := r.newRecordLocked(name)
	r.writeDocument(ctx, record.ID, doc)
	r.catalog = append(r.catalog, record)
	r.current = record.ID
	r.writeCatalogLocked(ctx)
	r.writeCurrentLocked(ctx)
	return record, nil
}

// SwitchCurrent moves the current pointer to id.
func (r *OrganizationRepository) SwitchCurrent(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.indexLocked(id); !ok {
		return ErrOrganizationNotFound
	}
	r.current = id
	r.writeCurrentLocked(ctx)
	return nil
}

// DeleteOrganization removes id and its document. The last remaining
// organization cannot be deleted. Deleting the current organization moves
// the pointer to the first remaining one.
func (r *OrganizationRepository) DeleteOrganization(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.indexLocked(id)
	if !ok {
		return ErrOrganizationNotFound
	}
	if len(r.catalog) <= 1 {
		return ErrLastOrganization
	}

	r.catalog = append(r.catalog[:idx:idx], r.catalog[idx+1:]...)
	if err := r.kv.Delete(ctx, r.orgKey(id)); err != nil {
		r.logger.Warn("failed to delete organization document", zap.String("org_id", id), zap.Error(err))
	}
	if r.current == id {
		r.current = r.catalog[0].ID
		r.writeCurrentLocked(ctx)
	}
	r.writeCatalogLocked(ctx)
	return nil
}

// RenameOrganization changes the display name in the catalog only.
func (r *OrganizationRepository) RenameOrganization(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.indexLocked(id)
	if !ok {
		return ErrOrganizationNotFound
	}
	r.catalog[idx].Name = name
	r.catalog[idx].UpdatedAt = r.now()
	r.writeCatalogLocked(ctx)
	return nil
}

// Reset deletes every stored organization and starts over with one empty
// organization.
func (r *OrganizationRepository) Reset(ctx context.Context) domain.OrganizationRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, record := range r.catalog {
		if err := r.kv.Delete(ctx, r.orgKey(record.ID)); err != nil {
			r.logger.Warn("failed to delete organization document", zap.String("org_id", record.ID), zap.Error(err))
		}
	}
	for _, key := range []string{r.catalogKey(), r.currentKey()} {
		if err := r.kv.Delete(ctx, key); err != nil {
			r.logger.Warn("failed to delete key", zap.String("key", key), zap.Error(err))
		}
	}
	r.catalog = nil
	r.current = ""
	return r.bootstrapLocked(ctx)
}

func (r *OrganizationRepository) now() time.Time {
	return r.clock.Now().UTC()
}

func (r *OrganizationRepository) newRecordLocked(name string) domain.OrganizationRecord {
	id := r.freshIDLocked()
	now := r.now()
	return domain.OrganizationRecord{ID: id, Name: name, CreatedAt: now, UpdatedAt: now}
}

// maxIDAttempts bounds retries against a generator that keeps returning
// ids already in the catalog. Past it a random UUID is used.
const maxIDAttempts = 16

func (r *OrganizationRepository) freshIDLocked() string {
	for i := 0; i < maxIDAttempts; i++ {
		id := r.newID()
		if _, taken := r.indexLocked(id); !taken && id != "" {
			return id
		}
	}
	r.logger.Warn("id generator kept colliding, falling back to uuid")
	for {
		id := uuid.NewString()
		if _, taken := r.indexLocked(id); !taken {
			return id
		}
	}
}

func (r *OrganizationRepository) indexLocked(id string) (int, bool) {
	for i, record := range r.catalog {
		if record.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (r *OrganizationRepository) readCatalog(ctx context.Context) []domain.OrganizationRecord {
	data, err := r.kv.Get(ctx, r.catalogKey())
	if err != nil {
		if !errors.Is(err, persistence.ErrKeyNotFound) {
			r.logger.Warn("failed to read catalog", zap.Error(err))
		}
		return nil
	}
	var records []domain.OrganizationRecord
	if err := json.Unmarshal(data, &records); err != nil {
		r.logger.Warn("discarding corrupted catalog", zap.Error(err))
		return nil
	}
	out := records[:0]
	seen := make(map[string]struct{}, len(records))
	for _, record := range records {
		if record.ID == "" {
			continue
		}
		if _, dup := seen[record.ID]; dup {
			continue
		}
		seen[record.ID] = struct{}{}
		out = append(out, record)
	}
	return out
}

func (r *OrganizationRepository) readCurrent(ctx context.Context) string {
	data, err := r.kv.Get(ctx, r.currentKey())
	if err != nil {
		if !errors.Is(err, persistence.ErrKeyNotFound) {
			r.logger.Warn("failed to read current organization", zap.Error(err))
		}
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (r *OrganizationRepository) writeDocument(ctx context.Context, id string, doc domain.Document) error {
	data, err := codec.MarshalDocument(doc)
	if err != nil {
		r.logger.Warn("failed to encode organization", zap.String("org_id", id), zap.Error(err))
		return fmt.Errorf("encode organization %s: %w", id, err)
	}
	if err := r.kv.Set(ctx, r.orgKey(id), data); err != nil {
		r.logger.Warn("failed to write organization", zap.String("org_id", id), zap.Error(err))
		return fmt.Errorf("write organization %s: %w", id, err)
	}
	return nil
}

func (r *OrganizationRepository) writeCatalogLocked(ctx context.Context) {
	data, err := json.Marshal(r.catalog)
	if err == nil {
		err = r.kv.Set(ctx, r.catalogKey(), data)
	}
	if err != nil {
		r.logger.Warn("failed to write catalog", zap.Error(err))
	}
}

func (r *OrganizationRepository) writeCurrentLocked(ctx context.Context) {
	if err := r.kv.Set(ctx, r.currentKey(), []byte(r.current)); err != nil {
		r.logger.Warn("failed to write current organization", zap.Error(err))
	}
}
