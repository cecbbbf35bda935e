package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gabrielgalarza/orgmapper/internal/clock"
	"github.com/gabrielgalarza/orgmapper/internal/codec"
	"github.com/gabrielgalarza/orgmapper/internal/domain"
	"github.com/gabrielgalarza/orgmapper/internal/events"
	"github.com/gabrielgalarza/orgmapper/internal/mutation"
	"github.com/gabrielgalarza/orgmapper/internal/observability"
	"github.com/gabrielgalarza/orgmapper/internal/repository"
	"github.com/gabrielgalarza/orgmapper/internal/worker"
	apperrors "github.com/gabrielgalarza/orgmapper/pkg/util/errorutil"
)

// ImportedOrganizationName names an imported file that arrives without one.
const ImportedOrganizationName = "Imported Organization"

// Sources recorded on organization_imported events.
const (
	SourceShareLink = "share_link"
	SourceFile      = "file"
)

// OrgService owns the live document of the current organization. Every
// mutation, switch and ingestion goes through its lock, so commands are
// applied one at a time in arrival order.
type OrgService struct {
	repo       *repository.OrganizationRepository
	engine     *mutation.Engine
	autosaver  *worker.Autosaver
	dispatcher events.Dispatcher
	clock      clock.Clock
	logger     *zap.Logger
	metrics    *observability.Metrics

	mu        sync.Mutex
	currentID string
	doc       domain.Document
}

// OrgDependencies bundles collaborators for OrgService.
type OrgDependencies struct {
	Repository *repository.OrganizationRepository
	Engine     *mutation.Engine
	Autosaver  *worker.Autosaver
	Dispatcher events.Dispatcher
	Clock      clock.Clock
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// NewOrgService constructs the service. Call Start before use.
func NewOrgService(deps OrgDependencies) *OrgService {
	s := &OrgService{
		repo:       deps.Repository,
		engine:     deps.Engine,
		autosaver:  deps.Autosaver,
		dispatcher: deps.Dispatcher,
		clock:      deps.Clock,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		doc:        domain.NewDocument(),
	}
	if s.engine == nil {
		s.engine = mutation.NewEngine()
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Start opens the catalog and loads the current organization. Loading
// publishes nothing, so startup never triggers a write.
func (s *OrgService) Start(ctx context.Context) {
	s.repo.Open(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(ctx, s.repo.CurrentID())
}

// Document returns a copy of the current document.
func (s *OrgService) Document() domain.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Current returns the catalog record of the current organization.
func (s *OrgService) Current() domain.OrganizationRecord {
	s.mu.Lock()
	id := s.currentID
	s.mu.Unlock()

	record, _ := s.repo.Record(id)
	return record
}

// Apply runs cmd against the current document. A command that changes
// nothing is not published and not saved.
func (s *OrgService) Apply(ctx context.Context, cmd mutation.Command) (domain.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, changed := s.engine.Apply(s.doc, cmd)
	s.metrics.RecordCommand(cmd.Kind(), changed)
	if !changed {
		return s.doc.Clone(), false
	}
	s.doc = next
	if _, ok := cmd.(mutation.LoadDocument); ok {
		s.warnIntegrity(s.currentID, next)
	}
	s.publish(ctx, events.EventDocumentChanged, s.currentID, events.DocumentChangedPayload{
		Command:  cmd.Kind(),
		Document: next,
	})
	return next.Clone(), true
}

// ListOrganizations returns the catalog in creation order.
func (s *OrgService) ListOrganizations() []domain.OrganizationRecord {
	return s.repo.ListCatalog()
}

// CreateOrganization adds an empty organization and switches to it.
func (s *OrgService) CreateOrganization(ctx context.Context, name string) (domain.OrganizationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flushLocked(ctx)
	record, doc, err := s.repo.CreateOrganization(ctx, name)
	if err != nil {
		return domain.OrganizationRecord{}, mapRepositoryError(err, "")
	}
	s.setCurrentLocked(record.ID, doc)
	s.publish(ctx, events.EventOrganizationCreated, record.ID, events.OrganizationPayload{Name: record.Name})
	return record, nil
}

// SwitchOrganization saves any pending change and loads id. A missing or
// corrupted document is replaced by an empty one.
func (s *OrgService) SwitchOrganization(ctx context.Context, id string) (domain.OrganizationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flushLocked(ctx)
	if err := s.repo.SwitchCurrent(ctx, id); err != nil {
		return domain.OrganizationRecord{}, mapRepositoryError(err, id)
	}
	s.loadLocked(ctx, id)
	record, _ := s.repo.Record(id)
	s.publish(ctx, events.EventOrganizationSwitched, id, events.OrganizationPayload{Name: record.Name})
	return record, nil
}

// DeleteOrganization removes id. Deleting the current organization loads
// the one the catalog falls back to.
func (s *OrgService) DeleteOrganization(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.repo.Record(id)
	if !ok {
		return mapRepositoryError(repository.ErrOrganizationNotFound, id)
	}
	if err := s.repo.DeleteOrganization(ctx, id); err != nil {
		return mapRepositoryError(err, id)
	}
	if s.autosaver != nil {
		s.autosaver.Forget(id)
	}
	if id == s.currentID {
		s.loadLocked(ctx, s.repo.CurrentID())
	}
	s.publish(ctx, events.EventOrganizationDeleted, id, events.OrganizationPayload{Name: record.Name})
	return nil
}

// RenameOrganization changes the display name of id.
func (s *OrgService) RenameOrganization(ctx context.Context, id, name string) (domain.OrganizationRecord, error) {
	if err := s.repo.RenameOrganization(ctx, id, name); err != nil {
		return domain.OrganizationRecord{}, mapRepositoryError(err, id)
	}
	record, _ := s.repo.Record(id)
	s.publish(ctx, events.EventOrganizationRenamed, id, events.OrganizationPayload{Name: record.Name})
	return record, nil
}

// ShareURL encodes the current document and name into a link under base.
func (s *OrgService) ShareURL(base string) (string, error) {
	doc := s.Document()
	record := s.Current()
	link, err := codec.BuildShareURL(base, doc, record.Name)
	if err != nil {
		return "", apperrors.NewValidationError("cannot build share link", map[string]any{"reason": err.Error()})
	}
	return link, nil
}

// IngestShare imports the document carried by share-link query values as a
// new organization. ok is false when the values carry no shared document.
func (s *OrgService) IngestShare(ctx context.Context, values url.Values) (record domain.OrganizationRecord, ok bool, err error) {
	shared, present, err := codec.ParseShareQuery(values)
	if !present {
		return domain.OrganizationRecord{}, false, nil
	}
	if err != nil {
		return domain.OrganizationRecord{}, true, apperrors.NewMalformedPayload("shared organization could not be decoded", err)
	}
	record, err = s.importDocument(ctx, shared.Name, shared.Document, SourceShareLink)
	return record, true, err
}

// ExportFile renders the current document in format and suggests a filename.
func (s *OrgService) ExportFile(format codec.Format) (filename string, data []byte, err error) {
	doc := s.Document()
	record := s.Current()
	data, err = codec.EncodeFile(doc, format)
	if err != nil {
		if errors.Is(err, codec.ErrUnsupportedFormat) {
			return "", nil, apperrors.NewValidationError("unsupported export format", map[string]any{"format": string(format)})
		}
		return "", nil, apperrors.MapError(err)
	}
	return codec.ExportFilename(record.Name, format), data, nil
}

// ImportFile decodes data and stores it as a new organization. Malformed
// content is rejected before the catalog is touched.
func (s *OrgService) ImportFile(ctx context.Context, name string, data []byte, format codec.Format) (domain.OrganizationRecord, error) {
	doc, err := codec.DecodeFile(data, format)
	if err != nil {
		if errors.Is(err, codec.ErrUnsupportedFormat) {
			return domain.OrganizationRecord{}, apperrors.NewValidationError("unsupported import format", map[string]any{"format": string(format)})
		}
		return domain.OrganizationRecord{}, apperrors.NewMalformedPayload("import rejected", err)
	}
	if strings.TrimSpace(name) == "" {
		name = ImportedOrganizationName
	}
	return s.importDocument(ctx, name, doc, SourceFile)
}

// Reset deletes every stored organization and starts over with a single
// empty one. Pending saves are discarded.
func (s *OrgService) Reset(ctx context.Context) domain.OrganizationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.autosaver != nil {
		s.autosaver.Cancel()
		for _, record := range s.repo.ListCatalog() {
			s.autosaver.Forget(record.ID)
		}
	}
	record := s.repo.Reset(ctx)
	s.loadLocked(ctx, record.ID)
	s.publish(ctx, events.EventStorageReset, record.ID, events.OrganizationPayload{Name: record.Name})
	return record
}

// Shutdown writes any pending change.
func (s *OrgService) Shutdown(ctx context.Context) error {
	if s.autosaver == nil {
		return nil
	}
	return s.autosaver.Flush(ctx)
}

func (s *OrgService) importDocument(ctx context.Context, name string, doc domain.Document, source string) (domain.OrganizationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flushLocked(ctx)
	doc = doc.Clone()
	record, err := s.repo.ImportOrganization(ctx, name, doc)
	if err != nil {
		return domain.OrganizationRecord{}, mapRepositoryError(err, "")
	}
	s.setCurrentLocked(record.ID, doc)
	s.warnIntegrity(record.ID, doc)
	s.publish(ctx, events.EventOrganizationImported, record.ID, events.OrganizationPayload{Name: record.Name, Source: source})
	return record, nil
}

// warnIntegrity logs cross-reference problems in documents that came from
// outside the engine. The document is kept as is.
func (s *OrgService) warnIntegrity(orgID string, doc domain.Document) {
	for _, v := range domain.CheckIntegrity(doc) {
		s.logger.Warn("document integrity violation",
			zap.String("org_id", orgID),
			zap.String("violation", v.String()),
		)
	}
}

func (s *OrgService) loadLocked(ctx context.Context, id string) {
	doc, ok := s.repo.Load(ctx, id)
	if !ok {
		doc = domain.NewDocument()
	}
	s.setCurrentLocked(id, doc)
}

func (s *OrgService) setCurrentLocked(id string, doc domain.Document) {
	s.currentID = id
	s.doc = doc
	if s.autosaver != nil {
		s.autosaver.Remember(id, doc)
	}
}

func (s *OrgService) flushLocked(ctx context.Context) {
	if s.autosaver == nil {
		return
	}
	if err := s.autosaver.Flush(ctx); err != nil {
		s.logger.Warn("failed to save pending changes", zap.String("org_id", s.currentID), zap.Error(err))
	}
}

func (s *OrgService) publish(ctx context.Context, eventType events.EventType, orgID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		OrgID:     orgID,
		Timestamp: s.clock.Now().UTC(),
		Payload:   payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}

func mapRepositoryError(err error, id string) error {
	switch {
	case errors.Is(err, repository.ErrOrganizationNotFound):
		return apperrors.NewNotFound("organization", map[string]any{"id": id})
	case errors.Is(err, repository.ErrLastOrganization):
		return apperrors.NewConflict("cannot delete the only organization", map[string]any{"id": id})
	case errors.Is(err, repository.ErrInvalidName):
		return apperrors.NewValidationError("organization name required", nil)
	default:
		return apperrors.MapError(err)
	}
}
