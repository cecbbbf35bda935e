package worker

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gabrielgalarza/orgmapper/internal/clock"
	"github.com/gabrielgalarza/orgmapper/internal/codec"
	"github.com/gabrielgalarza/orgmapper/internal/domain"
	"github.com/gabrielgalarza/orgmapper/internal/observability"
)

// DefaultDebounce is the quiet period before a pending document is written.
const DefaultDebounce = 300 * time.Millisecond

// DocumentSaver persists a document under an organization id.
type DocumentSaver interface {
	Save(ctx context.Context, id string, doc domain.Document) error
}

// Autosaver coalesces bursts of document changes into a single write per
// organization. Every Schedule restarts the debounce timer; only the latest
// document for an organization is written when it fires.
type Autosaver struct {
	saver   DocumentSaver
	clock   clock.Clock
	delay   time.Duration
	logger  *zap.Logger
	metrics *observability.Metrics

	mu      sync.Mutex
	timer   clock.Timer
	pending map[string]domain.Document

	// writeMu serializes writes so an older snapshot never lands after a newer one.
	writeMu sync.Mutex
	written map[string]string
}

// NewAutosaver builds an Autosaver. A non-positive delay falls back to DefaultDebounce.
func NewAutosaver(saver DocumentSaver, clk clock.Clock, delay time.Duration, logger *zap.Logger, metrics *observability.Metrics) *Autosaver {
	if clk == nil {
		clk = clock.Real()
	}
	if delay <= 0 {
		delay = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Autosaver{
		saver:   saver,
		clock:   clk,
		delay:   delay,
		logger:  logger,
		metrics: metrics,
		pending: make(map[string]domain.Document),
		written: make(map[string]string),
	}
}

// Schedule records doc as the latest state of orgID and restarts the timer.
func (a *Autosaver) Schedule(orgID string, doc domain.Document) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
	}
	a.pending[orgID] = doc
	a.timer = a.clock.AfterFunc(a.delay, a.fire)
}

// Pending reports whether a write is waiting for the timer.
func (a *Autosaver) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending) > 0
}

// Flush writes every pending document now.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	pending := a.pending
	a.pending = make(map[string]domain.Document)
	a.mu.Unlock()

	ids := make([]string, 0, len(pending))
	for id := range pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var errs []error
	for _, id := range ids {
		if err := a.writeLocked(ctx, id, pending[id]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Cancel drops pending writes without persisting them.
func (a *Autosaver) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.pending = make(map[string]domain.Document)
}

// Remember marks doc as already persisted for orgID, so an identical
// follow-up write is skipped.
func (a *Autosaver) Remember(orgID string, doc domain.Document) {
	sum, err := codec.Fingerprint(doc)
	if err != nil {
		return
	}
	a.writeMu.Lock()
	a.written[orgID] = sum
	a.writeMu.Unlock()
}

// Forget drops any pending write and the last written fingerprint for orgID.
func (a *Autosaver) Forget(orgID string) {
	a.mu.Lock()
	delete(a.pending, orgID)
	a.mu.Unlock()

	a.writeMu.Lock()
	delete(a.written, orgID)
	a.writeMu.Unlock()
}

func (a *Autosaver) fire() {
	if err := a.Flush(context.Background()); err != nil {
		a.logger.Warn("autosave failed", zap.Error(err))
	}
}

func (a *Autosaver) writeLocked(ctx context.Context, orgID string, doc domain.Document) error {
	sum, err := codec.Fingerprint(doc)
	if err == nil && a.written[orgID] == sum {
		a.metrics.RecordAutosave(observability.AutosaveSkipped)
		return nil
	}

	if err := a.saver.Save(ctx, orgID, doc); err != nil {
		a.metrics.RecordAutosave(observability.AutosaveFailed)
		return err
	}
	a.metrics.RecordAutosave(observability.AutosaveWritten)
	if sum != "" {
		a.written[orgID] = sum
	}
	a.logger.Debug("document autosaved", zap.String("org_id", orgID))
	return nil
}
