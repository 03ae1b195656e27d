package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"docvault/internal/model"
	"docvault/internal/search"
)

// Synchronizer propagates primary-store mutations to the search index.
//
// Ordering policy: every hook is invoked strictly after the primary
// write succeeded, and the index write is best-effort. A failed index
// write leaves the index stale, not corrupt, because the query router's
// hydration step filters stale entries at read time. Failures are
// logged as warnings and never surfaced to the caller whose mutation
// already committed.
type Synchronizer struct {
	idx     search.Index
	log     *zap.Logger
	timeout time.Duration
}

// NewSynchronizer wires the index client. A nil logger disables logging.
func NewSynchronizer(idx search.Index, log *zap.Logger, timeout time.Duration) *Synchronizer {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Synchronizer{idx: idx, log: log, timeout: timeout}
}

// DocumentCreated indexes a freshly created document.
func (s *Synchronizer) DocumentCreated(ctx context.Context, doc *model.Document) {
	s.upsert(ctx, doc, "create")
}

// DocumentUpdated replaces the projection of an active document.
func (s *Synchronizer) DocumentUpdated(ctx context.Context, doc *model.Document) {
	s.upsert(ctx, doc, "update")
}

// DocumentRestored re-indexes a document leaving the trash. The
// projection is rebuilt from the restored record; a projection left over
// from before the trash is never assumed valid.
func (s *Synchronizer) DocumentRestored(ctx context.Context, doc *model.Document) {
	s.upsert(ctx, doc, "restore")
}

// DocumentTrashed removes the projection of a trashed document.
func (s *Synchronizer) DocumentTrashed(ctx context.Context, id string) {
	s.remove(ctx, id, "trash")
}

// DocumentPurged removes the projection of a hard-deleted document.
func (s *Synchronizer) DocumentPurged(ctx context.Context, id string) {
	s.remove(ctx, id, "purge")
}

func (s *Synchronizer) upsert(ctx context.Context, doc *model.Document, op string) {
	if !doc.Active() {
		// Trashed documents never enter the index, whatever the trigger.
		return
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.idx.Upsert(ctx, search.ProjectionOf(doc)); err != nil {
		s.warn(op, doc.ID, err)
	}
}

func (s *Synchronizer) remove(ctx context.Context, id, op string) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.idx.Remove(ctx, id); err != nil {
		s.warn(op, id, err)
	}
}

// bound detaches the index write from the caller's cancellation: a
// client disconnecting after the primary commit must not abandon the
// in-flight index write. The own timeout still applies.
func (s *Synchronizer) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
}

func (s *Synchronizer) warn(op, id string, err error) {
	s.log.Warn("index_write_failed",
		zap.String("op", op),
		zap.String("document_id", id),
		zap.Error(err),
	)
}
