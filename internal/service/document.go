package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docvault/internal/cache"
	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/storage"
)

const (
	cacheKeyPrefix  = "doc:"
	presignExpiry   = 15 * time.Minute
	defaultCacheTTL = time.Minute
)

// UploadInput carries the metadata accompanying an uploaded blob.
type UploadInput struct {
	Filename    string
	ContentType string
	Size        int64
	CategoryID  *string
	Tags        []string
}

// UpdateInput is a partial document update. Nil fields are untouched.
type UpdateInput struct {
	Name          *string
	CategoryID    *string
	ClearCategory bool
	Tags          *[]string
	IsFavorite    *bool
}

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
}

// DocumentService defines the mutation and direct-read use cases for
// documents. Every operation takes the caller's Principal explicitly.
type DocumentService interface {
	// Upload stores the blob, creates the canonical record, and indexes
	// it. The blob is rolled back if the record write fails.
	Upload(ctx context.Context, p model.Principal, r io.Reader, in UploadInput) (*model.Document, error)

	// Get returns a document by id. Owner, admins and any share-grant
	// holder may read; last_accessed_at is refreshed.
	Get(ctx context.Context, p model.Principal, id string) (*model.Document, error)

	// Update applies a partial update. Requires edit access; toggling
	// the favorite flag is owner-only.
	Update(ctx context.Context, p model.Principal, id string, in UpdateInput) (*model.Document, error)

	// Share grants or updates a user's access. Re-sharing the same user
	// updates the permission in place.
	Share(ctx context.Context, p model.Principal, id string, grant model.ShareGrant) (*model.Document, error)

	// Unshare revokes a user's grant.
	Unshare(ctx context.Context, p model.Principal, id, userID string) (*model.Document, error)

	// Trash soft-deletes a document and drops it from the index.
	Trash(ctx context.Context, p model.Principal, id string) (*model.Document, error)

	// Restore brings a trashed document back and re-indexes it.
	Restore(ctx context.Context, p model.Principal, id string) (*model.Document, error)

	// Purge permanently deletes a document, its blob and its projection.
	Purge(ctx context.Context, p model.Principal, id string) error

	// EmptyTrash purges every trashed document owned by the caller and
	// returns the number of records purged. Partial failure is
	// tolerated; the remainder keeps its trashed state.
	EmptyTrash(ctx context.Context, p model.Principal) (int, error)

	// ListTrash returns the caller's trashed documents.
	ListTrash(ctx context.Context, p model.Principal) ([]model.Document, error)

	// ListShared returns active documents shared with the caller.
	ListShared(ctx context.Context, p model.Principal, limit, offset int) (*DocumentListResult, error)

	// Download returns a presigned URL for the document blob.
	Download(ctx context.Context, p model.Principal, id string) (string, error)
}

type documentService struct {
	repo  repository.DocumentRepository
	store storage.Storage
	sync  *Synchronizer
	cache cache.Cache
	log   *zap.Logger
	ttl   time.Duration
}

// NewDocumentService constructs a DocumentService.
func NewDocumentService(repo repository.DocumentRepository, store storage.Storage, sync *Synchronizer, c cache.Cache, log *zap.Logger, cacheTTL time.Duration) DocumentService {
	if log == nil {
		log = zap.NewNop()
	}
	if c == nil {
		c = cache.Noop{}
	}
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}
	return &documentService{repo: repo, store: store, sync: sync, cache: c, log: log, ttl: cacheTTL}
}

func (s *documentService) Upload(ctx context.Context, p model.Principal, r io.Reader, in UploadInput) (*model.Document, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: missing file content", ErrValidation)
	}
	if in.Filename == "" {
		return nil, fmt.Errorf("%w: filename is required", ErrValidation)
	}

	ext := filepath.Ext(in.Filename)
	docType := model.TypeFromExtension(ext)

	id := uuid.New().String()
	key := filepath.ToSlash(filepath.Join("documents", p.ID, id+ext))

	objInfo, err := s.store.Put(ctx, key, r, storage.PutObjectOptions{
		Size:        in.Size,
		ContentType: in.ContentType,
		Metadata:    map[string]string{"original-filename": in.Filename},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	doc := &model.Document{
		ID:         id,
		Name:       in.Filename,
		Type:       docType,
		Size:       objInfo.Size,
		Path:       objInfo.Key,
		OwnerID:    p.ID,
		CategoryID: in.CategoryID,
		Tags:       in.Tags,
		CreatedAt:  time.Now().UTC(),
	}
	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		// Roll the blob back so storage does not accumulate orphans.
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}

	s.sync.DocumentCreated(ctx, stored)
	return stored, nil
}

func (s *documentService) Get(ctx context.Context, p model.Principal, id string) (*model.Document, error) {
	doc, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canRead(p, doc) {
		return nil, ErrUnauthorized
	}

	if err := s.repo.TouchLastAccessed(ctx, id); err != nil {
		s.log.Warn("touch_last_accessed_failed", zap.String("document_id", id), zap.Error(err))
	}
	return doc, nil
}

func (s *documentService) Update(ctx context.Context, p model.Principal, id string, in UpdateInput) (*model.Document, error) {
	doc, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canEdit(p, doc) {
		return nil, ErrUnauthorized
	}
	if in.IsFavorite != nil && !isOwner(p, doc) {
		// The favorite flag belongs to the owner alone.
		return nil, ErrUnauthorized
	}
	if in.Name != nil && *in.Name == "" {
		return nil, fmt.Errorf("%w: name must not be empty", ErrValidation)
	}

	updated, err := s.repo.Update(ctx, id, repository.UpdateFields{
		Name:          in.Name,
		CategoryID:    in.CategoryID,
		ClearCategory: in.ClearCategory,
		Tags:          in.Tags,
		IsFavorite:    in.IsFavorite,
	})
	if err != nil {
		return nil, mapNoRows(err)
	}

	s.invalidate(ctx, id)
	s.sync.DocumentUpdated(ctx, updated)
	return updated, nil
}

func (s *documentService) Share(ctx context.Context, p model.Principal, id string, grant model.ShareGrant) (*model.Document, error) {
	if grant.UserID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	if !grant.Permission.Valid() {
		return nil, fmt.Errorf("%w: unknown permission %q", ErrValidation, grant.Permission)
	}

	doc, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(p, doc) {
		return nil, ErrUnauthorized
	}
	if grant.UserID == doc.OwnerID {
		return nil, fmt.Errorf("%w: cannot share a document with its owner", ErrValidation)
	}

	grants := make([]model.ShareGrant, len(doc.SharedWith))
	copy(grants, doc.SharedWith)
	replaced := false
	for i := range grants {
		if grants[i].UserID == grant.UserID {
			grants[i].Permission = grant.Permission
			replaced = true
			break
		}
	}
	if !replaced {
		grants = append(grants, grant)
	}

	return s.applyGrants(ctx, id, grants)
}

func (s *documentService) Unshare(ctx context.Context, p model.Principal, id, userID string) (*model.Document, error) {
	doc, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(p, doc) {
		return nil, ErrUnauthorized
	}

	grants := make([]model.ShareGrant, 0, len(doc.SharedWith))
	for _, g := range doc.SharedWith {
		if g.UserID != userID {
			grants = append(grants, g)
		}
	}
	if len(grants) == len(doc.SharedWith) {
		return nil, fmt.Errorf("%w: no grant for user %s", ErrNotFound, userID)
	}

	return s.applyGrants(ctx, id, grants)
}

func (s *documentService) applyGrants(ctx context.Context, id string, grants []model.ShareGrant) (*model.Document, error) {
	updated, err := s.repo.Update(ctx, id, repository.UpdateFields{SharedWith: &grants})
	if err != nil {
		return nil, mapNoRows(err)
	}
	s.invalidate(ctx, id)
	s.sync.DocumentUpdated(ctx, updated)
	return updated, nil
}

func (s *documentService) Trash(ctx context.Context, p model.Principal, id string) (*model.Document, error) {
	doc, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(p, doc) {
		return nil, ErrUnauthorized
	}
	if doc.IsDeleted {
		return doc, nil
	}

	trashed, err := s.repo.Trash(ctx, id)
	if err != nil {
		return nil, mapNoRows(err)
	}

	s.invalidate(ctx, id)
	s.sync.DocumentTrashed(ctx, id)
	return trashed, nil
}

func (s *documentService) Restore(ctx context.Context, p model.Principal, id string) (*model.Document, error) {
	doc, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(p, doc) {
		return nil, ErrUnauthorized
	}
	if !doc.IsDeleted {
		return doc, nil
	}

	restored, err := s.repo.Restore(ctx, id)
	if err != nil {
		return nil, mapNoRows(err)
	}

	s.invalidate(ctx, id)
	s.sync.DocumentRestored(ctx, restored)
	return restored, nil
}

func (s *documentService) Purge(ctx context.Context, p model.Principal, id string) error {
	doc, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	if !canManage(p, doc) {
		return ErrUnauthorized
	}

	// Blob first: if storage fails, keep the record so the path is not lost.
	if err := s.store.Delete(ctx, doc.Path); err != nil {
		return fmt.Errorf("delete storage: %w", err)
	}
	if err := s.repo.Purge(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx, id)
	s.sync.DocumentPurged(ctx, id)
	return nil
}

func (s *documentService) EmptyTrash(ctx context.Context, p model.Principal) (int, error) {
	trashed, err := s.repo.ListTrashed(ctx, p.ID)
	if err != nil {
		return 0, err
	}

	// Per-document state machine, applied sequentially. A failed purge
	// leaves that document trashed; a failed index removal leaves a
	// stale entry that hydration filters out.
	purged := 0
	for _, doc := range trashed {
		if err := s.store.Delete(ctx, doc.Path); err != nil {
			s.log.Warn("empty_trash_blob_delete_failed", zap.String("document_id", doc.ID), zap.Error(err))
			continue
		}
		if err := s.repo.Purge(ctx, doc.ID); err != nil {
			s.log.Warn("empty_trash_purge_failed", zap.String("document_id", doc.ID), zap.Error(err))
			continue
		}
		s.invalidate(ctx, doc.ID)
		s.sync.DocumentPurged(ctx, doc.ID)
		purged++
	}
	return purged, nil
}

func (s *documentService) ListTrash(ctx context.Context, p model.Principal) ([]model.Document, error) {
	return s.repo.ListTrashed(ctx, p.ID)
}

func (s *documentService) ListShared(ctx context.Context, p model.Principal, limit, offset int) (*DocumentListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.ListShared(ctx, p.ID, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *documentService) Download(ctx context.Context, p model.Principal, id string) (string, error) {
	doc, err := s.fetch(ctx, id)
	if err != nil {
		return "", err
	}
	if !canRead(p, doc) {
		return "", ErrUnauthorized
	}
	return s.store.PresignGet(ctx, doc.Path, presignExpiry)
}

// fetch loads a document by id, cache-aside. The cached record is the
// raw document; authorization is always re-checked per caller.
func (s *documentService) fetch(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}

	var cached model.Document
	if err := s.cache.Get(ctx, cacheKeyPrefix+id, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.log.Warn("cache_read_failed", zap.String("document_id", id), zap.Error(err))
	}

	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapNoRows(err)
	}

	if err := s.cache.Set(ctx, cacheKeyPrefix+id, doc, s.ttl); err != nil {
		s.log.Warn("cache_write_failed", zap.String("document_id", id), zap.Error(err))
	}
	return doc, nil
}

func (s *documentService) invalidate(ctx context.Context, id string) {
	if err := s.cache.Delete(ctx, cacheKeyPrefix+id); err != nil {
		s.log.Warn("cache_invalidate_failed", zap.String("document_id", id), zap.Error(err))
	}
}

func mapNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func isOwner(p model.Principal, doc *model.Document) bool {
	return p.IsAdmin() || doc.OwnerID == p.ID
}

func canRead(p model.Principal, doc *model.Document) bool {
	if isOwner(p, doc) {
		return true
	}
	_, ok := doc.GrantFor(p.ID)
	return ok
}

func canEdit(p model.Principal, doc *model.Document) bool {
	if isOwner(p, doc) {
		return true
	}
	g, ok := doc.GrantFor(p.ID)
	return ok && g.Permission.AtLeast(model.PermissionEdit)
}

func canManage(p model.Principal, doc *model.Document) bool {
	if isOwner(p, doc) {
		return true
	}
	g, ok := doc.GrantFor(p.ID)
	return ok && g.Permission.AtLeast(model.PermissionAdmin)
}
