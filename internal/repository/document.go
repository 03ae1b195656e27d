package repository

import (
	"context"

	"docvault/internal/model"
)

// DocumentRepository is the primary store adapter. It owns the canonical
// document records and is the single source of truth; the search index
// only ever holds a projection derived from rows written here.
// No business logic, strictly persistence operations.
type DocumentRepository interface {
	// Create inserts a new document record and returns the stored row.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by its ID. sql.ErrNoRows signals absence.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// FindByIDs returns the documents for the given IDs in one batch
	// lookup. IDs with no matching row are simply not present in the
	// result; callers decide how to treat the gap.
	FindByIDs(ctx context.Context, ids []string) ([]model.Document, error)

	// Update applies the non-nil fields of upd to an existing row and
	// refreshes updated_at. Returns the updated row.
	Update(ctx context.Context, id string, upd UpdateFields) (*model.Document, error)

	// Trash soft-deletes a document (is_deleted=true, deleted_at=now).
	Trash(ctx context.Context, id string) (*model.Document, error)

	// Restore clears the trash fields of a trashed document.
	Restore(ctx context.Context, id string) (*model.Document, error)

	// Purge hard-deletes a row. Returns nil if the row did not exist.
	Purge(ctx context.Context, id string) error

	// ListTrashed returns all trashed documents owned by ownerID.
	ListTrashed(ctx context.Context, ownerID string) ([]model.Document, error)

	// ListShared returns a page of active documents shared with userID,
	// newest first, plus the total count.
	ListShared(ctx context.Context, userID string, pq PageQuery) (*PageResult[model.Document], error)

	// TouchLastAccessed refreshes last_accessed_at for a read-by-id.
	TouchLastAccessed(ctx context.Context, id string) error
}

// UpdateFields carries a partial update; nil fields are left untouched.
type UpdateFields struct {
	Name          *string
	CategoryID    *string
	ClearCategory bool
	Tags          *[]string
	IsFavorite    *bool
	SharedWith    *[]model.ShareGrant
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
type PageResult[T any] struct {
	Items []T
	Total int
}
