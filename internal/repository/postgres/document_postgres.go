package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const documentColumns = `id, name, type, size, path, owner_id, category_id, shared_with, tags, is_favorite, is_deleted, deleted_at, created_at, updated_at, last_accessed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var (
		d          model.Document
		docType    string
		categoryID sql.NullString
		sharedWith []byte
		tags       []byte
		deletedAt  sql.NullTime
	)
	if err := row.Scan(
		&d.ID,
		&d.Name,
		&docType,
		&d.Size,
		&d.Path,
		&d.OwnerID,
		&categoryID,
		&sharedWith,
		&tags,
		&d.IsFavorite,
		&d.IsDeleted,
		&deletedAt,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.LastAccessedAt,
	); err != nil {
		return nil, err
	}
	d.Type = model.DocumentType(docType)
	if categoryID.Valid {
		d.CategoryID = &categoryID.String
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		d.DeletedAt = &t
	}
	if err := json.Unmarshal(sharedWith, &d.SharedWith); err != nil {
		return nil, fmt.Errorf("decode shared_with: %w", err)
	}
	if err := json.Unmarshal(tags, &d.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	return &d, nil
}

func encodeGrants(grants []model.ShareGrant) ([]byte, error) {
	if grants == nil {
		grants = []model.ShareGrant{}
	}
	return json.Marshal(grants)
}

func encodeTags(tags []string) ([]byte, error) {
	if tags == nil {
		tags = []string{}
	}
	return json.Marshal(tags)
}

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	grants, err := encodeGrants(doc.SharedWith)
	if err != nil {
		return nil, err
	}
	tags, err := encodeTags(doc.Tags)
	if err != nil {
		return nil, err
	}

	q := `
		INSERT INTO documents (id, name, type, size, path, owner_id, category_id, shared_with, tags, is_favorite, created_at, updated_at, last_accessed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11, $11)
		RETURNING ` + documentColumns
	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.Name,
		string(doc.Type),
		doc.Size,
		doc.Path,
		doc.OwnerID,
		nullable(doc.CategoryID),
		grants,
		tags,
		doc.IsFavorite,
		doc.CreatedAt,
	)
	return scanDocument(row)
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// FindByIDs fetches documents for the given IDs in one query. Missing IDs
// are absent from the result; row order is not meaningful.
func (r *DocumentPostgres) FindByIDs(ctx context.Context, ids []string) ([]model.Document, error) {
	if len(ids) == 0 {
		return []model.Document{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	q := `SELECT ` + documentColumns + ` FROM documents WHERE id IN (` + strings.Join(placeholders, ", ") + `)`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]model.Document, 0, len(ids))
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// Update applies the non-nil fields of upd and refreshes updated_at.
func (r *DocumentPostgres) Update(ctx context.Context, id string, upd repository.UpdateFields) (*model.Document, error) {
	sets := []string{"updated_at = now()"}
	args := []any{}
	n := 0
	next := func() string {
		n++
		return fmt.Sprintf("$%d", n)
	}

	if upd.Name != nil {
		sets = append(sets, "name = "+next())
		args = append(args, *upd.Name)
	}
	if upd.ClearCategory {
		sets = append(sets, "category_id = NULL")
	} else if upd.CategoryID != nil {
		sets = append(sets, "category_id = "+next())
		args = append(args, *upd.CategoryID)
	}
	if upd.Tags != nil {
		tags, err := encodeTags(*upd.Tags)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "tags = "+next())
		args = append(args, tags)
	}
	if upd.IsFavorite != nil {
		sets = append(sets, "is_favorite = "+next())
		args = append(args, *upd.IsFavorite)
	}
	if upd.SharedWith != nil {
		grants, err := encodeGrants(*upd.SharedWith)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "shared_with = "+next())
		args = append(args, grants)
	}

	q := `UPDATE documents SET ` + strings.Join(sets, ", ") + ` WHERE id = ` + next() + ` RETURNING ` + documentColumns
	args = append(args, id)

	return scanDocument(r.db.QueryRowContext(ctx, q, args...))
}

// Trash soft-deletes a document.
func (r *DocumentPostgres) Trash(ctx context.Context, id string) (*model.Document, error) {
	q := `
		UPDATE documents
		SET is_deleted = TRUE, deleted_at = now(), updated_at = now()
		WHERE id = $1
		RETURNING ` + documentColumns
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// Restore clears the trash fields of a document.
func (r *DocumentPostgres) Restore(ctx context.Context, id string) (*model.Document, error) {
	q := `
		UPDATE documents
		SET is_deleted = FALSE, deleted_at = NULL, updated_at = now()
		WHERE id = $1
		RETURNING ` + documentColumns
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// Purge hard-deletes a row. It does not return an error if the row does not exist.
func (r *DocumentPostgres) Purge(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	return err
}

// ListTrashed returns all trashed documents owned by ownerID, most recently
// trashed first.
func (r *DocumentPostgres) ListTrashed(ctx context.Context, ownerID string) ([]model.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE owner_id = $1 AND is_deleted = TRUE ORDER BY deleted_at DESC`
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// ListShared returns a page of active documents carrying a share grant for
// userID, newest first, with the total count.
func (r *DocumentPostgres) ListShared(ctx context.Context, userID string, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	grant, err := json.Marshal([]map[string]string{{"user_id": userID}})
	if err != nil {
		return nil, err
	}

	const qCount = `SELECT COUNT(*) FROM documents WHERE shared_with @> $1 AND is_deleted = FALSE`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount, grant).Scan(&total); err != nil {
		return nil, err
	}

	q := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE shared_with @> $1 AND is_deleted = FALSE
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, q, grant, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Document]{Items: items, Total: total}, nil
}

// TouchLastAccessed refreshes last_accessed_at on a read-by-id.
func (r *DocumentPostgres) TouchLastAccessed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE documents SET last_accessed_at = now() WHERE id = $1`, id)
	return err
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
