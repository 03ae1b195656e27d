package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var docCols = []string{
	"id", "name", "type", "size", "path", "owner_id", "category_id",
	"shared_with", "tags", "is_favorite", "is_deleted", "deleted_at",
	"created_at", "updated_at", "last_accessed_at",
}

func docRow(id, owner string, deleted bool) []driverValue {
	now := time.Now().UTC()
	var deletedAt any
	if deleted {
		deletedAt = now
	}
	return []driverValue{
		id, "report.pdf", "pdf", int64(123), "documents/" + owner + "/" + id + ".pdf", owner,
		nil, []byte(`[]`), []byte(`["q3","finance"]`), false, deleted, deletedAt,
		now, now, now,
	}
}

type driverValue = driver.Value

func addDocRow(rows *sqlmock.Rows, vals []driverValue) *sqlmock.Rows {
	return rows.AddRow(vals...)
}

func TestDocumentPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	now := time.Now().UTC()
	doc := &model.Document{
		ID:        "doc-1",
		Name:      "report.pdf",
		Type:      model.TypePDF,
		Size:      123,
		Path:      "documents/u1/doc-1.pdf",
		OwnerID:   "u1",
		CreatedAt: now,
	}

	rows := addDocRow(sqlmock.NewRows(docCols), docRow("doc-1", "u1", false))

	mock.ExpectQuery("INSERT INTO documents").
		WithArgs("doc-1", "report.pdf", "pdf", int64(123), "documents/u1/doc-1.pdf", "u1", nil, []byte(`[]`), []byte(`[]`), false, now).
		WillReturnRows(rows)

	result, err := repo.Create(ctx, doc)

	assert.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "doc-1", result.ID)
	assert.Equal(t, model.TypePDF, result.Type)
	assert.Equal(t, []string{"q3", "finance"}, result.Tags)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		rows := addDocRow(sqlmock.NewRows(docCols), docRow("doc-1", "u1", false))
		mock.ExpectQuery("SELECT (.+) FROM documents WHERE id = ?").
			WithArgs("doc-1").
			WillReturnRows(rows)

		doc, err := repo.FindByID(ctx, "doc-1")

		assert.NoError(t, err)
		require.NotNil(t, doc)
		assert.Equal(t, "doc-1", doc.ID)
		assert.False(t, doc.IsDeleted)
		assert.Nil(t, doc.DeletedAt)
	})

	t.Run("trashed row carries deleted_at", func(t *testing.T) {
		rows := addDocRow(sqlmock.NewRows(docCols), docRow("doc-2", "u1", true))
		mock.ExpectQuery("SELECT (.+) FROM documents WHERE id = ?").
			WithArgs("doc-2").
			WillReturnRows(rows)

		doc, err := repo.FindByID(ctx, "doc-2")

		assert.NoError(t, err)
		require.NotNil(t, doc)
		assert.True(t, doc.IsDeleted)
		assert.NotNil(t, doc.DeletedAt)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM documents WHERE id = ?").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		doc, err := repo.FindByID(ctx, "missing")

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, doc)
	})
}

func TestDocumentPostgres_FindByIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	t.Run("batch lookup", func(t *testing.T) {
		rows := sqlmock.NewRows(docCols)
		rows = addDocRow(rows, docRow("doc-1", "u1", false))
		rows = addDocRow(rows, docRow("doc-2", "u1", false))

		mock.ExpectQuery("SELECT (.+) FROM documents WHERE id IN").
			WithArgs("doc-1", "doc-2", "doc-3").
			WillReturnRows(rows)

		// doc-3 has no row; it is simply absent from the result.
		docs, err := repo.FindByIDs(ctx, []string{"doc-1", "doc-2", "doc-3"})

		assert.NoError(t, err)
		assert.Len(t, docs, 2)
	})

	t.Run("empty id list short-circuits", func(t *testing.T) {
		docs, err := repo.FindByIDs(ctx, nil)
		assert.NoError(t, err)
		assert.Empty(t, docs)
	})
}

func TestDocumentPostgres_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	name := "renamed.pdf"
	fav := true

	rows := addDocRow(sqlmock.NewRows(docCols), docRow("doc-1", "u1", false))
	mock.ExpectQuery("UPDATE documents SET updated_at = now\\(\\), name = (.+), is_favorite = (.+) WHERE id = (.+) RETURNING").
		WithArgs("renamed.pdf", true, "doc-1").
		WillReturnRows(rows)

	doc, err := repo.Update(ctx, "doc-1", repository.UpdateFields{Name: &name, IsFavorite: &fav})

	assert.NoError(t, err)
	require.NotNil(t, doc)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_TrashRestore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	t.Run("trash", func(t *testing.T) {
		rows := addDocRow(sqlmock.NewRows(docCols), docRow("doc-1", "u1", true))
		mock.ExpectQuery("UPDATE documents\\s+SET is_deleted = TRUE").
			WithArgs("doc-1").
			WillReturnRows(rows)

		doc, err := repo.Trash(ctx, "doc-1")

		assert.NoError(t, err)
		require.NotNil(t, doc)
		assert.True(t, doc.IsDeleted)
	})

	t.Run("restore", func(t *testing.T) {
		rows := addDocRow(sqlmock.NewRows(docCols), docRow("doc-1", "u1", false))
		mock.ExpectQuery("UPDATE documents\\s+SET is_deleted = FALSE").
			WithArgs("doc-1").
			WillReturnRows(rows)

		doc, err := repo.Restore(ctx, "doc-1")

		assert.NoError(t, err)
		require.NotNil(t, doc)
		assert.False(t, doc.IsDeleted)
		assert.Nil(t, doc.DeletedAt)
	})

	t.Run("trash missing row", func(t *testing.T) {
		mock.ExpectQuery("UPDATE documents\\s+SET is_deleted = TRUE").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.Trash(ctx, "missing")
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})
}

func TestDocumentPostgres_Purge(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	t.Run("deletes row", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM documents WHERE id = ?").
			WithArgs("doc-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Purge(ctx, "doc-1"))
	})

	t.Run("absent row is not an error", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM documents WHERE id = ?").
			WithArgs("missing").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.NoError(t, repo.Purge(ctx, "missing"))
	})

	t.Run("db error propagates", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM documents WHERE id = ?").
			WithArgs("doc-1").
			WillReturnError(errors.New("conn refused"))

		assert.Error(t, repo.Purge(ctx, "doc-1"))
	})
}

func TestDocumentPostgres_ListTrashed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	rows := addDocRow(sqlmock.NewRows(docCols), docRow("doc-1", "u1", true))
	mock.ExpectQuery("SELECT (.+) FROM documents WHERE owner_id = (.+) AND is_deleted = TRUE").
		WithArgs("u1").
		WillReturnRows(rows)

	docs, err := repo.ListTrashed(ctx, "u1")

	assert.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.True(t, docs[0].IsDeleted)
}

func TestDocumentPostgres_ListShared(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	grant := []byte(`[{"user_id":"u2"}]`)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM documents WHERE shared_with").
		WithArgs(grant).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	rows := addDocRow(sqlmock.NewRows(docCols), docRow("doc-1", "u1", false))
	mock.ExpectQuery("SELECT (.+) FROM documents\\s+WHERE shared_with").
		WithArgs(grant, 10, 0).
		WillReturnRows(rows)

	res, err := repo.ListShared(ctx, "u2", repository.PageQuery{Limit: 10, Offset: 0})

	assert.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Len(t, res.Items, 1)
}

func TestDocumentPostgres_TouchLastAccessed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	mock.ExpectExec("UPDATE documents SET last_accessed_at = now\\(\\)").
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.TouchLastAccessed(ctx, "doc-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
