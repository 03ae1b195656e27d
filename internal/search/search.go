package search

import (
	"context"

	"docvault/internal/model"
)

// Projection is the denormalized subset of a document stored in the
// search index for ranking and filtering. It is derived, eventually
// consistent state: the synchronizer is the only writer, and the index
// must contain a projection iff the document is active.
//
// Timestamps are unix seconds so the engine can range-filter and sort
// on them without a date type.
type Projection struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Tags       []string `json:"tags"`
	OwnerID    string   `json:"owner_id"`
	CategoryID string   `json:"category_id,omitempty"`
	IsFavorite bool     `json:"is_favorite"`
	IsDeleted  bool     `json:"is_deleted"`
	CreatedAt  int64    `json:"created_at"`
	UpdatedAt  int64    `json:"updated_at"`
}

// ProjectionOf builds a fresh projection from a canonical record.
func ProjectionOf(doc *model.Document) Projection {
	p := Projection{
		ID:         doc.ID,
		Name:       doc.Name,
		Type:       string(doc.Type),
		Tags:       doc.Tags,
		OwnerID:    doc.OwnerID,
		IsFavorite: doc.IsFavorite,
		IsDeleted:  doc.IsDeleted,
		CreatedAt:  doc.CreatedAt.Unix(),
		UpdatedAt:  doc.UpdatedAt.Unix(),
	}
	if doc.CategoryID != nil {
		p.CategoryID = *doc.CategoryID
	}
	return p
}

// Op is a filter comparison operator. Filter predicates are always
// exact; only the free-text part of a query is typo tolerant.
type Op string

const (
	OpEq  Op = "="
	OpGte Op = ">="
	OpLte Op = "<="
)

// Predicate is a single filter condition. A query's predicates are
// combined as a conjunction.
type Predicate struct {
	Field string
	Op    Op
	Value any
}

// Eq builds an equality predicate.
func Eq(field string, value any) Predicate {
	return Predicate{Field: field, Op: OpEq, Value: value}
}

// Sort orders results by a single sortable field.
type Sort struct {
	Field string
	Desc  bool
}

// Query is a ranked, filtered, paginated index query.
type Query struct {
	Text    string
	Filters []Predicate
	Sort    Sort
	Limit   int64
	Offset  int64
}

// Result is the ordered id list returned by the index. The order is the
// engine's ranking and must be preserved through hydration. The total is
// an estimate; the primary store remains authoritative for record state.
type Result struct {
	IDs           []string
	TotalEstimate int64
}

// Index is the search index adapter. Upsert and Remove are idempotent:
// upserting an existing id replaces the projection, removing an absent
// id is not an error.
type Index interface {
	Upsert(ctx context.Context, p Projection) error
	Remove(ctx context.Context, id string) error
	Query(ctx context.Context, q Query) (*Result, error)
}
