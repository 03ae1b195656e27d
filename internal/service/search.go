package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/search"
)

const (
	defaultLimit = 10
	maxLimit     = 100
	defaultSort  = "created_at:desc"
)

// sortableFields are the fields a caller may sort on.
var sortableFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"name":       true,
}

// filterableFields maps caller-filterable fields to their accepted
// operators. owner_id and is_deleted are deliberately absent: they are
// reserved for the mandatory scope and any attempt to supply them is
// rejected rather than silently overridden.
var filterableFields = map[string][]search.Op{
	"type":        {search.OpEq},
	"category_id": {search.OpEq},
	"is_favorite": {search.OpEq},
	"created_at":  {search.OpGte, search.OpLte},
}

// FilterClause is a caller-supplied filter condition. Clauses are ANDed
// with each other and with the mandatory scope.
type FilterClause struct {
	Field string
	Op    search.Op
	Value string
}

// SearchRequest is a user-scoped search query.
type SearchRequest struct {
	Query   string
	Filters []FilterClause
	Sort    string
	Page    int `validate:"gte=1"`
	Limit   int `validate:"gte=1,lte=100"`
}

// SearchResult is one page of ranked, hydrated documents.
type SearchResult struct {
	Documents []model.Document `json:"documents"`
	Page      int              `json:"page"`
	Pages     int              `json:"pages"`
	Total     int              `json:"total"`
}

// SearchService routes search queries: index for ranking, primary store
// for the records.
type SearchService interface {
	Search(ctx context.Context, p model.Principal, req SearchRequest) (*SearchResult, error)
}

type queryRouter struct {
	idx      search.Index
	repo     repository.DocumentRepository
	validate *validator.Validate
	log      *zap.Logger
}

// NewSearchService constructs the query router.
func NewSearchService(idx search.Index, repo repository.DocumentRepository, log *zap.Logger) SearchService {
	if log == nil {
		log = zap.NewNop()
	}
	return &queryRouter{
		idx:      idx,
		repo:     repo,
		validate: validator.New(),
		log:      log,
	}
}

// scope is the authorization filter: the mandatory conjuncts injected
// into every index query. Search is owner-scoped; shared documents
// surface through the shared-with-me listing, not through search.
func scope(callerID string) []search.Predicate {
	return []search.Predicate{
		search.Eq("owner_id", callerID),
		search.Eq("is_deleted", false),
	}
}

func (r *queryRouter) Search(ctx context.Context, p model.Principal, req SearchRequest) (*SearchResult, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.Limit == 0 {
		req.Limit = defaultLimit
	}
	if req.Sort == "" {
		req.Sort = defaultSort
	}

	if err := r.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	sort, err := parseSort(req.Sort)
	if err != nil {
		return nil, err
	}
	preds, err := buildPredicates(req.Filters)
	if err != nil {
		return nil, err
	}

	q := search.Query{
		Text:    req.Query,
		Filters: append(scope(p.ID), preds...),
		Sort:    sort,
		Limit:   int64(req.Limit),
		Offset:  int64(req.Page-1) * int64(req.Limit),
	}

	res, err := r.idx.Query(ctx, q)
	if err != nil {
		// No fallback to a primary-store scan: that would bypass the
		// index's ranking and pagination contract.
		r.log.Error("search_query_failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}

	docs, err := r.hydrate(ctx, p, res.IDs)
	if err != nil {
		return nil, err
	}

	total := int(res.TotalEstimate)
	pages := (total + req.Limit - 1) / req.Limit

	return &SearchResult{
		Documents: docs,
		Page:      req.Page,
		Pages:     pages,
		Total:     total,
	}, nil
}

// hydrate re-fetches full records for the index's ids and reorders them
// to the index's ranking. Ids the primary store no longer returns, ids
// owned by someone else and trashed ids are dropped silently: they are
// stale index entries or a trash/query race, never caller-visible data.
func (r *queryRouter) hydrate(ctx context.Context, p model.Principal, ids []string) ([]model.Document, error) {
	if len(ids) == 0 {
		return []model.Document{}, nil
	}

	records, err := r.repo.FindByIDs(ctx, ids)
	if err != nil {
		r.log.Error("search_hydration_failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrHydrationFailed, err)
	}

	byID := make(map[string]model.Document, len(records))
	for _, d := range records {
		byID[d.ID] = d
	}

	docs := make([]model.Document, 0, len(ids))
	for _, id := range ids {
		d, ok := byID[id]
		if !ok || d.OwnerID != p.ID || d.IsDeleted {
			continue
		}
		docs = append(docs, d)
	}
	return docs, nil
}

func parseSort(s string) (search.Sort, error) {
	field, dir, found := strings.Cut(s, ":")
	if !found {
		return search.Sort{}, fmt.Errorf("%w: sort must be field:direction", ErrValidation)
	}
	if !sortableFields[field] {
		return search.Sort{}, fmt.Errorf("%w: cannot sort on %q", ErrValidation, field)
	}
	switch dir {
	case "asc":
		return search.Sort{Field: field}, nil
	case "desc":
		return search.Sort{Field: field, Desc: true}, nil
	default:
		return search.Sort{}, fmt.Errorf("%w: unknown sort direction %q", ErrValidation, dir)
	}
}

func buildPredicates(clauses []FilterClause) ([]search.Predicate, error) {
	preds := make([]search.Predicate, 0, len(clauses))
	for _, c := range clauses {
		ops, ok := filterableFields[c.Field]
		if !ok {
			return nil, fmt.Errorf("%w: filtering on %q is not allowed", ErrValidation, c.Field)
		}
		if !opAllowed(ops, c.Op) {
			return nil, fmt.Errorf("%w: operator %q not allowed for %q", ErrValidation, c.Op, c.Field)
		}

		value, err := typedValue(c)
		if err != nil {
			return nil, err
		}
		preds = append(preds, search.Predicate{Field: c.Field, Op: c.Op, Value: value})
	}
	return preds, nil
}

func typedValue(c FilterClause) (any, error) {
	switch c.Field {
	case "type":
		if !model.DocumentType(c.Value).Valid() {
			return nil, fmt.Errorf("%w: unknown document type %q", ErrValidation, c.Value)
		}
		return c.Value, nil
	case "is_favorite":
		b, err := strconv.ParseBool(c.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: is_favorite must be a boolean", ErrValidation)
		}
		return b, nil
	case "created_at":
		ts, err := strconv.ParseInt(c.Value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: created_at bounds must be unix seconds", ErrValidation)
		}
		return ts, nil
	default:
		return c.Value, nil
	}
}

func opAllowed(ops []search.Op, op search.Op) bool {
	for _, o := range ops {
		if o == op {
			return true
		}
	}
	return false
}
