package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/meilisearch/meilisearch-go"

	"docvault/internal/config"
)

// Searchable, filterable and sortable attribute sets configured on the
// index at startup. The filterable set must cover every field the query
// router is allowed to build predicates over, plus the two mandatory
// scoping fields.
var (
	searchableAttributes = []string{"name", "tags"}
	filterableAttributes = []string{"owner_id", "type", "category_id", "is_favorite", "is_deleted", "created_at", "updated_at"}
	sortableAttributes   = []string{"created_at", "updated_at", "name"}
)

// MeiliIndex implements Index against a Meilisearch server. The client
// is constructed once at startup and injected wherever index access is
// needed; it is safe for concurrent use.
type MeiliIndex struct {
	client  meilisearch.ServiceManager
	index   meilisearch.IndexManager
	timeout time.Duration
}

var _ Index = (*MeiliIndex)(nil)

// NewMeili creates the search index client and pushes the index settings:
// attribute lists above and typo tolerance allowing one typo for terms of
// 5+ characters and two for 9+. Exact filter predicates are never fuzzy.
func NewMeili(cfg config.MeiliConfig) (*MeiliIndex, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("meilisearch host is required")
	}

	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	client := meilisearch.New(cfg.Host, meilisearch.WithAPIKey(cfg.APIKey))
	m := &MeiliIndex{
		client:  client,
		index:   client.Index(cfg.IndexUID),
		timeout: timeout,
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	settings := &meilisearch.Settings{
		SearchableAttributes: searchableAttributes,
		FilterableAttributes: filterableAttributes,
		SortableAttributes:   sortableAttributes,
		TypoTolerance: &meilisearch.TypoTolerance{
			Enabled: true,
			MinWordSizeForTypos: meilisearch.MinWordSizeForTypos{
				OneTypo:  5,
				TwoTypos: 9,
			},
		},
	}
	if _, err := m.index.UpdateSettingsWithContext(ctx, settings); err != nil {
		return nil, fmt.Errorf("apply index settings: %w", err)
	}

	return m, nil
}

// Upsert inserts or fully replaces the projection keyed by its id.
func (m *MeiliIndex) Upsert(ctx context.Context, p Projection) error {
	ctx, cancel := m.bound(ctx)
	defer cancel()

	if _, err := m.index.AddDocumentsWithContext(ctx, []Projection{p}, "id"); err != nil {
		return fmt.Errorf("index upsert %s: %w", p.ID, err)
	}
	return nil
}

// Remove deletes the projection for id. Removing an absent id is a no-op
// on the engine side, so no existence check is made.
func (m *MeiliIndex) Remove(ctx context.Context, id string) error {
	ctx, cancel := m.bound(ctx)
	defer cancel()

	if _, err := m.index.DeleteDocumentWithContext(ctx, id); err != nil {
		return fmt.Errorf("index remove %s: %w", id, err)
	}
	return nil
}

// Query runs a ranked search and returns the ordered id list plus the
// engine's estimated total.
func (m *MeiliIndex) Query(ctx context.Context, q Query) (*Result, error) {
	ctx, cancel := m.bound(ctx)
	defer cancel()

	req := &meilisearch.SearchRequest{
		Offset:               q.Offset,
		Limit:                q.Limit,
		AttributesToRetrieve: []string{"id"},
	}
	if expr := renderFilter(q.Filters); expr != "" {
		req.Filter = expr
	}
	if q.Sort.Field != "" {
		req.Sort = []string{renderSort(q.Sort)}
	}

	resp, err := m.index.SearchWithContext(ctx, q.Text, req)
	if err != nil {
		return nil, fmt.Errorf("index query: %w", err)
	}

	ids := make([]string, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		fields, ok := hit.(map[string]any)
		if !ok {
			continue
		}
		if id, ok := fields["id"].(string); ok {
			ids = append(ids, id)
		}
	}

	return &Result{IDs: ids, TotalEstimate: resp.EstimatedTotalHits}, nil
}

func (m *MeiliIndex) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.timeout)
}

// renderFilter builds the engine filter expression for a conjunction of
// predicates. String values are quoted and escaped; bools and numbers
// are rendered bare so the engine compares them as typed values.
func renderFilter(preds []Predicate) string {
	if len(preds) == 0 {
		return ""
	}
	parts := make([]string, 0, len(preds))
	for _, p := range preds {
		parts = append(parts, fmt.Sprintf("%s %s %s", p.Field, p.Op, renderValue(p.Value)))
	}
	return strings.Join(parts, " AND ")
}

func renderValue(v any) string {
	switch val := v.(type) {
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case string:
		return strconv.Quote(val)
	default:
		return strconv.Quote(fmt.Sprintf("%v", val))
	}
}

func renderSort(s Sort) string {
	dir := "asc"
	if s.Desc {
		dir = "desc"
	}
	return s.Field + ":" + dir
}
