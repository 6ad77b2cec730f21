package search

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/FAU-CDI/skosd/internal/ns"
	"github.com/FAU-CDI/skosd/internal/resource"
	"github.com/FAU-CDI/skosd/internal/sqlitey"
	"github.com/huandu/go-sqlbuilder"
)

// MaxRows is the maximal number of rows returned by a single search.
const MaxRows = 1000

// DefaultRows is the number of rows returned when a query does not specify any.
const DefaultRows = 20

// Query is a search against the index.
type Query struct {
	Text   string // matched case-insensitively against all labels, empty matches everything
	Prefix bool   // match Text only at the start of labels

	Type     string
	Tenants  []string
	Sets     []string
	Schemes  []string
	Statuses []string // when empty, deleted documents are excluded

	Start int
	Rows  int
}

// rows returns the number of rows to return for q.
func (q Query) rows() int {
	switch {
	case q.Rows < 1:
		return DefaultRows
	case q.Rows > MaxRows:
		return MaxRows
	}
	return q.Rows
}

// ErrUnknownField is returned by GetMaxFieldValue for fields that are not indexed.
var ErrUnknownField = errors.New("unknown field")

// Fields that can be passed to GetMaxFieldValue.
const (
	FieldNumericNotation = numericNotationColumn
	FieldNotation        = notationColumn
	FieldSortLabel       = sortColumn
)

// Filter restricts documents by exact values, empty fields do not restrict.
type Filter struct {
	Type   string
	Tenant string
	Set    string
	Status string
}

func (f Filter) where(sb *sqlbuilder.SelectBuilder) {
	for _, cv := range [][2]string{
		{typeColumn, f.Type},
		{tenantColumn, f.Tenant},
		{setColumn, f.Set},
		{statusColumn, f.Status},
	} {
		if cv[1] != "" {
			sb.Where(sb.Equal(cv[0], cv[1]))
		}
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// like returns a condition matching lowercase label values against text.
func (index *Index) like(sb *sqlbuilder.SelectBuilder, text string, prefix bool) string {
	pattern := likeEscaper.Replace(lower(text)) + "%"
	if !prefix {
		pattern = "%" + pattern
	}

	escape := ` ESCAPE '\'`
	if index.flavor == sqlbuilder.MySQL {
		escape = ` ESCAPE '\\'`
	}
	return lowerColumn + " LIKE " + sb.Var(pattern) + escape
}

// where adds the conditions of q to a select from the documents table.
func (index *Index) where(sb *sqlbuilder.SelectBuilder, q Query) {
	if q.Type != "" {
		sb.Where(sb.Equal(typeColumn, q.Type))
	}
	if len(q.Tenants) > 0 {
		sb.Where(sb.In(tenantColumn, sqlitey.Any(q.Tenants)...))
	}
	if len(q.Sets) > 0 {
		sb.Where(sb.In(setColumn, sqlitey.Any(q.Sets)...))
	}
	if len(q.Statuses) > 0 {
		sb.Where(sb.In(statusColumn, sqlitey.Any(q.Statuses)...))
	} else {
		sb.Where(sb.Or(sb.IsNull(statusColumn), sb.NotEqual(statusColumn, resource.StatusDeleted)))
	}

	if len(q.Schemes) > 0 {
		sub := index.flavor.NewSelectBuilder()
		sub.Select(uriColumn).From(schemesTable)
		sub.Where(sub.In(schemeColumn, sqlitey.Any(q.Schemes)...))
		sb.Where(sb.In(uriColumn, sub))
	}

	if q.Text != "" {
		sub := index.flavor.NewSelectBuilder()
		sub.Select(uriColumn).From(labelsTable)
		sub.Where(index.like(sub, q.Text, q.Prefix))
		sb.Where(sb.In(uriColumn, sub))
	}
}

// Search returns the uris of a page of documents matching q, and the total number of matches.
// Documents are ordered by their first preferred label, then by uri.
func (index *Index) Search(ctx context.Context, q Query) (uris []string, total int, err error) {
	metricSearches.WithLabelValues("search").Inc()

	count := index.flavor.NewSelectBuilder()
	count.Select("COUNT(*)").From(documentsTable)
	index.where(count, q)

	if err := sqlitey.Row(ctx, index.db, count, &total); err != nil {
		return nil, 0, err
	}

	page := index.flavor.NewSelectBuilder()
	page.Select(uriColumn).From(documentsTable)
	index.where(page, q)
	page.OrderBy(sortColumn, uriColumn).Asc()
	page.Limit(q.rows()).Offset(max(q.Start, 0))

	uris, err = sqlitey.Column[string](ctx, index.db, page)
	if err != nil {
		return nil, 0, err
	}
	return uris, total, nil
}

// AutoComplete returns distinct preferred labels starting with q.Text.
// Only labels of documents matching q are returned.
func (index *Index) AutoComplete(ctx context.Context, q Query) ([]string, error) {
	metricSearches.WithLabelValues("autocomplete").Inc()

	text := q.Text
	q.Text = ""

	docs := index.flavor.NewSelectBuilder()
	docs.Select(uriColumn).From(documentsTable)
	index.where(docs, q)

	sb := index.flavor.NewSelectBuilder()
	sb.Select(valueColumn).Distinct().From(labelsTable)
	sb.Where(sb.Equal(fieldColumn, ns.PrefLabel), sb.In(uriColumn, docs))
	if text != "" {
		sb.Where(index.like(sb, text, true))
	}
	sb.OrderBy(valueColumn).Asc()
	sb.Limit(q.rows())

	return sqlitey.Column[string](ctx, index.db, sb)
}

// DoesMatchingPrefLabelExist checks if a concept that is not deleted has the given preferred label.
// Labels are compared case-insensitively.
func (index *Index) DoesMatchingPrefLabelExist(ctx context.Context, label string) (bool, error) {
	metricSearches.WithLabelValues("preflabel").Inc()

	docs := index.flavor.NewSelectBuilder()
	docs.Select(uriColumn).From(documentsTable)
	index.where(docs, Query{Type: ns.Concept})

	sb := index.flavor.NewSelectBuilder()
	sb.Select("COUNT(*)").From(labelsTable)
	sb.Where(
		sb.Equal(fieldColumn, ns.PrefLabel),
		sb.Equal(lowerColumn, lower(label)),
		sb.In(uriColumn, docs),
	)

	var count int
	if err := sqlitey.Row(ctx, index.db, sb, &count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetMaxFieldValue returns the maximal value of field among documents matching filter.
// When no document has a value, returns the empty string.
func (index *Index) GetMaxFieldValue(ctx context.Context, filter Filter, field string) (string, error) {
	switch field {
	case FieldNumericNotation, FieldNotation, FieldSortLabel:
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownField, field)
	}
	metricSearches.WithLabelValues("max").Inc()

	sb := index.flavor.NewSelectBuilder()
	sb.Select("MAX(" + field + ")").From(documentsTable)
	filter.where(sb)

	var value sql.NullString
	if err := sqlitey.Row(ctx, index.db, sb, &value); err != nil {
		return "", err
	}
	return value.String, nil
}

// Len returns the number of indexed documents.
func (index *Index) Len(ctx context.Context) (count int, err error) {
	sb := index.flavor.NewSelectBuilder()
	sb.Select("COUNT(*)").From(documentsTable)

	err = sqlitey.Row(ctx, index.db, sb, &count)
	return
}

func lower(s string) string {
	return strings.ToLower(s)
}
