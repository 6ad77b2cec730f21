// Package search implements the search index on top of an sql database.
//
// The index is a secondary, eventually consistent copy of the store.
// It serves full text search, autocomplete and fast uniqueness checks.
// Nothing ever waits for the index to become consistent with the store.
package search

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/FAU-CDI/skosd/internal/sqlitey"
	"github.com/huandu/go-sqlbuilder"
)

const (
	documentsTable = "documents"
	labelsTable    = "labels"
	schemesTable   = "schemes"

	uriColumn             = "uri"
	typeColumn            = "type"
	tenantColumn          = "tenant"
	setColumn             = "set_uri"
	statusColumn          = "status"
	notationColumn        = "notation"
	numericNotationColumn = "max_numeric_notation"
	sortColumn            = "sort_label"

	fieldColumn    = "field"
	languageColumn = "language"
	valueColumn    = "value"
	lowerColumn    = "lower_value"
	schemeColumn   = "scheme"
)

// batchSize is the number of documents written per statement.
// It keeps statements below the sqlite limit on query variables.
const batchSize = 200

// Index is a search index stored in an sql database.
//
// Writes are applied immediately, unless SetNoCommit(true) has been called.
// In that case they are buffered until the next call to Commit.
type Index struct {
	db     *sql.DB
	flavor sqlbuilder.Flavor

	m        sync.Mutex
	noCommit bool
	pending  []pendingOp
}

// pendingOp is a buffered write.
type pendingOp struct {
	remove []string   // uris to remove
	index  []Document // documents to (re-)index
}

// New creates a new index on db and creates the tables it needs.
func New(ctx context.Context, db *sql.DB, flavor sqlbuilder.Flavor) (*Index, error) {
	index := &Index{db: db, flavor: flavor}
	if err := index.createTables(ctx); err != nil {
		return nil, fmt.Errorf("failed to create index tables: %w", err)
	}
	return index, nil
}

// Close closes the underlying database.
func (index *Index) Close() error {
	return index.db.Close()
}

func (index *Index) createTables(ctx context.Context) error {
	documents := index.flavor.NewCreateTableBuilder().CreateTable(documentsTable).IfNotExists()
	documents.Define(uriColumn, "VARCHAR(700)", "NOT NULL", "PRIMARY KEY")
	documents.Define(typeColumn, "TEXT")
	documents.Define(tenantColumn, "VARCHAR(255)")
	documents.Define(setColumn, "TEXT")
	documents.Define(statusColumn, "VARCHAR(64)")
	documents.Define(notationColumn, "TEXT")
	documents.Define(numericNotationColumn, "BIGINT")
	documents.Define(sortColumn, "TEXT")

	labels := index.flavor.NewCreateTableBuilder().CreateTable(labelsTable).IfNotExists()
	labels.Define(uriColumn, "VARCHAR(700)", "NOT NULL")
	labels.Define(fieldColumn, "VARCHAR(255)", "NOT NULL")
	labels.Define(languageColumn, "VARCHAR(32)")
	labels.Define(valueColumn, "TEXT")
	labels.Define(lowerColumn, "TEXT")

	schemes := index.flavor.NewCreateTableBuilder().CreateTable(schemesTable).IfNotExists()
	schemes.Define(uriColumn, "VARCHAR(700)", "NOT NULL")
	schemes.Define(schemeColumn, "VARCHAR(700)", "NOT NULL")

	return sqlitey.Exec(ctx, index.db, documents, labels, schemes)
}

// SetNoCommit enables or disables buffering of writes.
// Disabling buffering does not commit buffered writes.
func (index *Index) SetNoCommit(noCommit bool) {
	index.m.Lock()
	defer index.m.Unlock()

	index.noCommit = noCommit
}

// Index adds documents to the index, replacing any previous version.
func (index *Index) Index(ctx context.Context, docs ...Document) error {
	return index.write(ctx, pendingOp{index: docs})
}

// Remove removes the documents with the given uris from the index.
func (index *Index) Remove(ctx context.Context, uris ...string) error {
	return index.write(ctx, pendingOp{remove: uris})
}

// write applies op or buffers it.
func (index *Index) write(ctx context.Context, op pendingOp) error {
	index.m.Lock()
	if index.noCommit {
		index.pending = append(index.pending, op)
		index.m.Unlock()
		return nil
	}
	index.m.Unlock()

	return index.apply(ctx, []pendingOp{op})
}

// Commit applies all buffered writes in a single transaction.
func (index *Index) Commit(ctx context.Context) error {
	index.m.Lock()
	pending := index.pending
	index.pending = nil
	index.m.Unlock()

	if len(pending) == 0 {
		return nil
	}
	metricCommits.Inc()
	return index.apply(ctx, pending)
}

// apply performs ops inside a transaction.
func (index *Index) apply(ctx context.Context, ops []pendingOp) error {
	return sqlitey.Tx(ctx, index.db, func(tx *sql.Tx) error {
		for _, op := range ops {
			if err := index.remove(ctx, tx, op.remove); err != nil {
				return err
			}

			docs := latest(op.index)
			for start := 0; start < len(docs); start += batchSize {
				batch := docs[start:min(start+batchSize, len(docs))]

				uris := make([]string, len(batch))
				for i, doc := range batch {
					uris[i] = doc.URI
				}
				if err := index.remove(ctx, tx, uris); err != nil {
					return err
				}
				if err := index.insert(ctx, tx, batch); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// remove deletes all rows of uris.
func (index *Index) remove(ctx context.Context, tx *sql.Tx, uris []string) error {
	if len(uris) == 0 {
		return nil
	}

	for _, table := range []string{documentsTable, labelsTable, schemesTable} {
		del := index.flavor.NewDeleteBuilder().DeleteFrom(table)
		del.Where(del.In(uriColumn, sqlitey.Any(uris)...))
		if err := sqlitey.Exec(ctx, tx, del); err != nil {
			return err
		}
	}
	return nil
}

// insert inserts rows for docs.
func (index *Index) insert(ctx context.Context, tx *sql.Tx, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	documents := index.flavor.NewInsertBuilder().InsertInto(documentsTable)
	documents.Cols(uriColumn, typeColumn, tenantColumn, setColumn, statusColumn, notationColumn, numericNotationColumn, sortColumn)

	labels := index.flavor.NewInsertBuilder().InsertInto(labelsTable)
	labels.Cols(uriColumn, fieldColumn, languageColumn, valueColumn, lowerColumn)
	var labelCount int

	schemes := index.flavor.NewInsertBuilder().InsertInto(schemesTable)
	schemes.Cols(uriColumn, schemeColumn)
	var schemeCount int

	for _, doc := range docs {
		var numeric sql.NullInt64
		if doc.NumericNotation != nil {
			numeric = sql.NullInt64{Int64: *doc.NumericNotation, Valid: true}
		}
		documents.Values(doc.URI, doc.Type, doc.Tenant, doc.Set, doc.Status, doc.Notation, numeric, doc.sortLabel())

		for _, l := range doc.Labels {
			labels.Values(doc.URI, l.Field, l.Language, l.Value, lower(l.Value))
			labelCount++
		}
		for _, scheme := range doc.Schemes {
			schemes.Values(doc.URI, scheme)
			schemeCount++
		}
	}

	builders := []sqlbuilder.Builder{documents}
	if labelCount > 0 {
		builders = append(builders, labels)
	}
	if schemeCount > 0 {
		builders = append(builders, schemes)
	}
	return sqlitey.Exec(ctx, tx, builders...)
}

// latest removes all but the last document for each uri.
func latest(docs []Document) []Document {
	last := make(map[string]int, len(docs))
	for i, doc := range docs {
		last[doc.URI] = i
	}
	if len(last) == len(docs) {
		return docs
	}

	result := make([]Document, 0, len(last))
	for i, doc := range docs {
		if last[doc.URI] == i {
			result = append(result, doc)
		}
	}
	return result
}
