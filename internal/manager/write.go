package manager

import (
	"context"
	"fmt"

	"github.com/FAU-CDI/skosd/internal/bridge"
	"github.com/FAU-CDI/skosd/internal/ns"
	"github.com/FAU-CDI/skosd/internal/resource"
	"github.com/FAU-CDI/skosd/internal/sparql"
	"github.com/cayleygraph/quad"
)

// Insert inserts a new resource into the store.
//
// When a resource with the same uri already exists, returns ErrAlreadyExists.
// This includes soft-deleted resources.
// When the manager has a type and r has none, the type is added to r.
func (m *Manager) Insert(ctx context.Context, r resource.Entity) error {
	uri, err := m.prepare(r)
	if err != nil {
		return err
	}

	exists, err := m.AskForURI(ctx, uri, false, "")
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, uri)
	}

	graph, err := bridge.Graph(r)
	if err != nil {
		return err
	}
	return m.insertWithRetry(ctx, "insert", graph)
}

// InsertCollection inserts all resources using a single store request.
//
// Every resource is checked for existence first.
// When any of them exists, nothing is inserted.
func (m *Manager) InsertCollection(ctx context.Context, rs resource.Collection) error {
	for _, r := range rs {
		uri, err := m.prepare(r)
		if err != nil {
			return err
		}

		exists, err := m.AskForURI(ctx, uri, false, "")
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, uri)
		}
	}

	if len(rs) == 0 {
		return nil
	}

	graph, err := bridge.Graph(rs...)
	if err != nil {
		return err
	}
	return m.insertWithRetry(ctx, "insert", graph)
}

// Extend adds the triples of r to the store, without checking if r already exists.
// Existing triples of r are kept.
func (m *Manager) Extend(ctx context.Context, r resource.Entity) error {
	if r.Res().IsBlank() {
		return ErrBlank
	}

	graph, err := bridge.Graph(r)
	if err != nil {
		return err
	}
	return m.insertWithRetry(ctx, "extend", graph)
}

// Replace replaces all triples of r in the store.
//
// The old triples are deleted and the new ones inserted in a single request.
// The store may still apply both steps separately.
// When the insert fails, r is absent from the store and nothing is restored.
func (m *Manager) Replace(ctx context.Context, r resource.Entity) error {
	uri, err := m.prepare(r)
	if err != nil {
		return err
	}

	graph, err := bridge.Graph(r)
	if err != nil {
		return err
	}
	return m.update(ctx, "replace", sparql.Replace(uri, graph))
}

// DeleteSoft marks r as deleted and replaces it in the store.
// deletedBy is the uri of the deleting person, and may be empty.
func (m *Manager) DeleteSoft(ctx context.Context, r resource.Entity, deletedBy string) error {
	r.Res().MarkDeleted(m.now(), deletedBy)
	return m.Replace(ctx, r)
}

// Delete removes all triples with the given subject.
//
// Triples referring to uri as an object are kept, see DeleteReferencesToObject.
func (m *Manager) Delete(ctx context.Context, uri string) error {
	return m.update(ctx, "delete", sparql.Update{
		sparql.DeleteWhere(sparql.T(sparql.IRI(uri), sparql.Var("predicate"), object)),
	})
}

// DeleteBy removes all triples of every resource matching all patterns.
// Patterns use SubjectVar to refer to the deleted resources.
func (m *Manager) DeleteBy(ctx context.Context, patterns []sparql.Triple) error {
	if len(patterns) == 0 {
		return ErrNoPatterns
	}

	where := make([]sparql.Triple, 0, len(patterns)+1)
	where = append(where, patterns...)
	where = append(where, sparql.T(subject, sparql.Var("predicate"), object))

	return m.update(ctx, "delete", sparql.Update{sparql.DeleteWhere(where...)})
}

// DeleteMatchingTriples removes all triples matching subject, predicate and object.
// An empty subject or predicate, or a nil object, matches anything.
func (m *Manager) DeleteMatchingTriples(ctx context.Context, subjectURI, predicate string, value resource.Value) error {
	s := subject
	if subjectURI != "" {
		s = sparql.IRI(subjectURI)
	}

	p := sparql.Var("predicate")
	if predicate != "" {
		p = sparql.IRI(predicate)
	}

	o := object
	if value != nil {
		term, ok := bridge.FromValue(value)
		if !ok {
			return ErrBlank
		}
		o = sparql.Term(term)
	}

	return m.update(ctx, "delete", sparql.Update{sparql.DeleteWhere(sparql.T(s, p, o))})
}

// DeleteReferencesToObject removes all triples with uri as object.
func (m *Manager) DeleteReferencesToObject(ctx context.Context, uri string) error {
	return m.update(ctx, "delete", sparql.Update{
		sparql.DeleteWhere(sparql.T(subject, sparql.Var("predicate"), sparql.IRI(uri))),
	})
}

// prepare checks that r can be written and adds the managed type if needed.
func (m *Manager) prepare(r resource.Entity) (uri string, err error) {
	res := r.Res()
	if res.IsBlank() {
		return "", ErrBlank
	}
	if m.typ != "" && !res.Has(ns.Type) {
		res.Set(ns.Type, resource.URI(m.typ))
	}
	return res.URI(), nil
}

// insertWithRetry inserts graph, retrying on timeouts with the insert sleep.
func (m *Manager) insertWithRetry(ctx context.Context, kind string, graph []quad.Quad) error {
	metricUpdates.WithLabelValues(kind).Inc()

	if err := sparql.CheckGraph(graph); err != nil {
		return fmt.Errorf("failed to %s: %w", kind, err)
	}

	_, err := retry(ctx, m, m.config.InsertSleep, func() (struct{}, error) {
		return struct{}{}, m.client.Insert(ctx, graph)
	})
	if err != nil {
		m.status.LogError("insert", err, "kind", kind, "triples", len(graph))
		return fmt.Errorf("failed to %s: %w", kind, err)
	}
	return nil
}
