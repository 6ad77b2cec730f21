// Package triplestore implements an embedded triple store.
//
// The store evaluates the queries and updates modeled by package sparql directly,
// without going through SPARQL text.
// It is intended for development, testing and small vocabularies.
package triplestore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/FAU-CDI/skosd/internal/sparql"
	"github.com/FAU-CDI/skosd/internal/triplestore/imap"
	"github.com/cayleygraph/quad"
)

// Store is an embedded triple store.
// It is safe for concurrent use.
type Store struct {
	l        sync.RWMutex
	subjects imap.HashMap[string, []quad.Quad]
}

var _ sparql.Client = (*Store)(nil)

var (
	ErrClosed        = errors.New("triplestore: store is closed")
	ErrInvalidTriple = errors.New("triplestore: invalid triple")
	ErrUnboundDelete = errors.New("triplestore: delete pattern has unbound variables")
)

// Open opens a new store using the given engine.
func Open(engine Engine) (*Store, error) {
	subjects, err := engine.Subjects()
	if err != nil {
		return nil, fmt.Errorf("failed to open subject index: %w", err)
	}
	return &Store{subjects: subjects}, nil
}

// Close closes this store.
func (store *Store) Close() error {
	store.l.Lock()
	defer store.l.Unlock()

	if store.subjects == nil {
		return nil
	}

	err := store.subjects.Close()
	store.subjects = nil
	return err
}

// Query evaluates q.
func (store *Store) Query(ctx context.Context, q *sparql.Query) (*sparql.Result, error) {
	store.l.RLock()
	defer store.l.RUnlock()

	if store.subjects == nil {
		return nil, ErrClosed
	}

	e := evaluator{ctx: ctx, subjects: store.subjects}
	switch q.Form {
	case sparql.Describe:
		graph, err := e.describe(q)
		if err != nil {
			return nil, err
		}
		return &sparql.Result{Graph: graph}, nil
	case sparql.Ask:
		solutions, err := e.group(q.Where, unit())
		if err != nil {
			return nil, err
		}
		return &sparql.Result{Boolean: len(solutions) > 0}, nil
	case sparql.Select:
		solutions, err := e.query(q)
		if err != nil {
			return nil, err
		}
		return &sparql.Result{Solutions: solutions}, nil
	default:
		return nil, fmt.Errorf("triplestore: unsupported query form %s", q.Form)
	}
}

// Update applies all operations of u in order.
// Operations applied before a failing one are not rolled back.
func (store *Store) Update(ctx context.Context, u sparql.Update) error {
	store.l.Lock()
	defer store.l.Unlock()

	if store.subjects == nil {
		return ErrClosed
	}

	for _, op := range u {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := store.apply(ctx, op); err != nil {
			return err
		}
	}
	return nil
}

// Insert inserts all triples of graph.
// Triples already contained in the store are ignored.
func (store *Store) Insert(ctx context.Context, graph []quad.Quad) error {
	return store.Update(ctx, sparql.Update{sparql.InsertData(graph)})
}

// Len returns the number of triples in this store.
func (store *Store) Len() (count int, err error) {
	store.l.RLock()
	defer store.l.RUnlock()

	if store.subjects == nil {
		return 0, ErrClosed
	}

	err = store.subjects.Iterate(func(_ string, graph []quad.Quad) error {
		count += len(graph)
		return nil
	})
	return count, err
}

func (store *Store) apply(ctx context.Context, op sparql.Operation) error {
	if len(op.InsertData) > 0 {
		for _, q := range op.InsertData {
			if err := store.add(q); err != nil {
				return err
			}
		}
		return nil
	}

	if len(op.DeleteWhere) == 0 {
		return nil
	}

	e := evaluator{ctx: ctx, subjects: store.subjects}
	solutions, err := e.group(sparql.Group{Triples: op.DeleteWhere}, unit())
	if err != nil {
		return err
	}

	// instantiate everything first, the index must not change during evaluation
	var remove []quad.Quad
	for _, s := range solutions {
		for _, t := range op.DeleteWhere {
			q, ok := instantiate(t, s)
			if !ok {
				return ErrUnboundDelete
			}
			remove = append(remove, q)
		}
	}

	for _, q := range remove {
		if err := store.remove(q); err != nil {
			return err
		}
	}
	return nil
}

func (store *Store) add(q quad.Quad) error {
	if !isResource(q.Subject) || !isIRI(q.Predicate) || q.Object == nil {
		return fmt.Errorf("%w: %v", ErrInvalidTriple, q)
	}
	q.Label = nil

	key := q.Subject.String()
	graph, _, err := store.subjects.Get(key)
	if err != nil {
		return err
	}
	for _, other := range graph {
		if sameTriple(q, other) {
			return nil
		}
	}

	next := make([]quad.Quad, len(graph), len(graph)+1)
	copy(next, graph)
	return store.subjects.Set(key, append(next, q))
}

func (store *Store) remove(q quad.Quad) error {
	key := q.Subject.String()
	graph, ok, err := store.subjects.Get(key)
	if err != nil || !ok {
		return err
	}

	next := make([]quad.Quad, 0, len(graph))
	for _, other := range graph {
		if !sameTriple(q, other) {
			next = append(next, other)
		}
	}

	switch {
	case len(next) == len(graph):
		return nil
	case len(next) == 0:
		return store.subjects.Delete(key)
	default:
		return store.subjects.Set(key, next)
	}
}

// instantiate replaces the variables of t by their values in s.
func instantiate(t sparql.Triple, s sparql.Solution) (q quad.Quad, ok bool) {
	if t.Plus {
		return q, false
	}

	var values [3]quad.Value
	for i, n := range [3]sparql.Node{t.S, t.P, t.O} {
		values[i], ok = resolve(n, s)
		if !ok {
			return q, false
		}
	}
	return quad.Quad{Subject: values[0], Predicate: values[1], Object: values[2]}, true
}

func sameTriple(a, b quad.Quad) bool {
	return sparql.SameTerm(a.Subject, b.Subject) &&
		sparql.SameTerm(a.Predicate, b.Predicate) &&
		sparql.SameTerm(a.Object, b.Object)
}

func isIRI(v quad.Value) bool {
	_, ok := v.(quad.IRI)
	return ok
}

func isResource(v quad.Value) bool {
	switch v.(type) {
	case quad.IRI, quad.BNode:
		return true
	default:
		return false
	}
}
