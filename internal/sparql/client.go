package sparql

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/cayleygraph/quad"
)

// ErrTimeout indicates that the store did not answer in time.
// It is the only error considered transient.
var ErrTimeout = errors.New("sparql: store timed out")

// Client executes queries and updates against a triple store.
type Client interface {
	// Query executes q.
	Query(ctx context.Context, q *Query) (*Result, error)

	// Update executes all operations of u in a single request.
	Update(ctx context.Context, u Update) error

	// Insert inserts all triples of graph.
	Insert(ctx context.Context, graph []quad.Quad) error
}

// Result is the result of a query.
// Which field is set depends on the form of the query.
type Result struct {
	Graph     []quad.Quad // Describe
	Boolean   bool        // Ask
	Solutions []Solution  // Select
}

var errNoCount = errors.New("result holds no count")

// Int returns the integer bound to name in the first solution.
func (r *Result) Int(name string) (int, error) {
	if r == nil || len(r.Solutions) == 0 {
		return 0, errNoCount
	}
	v, ok := r.Solutions[0][name]
	if !ok {
		return 0, errNoCount
	}
	n, err := strconv.Atoi(Lexical(v))
	if err != nil {
		return 0, fmt.Errorf("failed to parse count: %w", err)
	}
	return n, nil
}

// Values returns the values bound to name, in solution order.
func (r *Result) Values(name string) []quad.Value {
	if r == nil {
		return nil
	}
	values := make([]quad.Value, 0, len(r.Solutions))
	for _, s := range r.Solutions {
		if v, ok := s[name]; ok {
			values = append(values, v)
		}
	}
	return values
}
