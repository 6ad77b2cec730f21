package triplestore

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/FAU-CDI/skosd/internal/sparql"
	"github.com/FAU-CDI/skosd/internal/triplestore/imap"
	"github.com/cayleygraph/quad"
)

// evaluator evaluates query patterns against a subject index.
// The caller must hold a lock on the index.
type evaluator struct {
	ctx      context.Context
	subjects imap.HashMap[string, []quad.Quad]
}

// unit returns the solution sequence holding only the empty solution.
func unit() []sparql.Solution {
	return []sparql.Solution{{}}
}

// group evaluates g once for each of the input solutions.
func (e *evaluator) group(g sparql.Group, input []sparql.Solution) ([]sparql.Solution, error) {
	solutions := input

	if g.Select != nil {
		sub, err := e.query(g.Select)
		if err != nil {
			return nil, err
		}
		solutions = join(solutions, sub)
	}

	for _, t := range g.Triples {
		if err := e.ctx.Err(); err != nil {
			return nil, err
		}

		var next []sparql.Solution
		for _, s := range solutions {
			matched, err := e.match(t, s)
			if err != nil {
				return nil, err
			}
			next = append(next, matched...)
		}
		solutions = next

		if len(solutions) == 0 {
			return nil, nil
		}
	}

	for _, opt := range g.Optional {
		var next []sparql.Solution
		for _, s := range solutions {
			extended, err := e.group(opt, []sparql.Solution{s})
			if err != nil {
				return nil, err
			}
			if len(extended) == 0 {
				next = append(next, s)
				continue
			}
			next = append(next, extended...)
		}
		solutions = next
	}

	for _, ne := range g.NotExists {
		next := solutions[:0:0]
		for _, s := range solutions {
			found, err := e.group(ne, []sparql.Solution{s})
			if err != nil {
				return nil, err
			}
			if len(found) == 0 {
				next = append(next, s)
			}
		}
		solutions = next
	}

	if len(g.Filters) > 0 {
		next := solutions[:0:0]
	filter:
		for _, s := range solutions {
			for _, f := range g.Filters {
				if !f.Eval(s) {
					continue filter
				}
			}
			next = append(next, s)
		}
		solutions = next
	}

	return solutions, nil
}

// query evaluates a select query.
func (e *evaluator) query(q *sparql.Query) ([]sparql.Solution, error) {
	solutions, err := e.group(q.Where, unit())
	if err != nil {
		return nil, err
	}

	if q.Count != nil {
		return []sparql.Solution{count(solutions, q.Count)}, nil
	}

	if q.OrderBy != "" {
		sort.SliceStable(solutions, func(i, j int) bool {
			return lessBinding(solutions[i], solutions[j], q.OrderBy)
		})
	}

	if len(q.Vars) > 0 {
		projected := make([]sparql.Solution, len(solutions))
		for i, s := range solutions {
			p := make(sparql.Solution, len(q.Vars))
			for _, name := range q.Vars {
				if v, ok := s[name]; ok {
					p[name] = v
				}
			}
			projected[i] = p
		}
		solutions = projected
	}

	if q.Distinct {
		seen := make(map[string]struct{}, len(solutions))
		next := solutions[:0:0]
		for _, s := range solutions {
			key := solutionKey(s)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			next = append(next, s)
		}
		solutions = next
	}

	if q.Offset > 0 {
		solutions = solutions[min(q.Offset, len(solutions)):]
	}
	if q.Limit > 0 && len(solutions) > q.Limit {
		solutions = solutions[:q.Limit]
	}
	return solutions, nil
}

const xsdInteger = "http://www.w3.org/2001/XMLSchema#integer"

func count(solutions []sparql.Solution, c *sparql.Count) sparql.Solution {
	seen := make(map[string]struct{})
	n := 0
	for _, s := range solutions {
		v, ok := s[c.Var]
		if !ok {
			continue
		}
		if c.Distinct {
			key := v.String()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
		}
		n++
	}
	return sparql.Solution{
		c.As: quad.TypedString{Value: quad.String(strconv.Itoa(n)), Type: xsdInteger},
	}
}

// lessBinding orders solutions by the lexical form of name.
// Unbound values sort first.
func lessBinding(a, b sparql.Solution, name string) bool {
	av, aok := a[name]
	bv, bok := b[name]
	switch {
	case !aok:
		return bok
	case !bok:
		return false
	default:
		return sparql.Lexical(av) < sparql.Lexical(bv)
	}
}

func solutionKey(s sparql.Solution) string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteString("=")
		b.WriteString(s[name].String())
		b.WriteString("\n")
	}
	return b.String()
}

// join returns all compatible merges of solutions from a and b.
func join(a, b []sparql.Solution) []sparql.Solution {
	var result []sparql.Solution
	for _, left := range a {
	right:
		for _, right := range b {
			merged := make(sparql.Solution, len(left)+len(right))
			for name, v := range left {
				merged[name] = v
			}
			for name, v := range right {
				if have, ok := merged[name]; ok && !sparql.SameTerm(have, v) {
					continue right
				}
				merged[name] = v
			}
			result = append(result, merged)
		}
	}
	return result
}

// match returns the extensions of s matching the triple pattern t.
func (e *evaluator) match(t sparql.Triple, s sparql.Solution) ([]sparql.Solution, error) {
	if t.Plus {
		return e.matchPath(t, s)
	}

	nodes := []sparql.Node{t.S, t.P, t.O}

	var result []sparql.Solution
	subject, _ := resolve(t.S, s)
	err := e.scan(subject, func(q quad.Quad) {
		if ext, ok := extend(s, nodes, []quad.Value{q.Subject, q.Predicate, q.Object}); ok {
			result = append(result, ext)
		}
	})
	return result, err
}

// matchPath matches a one-or-more property path.
// The predicate of t must be bound.
func (e *evaluator) matchPath(t sparql.Triple, s sparql.Solution) ([]sparql.Solution, error) {
	predicate, ok := resolve(t.P, s)
	if !ok {
		return nil, nil
	}

	var starts []quad.Value
	if subject, ok := resolve(t.S, s); ok {
		starts = []quad.Value{subject}
	} else {
		seen := make(map[string]struct{})
		if err := e.scan(nil, func(q quad.Quad) {
			if !sparql.SameTerm(q.Predicate, predicate) {
				return
			}
			key := q.Subject.String()
			if _, ok := seen[key]; ok {
				return
			}
			seen[key] = struct{}{}
			starts = append(starts, q.Subject)
		}); err != nil {
			return nil, err
		}
	}

	nodes := []sparql.Node{t.S, t.O}

	var result []sparql.Solution
	for _, start := range starts {
		reached, err := e.closure(start, predicate)
		if err != nil {
			return nil, err
		}
		for _, end := range reached {
			if ext, ok := extend(s, nodes, []quad.Value{start, end}); ok {
				result = append(result, ext)
			}
		}
	}
	return result, nil
}

// closure returns all nodes reachable from start using one or more predicate edges.
func (e *evaluator) closure(start, predicate quad.Value) ([]quad.Value, error) {
	var reached []quad.Value
	visited := make(map[string]struct{})

	queue := []quad.Value{start}
	for len(queue) > 0 {
		if err := e.ctx.Err(); err != nil {
			return nil, err
		}

		current := queue[0]
		queue = queue[1:]

		if err := e.scan(current, func(q quad.Quad) {
			if !sparql.SameTerm(q.Predicate, predicate) {
				return
			}
			key := q.Object.String()
			if _, ok := visited[key]; ok {
				return
			}
			visited[key] = struct{}{}
			reached = append(reached, q.Object)
			queue = append(queue, q.Object)
		}); err != nil {
			return nil, err
		}
	}
	return reached, nil
}

// scan calls f for every triple with the given subject.
// When subject is nil, f is called for every triple in the index.
func (e *evaluator) scan(subject quad.Value, f func(quad.Quad)) error {
	if subject != nil {
		if !isResource(subject) {
			return nil
		}
		graph, _, err := e.subjects.Get(subject.String())
		if err != nil {
			return err
		}
		for _, q := range graph {
			f(q)
		}
		return nil
	}

	return e.subjects.Iterate(func(_ string, graph []quad.Quad) error {
		for _, q := range graph {
			f(q)
		}
		return nil
	})
}

// resolve returns the value of n under s.
func resolve(n sparql.Node, s sparql.Solution) (quad.Value, bool) {
	if !n.IsVar() {
		return n.Term, n.Term != nil
	}
	v, ok := s[n.Var]
	return v, ok
}

// extend binds nodes to values, returning the extended solution.
// Solutions are never modified in place.
func extend(s sparql.Solution, nodes []sparql.Node, values []quad.Value) (sparql.Solution, bool) {
	var out sparql.Solution
	for i, n := range nodes {
		if !n.IsVar() {
			if !sparql.SameTerm(n.Term, values[i]) {
				return nil, false
			}
			continue
		}

		have, ok := s[n.Var]
		if !ok && out != nil {
			have, ok = out[n.Var]
		}
		if ok {
			if !sparql.SameTerm(have, values[i]) {
				return nil, false
			}
			continue
		}

		if out == nil {
			out = make(sparql.Solution, len(s)+len(nodes))
			for name, v := range s {
				out[name] = v
			}
		}
		out[n.Var] = values[i]
	}

	if out == nil {
		return s, true
	}
	return out, true
}
