package triplestore

import (
	"github.com/FAU-CDI/skosd/internal/sparql"
	"github.com/cayleygraph/quad"
)

// describe evaluates a describe query.
//
// Each target is described once for every solution binding it.
// Fixed targets are only described when the pattern has at least one solution.
// A description holds all triples with the target as subject,
// and recursively the descriptions of blank nodes in object position.
func (e *evaluator) describe(q *sparql.Query) ([]quad.Quad, error) {
	solutions, err := e.group(q.Where, unit())
	if err != nil {
		return nil, err
	}

	var targets []quad.Value
	seen := make(map[string]struct{})
	for _, s := range solutions {
		for _, n := range q.Describe {
			v, ok := resolve(n, s)
			if !ok || !isResource(v) {
				continue
			}
			key := v.String()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			targets = append(targets, v)
		}
	}

	var graph []quad.Quad
	for len(targets) > 0 {
		if err := e.ctx.Err(); err != nil {
			return nil, err
		}

		target := targets[0]
		targets = targets[1:]

		if err := e.scan(target, func(q quad.Quad) {
			graph = append(graph, q)

			if _, ok := q.Object.(quad.BNode); !ok {
				return
			}
			key := q.Object.String()
			if _, ok := seen[key]; ok {
				return
			}
			seen[key] = struct{}{}
			targets = append(targets, q.Object)
		}); err != nil {
			return nil, err
		}
	}
	return graph, nil
}
