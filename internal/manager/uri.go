package manager

import (
	"context"
	"strconv"
	"strings"

	"github.com/FAU-CDI/skosd/internal/ns"
	"github.com/FAU-CDI/skosd/internal/resource"
	"github.com/FAU-CDI/skosd/internal/sparql"
	"github.com/cayleygraph/quad"
	"github.com/google/uuid"
)

// GenerateURI assigns a new uri to r according to the uri policy.
//
// The uri is formed from base, or the configured base uri when base is empty.
// tenant is the code of the owning tenant, used to allocate notations.
// The generated uri is returned.
func (m *Manager) GenerateURI(ctx context.Context, r resource.Entity, base, tenant string) (string, error) {
	if base == "" {
		base = m.config.BaseURI
	}
	if base == "" {
		return "", ErrNoBaseURI
	}
	base = strings.TrimSuffix(base, "/") + "/"

	res := r.Res()

	var local string
	switch m.config.URIPolicy {
	case URIFromNotation:
		notation := res.Literal(ns.Notation)
		if notation == "" {
			highest, err := m.MaxNumericNotation(ctx, tenant)
			if err != nil {
				return "", err
			}
			notation = strconv.Itoa(highest + 1)
			res.Set(ns.Notation, resource.Plain(notation))
		}
		local = notation
	default:
		id := res.UUID()
		if id == "" {
			id = uuid.NewString()
			res.Set(ns.UUID, resource.Plain(id))
		}
		local = id
	}

	uri := base + local
	res.SetURI(uri)
	return uri, nil
}

// MaxNumericNotation returns the largest numeric notation of resources of the managed type within tenant.
// Non-numeric notations are ignored.
// When there are none, returns 0.
func (m *Manager) MaxNumericNotation(ctx context.Context, tenant string) (int, error) {
	var patterns []sparql.Triple
	patterns = append(patterns, sparql.T(subject, sparql.IRI(ns.Notation), sparql.Var("notation")))
	if tenant != "" {
		patterns = append(patterns, sparql.T(subject, sparql.IRI(ns.Tenant), sparql.Term(quad.String(tenant))))
	}

	var where sparql.Group
	where.Triples = patterns
	if m.typ != "" {
		where.Triples = append(where.Triples, sparql.T(subject, rdfType, sparql.IRI(m.typ)))
	}

	q := sparql.NewSelect(where, "notation")
	q.Distinct = true

	res, err := m.Query(ctx, q)
	if err != nil {
		return 0, err
	}

	highest := 0
	for _, v := range res.Values("notation") {
		n, err := strconv.Atoi(sparql.Lexical(v))
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest, nil
}
