package triplestore_test

import (
	"context"
	"path/filepath"
	"sort"
	"testing"

	"github.com/FAU-CDI/skosd/internal/sparql"
	"github.com/FAU-CDI/skosd/internal/triplestore"
	"github.com/cayleygraph/quad"
	"github.com/google/go-cmp/cmp"
)

const (
	rdfType     = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	concept     = "http://www.w3.org/2004/02/skos/core#Concept"
	prefLabel   = "http://www.w3.org/2004/02/skos/core#prefLabel"
	broader     = "http://www.w3.org/2004/02/skos/core#broader"
	status      = "http://openskos.org/xmlns#status"
	xlPrefLabel = "http://www.w3.org/2008/05/skos-xl#prefLabel"
	literalForm = "http://www.w3.org/2008/05/skos-xl#literalForm"

	exA = "http://example.com/a"
	exB = "http://example.com/b"
	exC = "http://example.com/c"
)

func fixture() []quad.Quad {
	iri := func(s string) quad.Value { return quad.IRI(s) }
	en := func(s string) quad.Value { return quad.LangString{Value: quad.String(s), Lang: "en"} }

	return []quad.Quad{
		{Subject: iri(exA), Predicate: iri(rdfType), Object: iri(concept)},
		{Subject: iri(exA), Predicate: iri(prefLabel), Object: en("cat")},
		{Subject: iri(exA), Predicate: iri(broader), Object: iri(exB)},
		{Subject: iri(exA), Predicate: iri(status), Object: quad.String("approved")},
		{Subject: iri(exA), Predicate: iri(xlPrefLabel), Object: quad.BNode("l1")},
		{Subject: quad.BNode("l1"), Predicate: iri(literalForm), Object: en("cat")},

		{Subject: iri(exB), Predicate: iri(rdfType), Object: iri(concept)},
		{Subject: iri(exB), Predicate: iri(prefLabel), Object: en("animal")},
		{Subject: iri(exB), Predicate: iri(broader), Object: iri(exC)},

		{Subject: iri(exC), Predicate: iri(rdfType), Object: iri(concept)},
		{Subject: iri(exC), Predicate: iri(status), Object: quad.String("deleted")},
	}
}

// engines runs f once for every engine.
func engines(t *testing.T, f func(t *testing.T, store *triplestore.Store)) {
	t.Helper()

	for _, tt := range []struct {
		name   string
		engine triplestore.Engine
	}{
		{"memory", triplestore.MemoryEngine{}},
		{"disk", triplestore.DiskEngine{Path: filepath.Join(t.TempDir(), "store.leveldb"), Wipe: true}},
	} {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store, err := triplestore.Open(tt.engine)
			if err != nil {
				t.Fatal(err)
			}
			defer store.Close()

			if err := store.Insert(context.Background(), fixture()); err != nil {
				t.Fatal(err)
			}
			f(t, store)
		})
	}
}

var notDeleted = sparql.Group{
	Triples: []sparql.Triple{
		sparql.T(sparql.Var("subject"), sparql.IRI(rdfType), sparql.IRI(concept)),
	},
	Optional: []sparql.Group{{
		Triples: []sparql.Triple{sparql.T(sparql.Var("subject"), sparql.IRI(status), sparql.Var("status"))},
	}},
	Filters: []sparql.Expr{
		sparql.Or{
			sparql.Not{Expr: sparql.Bound("status")},
			sparql.NotEquals(sparql.Var("status"), sparql.Term(quad.String("deleted"))),
		},
	},
}

func subjects(graph []quad.Quad) []string {
	seen := make(map[string]struct{})
	var result []string
	for _, q := range graph {
		key := q.Subject.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, key)
	}
	sort.Strings(result)
	return result
}

func TestStore_Describe(t *testing.T) {
	t.Parallel()

	engines(t, func(t *testing.T, store *triplestore.Store) {
		res, err := store.Query(context.Background(), sparql.NewDescribe(notDeleted, sparql.Var("subject")))
		if err != nil {
			t.Fatal(err)
		}

		want := []string{"<http://example.com/a>", "<http://example.com/b>", "_:l1"}
		if diff := cmp.Diff(want, subjects(res.Graph)); diff != "" {
			t.Errorf("Describe() subjects mismatch (-want +got):\n%s", diff)
		}
		if len(res.Graph) != 9 {
			t.Errorf("Describe() returned %d triples, want 9", len(res.Graph))
		}
	})
}

func TestStore_DescribeFixedTarget(t *testing.T) {
	t.Parallel()

	engines(t, func(t *testing.T, store *triplestore.Store) {
		where := sparql.Group{Triples: []sparql.Triple{
			sparql.T(sparql.IRI(exA), sparql.IRI(rdfType), sparql.IRI("http://example.com/NotAConcept")),
		}}
		res, err := store.Query(context.Background(), sparql.NewDescribe(where, sparql.IRI(exA)))
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Graph) != 0 {
			t.Errorf("Describe() without solutions returned %d triples", len(res.Graph))
		}
	})
}

func TestStore_Count(t *testing.T) {
	t.Parallel()

	engines(t, func(t *testing.T, store *triplestore.Store) {
		res, err := store.Query(context.Background(), sparql.NewCount(notDeleted, "subject"))
		if err != nil {
			t.Fatal(err)
		}
		if n, err := res.Int("count"); err != nil || n != 2 {
			t.Errorf("Count() = %d, %v, want 2", n, err)
		}
	})
}

func TestStore_Ask(t *testing.T) {
	t.Parallel()

	engines(t, func(t *testing.T, store *triplestore.Store) {
		tests := []struct {
			from, to string
			want     bool
		}{
			{exA, exB, true},
			{exA, exC, true},
			{exC, exA, false},
			{exB, exB, false},
		}

		for _, tt := range tests {
			path := sparql.T(sparql.IRI(tt.from), sparql.IRI(broader), sparql.IRI(tt.to))
			path.Plus = true

			res, err := store.Query(context.Background(), sparql.NewAsk(sparql.Group{Triples: []sparql.Triple{path}}))
			if err != nil {
				t.Fatal(err)
			}
			if res.Boolean != tt.want {
				t.Errorf("Ask(%s broader+ %s) = %v, want %v", tt.from, tt.to, res.Boolean, tt.want)
			}
		}
	})
}

func TestStore_SelectPage(t *testing.T) {
	t.Parallel()

	engines(t, func(t *testing.T, store *triplestore.Store) {
		q := sparql.NewSelect(sparql.Group{Triples: []sparql.Triple{
			sparql.T(sparql.Var("subject"), sparql.Var("predicate"), sparql.Var("object")),
		}}, "subject")
		q.Distinct = true
		q.OrderBy = "subject"
		q.Limit = 2
		q.Offset = 1

		res, err := store.Query(context.Background(), q)
		if err != nil {
			t.Fatal(err)
		}

		var got []string
		for _, v := range res.Values("subject") {
			got = append(got, sparql.Lexical(v))
		}
		// blank node "l1" sorts after the iris
		want := []string{exB, exC}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Select() mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestStore_Update(t *testing.T) {
	t.Parallel()

	engines(t, func(t *testing.T, store *triplestore.Store) {
		ctx := context.Background()

		before, err := store.Len()
		if err != nil {
			t.Fatal(err)
		}

		// inserting an existing triple is a no-op
		if err := store.Insert(ctx, fixture()[:1]); err != nil {
			t.Fatal(err)
		}
		if n, _ := store.Len(); n != before {
			t.Errorf("Len() after duplicate insert = %d, want %d", n, before)
		}

		graph := []quad.Quad{{Subject: quad.IRI(exA), Predicate: quad.IRI(prefLabel), Object: quad.LangString{Value: "kitten", Lang: "en"}}}
		if err := store.Update(ctx, sparql.Replace(exA, graph)); err != nil {
			t.Fatal(err)
		}
		if n, _ := store.Len(); n != before-4 {
			t.Errorf("Len() after replace = %d, want %d", n, before-4)
		}

		// references to b are removed
		if err := store.Update(ctx, sparql.Update{
			sparql.DeleteWhere(sparql.T(sparql.Var("s"), sparql.Var("p"), sparql.IRI(exB))),
		}); err != nil {
			t.Fatal(err)
		}

		res, err := store.Query(ctx, sparql.NewAsk(sparql.Group{Triples: []sparql.Triple{
			sparql.T(sparql.Var("s"), sparql.Var("p"), sparql.IRI(exB)),
		}}))
		if err != nil {
			t.Fatal(err)
		}
		if res.Boolean {
			t.Error("Ask() found triples that should have been deleted")
		}
	})
}

func TestDiskEngine_Persistent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "persistent.leveldb")

	store, err := triplestore.Open(triplestore.DiskEngine{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Insert(context.Background(), fixture()); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	store, err = triplestore.Open(triplestore.DiskEngine{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if n, err := store.Len(); err != nil || n != len(fixture()) {
		t.Errorf("Len() after reopen = %d, %v, want %d", n, err, len(fixture()))
	}
}
