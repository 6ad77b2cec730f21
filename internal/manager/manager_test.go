package manager_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/FAU-CDI/skosd/internal/manager"
	"github.com/FAU-CDI/skosd/internal/ns"
	"github.com/FAU-CDI/skosd/internal/resource"
	"github.com/FAU-CDI/skosd/internal/sparql"
	"github.com/FAU-CDI/skosd/internal/status"
	"github.com/FAU-CDI/skosd/internal/triplestore"
	"github.com/cayleygraph/quad"
	"github.com/google/go-cmp/cmp"
)

const (
	exA = "http://example.com/a"
	exB = "http://example.com/b"
	exC = "http://example.com/c"

	exScheme1 = "http://example.com/scheme/1"
	exScheme2 = "http://example.com/scheme/2"
	exPerson  = "http://example.com/person/1"
)

// newManager creates a concept manager backed by an empty in-memory store.
func newManager(t *testing.T, config manager.Config) *manager.Manager {
	t.Helper()

	store, err := triplestore.Open(triplestore.MemoryEngine{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	if config.Tries == 0 {
		config.Tries = 3
	}
	return manager.New(store, ns.Concept, config, status.Discard())
}

func newConcept(uri string, labels ...string) *resource.Concept {
	c := resource.NewConcept(uri)
	for _, label := range labels {
		c.Add(ns.PrefLabel, resource.Lang(label, "en"))
	}
	c.Set(ns.Status, resource.Plain(resource.StatusApproved))
	return c
}

func mustInsert(t *testing.T, m *manager.Manager, entities ...resource.Entity) {
	t.Helper()
	for _, e := range entities {
		if err := m.Insert(context.Background(), e); err != nil {
			t.Fatalf("Insert(%s) = %v", e.Res().URI(), err)
		}
	}
}

func mustFetch(t *testing.T, m *manager.Manager, uri string) *resource.Resource {
	t.Helper()
	e, err := m.FetchByURI(context.Background(), uri, "")
	if err != nil {
		t.Fatalf("FetchByURI(%s) = %v", uri, err)
	}
	return e.Res()
}

func TestManager_Insert(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newManager(t, manager.Config{})

	c := newConcept(exA, "cat")
	mustInsert(t, m, c)

	if err := m.Insert(ctx, newConcept(exA, "dog")); !errors.Is(err, manager.ErrAlreadyExists) {
		t.Errorf("Insert() of existing = %v, want %v", err, manager.ErrAlreadyExists)
	}

	if err := m.DeleteSoft(ctx, c, exPerson); err != nil {
		t.Fatal(err)
	}
	if err := m.Insert(ctx, newConcept(exA, "dog")); !errors.Is(err, manager.ErrAlreadyExists) {
		t.Errorf("Insert() of soft-deleted = %v, want %v", err, manager.ErrAlreadyExists)
	}

	if err := m.Insert(ctx, resource.NewConcept("")); !errors.Is(err, manager.ErrBlank) {
		t.Errorf("Insert() of blank = %v, want %v", err, manager.ErrBlank)
	}
}

func TestManager_Insert_stampsType(t *testing.T) {
	t.Parallel()

	m := newManager(t, manager.Config{})

	r := resource.New(exA)
	r.Add(ns.PrefLabel, resource.Lang("cat", "en"))
	mustInsert(t, m, r)

	e, err := m.FetchByURI(context.Background(), exA, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.(*resource.Concept); !ok {
		t.Errorf("FetchByURI() returned %T, want *resource.Concept", e)
	}
}

func TestManager_FetchByURI(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newManager(t, manager.Config{})

	c := newConcept(exA, "cat")
	label := resource.NewBlank()
	label.Add(ns.LiteralForm, resource.Lang("cat", "en"))
	c.Add(ns.XLPrefLabel, label)
	c.Add(ns.Broader, resource.URI(exB))
	mustInsert(t, m, c, newConcept(exB, "animal"))

	got := mustFetch(t, m, exA)
	if diff := cmp.Diff([]string{exB}, got.URIs(ns.Broader)); diff != "" {
		t.Errorf("broader mismatch (-want +got):\n%s", diff)
	}

	nested, ok := got.First(ns.XLPrefLabel)
	if !ok {
		t.Fatal("nested label missing")
	}
	if l, ok := nested.(*resource.Resource); !ok || l.Literal(ns.LiteralForm) != "cat" {
		t.Errorf("nested label = %#v", nested)
	}

	if _, err := m.FetchByURI(ctx, exA, ns.ConceptScheme); !errors.Is(err, manager.ErrNotFound) {
		t.Errorf("FetchByURI() with other type = %v, want %v", err, manager.ErrNotFound)
	}
	if _, err := m.FetchByURI(ctx, exC, ""); !errors.Is(err, manager.ErrNotFound) {
		t.Errorf("FetchByURI() of missing = %v, want %v", err, manager.ErrNotFound)
	}
}

func TestManager_FetchByUUID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newManager(t, manager.Config{})

	a := newConcept(exA, "cat")
	a.Set(ns.UUID, resource.Plain("uuid-a"))
	b := newConcept(exB, "dog")
	b.Set(ns.UUID, resource.Plain("uuid-shared"))
	c := newConcept(exC, "bird")
	c.Set(ns.UUID, resource.Plain("uuid-shared"))
	mustInsert(t, m, a, b, c)

	e, err := m.FetchByUUID(ctx, "uuid-a", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if got := e.Res().URI(); got != exA {
		t.Errorf("FetchByUUID() = %s, want %s", got, exA)
	}

	_, err = m.FetchByUUID(ctx, "uuid-shared", "", "")
	var ie *manager.IntegrityError
	if !errors.As(err, &ie) || !errors.Is(err, manager.ErrIntegrity) {
		t.Fatalf("FetchByUUID() of duplicate = %v, want *IntegrityError", err)
	}
	if ie.Count != 2 {
		t.Errorf("IntegrityError.Count = %d, want 2", ie.Count)
	}

	if _, err := m.FetchByUUID(ctx, "uuid-missing", "", ""); !errors.Is(err, manager.ErrNotFound) {
		t.Errorf("FetchByUUID() of missing = %v, want %v", err, manager.ErrNotFound)
	}
}

func TestManager_Replace(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newManager(t, manager.Config{})

	old := newConcept(exA, "cat")
	old.Add(ns.AltLabel, resource.Lang("kitty", "en"))
	old.Add(ns.Notation, resource.Plain("1"))
	mustInsert(t, m, old)

	next := newConcept(exA, "dog")
	if err := m.Replace(ctx, next); err != nil {
		t.Fatal(err)
	}

	got := mustFetch(t, m, exA)
	if diff := cmp.Diff(next.Predicates(), got.Predicates()); diff != "" {
		t.Errorf("predicates mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]resource.Value{resource.Lang("dog", "en")}, got.Get(ns.PrefLabel)); diff != "" {
		t.Errorf("prefLabel mismatch (-want +got):\n%s", diff)
	}
}

func TestManager_FetchByURIs(t *testing.T) {
	t.Parallel()

	m := newManager(t, manager.Config{ChunkSize: 2})
	mustInsert(t, m, newConcept(exA, "a"), newConcept(exB, "b"), newConcept(exC, "c"))

	got, err := m.FetchByURIs(context.Background(), []string{exC, exA, "http://example.com/missing", exB}, "")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{exC, exA, exB}, got.URIs()); diff != "" {
		t.Errorf("FetchByURIs() mismatch (-want +got):\n%s", diff)
	}
}

func TestManager_Fetch_pages(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newManager(t, manager.Config{})

	var want []string
	for i := 24; i >= 0; i-- {
		uri := fmt.Sprintf("http://example.com/concept/%02d", i)
		c := newConcept(uri, fmt.Sprintf("label %d", i))
		c.Add(ns.InScheme, resource.URI(exScheme1))
		mustInsert(t, m, c)
		want = append([]string{uri}, want...)
	}

	patterns := []sparql.Triple{manager.Has(ns.InScheme, resource.URI(exScheme1))}

	var got []string
	for offset := 0; offset < 30; offset += 10 {
		page, err := m.Fetch(ctx, patterns, offset, 10, true)
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, page.URIs()...)
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("pages mismatch (-want +got):\n%s", diff)
	}

	subjects, err := m.FetchSubjects(ctx, patterns, 20, 10, true)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want[20:], subjects); diff != "" {
		t.Errorf("FetchSubjects() mismatch (-want +got):\n%s", diff)
	}
}

func TestManager_DeleteSoft(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newManager(t, manager.Config{})

	a := newConcept(exA, "cat")
	mustInsert(t, m, a, newConcept(exB, "dog"))

	if err := m.DeleteSoft(ctx, a, exPerson); err != nil {
		t.Fatal(err)
	}

	live, err := m.Fetch(ctx, nil, 0, 0, true)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{exB}, live.URIs()); diff != "" {
		t.Errorf("Fetch(ignoreDeleted) mismatch (-want +got):\n%s", diff)
	}

	all, err := m.Fetch(ctx, nil, 0, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{exA, exB}, all.URIs()); diff != "" {
		t.Errorf("Fetch() mismatch (-want +got):\n%s", diff)
	}

	deleted := all.Find(exA).Res()
	if got := deleted.Status(); got != resource.StatusDeleted {
		t.Errorf("Status() = %q, want %q", got, resource.StatusDeleted)
	}
	if got := deleted.Ref(ns.DeletedBy); got != exPerson {
		t.Errorf("deletedBy = %q, want %q", got, exPerson)
	}
	if !deleted.Has(ns.DateDeleted) {
		t.Error("dateDeleted missing")
	}
}

func TestManager_Fetch_withoutStatus(t *testing.T) {
	t.Parallel()

	m := newManager(t, manager.Config{})

	c := resource.NewConcept(exA)
	c.Add(ns.PrefLabel, resource.Lang("cat", "en"))
	mustInsert(t, m, c)

	got, err := m.Fetch(context.Background(), nil, 0, 0, true)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{exA}, got.URIs()); diff != "" {
		t.Errorf("Fetch() mismatch (-want +got):\n%s", diff)
	}
}

func TestManager_CountResources(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newManager(t, manager.Config{})

	a := newConcept(exA, "cat")
	mustInsert(t, m, a, newConcept(exB, "dog"), newConcept(exC, "bird"))
	if err := m.DeleteSoft(ctx, a, ""); err != nil {
		t.Fatal(err)
	}

	for _, tt := range []struct {
		name     string
		patterns []sparql.Triple
		want     int
	}{
		{"all", nil, 3},
		{"deleted", []sparql.Triple{manager.Has(ns.Status, resource.Plain(resource.StatusDeleted))}, 1},
		{"approved", []sparql.Triple{manager.Has(ns.Status, resource.Plain(resource.StatusApproved))}, 2},
	} {
		got, err := m.CountResources(ctx, tt.patterns)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("CountResources(%s) = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestManager_AskForMatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newManager(t, manager.Config{})

	a := newConcept(exA, "Cat")
	a.Set(ns.Notation, resource.Plain("1"))
	a.Set(ns.Tenant, resource.Plain("t"))
	b := newConcept(exB, "Dog")
	b.Set(ns.Notation, resource.Plain("2"))
	b.Set(ns.Tenant, resource.Plain("t"))
	mustInsert(t, m, a, b)

	notation := func(values ...string) manager.MatchSpec {
		spec := manager.MatchSpec{Predicate: ns.Notation}
		for _, v := range values {
			spec.Values = append(spec.Values, resource.Plain(v))
		}
		return spec
	}
	negated := func(values ...string) manager.MatchSpec {
		spec := notation(values...)
		spec.Negate = true
		return spec
	}
	tenant := manager.MatchSpec{Predicate: ns.Tenant, Values: []resource.Value{resource.Plain("t")}}
	otherTenant := manager.MatchSpec{Predicate: ns.Tenant, Values: []resource.Value{resource.Plain("other")}}

	tests := []struct {
		name    string
		specs   []manager.MatchSpec
		exclude string
		want    bool
	}{
		{"single value", []manager.MatchSpec{notation("1")}, "", true},
		{"any value", []manager.MatchSpec{notation("3", "2")}, "", true},
		{"no value", []manager.MatchSpec{notation("3")}, "", false},
		{"excluded", []manager.MatchSpec{notation("1")}, exA, false},
		{"all predicates", []manager.MatchSpec{notation("1"), tenant}, "", true},
		{"not all predicates", []manager.MatchSpec{notation("1"), otherTenant}, "", false},
		{"negated", []manager.MatchSpec{{Predicate: ns.Notation, Values: []resource.Value{resource.Plain("1")}, Negate: true}}, exB, false},
		{"negated other", []manager.MatchSpec{negated("1", "3")}, "", true},
		{"negated all stored", []manager.MatchSpec{negated("1", "2")}, "", false},
		{"case sensitive", []manager.MatchSpec{{Predicate: ns.PrefLabel, Values: []resource.Value{resource.Lang("cat", "en")}}}, "", false},
		{"ignore language", []manager.MatchSpec{{Predicate: ns.PrefLabel, Values: []resource.Value{resource.Plain("cat")}, IgnoreLanguage: true}}, "", true},
	}

	for _, tt := range tests {
		got, err := m.AskForMatch(ctx, tt.specs, tt.exclude, true)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("AskForMatch(%s) = %v, want %v", tt.name, got, tt.want)
		}
	}

	if err := m.DeleteSoft(ctx, a, ""); err != nil {
		t.Fatal(err)
	}
	if got, _ := m.AskForMatch(ctx, []manager.MatchSpec{notation("1")}, "", true); got {
		t.Error("AskForMatch() matched deleted concept")
	}
	if got, _ := m.AskForMatch(ctx, []manager.MatchSpec{notation("1")}, "", false); !got {
		t.Error("AskForMatch() did not match deleted concept")
	}
}

func TestManager_Delete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newManager(t, manager.Config{})

	a := newConcept(exA, "cat")
	a.Add(ns.Related, resource.URI(exB))
	b := newConcept(exB, "dog")
	b.Add(ns.Related, resource.URI(exA))
	c := newConcept(exC, "bird")
	c.Set(ns.Status, resource.Plain(resource.StatusRejected))
	mustInsert(t, m, a, b, c)

	if err := m.Delete(ctx, exB); err != nil {
		t.Fatal(err)
	}
	if ok, _ := m.AskForURI(ctx, exB, true, ""); ok {
		t.Error("Delete() kept the resource")
	}
	if got := mustFetch(t, m, exA).URIs(ns.Related); len(got) != 1 {
		t.Errorf("Delete() removed references %v", got)
	}

	if err := m.DeleteReferencesToObject(ctx, exB); err != nil {
		t.Fatal(err)
	}
	if got := mustFetch(t, m, exA).URIs(ns.Related); len(got) != 0 {
		t.Errorf("DeleteReferencesToObject() kept references %v", got)
	}

	if err := m.DeleteBy(ctx, []sparql.Triple{manager.Has(ns.Status, resource.Plain(resource.StatusRejected))}); err != nil {
		t.Fatal(err)
	}
	if ok, _ := m.AskForURI(ctx, exC, true, ""); ok {
		t.Error("DeleteBy() kept the resource")
	}

	if err := m.DeleteMatchingTriples(ctx, exA, ns.PrefLabel, nil); err != nil {
		t.Fatal(err)
	}
	if mustFetch(t, m, exA).Has(ns.PrefLabel) {
		t.Error("DeleteMatchingTriples() kept the label")
	}

	if err := m.DeleteBy(ctx, nil); !errors.Is(err, manager.ErrNoPatterns) {
		t.Errorf("DeleteBy(nil) = %v, want %v", err, manager.ErrNoPatterns)
	}
}

func TestManager_GenerateURI(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("uuid", func(t *testing.T) {
		t.Parallel()

		m := newManager(t, manager.Config{BaseURI: "http://example.com/concepts/"})

		c := resource.NewConcept("")
		c.Set(ns.UUID, resource.Plain("0000-1111"))

		got, err := m.GenerateURI(ctx, c, "", "t")
		if err != nil {
			t.Fatal(err)
		}
		if want := "http://example.com/concepts/0000-1111"; got != want || c.URI() != want {
			t.Errorf("GenerateURI() = %q, want %q", got, want)
		}
	})

	t.Run("notation", func(t *testing.T) {
		t.Parallel()

		m := newManager(t, manager.Config{URIPolicy: manager.URIFromNotation})

		for i, notation := range []string{"7", "12", "abc"} {
			c := newConcept(fmt.Sprintf("http://example.com/existing/%d", i))
			c.Set(ns.Notation, resource.Plain(notation))
			c.Set(ns.Tenant, resource.Plain("t"))
			mustInsert(t, m, c)
		}
		other := newConcept("http://example.com/existing/other")
		other.Set(ns.Notation, resource.Plain("99"))
		other.Set(ns.Tenant, resource.Plain("other"))
		mustInsert(t, m, other)

		c := resource.NewConcept("")
		got, err := m.GenerateURI(ctx, c, "http://example.com/t", "t")
		if err != nil {
			t.Fatal(err)
		}
		if want := "http://example.com/t/13"; got != want {
			t.Errorf("GenerateURI() = %q, want %q", got, want)
		}
		if got := c.Notation(); got != "13" {
			t.Errorf("Notation() = %q, want %q", got, "13")
		}
	})

	t.Run("no base", func(t *testing.T) {
		t.Parallel()

		m := newManager(t, manager.Config{})
		if _, err := m.GenerateURI(ctx, resource.NewConcept(""), "", ""); !errors.Is(err, manager.ErrNoBaseURI) {
			t.Errorf("GenerateURI() = %v, want %v", err, manager.ErrNoBaseURI)
		}
	})
}

// timeoutClient times out for the first timeouts queries, and then returns err (if any).
type timeoutClient struct {
	sparql.Client

	timeouts int
	err      error

	calls int
}

func (tc *timeoutClient) Query(ctx context.Context, q *sparql.Query) (*sparql.Result, error) {
	tc.calls++
	if tc.calls <= tc.timeouts {
		return nil, fmt.Errorf("test: %w", sparql.ErrTimeout)
	}
	if tc.err != nil {
		return nil, tc.err
	}
	return &sparql.Result{Boolean: true}, nil
}

func (tc *timeoutClient) Insert(ctx context.Context, graph []quad.Quad) error {
	_, err := tc.Query(ctx, nil)
	return err
}

func TestManager_Query_retry(t *testing.T) {
	t.Parallel()

	errOther := errors.New("other failure")

	tests := []struct {
		name      string
		client    *timeoutClient
		wantErr   []error
		wantCalls int
	}{
		{"no timeout", &timeoutClient{}, nil, 1},
		{"recovers", &timeoutClient{timeouts: 2}, nil, 3},
		{"persists", &timeoutClient{timeouts: 3}, []error{manager.ErrTransient, sparql.ErrTimeout}, 3},
		{"other error", &timeoutClient{err: errOther}, []error{errOther}, 1},
		{"other error after timeout", &timeoutClient{timeouts: 1, err: errOther}, []error{errOther}, 2},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := manager.New(tt.client, ns.Concept, manager.Config{Tries: 3}, status.Discard())

			_, err := m.Ask(context.Background(), sparql.Group{})
			for _, want := range tt.wantErr {
				if !errors.Is(err, want) {
					t.Errorf("Ask() = %v, want %v", err, want)
				}
			}
			if tt.wantErr == nil && err != nil {
				t.Errorf("Ask() = %v, want nil", err)
			}
			if tt.client.calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", tt.client.calls, tt.wantCalls)
			}
		})
	}
}

func TestManager_Query_retryCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &timeoutClient{timeouts: 5}
	m := manager.New(client, ns.Concept, manager.Config{Tries: 3, Sleep: time.Hour}, status.Discard())

	if _, err := m.Ask(ctx, sparql.Group{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Ask() = %v, want %v", err, context.Canceled)
	}
	if client.calls != 1 {
		t.Errorf("calls = %d, want 1", client.calls)
	}
}

func TestManager_Insert_retry(t *testing.T) {
	t.Parallel()

	// the existence check succeeds at once and reports the resource as missing
	client := &existsClient{timeoutClient: timeoutClient{timeouts: 0}}
	m := manager.New(client, ns.Concept, manager.Config{Tries: 3}, status.Discard())

	client.insertTimeouts = 2
	if err := m.Insert(context.Background(), newConcept(exA, "cat")); err != nil {
		t.Fatal(err)
	}
	if client.inserts != 3 {
		t.Errorf("inserts = %d, want 3", client.inserts)
	}
}

// existsClient answers every query with false and times out on inserts.
type existsClient struct {
	timeoutClient

	insertTimeouts int
	inserts        int
}

func (ec *existsClient) Query(ctx context.Context, q *sparql.Query) (*sparql.Result, error) {
	return &sparql.Result{Boolean: false}, nil
}

func (ec *existsClient) Insert(ctx context.Context, graph []quad.Quad) error {
	ec.inserts++
	if ec.inserts <= ec.insertTimeouts {
		return sparql.ErrTimeout
	}
	return nil
}

func TestManager_InvalidTerm(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newManager(t, manager.Config{})
	mustInsert(t, m, newConcept(exA, "cat"))

	const injected = "http://a> } ; DROP ALL ; INSERT DATA { <http://a> <http://b> <http://c"

	if _, err := m.FetchByURI(ctx, injected, ""); !errors.Is(err, sparql.ErrInvalidTerm) {
		t.Errorf("FetchByURI() error = %v, want ErrInvalidTerm", err)
	}
	if _, err := m.AskForURI(ctx, injected, false, ""); !errors.Is(err, sparql.ErrInvalidTerm) {
		t.Errorf("AskForURI() error = %v, want ErrInvalidTerm", err)
	}

	b := newConcept(exB, "dog")
	b.Add(ns.ExactMatch, resource.URI(injected))
	if err := m.Insert(ctx, b); !errors.Is(err, sparql.ErrInvalidTerm) {
		t.Errorf("Insert() error = %v, want ErrInvalidTerm", err)
	}

	if err := m.DeleteBy(ctx, []sparql.Triple{sparql.T(sparql.Var("s"), sparql.IRI(ns.ExactMatch), sparql.IRI(injected))}); !errors.Is(err, sparql.ErrInvalidTerm) {
		t.Errorf("DeleteBy() error = %v, want ErrInvalidTerm", err)
	}

	mustFetch(t, m, exA)
}
