package validator_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/FAU-CDI/skosd/internal/manager"
	"github.com/FAU-CDI/skosd/internal/ns"
	"github.com/FAU-CDI/skosd/internal/resource"
	"github.com/FAU-CDI/skosd/internal/status"
	"github.com/FAU-CDI/skosd/internal/triplestore"
	"github.com/FAU-CDI/skosd/internal/validator"
	"github.com/google/go-cmp/cmp"
)

const (
	exA      = "http://example.com/a"
	exB      = "http://example.com/b"
	exC      = "http://example.com/c"
	exScheme = "http://example.com/scheme"
	exTenant = "http://example.com/tenant"
)

func newManager(t *testing.T) *manager.Manager {
	t.Helper()

	store, err := triplestore.Open(triplestore.MemoryEngine{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	return manager.New(store, ns.Concept, manager.Config{}, status.Discard())
}

func newConcept(uri string) *resource.Concept {
	c := resource.NewConcept(uri)
	c.Set(ns.PrefLabel, resource.Lang(uri, "en"))
	c.Set(ns.Tenant, resource.Plain("t"))
	c.Set(ns.InScheme, resource.URI(exScheme))
	c.Set(ns.Status, resource.Plain(resource.StatusApproved))
	return c
}

// newStore creates a manager with a tenant and a scheme.
func newStore(t *testing.T) *manager.Manager {
	t.Helper()
	m := newManager(t)

	tenant := resource.NewTenant(exTenant)
	tenant.Set(ns.Code, resource.Plain("t"))
	if err := m.ForType(ns.TenantType).Insert(context.Background(), tenant); err != nil {
		t.Fatal(err)
	}

	scheme := resource.NewConceptScheme(exScheme)
	scheme.Set(ns.Title, resource.Lang("scheme", "en"))
	if err := m.ForType(ns.ConceptScheme).Insert(context.Background(), scheme); err != nil {
		t.Fatal(err)
	}
	return m
}

func ExampleDuplicateBroader() {
	concept := resource.NewConcept(exA)
	concept.Add(ns.Broader, resource.URI(exB), resource.URI(exC), resource.URI(exB))

	v := validator.DuplicateBroader()
	fmt.Println(v.Validate(context.Background(), concept))
	fmt.Println(v.ErrorMessages())
	// Output: false
	// [Broader term http://example.com/b is defined more than once]
}

func TestDuplicateRelation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		targets []string
		want    bool
	}{
		{"none", nil, true},
		{"distinct", []string{exB, exC}, true},
		{"duplicate", []string{exB, exB}, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			concept := resource.NewConcept(exA)
			for _, target := range tt.targets {
				concept.Add(ns.Related, resource.URI(target))
			}

			v := validator.DuplicateRelated()
			if got := v.Validate(context.Background(), concept); got != tt.want {
				t.Errorf("Validate() = %v, want %v (%v)", got, tt.want, v.ErrorMessages())
			}
		})
	}
}

func TestRelatedToSelf(t *testing.T) {
	t.Parallel()

	self := resource.NewConcept(exA)
	self.Add(ns.Related, resource.URI(exA))
	other := resource.NewConcept(exA)
	other.Add(ns.Related, resource.URI(exB))

	v := &validator.RelatedToSelf{}
	if v.Validate(context.Background(), self) {
		t.Error("Validate(self) = true")
	}
	if !v.Validate(context.Background(), other) {
		t.Errorf("Validate(other) = false (%v)", v.ErrorMessages())
	}
}

func TestProperty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		property validator.Property
		values   []resource.Value
		want     bool
	}{
		{"required missing", validator.Property{Predicate: ns.Code, Required: true}, nil, false},
		{"optional missing", validator.Property{Predicate: ns.Code}, nil, true},
		{"single", validator.Property{Predicate: ns.Code, Single: true}, []resource.Value{resource.Plain("a"), resource.Plain("b")}, false},
		{"boolean", validator.Property{Predicate: ns.EnableSkosXl, Boolean: true}, []resource.Value{resource.Bool(true)}, true},
		{"not boolean", validator.Property{Predicate: ns.EnableSkosXl, Boolean: true}, []resource.Value{resource.Plain("maybe")}, false},
		{"uri instead of boolean", validator.Property{Predicate: ns.EnableSkosXl, Boolean: true}, []resource.Value{resource.URI(exA)}, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tenant := resource.NewTenant(exTenant)
			tenant.Set(tt.property.Predicate, tt.values...)

			v := tt.property
			if got := v.Validate(context.Background(), tenant); got != tt.want {
				t.Errorf("Validate() = %v, want %v (%v)", got, tt.want, v.ErrorMessages())
			}
		})
	}
}

func TestUniqueNotation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newStore(t)

	stored := newConcept(exA)
	stored.Set(ns.Notation, resource.Plain("42"))
	if err := m.Insert(ctx, stored); err != nil {
		t.Fatal(err)
	}

	same := newConcept(exB)
	same.Set(ns.Notation, resource.Plain("42"))

	otherTenant := newConcept(exC)
	otherTenant.Set(ns.Notation, resource.Plain("42"))
	otherTenant.Set(ns.Tenant, resource.Plain("other"))

	tests := []struct {
		name    string
		concept *resource.Concept
		want    bool
	}{
		{"duplicate", same, false},
		{"itself", stored, true},
		{"other tenant", otherTenant, true},
	}
	for _, tt := range tests {
		v := &validator.UniqueNotation{}
		v.SetManager(m)
		if got := v.Validate(ctx, tt.concept); got != tt.want {
			t.Errorf("Validate(%s) = %v, want %v", tt.name, got, tt.want)
		}
		if !tt.want {
			if diff := cmp.Diff([]int{http.StatusConflict}, v.ErrorCodes()); diff != "" {
				t.Errorf("ErrorCodes() mismatch (-want +got):\n%s", diff)
			}
		}
	}
}

func TestRelationCycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newStore(t)

	for _, uri := range []string{exA, exB, exC} {
		if err := m.Insert(ctx, newConcept(uri)); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.AddRelation(ctx, exB, ns.Broader, exA); err != nil {
		t.Fatal(err)
	}
	if err := m.AddRelation(ctx, exC, ns.Broader, exB); err != nil {
		t.Fatal(err)
	}

	cyclic := newConcept(exA)
	cyclic.Add(ns.Broader, resource.URI(exC))

	v := &validator.RelationCycle{}
	v.SetManager(m)
	if v.Validate(ctx, cyclic) {
		t.Error("Validate(cyclic) = true")
	}

	fine := newConcept(exC)
	fine.Add(ns.Broader, resource.URI(exA))
	if !v.Validate(ctx, fine) {
		t.Errorf("Validate(fine) = false (%v)", v.ErrorMessages())
	}
}

func TestChain(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newStore(t)

	t.Run("valid", func(t *testing.T) {
		chain := validator.For(m, nil, status.Discard())
		if !chain.Validate(ctx, newConcept(exA)) {
			t.Errorf("Validate() = false (%s)", chain.Error())
		}
	})

	t.Run("accumulates", func(t *testing.T) {
		concept := newConcept(exA)
		concept.Add(ns.Broader, resource.URI(exB), resource.URI(exB))
		concept.Add(ns.Related, resource.URI(exA))
		concept.Set(ns.InScheme, resource.URI("http://example.com/missing"))

		chain := validator.For(m, nil, status.Discard())
		if chain.Validate(ctx, concept) {
			t.Fatal("Validate() = true")
		}

		want := []string{
			"Broader term http://example.com/b is defined more than once",
			"The concept scheme http://example.com/missing does not exist",
			"The concept http://example.com/a can not be " + ns.Related + " of itself",
		}
		if diff := cmp.Diff(want, chain.ErrorMessages()); diff != "" {
			t.Errorf("ErrorMessages() mismatch (-want +got):\n%s", diff)
		}
		if got := chain.Code(http.StatusInternalServerError); got != http.StatusBadRequest {
			t.Errorf("Code() = %d, want %d", got, http.StatusBadRequest)
		}
	})

	t.Run("tenant mismatch", func(t *testing.T) {
		other := resource.NewTenant("http://example.com/other")
		other.Set(ns.Code, resource.Plain("other"))

		chain := validator.For(m, other, status.Discard())
		if chain.Validate(ctx, newConcept(exA)) {
			t.Error("Validate() = true")
		}
	})

	t.Run("unknown tenant", func(t *testing.T) {
		concept := newConcept(exA)
		concept.Set(ns.Tenant, resource.Plain("nobody"))

		chain := validator.For(m, nil, status.Discard())
		if chain.Validate(ctx, concept) {
			t.Error("Validate() = true")
		}
	})
}

func TestRules_tenant(t *testing.T) {
	t.Parallel()

	tenant := resource.NewTenant("http://example.com/new")
	tenant.Set(ns.Code, resource.Plain("new"))
	tenant.Set(ns.VCardEmail, resource.Plain("new@example.com"))
	tenant.Set(ns.DisableSearchInOtherTenants, resource.Bool(false))
	tenant.Set(ns.EnableStatussesSystem, resource.Bool(true))

	m := newStore(t).ForType(ns.TenantType)
	chain := validator.For(m, nil, status.Discard())
	if !chain.Validate(context.Background(), tenant) {
		t.Errorf("Validate() = false (%s)", chain.Error())
	}

	// the code of the stored tenant is taken
	tenant.Set(ns.Code, resource.Plain("t"))
	chain = validator.For(m, nil, status.Discard())
	if chain.Validate(context.Background(), tenant) {
		t.Error("Validate(duplicate code) = true")
	}
	if got := chain.Code(http.StatusBadRequest); got != http.StatusConflict {
		t.Errorf("Code() = %d, want %d", got, http.StatusConflict)
	}
}
