package resource_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/FAU-CDI/skosd/internal/ns"
	"github.com/FAU-CDI/skosd/internal/resource"
	"github.com/google/go-cmp/cmp"
)

func ExampleResource() {
	r := resource.New("http://example.com/a")
	r.Add(ns.PrefLabel, resource.Lang("cat", "en"))
	r.Add(ns.Broader, resource.URI("http://example.com/b"))
	r.Add(ns.PrefLabel, resource.Lang("Katze", "de"))

	for _, p := range r.Predicates() {
		fmt.Println(p, len(r.Get(p)))
	}
	fmt.Println(r.Literal(ns.PrefLabel), r.Ref(ns.Broader))

	// Output: http://www.w3.org/2004/02/skos/core#prefLabel 2
	// http://www.w3.org/2004/02/skos/core#broader 1
	// cat http://example.com/b
}

func TestResource_SetKeepsPosition(t *testing.T) {
	t.Parallel()

	r := resource.New("http://example.com/a")
	r.Add("p1", resource.Plain("1"))
	r.Add("p2", resource.Plain("2"))
	r.Add("p3", resource.Plain("3"))

	r.Set("p2", resource.Plain("two"))
	r.Unset("p1")
	r.Set("p4")

	if diff := cmp.Diff([]string{"p2", "p3"}, r.Predicates()); diff != "" {
		t.Errorf("Predicates() mismatch (-want +got):\n%s", diff)
	}
	if got := r.Literal("p2"); got != "two" {
		t.Errorf("Literal(p2) = %q, want %q", got, "two")
	}
}

func TestResource_Remove(t *testing.T) {
	t.Parallel()

	r := resource.New("http://example.com/a")
	r.Add(ns.InScheme, resource.URI("s1"), resource.URI("s2"), resource.URI("s1"))
	r.Remove(ns.InScheme, resource.URI("s1"))

	if diff := cmp.Diff([]string{"s2"}, r.URIs(ns.InScheme)); diff != "" {
		t.Errorf("URIs() mismatch (-want +got):\n%s", diff)
	}

	r.Remove(ns.InScheme, resource.URI("s2"))
	if r.Has(ns.InScheme) || r.Len() != 0 {
		t.Errorf("Remove() did not drop empty predicate")
	}
}

func TestResource_Clone(t *testing.T) {
	t.Parallel()

	nested := resource.NewBlank()
	nested.Add(ns.VCardEmail, resource.Plain("a@example.com"))

	r := resource.New("http://example.com/a")
	r.Add(ns.VCardOrg, nested)

	c := r.Clone()
	c.Set(ns.VCardOrg, resource.Plain("changed"))

	if _, ok := r.Get(ns.VCardOrg)[0].(*resource.Resource); !ok {
		t.Errorf("Clone() shares property storage with original")
	}
}

func TestEqual(t *testing.T) {
	t.Parallel()

	a := resource.New("http://example.com/a")
	blank := resource.NewBlank()

	tests := []struct {
		name string
		a, b resource.Value
		want bool
	}{
		{"uri and resource", resource.URI("http://example.com/a"), a, true},
		{"different uris", resource.URI("x"), resource.URI("y"), false},
		{"literal language", resource.Lang("cat", "en"), resource.Lang("cat", "de"), false},
		{"literal equal", resource.Lang("cat", "en"), resource.Lang("cat", "en"), true},
		{"literal vs uri", resource.Plain("x"), resource.URI("x"), false},
		{"blank self", blank, blank, true},
		{"blank other", blank, resource.NewBlank(), false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := resource.Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConcept_EnsureMetadata(t *testing.T) {
	t.Parallel()

	now := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("new concept", func(t *testing.T) {
		t.Parallel()

		c := resource.NewConcept("http://example.com/c")
		c.EnsureMetadata(resource.Metadata{
			TenantCode: "inst",
			TenantURI:  "http://example.com/tenant",
			SetURI:     "http://example.com/set",
			PersonURI:  "http://example.com/user",
			Now:        now,
		})

		if got := c.Status(); got != resource.StatusCandidate {
			t.Errorf("Status() = %q, want %q", got, resource.StatusCandidate)
		}
		if c.UUID() == "" {
			t.Error("UUID() is empty")
		}
		if got := c.Ref(ns.Creator); got != "http://example.com/user" {
			t.Errorf("creator = %q", got)
		}
		if got := c.Literal(ns.DateSubmitted); got != "2020-01-02T03:04:05Z" {
			t.Errorf("dateSubmitted = %q", got)
		}
		if c.Has(ns.Modified) {
			t.Error("new concept has dcterms:modified")
		}
	})

	t.Run("existing concept", func(t *testing.T) {
		t.Parallel()

		c := resource.NewConcept("http://example.com/c")
		c.EnsureMetadata(resource.Metadata{
			TenantCode:     "inst",
			PersonURI:      "http://example.com/user",
			Existing:       true,
			ExistingStatus: resource.StatusApproved,
			Now:            now,
		})

		if got := c.Status(); got != resource.StatusApproved {
			t.Errorf("Status() = %q, want %q", got, resource.StatusApproved)
		}
		if got := c.Ref(ns.ModifiedBy); got != "http://example.com/user" {
			t.Errorf("modifiedBy = %q", got)
		}
		if c.Has(ns.DateSubmitted) {
			t.Error("existing concept got dateSubmitted")
		}
	})
}

func TestCollection_SortByOrder(t *testing.T) {
	t.Parallel()

	c := resource.Collection{
		resource.New("u1"),
		resource.New("u2"),
		resource.New("extra"),
		resource.New("u3"),
	}
	c.SortByOrder([]string{"u3", "u1", "u2"})

	if diff := cmp.Diff([]string{"u3", "u1", "u2", "extra"}, c.URIs()); diff != "" {
		t.Errorf("SortByOrder() mismatch (-want +got):\n%s", diff)
	}

	c.SortByURI()
	if diff := cmp.Diff([]string{"extra", "u1", "u2", "u3"}, c.URIs()); diff != "" {
		t.Errorf("SortByURI() mismatch (-want +got):\n%s", diff)
	}
}
