package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/FAU-CDI/skosd/internal/catalog"
	"github.com/FAU-CDI/skosd/internal/labels"
	"github.com/FAU-CDI/skosd/internal/manager"
	"github.com/FAU-CDI/skosd/internal/sqlitey"
	"github.com/google/go-cmp/cmp"
)

// the catalog can resolve tenants for label reconciliation
var _ labels.Tenants = (*catalog.Catalog)(nil)

func newCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()

	db, flavor, err := sqlitey.Open(sqlitey.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	c, err := catalog.New(context.Background(), db, flavor)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCatalog_Tenant(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newCatalog(t)

	want := catalog.Tenant{
		Code:         "fau",
		URI:          "http://example.com/tenant/fau",
		Name:         "FAU",
		EnableSkosXl: true,
	}
	if err := c.PutTenant(ctx, want); err != nil {
		t.Fatal(err)
	}

	got, err := c.Tenant(ctx, "fau")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Tenant() mismatch (-want +got):\n%s", diff)
	}

	tenant, err := c.FindTenant(ctx, "fau")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, catalog.TenantOf(tenant)); diff != "" {
		t.Errorf("FindTenant() mismatch (-want +got):\n%s", diff)
	}

	// replacing keeps a single record
	want.Name = "Friedrich-Alexander-Universität"
	if err := c.PutTenant(ctx, want); err != nil {
		t.Fatal(err)
	}
	if got, _ := c.Tenant(ctx, "fau"); got.Name != want.Name {
		t.Errorf("Tenant().Name = %q, want %q", got.Name, want.Name)
	}

	if err := c.DeleteTenant(ctx, "fau"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.FindTenant(ctx, "fau"); !errors.Is(err, manager.ErrNotFound) {
		t.Errorf("FindTenant(deleted) = %v, want %v", err, manager.ErrNotFound)
	}
}

func TestCatalog_FindSet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newCatalog(t)

	for _, s := range []catalog.Set{
		{Code: "thesaurus", Tenant: "a", URI: "http://example.com/set/a"},
		{Code: "thesaurus", Tenant: "b", URI: "http://example.com/set/b", Title: "B"},
	} {
		if err := c.PutSet(ctx, s); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		code, tenant string
		want         string
		wantErr      error
	}{
		{"thesaurus", "b", "http://example.com/set/b", nil},
		{"thesaurus", "", "http://example.com/set/a", nil},
		{"thesaurus", "c", "", catalog.ErrNotFound},
		{"missing", "", "", catalog.ErrNotFound},
	}
	for _, tt := range tests {
		set, err := c.FindSet(ctx, tt.code, tt.tenant)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("FindSet(%q, %q) error = %v, want %v", tt.code, tt.tenant, err, tt.wantErr)
			continue
		}
		if err == nil && set.URI() != tt.want {
			t.Errorf("FindSet(%q, %q) = %q, want %q", tt.code, tt.tenant, set.URI(), tt.want)
		}
	}
}

func TestCatalog_FindUser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newCatalog(t)

	want := catalog.User{Key: "secret", URI: "http://example.com/user/1", Name: "Ada", Tenant: "a", Role: catalog.RoleEditor}
	if err := c.PutUser(ctx, want); err != nil {
		t.Fatal(err)
	}

	got, err := c.FindUser(ctx, "secret")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FindUser() mismatch (-want +got):\n%s", diff)
	}

	for _, key := range []string{"", "wrong"} {
		if _, err := c.FindUser(ctx, key); !errors.Is(err, catalog.ErrNotFound) {
			t.Errorf("FindUser(%q) = %v, want %v", key, err, catalog.ErrNotFound)
		}
	}
}

func TestRole_AtLeast(t *testing.T) {
	t.Parallel()

	tests := []struct {
		role, other catalog.Role
		want        bool
	}{
		{catalog.RoleEditor, catalog.RoleUser, true},
		{catalog.RoleEditor, catalog.RoleEditor, true},
		{catalog.RoleUser, catalog.RoleAdministrator, false},
		{catalog.RoleRoot, catalog.RoleAdministrator, true},
		{"unknown", catalog.RoleGuest, false},
	}
	for _, tt := range tests {
		if got := tt.role.AtLeast(tt.other); got != tt.want {
			t.Errorf("%q.AtLeast(%q) = %v, want %v", tt.role, tt.other, got, tt.want)
		}
	}
}
