// Package catalog implements lookup of tenants, sets and users stored in an sql database.
//
// The catalog is used for scoping requests only.
// The authoritative description of tenants and sets lives in the triple store.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/FAU-CDI/skosd/internal/manager"
	"github.com/FAU-CDI/skosd/internal/ns"
	"github.com/FAU-CDI/skosd/internal/resource"
	"github.com/FAU-CDI/skosd/internal/sqlitey"
	"github.com/huandu/go-sqlbuilder"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = fmt.Errorf("catalog: %w", manager.ErrNotFound)

const (
	tenantsTable = "tenants"
	setsTable    = "sets"
	usersTable   = "users"
)

// Tenant is a tenant record.
type Tenant struct {
	Code  string
	URI   string
	Name  string
	Email string

	EnableSkosXl                bool
	EnableStatusses             bool
	DisableSearchInOtherTenants bool
}

// Resource returns the tenant as a resource.
func (t Tenant) Resource() *resource.Tenant {
	tenant := resource.NewTenant(t.URI)
	tenant.Set(ns.Code, resource.Plain(t.Code))
	if t.Name != "" {
		tenant.Set(ns.VCardOrgName, resource.Plain(t.Name))
	}
	if t.Email != "" {
		tenant.Set(ns.VCardEmail, resource.Plain(t.Email))
	}
	tenant.Set(ns.EnableSkosXl, resource.Bool(t.EnableSkosXl))
	tenant.Set(ns.EnableStatussesSystem, resource.Bool(t.EnableStatusses))
	tenant.Set(ns.DisableSearchInOtherTenants, resource.Bool(t.DisableSearchInOtherTenants))
	return tenant
}

// TenantOf creates a tenant record from a tenant resource.
func TenantOf(tenant *resource.Tenant) Tenant {
	return Tenant{
		Code:  tenant.Code(),
		URI:   tenant.URI(),
		Name:  tenant.Name(),
		Email: tenant.Literal(ns.VCardEmail),

		EnableSkosXl:                tenant.EnableSkosXl(),
		EnableStatusses:             tenant.EnableStatusses(),
		DisableSearchInOtherTenants: tenant.DisableSearchInOtherTenants(),
	}
}

// Set is a set record.
type Set struct {
	Code   string
	Tenant string // code of the owning tenant
	URI    string
	Title  string
}

// Resource returns the set as a resource.
func (s Set) Resource() *resource.Set {
	set := resource.NewSet(s.URI)
	set.Set(ns.Code, resource.Plain(s.Code))
	set.Set(ns.Tenant, resource.Plain(s.Tenant))
	if s.Title != "" {
		set.Set(ns.Title, resource.Plain(s.Title))
	}
	return set
}

// SetOf creates a set record from a set resource.
func SetOf(set *resource.Set) Set {
	return Set{
		Code:   set.Code(),
		Tenant: set.Tenant(),
		URI:    set.URI(),
		Title:  set.Literal(ns.Title),
	}
}

// Role is the role of a user.
type Role string

// Roles in increasing order of privileges.
const (
	RoleGuest         Role = "guest"
	RoleUser          Role = "user"
	RoleEditor        Role = "editor"
	RoleAdministrator Role = "administrator"
	RoleRoot          Role = "root"
)

var roleRanks = map[Role]int{
	RoleGuest:         0,
	RoleUser:          1,
	RoleEditor:        2,
	RoleAdministrator: 3,
	RoleRoot:          4,
}

// AtLeast checks if r has at least the privileges of other.
// Unknown roles have no privileges.
func (r Role) AtLeast(other Role) bool {
	rank, ok := roleRanks[r]
	return ok && rank >= roleRanks[other]
}

// User is a user record, identified by an api key.
type User struct {
	Key    string
	URI    string
	Name   string
	Email  string
	Tenant string // code of the tenant of the user
	Role   Role
}

// Catalog holds tenants, sets and users.
// A Catalog is safe for concurrent use.
type Catalog struct {
	db     *sql.DB
	flavor sqlbuilder.Flavor
}

// New creates a new catalog on db and creates the tables it needs.
func New(ctx context.Context, db *sql.DB, flavor sqlbuilder.Flavor) (*Catalog, error) {
	catalog := &Catalog{db: db, flavor: flavor}
	if err := catalog.createTables(ctx); err != nil {
		return nil, fmt.Errorf("failed to create catalog tables: %w", err)
	}
	return catalog, nil
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

func (c *Catalog) createTables(ctx context.Context) error {
	tenants := c.flavor.NewCreateTableBuilder().CreateTable(tenantsTable).IfNotExists()
	tenants.Define("code", "VARCHAR(255)", "NOT NULL", "PRIMARY KEY")
	tenants.Define("uri", "TEXT", "NOT NULL")
	tenants.Define("name", "TEXT")
	tenants.Define("email", "TEXT")
	tenants.Define("enable_skos_xl", "BOOLEAN", "NOT NULL")
	tenants.Define("enable_statusses", "BOOLEAN", "NOT NULL")
	tenants.Define("disable_search_in_other_tenants", "BOOLEAN", "NOT NULL")

	sets := c.flavor.NewCreateTableBuilder().CreateTable(setsTable).IfNotExists()
	sets.Define("code", "VARCHAR(255)", "NOT NULL")
	sets.Define("tenant", "VARCHAR(255)", "NOT NULL")
	sets.Define("uri", "TEXT", "NOT NULL")
	sets.Define("title", "TEXT")
	sets.Define("PRIMARY KEY (code, tenant)")

	users := c.flavor.NewCreateTableBuilder().CreateTable(usersTable).IfNotExists()
	users.Define("api_key", "VARCHAR(255)", "NOT NULL", "PRIMARY KEY")
	users.Define("uri", "TEXT", "NOT NULL")
	users.Define("name", "TEXT")
	users.Define("email", "TEXT")
	users.Define("tenant", "VARCHAR(255)", "NOT NULL")
	users.Define("role", "VARCHAR(32)", "NOT NULL")

	return sqlitey.Exec(ctx, c.db, tenants, sets, users)
}

// FindTenant returns the tenant with the given code.
func (c *Catalog) FindTenant(ctx context.Context, code string) (*resource.Tenant, error) {
	record, err := c.Tenant(ctx, code)
	if err != nil {
		return nil, err
	}
	return record.Resource(), nil
}

// Tenant returns the tenant record with the given code.
func (c *Catalog) Tenant(ctx context.Context, code string) (t Tenant, err error) {
	sb := c.flavor.NewSelectBuilder()
	sb.Select("code", "uri", "name", "email", "enable_skos_xl", "enable_statusses", "disable_search_in_other_tenants").From(tenantsTable)
	sb.Where(sb.Equal("code", code))

	var name, email sql.NullString
	err = sqlitey.Row(ctx, c.db, sb, &t.Code, &t.URI, &name, &email, &t.EnableSkosXl, &t.EnableStatusses, &t.DisableSearchInOtherTenants)
	t.Name, t.Email = name.String, email.String
	return t, wrapNotFound(err, "tenant", code)
}

// FindSet returns the set with the given code.
// When tenant is non-empty, the set must belong to the tenant with that code.
func (c *Catalog) FindSet(ctx context.Context, code, tenant string) (*resource.Set, error) {
	sb := c.flavor.NewSelectBuilder()
	sb.Select("code", "tenant", "uri", "title").From(setsTable)
	sb.Where(sb.Equal("code", code))
	if tenant != "" {
		sb.Where(sb.Equal("tenant", tenant))
	}
	sb.OrderBy("tenant").Asc().Limit(1)

	var (
		s     Set
		title sql.NullString
	)
	if err := sqlitey.Row(ctx, c.db, sb, &s.Code, &s.Tenant, &s.URI, &title); err != nil {
		return nil, wrapNotFound(err, "set", code)
	}
	s.Title = title.String
	return s.Resource(), nil
}

// FindUser returns the user with the given api key.
func (c *Catalog) FindUser(ctx context.Context, key string) (u User, err error) {
	if key == "" {
		return u, fmt.Errorf("user: %w", ErrNotFound)
	}

	sb := c.flavor.NewSelectBuilder()
	sb.Select("api_key", "uri", "name", "email", "tenant", "role").From(usersTable)
	sb.Where(sb.Equal("api_key", key))

	var name, email sql.NullString
	var role string
	err = sqlitey.Row(ctx, c.db, sb, &u.Key, &u.URI, &name, &email, &u.Tenant, &role)
	u.Name, u.Email, u.Role = name.String, email.String, Role(role)
	return u, wrapNotFound(err, "user", "")
}

// PutTenant stores t, replacing an existing tenant with the same code.
func (c *Catalog) PutTenant(ctx context.Context, t Tenant) error {
	del := c.flavor.NewDeleteBuilder().DeleteFrom(tenantsTable)
	del.Where(del.Equal("code", t.Code))

	ins := c.flavor.NewInsertBuilder().InsertInto(tenantsTable)
	ins.Cols("code", "uri", "name", "email", "enable_skos_xl", "enable_statusses", "disable_search_in_other_tenants")
	ins.Values(t.Code, t.URI, t.Name, t.Email, t.EnableSkosXl, t.EnableStatusses, t.DisableSearchInOtherTenants)

	return c.replace(ctx, del, ins)
}

// PutSet stores s, replacing an existing set with the same code and tenant.
func (c *Catalog) PutSet(ctx context.Context, s Set) error {
	del := c.flavor.NewDeleteBuilder().DeleteFrom(setsTable)
	del.Where(del.Equal("code", s.Code), del.Equal("tenant", s.Tenant))

	ins := c.flavor.NewInsertBuilder().InsertInto(setsTable)
	ins.Cols("code", "tenant", "uri", "title")
	ins.Values(s.Code, s.Tenant, s.URI, s.Title)

	return c.replace(ctx, del, ins)
}

// PutUser stores u, replacing an existing user with the same key.
func (c *Catalog) PutUser(ctx context.Context, u User) error {
	del := c.flavor.NewDeleteBuilder().DeleteFrom(usersTable)
	del.Where(del.Equal("api_key", u.Key))

	ins := c.flavor.NewInsertBuilder().InsertInto(usersTable)
	ins.Cols("api_key", "uri", "name", "email", "tenant", "role")
	ins.Values(u.Key, u.URI, u.Name, u.Email, u.Tenant, string(u.Role))

	return c.replace(ctx, del, ins)
}

// DeleteTenant removes the tenant with the given code, if any.
func (c *Catalog) DeleteTenant(ctx context.Context, code string) error {
	del := c.flavor.NewDeleteBuilder().DeleteFrom(tenantsTable)
	del.Where(del.Equal("code", code))
	return sqlitey.Exec(ctx, c.db, del)
}

// DeleteSet removes the set with the given code and tenant, if any.
func (c *Catalog) DeleteSet(ctx context.Context, code, tenant string) error {
	del := c.flavor.NewDeleteBuilder().DeleteFrom(setsTable)
	del.Where(del.Equal("code", code), del.Equal("tenant", tenant))
	return sqlitey.Exec(ctx, c.db, del)
}

// replace deletes and inserts a record inside a single transaction.
func (c *Catalog) replace(ctx context.Context, del *sqlbuilder.DeleteBuilder, ins *sqlbuilder.InsertBuilder) error {
	return sqlitey.Tx(ctx, c.db, func(tx *sql.Tx) error {
		return sqlitey.Exec(ctx, tx, del, ins)
	})
}

// wrapNotFound turns sql.ErrNoRows into ErrNotFound.
func wrapNotFound(err error, kind, code string) error {
	if errors.Is(err, sql.ErrNoRows) {
		if code == "" {
			return fmt.Errorf("%s: %w", kind, ErrNotFound)
		}
		return fmt.Errorf("%s %q: %w", kind, code, ErrNotFound)
	}
	return err
}
