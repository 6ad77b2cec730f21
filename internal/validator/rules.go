package validator

import (
	"context"
	"errors"
	"net/http"

	"github.com/FAU-CDI/skosd/internal/manager"
	"github.com/FAU-CDI/skosd/internal/ns"
	"github.com/FAU-CDI/skosd/internal/resource"
	"golang.org/x/exp/slices"
)

// storeAware holds the manager injected by a chain.
type storeAware struct {
	m *manager.Manager
}

func (sa *storeAware) SetManager(m *manager.Manager) { sa.m = m }

// tenantAware holds the tenant injected by a chain.
type tenantAware struct {
	tenant *resource.Tenant
}

func (ta *tenantAware) SetTenant(tenant *resource.Tenant) { ta.tenant = tenant }

// storeFailed records a failure to query the store.
func (rp *report) storeFailed(err error) bool {
	return rp.fail(http.StatusInternalServerError, "Unable to validate against the store: %v", err)
}

// RequiredType checks that a resource has the given rdf:type.
type RequiredType struct {
	report
	Type string
}

func (rt *RequiredType) Validate(ctx context.Context, r resource.Entity) bool {
	if r.Res().HasType(rt.Type) {
		return true
	}
	return rt.fail(http.StatusBadRequest, "The resource must be of type %s", rt.Type)
}

// Tenant checks that a resource names a tenant.
//
// When a tenant was injected, the resource must name that tenant.
// Otherwise the tenant must exist in the store.
type Tenant struct {
	report
	storeAware
	tenantAware
}

func (tv *Tenant) Validate(ctx context.Context, r resource.Entity) bool {
	code := r.Res().Tenant()
	if code == "" {
		return tv.fail(http.StatusBadRequest, "No tenant specified")
	}

	if tv.tenant != nil {
		if tv.tenant.Code() != code {
			return tv.fail(http.StatusBadRequest, "The tenant %s does not match the tenant %s of the request", code, tv.tenant.Code())
		}
		return true
	}
	if tv.m == nil {
		return true
	}

	_, err := tv.m.FetchByUUID(ctx, code, ns.TenantType, ns.Code)
	switch {
	case errors.Is(err, manager.ErrNotFound):
		return tv.fail(http.StatusBadRequest, "The tenant %s does not exist", code)
	case err != nil:
		return tv.storeFailed(err)
	}
	return true
}

// DuplicateRelation fails when a resource names the same target of a relation more than once.
// Only the first duplicate is reported.
type DuplicateRelation struct {
	report
	Property string
	Word     string // human readable name of the relation used in messages
}

// DuplicateBroader returns a validator rejecting duplicate skos:broader targets.
func DuplicateBroader() *DuplicateRelation {
	return &DuplicateRelation{Property: ns.Broader, Word: "Broader"}
}

// DuplicateNarrower returns a validator rejecting duplicate skos:narrower targets.
func DuplicateNarrower() *DuplicateRelation {
	return &DuplicateRelation{Property: ns.Narrower, Word: "Narrower"}
}

// DuplicateRelated returns a validator rejecting duplicate skos:related targets.
func DuplicateRelated() *DuplicateRelation {
	return &DuplicateRelation{Property: ns.Related, Word: "Related"}
}

func (dr *DuplicateRelation) Validate(ctx context.Context, r resource.Entity) bool {
	seen := make(map[string]struct{})
	for _, uri := range r.Res().URIs(dr.Property) {
		if _, ok := seen[uri]; ok {
			return dr.fail(http.StatusBadRequest, "%s term %s is defined more than once", dr.Word, uri)
		}
		seen[uri] = struct{}{}
	}
	return true
}

// selfRelations are the relations a concept may not have to itself.
var selfRelations = []string{
	ns.Related, ns.Broader, ns.Narrower,
	ns.BroadMatch, ns.NarrowMatch, ns.CloseMatch, ns.ExactMatch, ns.RelatedMatch,
}

// RelatedToSelf fails when a resource is related to itself.
type RelatedToSelf struct {
	report
}

func (rs *RelatedToSelf) Validate(ctx context.Context, r resource.Entity) bool {
	uri := r.Res().URI()
	if uri == "" {
		return true
	}

	ok := true
	for _, rel := range selfRelations {
		if slices.Contains(r.Res().URIs(rel), uri) {
			ok = rs.fail(http.StatusBadRequest, "The concept %s can not be %s of itself", uri, rel)
		}
	}
	return ok
}

// InScheme checks that a concept is in at least one scheme, and that all its schemes exist.
type InScheme struct {
	report
	storeAware
}

func (is *InScheme) Validate(ctx context.Context, r resource.Entity) bool {
	schemes := r.Res().URIs(ns.InScheme)
	if len(schemes) == 0 {
		return is.fail(http.StatusBadRequest, "The concept must be in at least one concept scheme")
	}
	if is.m == nil {
		return true
	}

	ok := true
	for _, scheme := range schemes {
		exists, err := is.m.AskForURI(ctx, scheme, false, ns.ConceptScheme)
		if err != nil {
			return is.storeFailed(err)
		}
		if !exists {
			ok = is.fail(http.StatusBadRequest, "The concept scheme %s does not exist", scheme)
		}
	}
	return ok
}

// UniqueNotation checks that no other resource of the same tenant has the same notation.
type UniqueNotation struct {
	report
	storeAware
}

func (un *UniqueNotation) Validate(ctx context.Context, r resource.Entity) bool {
	res := r.Res()
	notations := res.Get(ns.Notation)
	if len(notations) == 0 || un.m == nil {
		return true
	}

	specs := []manager.MatchSpec{{Predicate: ns.Notation, Values: notations}}
	if tenant := res.Tenant(); tenant != "" {
		specs = append(specs, manager.MatchSpec{Predicate: ns.Tenant, Values: []resource.Value{resource.Plain(tenant)}})
	}

	exists, err := un.m.AskForMatch(ctx, specs, res.URI(), true)
	if err != nil {
		return un.storeFailed(err)
	}
	if exists {
		return un.fail(http.StatusConflict, "The notation %s already exists", res.Literal(ns.Notation))
	}
	return true
}

// RelationCycle fails when the broader and narrower relations of a concept would create a cycle.
type RelationCycle struct {
	report
	storeAware
}

func (rc *RelationCycle) Validate(ctx context.Context, r resource.Entity) bool {
	res := r.Res()
	uri := res.URI()
	if uri == "" || rc.m == nil {
		return true
	}

	for _, rel := range []string{ns.Broader, ns.Narrower} {
		for _, target := range res.URIs(rel) {
			if target == uri {
				continue // reported by RelatedToSelf
			}
			closure, err := rc.m.Closure(ctx, target, rel)
			if err != nil {
				return rc.storeFailed(err)
			}
			if slices.Contains(closure, uri) {
				return rc.fail(http.StatusBadRequest, "The relation %s to %s creates a cycle", rel, target)
			}
		}
	}
	return true
}

// Property validates the values of a single property.
type Property struct {
	report
	storeAware

	Predicate string

	Required bool // at least one value
	Single   bool // at most one value
	Boolean  bool // values must be booleans
	Unique   bool // no other resource of the managed type may have the same value
}

func (p *Property) Validate(ctx context.Context, r resource.Entity) bool {
	res := r.Res()
	values := res.Get(p.Predicate)

	if len(values) == 0 {
		if p.Required {
			return p.fail(http.StatusBadRequest, "Property %s is required", p.Predicate)
		}
		return true
	}
	if p.Single && len(values) > 1 {
		return p.fail(http.StatusBadRequest, "Property %s must have exactly one value", p.Predicate)
	}

	if p.Boolean {
		for _, value := range values {
			literal, ok := value.(resource.Literal)
			if _, isBool := literal.AsBool(); !ok || !isBool {
				return p.fail(http.StatusBadRequest, "Property %s must be a boolean", p.Predicate)
			}
		}
	}

	if p.Unique && p.m != nil {
		exists, err := p.m.AskForMatch(ctx, []manager.MatchSpec{{Predicate: p.Predicate, Values: values}}, res.URI(), true)
		if err != nil {
			return p.storeFailed(err)
		}
		if exists {
			return p.fail(http.StatusConflict, "A resource with the same %s already exists", p.Predicate)
		}
	}
	return true
}
