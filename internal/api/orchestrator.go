package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/FAU-CDI/skosd/internal/catalog"
	"github.com/FAU-CDI/skosd/internal/labels"
	"github.com/FAU-CDI/skosd/internal/manager"
	"github.com/FAU-CDI/skosd/internal/ns"
	"github.com/FAU-CDI/skosd/internal/resource"
	"github.com/FAU-CDI/skosd/internal/search"
	"github.com/FAU-CDI/skosd/internal/sparql"
	"github.com/FAU-CDI/skosd/internal/status"
	"github.com/FAU-CDI/skosd/internal/validator"
	"github.com/google/uuid"
)

// Orchestrator runs the workflows for a single kind of resource.
//
// An Orchestrator holds no per-request state and is safe for concurrent use.
// Managers, validator chains and label helpers are created per call.
type Orchestrator struct {
	api    ResourceAPI
	config Config

	client  sparql.Client
	catalog *catalog.Catalog
	index   *search.Index
	status  *status.Status
}

// New creates a new orchestrator for resources described by api.
func New(api ResourceAPI, config Config, services Services) *Orchestrator {
	if api.Validator == nil {
		api.Validator = validator.For
	}
	return &Orchestrator{
		api:    api,
		config: config,

		client:  services.Client,
		catalog: services.Catalog,
		index:   services.Index,
		status:  services.Status,
	}
}

// API returns the description of the kind of resources handled by o.
func (o *Orchestrator) API() ResourceAPI {
	return o.api
}

func (o *Orchestrator) manager() *manager.Manager {
	return manager.New(o.client, o.api.Type, o.config.Manager, o.status)
}

// base returns the prefix of uris generated for the named kind.
func (o *Orchestrator) base(name string) string {
	base := o.config.Manager.BaseURI
	if base == "" {
		return ""
	}
	return strings.TrimSuffix(base, "/") + "/" + name
}

func (o *Orchestrator) tenants(m *manager.Manager) labels.Tenants {
	if o.catalog != nil {
		return o.catalog
	}
	return labels.StoreTenants{Manager: m}
}

func (o *Orchestrator) labels(m *manager.Manager) *labels.Helper {
	var index labels.Index
	if o.index != nil {
		index = o.index
	}
	return labels.New(m, o.tenants(m), labels.UUIDURIs(o.base(XLLabels.Name)), index)
}

// Create stores a new resource and returns it as stored.
func (o *Orchestrator) Create(ctx context.Context, req Request) (resource.Entity, error) {
	m := o.manager()
	e := req.Resource
	r := e.Res()

	if !r.IsBlank() {
		exists, err := m.AskForURI(ctx, r.URI(), true, "")
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, errorf(http.StatusBadRequest, "The resource with uri %s already exists. Use PUT instead.", r.URI())
		}
	}

	user, err := o.user(ctx, req.Params.Key)
	if err != nil {
		return nil, err
	}

	sc, err := o.scope(ctx, m, e, req.Params, "")
	if err != nil {
		return nil, err
	}

	if err := o.checkXL(e, sc.tenant); err != nil {
		return nil, err
	}

	o.ensureMetadata(e, sc, user, nil)

	if err := o.authorise(user, tenantCode(e), nil); err != nil {
		return nil, err
	}

	if err := checkIdentifiers(r, req.Params.AutoGenerateIdentifiers); err != nil {
		return nil, err
	}
	if req.Params.AutoGenerateIdentifiers {
		if err := o.generateURI(ctx, m, e, sc); err != nil {
			return nil, err
		}
	}

	helper := o.labels(m)
	if concept, ok := o.concept(e); ok {
		if err := helper.AssertLabels(ctx, concept, o.config.ForceLabels); err != nil {
			return nil, err
		}
		if err := o.checkPrefLabels(ctx, concept); err != nil {
			return nil, err
		}
	}

	if err := o.validate(ctx, m, e, sc.tenant); err != nil {
		return nil, err
	}

	if err := m.Insert(ctx, e); err != nil {
		return nil, err
	}
	if _, ok := e.(*resource.Concept); ok {
		if err := m.MirrorRelations(ctx, e); err != nil {
			return nil, err
		}
	}

	if err := o.afterWrite(ctx, helper, e); err != nil {
		return nil, err
	}

	o.status.Log("created resource", "kind", o.api.Name, "uri", r.URI(), "user", user.URI)
	return m.FetchByURI(ctx, r.URI(), "")
}

// Update replaces an existing resource and returns it as stored.
func (o *Orchestrator) Update(ctx context.Context, req Request) (resource.Entity, error) {
	m := o.manager()
	e := req.Resource
	r := e.Res()

	if r.IsBlank() {
		return nil, errorf(http.StatusBadRequest, "Uri (rdf:about) is missing from the xml. Try POST.")
	}

	exists, err := m.AskForURI(ctx, r.URI(), false, "")
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errorf(http.StatusNotFound, "Resource not found, try POST.")
	}

	existing, err := m.FetchByURI(ctx, r.URI(), "")
	if err != nil {
		return nil, err
	}

	user, err := o.user(ctx, req.Params.Key)
	if err != nil {
		return nil, err
	}

	sc, err := o.scope(ctx, m, e, req.Params, existing.Res().Tenant())
	if err != nil {
		return nil, err
	}

	o.ensureMetadata(e, sc, user, existing)

	if err := o.authorise(user, tenantCode(e), existing); err != nil {
		return nil, err
	}

	if err := o.checkXL(e, sc.tenant); err != nil {
		return nil, err
	}

	helper := o.labels(m)
	if concept, ok := o.concept(e); ok {
		if err := helper.AssertLabels(ctx, concept, o.config.ForceLabels); err != nil {
			return nil, err
		}
	}

	if err := o.validate(ctx, m, e, sc.tenant); err != nil {
		return nil, err
	}

	if _, ok := e.(*resource.Concept); ok {
		err = m.ReplaceAndCleanRelations(ctx, e)
	} else {
		err = m.Replace(ctx, e)
	}
	if err != nil {
		return nil, err
	}

	if err := o.afterWrite(ctx, helper, e); err != nil {
		return nil, err
	}

	o.status.Log("updated resource", "kind", o.api.Name, "uri", r.URI(), "user", user.URI)
	return m.FetchByURI(ctx, r.URI(), "")
}

// Delete deletes the resource with the given uri on behalf of the user with the given key.
//
// Kinds with soft deletion are marked as deleted, all others are removed from the store
// together with all references to them.
func (o *Orchestrator) Delete(ctx context.Context, id, key string) error {
	if id == "" {
		return errorf(http.StatusBadRequest, "Missing id parameter")
	}

	m := o.manager()
	e, err := m.FetchByURI(ctx, id, "")
	if errors.Is(err, manager.ErrNotFound) {
		return errorf(http.StatusNotFound, "Resource not found by id: %s", id)
	}
	if err != nil {
		return err
	}

	user, err := o.user(ctx, key)
	if err != nil {
		return err
	}
	if err := o.authorise(user, tenantCode(e), e); err != nil {
		return err
	}

	if o.api.SoftDelete {
		if e.Res().IsDeleted() {
			return errorf(http.StatusGone, "Resource already deleted: %s", id)
		}
		if err := m.DeleteSoft(ctx, e, user.URI); err != nil {
			return err
		}
		o.status.Log("deleted resource", "kind", o.api.Name, "uri", id, "user", user.URI, "soft", true)
		return o.reindex(ctx, e)
	}

	if o.api.Cascade {
		// TODO: reindex the concepts changed by DeleteSoftInScheme
		deleted, detached, err := m.ForType(ns.Concept).DeleteSoftInScheme(ctx, id, user.URI)
		if err != nil {
			return err
		}
		o.status.Log("cascaded scheme deletion", "uri", id, "deleted", deleted, "detached", detached)
	}

	if err := m.Delete(ctx, id); err != nil {
		return err
	}
	if err := m.DeleteReferencesToObject(ctx, id); err != nil {
		return err
	}
	o.status.Log("deleted resource", "kind", o.api.Name, "uri", id, "user", user.URI, "soft", false)

	if o.index != nil {
		if err := o.index.Remove(ctx, id); err != nil {
			return err
		}
	}
	return o.uncatalog(ctx, e)
}

// Get returns the resource identified by id.
//
// id may be a uri, a uuid, or a value of the IDProperty of the resource kind.
// Deleted resources are reported as gone.
func (o *Orchestrator) Get(ctx context.Context, id string) (resource.Entity, error) {
	m := o.manager()

	var (
		e   resource.Entity
		err error
	)
	switch {
	case isURI(id):
		e, err = m.FetchByURI(ctx, id, "")
	case isUUID(id):
		e, err = m.FetchByUUID(ctx, id, "", ns.UUID)
	case o.api.IDProperty != "":
		e, err = m.FetchByUUID(ctx, id, "", o.api.IDProperty)
	default:
		err = manager.ErrNotFound
	}

	if errors.Is(err, manager.ErrNotFound) {
		return nil, errorf(http.StatusNotFound, "Resource not found by uri/uuid: %s", id)
	}
	if err != nil {
		return nil, err
	}
	if e.Res().IsDeleted() {
		return nil, errorf(http.StatusGone, "Resource %s is deleted", id)
	}
	return e, nil
}

// Page is a page of search results.
type Page struct {
	Total     int // total number of matches
	Start     int
	Resources resource.Collection
}

// Find searches the index and returns the matching resources in the order of the index.
func (o *Orchestrator) Find(ctx context.Context, q search.Query) (page Page, err error) {
	if o.index == nil {
		return page, errorf(http.StatusServiceUnavailable, "Search is not available")
	}
	if q.Rows > search.MaxRows {
		return page, errorf(http.StatusBadRequest, "Rows can not be greater than %d", search.MaxRows)
	}
	q.Type = o.api.Type

	uris, total, err := o.index.Search(ctx, q)
	if err != nil {
		return page, err
	}

	resources, err := o.manager().FetchByURIs(ctx, uris, "")
	if err != nil {
		return page, err
	}
	return Page{Total: total, Start: q.Start, Resources: resources}, nil
}

// AutoComplete returns preferred labels of resources starting with q.Text.
func (o *Orchestrator) AutoComplete(ctx context.Context, q search.Query) ([]string, error) {
	if o.index == nil {
		return nil, errorf(http.StatusServiceUnavailable, "Search is not available")
	}
	if q.Rows > search.MaxRows {
		return nil, errorf(http.StatusBadRequest, "Rows can not be greater than %d", search.MaxRows)
	}
	q.Type = o.api.Type
	return o.index.AutoComplete(ctx, q)
}

func isURI(id string) bool {
	return strings.Contains(id, "://")
}

func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// concept returns e as a concept, if labels of e are to be reconciled.
func (o *Orchestrator) concept(e resource.Entity) (*resource.Concept, bool) {
	if !o.api.Labels {
		return nil, false
	}
	concept, ok := e.(*resource.Concept)
	return concept, ok
}

// user returns the user with the given api key.
func (o *Orchestrator) user(ctx context.Context, key string) (catalog.User, error) {
	if o.config.Auth == AuthNone && (key == "" || o.catalog == nil) {
		return catalog.User{Key: key, Role: catalog.RoleRoot}, nil
	}
	if key == "" {
		return catalog.User{}, errorf(http.StatusBadRequest, "No key specified")
	}
	if o.catalog == nil {
		return catalog.User{}, errorf(http.StatusInternalServerError, "No user catalog configured")
	}

	user, err := o.catalog.FindUser(ctx, key)
	if errors.Is(err, catalog.ErrNotFound) {
		return user, errorf(http.StatusUnauthorized, "No user found for the given key")
	}
	return user, err
}

// scope holds the tenant and set a resource is written in.
type scope struct {
	tenant *resource.Tenant // nil for kinds without tenant
	set    *resource.Set    // nil when no set was requested
}

// scope resolves the tenant and set a resource is written in.
// fallback is the tenant code used when neither params nor the resource name one.
func (o *Orchestrator) scope(ctx context.Context, m *manager.Manager, e resource.Entity, params Params, fallback string) (sc scope, err error) {
	if !o.api.Tenanted {
		return sc, nil
	}

	code := params.Tenant
	if code == "" {
		code = e.Res().Tenant()
	}
	if code == "" {
		code = fallback
	}
	if code == "" {
		return sc, errorf(http.StatusBadRequest, "No tenant specified")
	}

	sc.tenant, err = o.tenants(m).FindTenant(ctx, code)
	if errors.Is(err, manager.ErrNotFound) {
		return sc, errorf(http.StatusNotFound, "No such tenant `%s`", code)
	}
	if err != nil {
		return sc, err
	}

	if !o.api.InSet || params.Set == "" {
		return sc, nil
	}

	sc.set, err = o.findSet(ctx, m, params.Set, code)
	if errors.Is(err, manager.ErrNotFound) {
		return sc, errorf(http.StatusNotFound, "No such set `%s`", params.Set)
	}
	return sc, err
}

func (o *Orchestrator) findSet(ctx context.Context, m *manager.Manager, code, tenant string) (*resource.Set, error) {
	if o.catalog != nil {
		return o.catalog.FindSet(ctx, code, tenant)
	}

	e, err := m.FetchByUUID(ctx, code, ns.SetType, ns.Code)
	if err != nil {
		return nil, err
	}
	if set, ok := e.(*resource.Set); ok {
		return set, nil
	}
	return &resource.Set{Resource: e.Res()}, nil
}

// checkXL rejects concepts with only simple labels for tenants using skos-xl labels.
func (o *Orchestrator) checkXL(e resource.Entity, tenant *resource.Tenant) error {
	concept, ok := o.concept(e)
	if !ok || tenant == nil || !tenant.EnableSkosXl() || o.config.ForceLabels {
		return nil
	}

	var simple, xl bool
	for _, property := range resource.XLLabelProperties {
		xl = xl || concept.Has(property)
		simple = simple || concept.Has(resource.LabelPairs[property])
	}
	if simple && !xl {
		return errorf(http.StatusBadRequest, "The tenant %s uses skos-xl labels, labels must be submitted as skos-xl labels", tenant.Code())
	}
	return nil
}

// preserved are properties carried over from the stored version of a resource.
var preserved = []string{ns.UUID, ns.DateSubmitted, ns.Creator, ns.Set}

type metadataHolder interface {
	EnsureMetadata(md resource.Metadata)
}

// ensureMetadata stamps the metadata of e.
// existing is the stored version of e, or nil for new resources.
func (o *Orchestrator) ensureMetadata(e resource.Entity, sc scope, user catalog.User, existing resource.Entity) {
	md := resource.Metadata{PersonURI: user.URI}
	if sc.tenant != nil {
		md.TenantCode = sc.tenant.Code()
		md.TenantURI = sc.tenant.URI()
	}
	if sc.set != nil {
		md.SetURI = sc.set.URI()
	}

	if existing != nil {
		md.Existing = true
		md.ExistingStatus = existing.Res().Status()

		r, old := e.Res(), existing.Res()
		for _, property := range preserved {
			if !r.Has(property) && old.Has(property) {
				r.Set(property, old.Get(property)...)
			}
		}
	}

	if holder, ok := e.(metadataHolder); ok {
		holder.EnsureMetadata(md)
		return
	}
	e.Res().EnsureMetadata(md)
}

// authorise checks if user may write a resource of the given tenant.
// existing is the stored version of the resource, or nil for new resources.
func (o *Orchestrator) authorise(user catalog.User, tenant string, existing resource.Entity) error {
	if o.config.Auth == AuthNone {
		return nil
	}

	if !user.Role.AtLeast(o.api.Role) {
		return errorf(http.StatusForbidden, "The user %s is not allowed to change resources of type %s", user.Name, o.api.Name)
	}
	if user.Role == catalog.RoleRoot {
		return nil
	}
	if user.Tenant != tenant {
		return errorf(http.StatusForbidden, "The user %s is not allowed to change resources of tenant %s", user.Name, tenant)
	}

	if o.config.Auth != AuthOwner || existing == nil || user.Role.AtLeast(catalog.RoleAdministrator) {
		return nil
	}
	if creator := existing.Res().Ref(ns.Creator); creator != user.URI {
		return errorf(http.StatusForbidden, "The user %s is not allowed to change resources created by %s", user.Name, creator)
	}
	return nil
}

// tenantCode returns the code of the tenant owning e.
func tenantCode(e resource.Entity) string {
	if tenant, ok := e.(*resource.Tenant); ok {
		return tenant.Code()
	}
	return e.Res().Tenant()
}

// checkIdentifiers checks that a uri is given, or that one is to be generated, but not both.
func checkIdentifiers(r *resource.Resource, autoGenerate bool) error {
	switch {
	case autoGenerate && !r.IsBlank():
		return errorf(http.StatusBadRequest, "Parameter autoGenerateIdentifiers is set to true, but the xml already contains uri (rdf:about).")
	case !autoGenerate && r.IsBlank():
		return errorf(http.StatusBadRequest, "Uri (rdf:about) is missing from the xml. You may consider using autoGenerateIdentifiers.")
	}
	return nil
}

// generateURI assigns a new uri to e.
//
// When uris are generated from notations, and e has none,
// the next notation is taken from the search index when one is available.
func (o *Orchestrator) generateURI(ctx context.Context, m *manager.Manager, e resource.Entity, sc scope) error {
	var tenant string
	if sc.tenant != nil {
		tenant = sc.tenant.Code()
	}

	r := e.Res()
	if m.Config().URIPolicy == manager.URIFromNotation && !r.Has(ns.Notation) && o.index != nil {
		highest, err := o.index.GetMaxFieldValue(ctx, search.Filter{Type: o.api.Type, Tenant: tenant}, search.FieldNumericNotation)
		if err != nil {
			return err
		}

		next := 1
		if n, err := strconv.Atoi(highest); err == nil {
			next = n + 1
		}
		r.Set(ns.Notation, resource.Plain(strconv.Itoa(next)))
	}

	_, err := m.GenerateURI(ctx, e, o.base(o.api.Name), tenant)
	return err
}

// checkPrefLabels rejects concepts whose preferred labels are in use by other concepts.
func (o *Orchestrator) checkPrefLabels(ctx context.Context, concept *resource.Concept) error {
	if !o.config.UniquePrefLabels || o.index == nil {
		return nil
	}
	for _, label := range concept.Literals(ns.PrefLabel) {
		exists, err := o.index.DoesMatchingPrefLabelExist(ctx, label.Value)
		if err != nil {
			return err
		}
		if exists {
			return errorf(http.StatusConflict, "The pref label %s already exists", label.Value)
		}
	}
	return nil
}

// validate runs the validator chain against e.
func (o *Orchestrator) validate(ctx context.Context, m *manager.Manager, e resource.Entity, tenant *resource.Tenant) error {
	chain := o.api.Validator(m, tenant, o.status)
	if chain.Validate(ctx, e) {
		return nil
	}
	return &Error{Code: chain.Code(http.StatusBadRequest), Message: chain.Error()}
}

// afterWrite writes labels, updates the index and the catalog after e has been stored.
//
// Index updates of a concept and its labels are committed at once.
func (o *Orchestrator) afterWrite(ctx context.Context, helper *labels.Helper, e resource.Entity) error {
	if concept, ok := o.concept(e); ok {
		if o.index != nil {
			o.index.SetNoCommit(true)
			defer o.index.SetNoCommit(false)

			if err := o.index.Index(ctx, documents(concept)...); err != nil {
				return err
			}
		}
		if err := helper.InsertLabels(ctx, concept); err != nil {
			return err
		}
	} else if err := o.reindex(ctx, e); err != nil {
		return err
	}

	return o.recatalog(ctx, e)
}

// documents returns the documents indexing concept and its nested labels.
func documents(concept *resource.Concept) []search.Document {
	docs := []search.Document{search.DocumentOf(concept)}
	for _, property := range resource.XLLabelProperties {
		for _, value := range concept.Get(property) {
			if label, ok := value.(resource.Entity); ok && !label.Res().IsBlank() {
				docs = append(docs, search.DocumentOf(label))
			}
		}
	}
	return docs
}

func (o *Orchestrator) reindex(ctx context.Context, e resource.Entity) error {
	if o.index == nil {
		return nil
	}
	return o.index.Index(ctx, search.DocumentOf(e))
}

// recatalog stores tenants and sets in the catalog.
func (o *Orchestrator) recatalog(ctx context.Context, e resource.Entity) error {
	if o.catalog == nil {
		return nil
	}
	switch v := e.(type) {
	case *resource.Tenant:
		return o.catalog.PutTenant(ctx, catalog.TenantOf(v))
	case *resource.Set:
		return o.catalog.PutSet(ctx, catalog.SetOf(v))
	}
	return nil
}

// uncatalog removes tenants and sets from the catalog.
func (o *Orchestrator) uncatalog(ctx context.Context, e resource.Entity) error {
	if o.catalog == nil {
		return nil
	}
	switch v := e.(type) {
	case *resource.Tenant:
		return o.catalog.DeleteTenant(ctx, v.Code())
	case *resource.Set:
		return o.catalog.DeleteSet(ctx, v.Code(), v.Tenant())
	}
	return nil
}
