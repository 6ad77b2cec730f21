// Package labels reconciles simple labels and skos-xl labels of concepts.
//
// A concept holds labels twice: as simple literals (skos:prefLabel and friends)
// and as full label resources (skosxl:prefLabel and friends).
// AssertLabels brings both representations in sync before a concept is written,
// InsertLabels writes the label resources after the concept has been written.
package labels

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/FAU-CDI/skosd/internal/manager"
	"github.com/FAU-CDI/skosd/internal/ns"
	"github.com/FAU-CDI/skosd/internal/resource"
	"github.com/google/uuid"
)

var (
	// ErrInvalidLabel is returned when a skos-xl label value is a literal.
	ErrInvalidLabel = errors.New("not a valid xl label provided")

	// ErrLabelMissing is returned when a label is referenced by uri only, but does not exist.
	ErrLabelMissing = errors.New("not a fully described label resource and does not exist in the system")

	// ErrNoTenant is returned when the tenant of a concept can not be determined.
	ErrNoTenant = errors.New("could not determine tenant for concept")

	// ErrIncompleteLabel is returned by CreateNewLabel when arguments are missing.
	ErrIncompleteLabel = errors.New("literal form, language and tenant must be specified when creating a new label")
)

// Tenants resolves tenants by their code.
type Tenants interface {
	FindTenant(ctx context.Context, code string) (*resource.Tenant, error)
}

// StoreTenants resolves tenants from the triple store.
type StoreTenants struct {
	Manager *manager.Manager
}

// FindTenant fetches the tenant with the given openskos:code.
func (st StoreTenants) FindTenant(ctx context.Context, code string) (*resource.Tenant, error) {
	e, err := st.Manager.FetchByUUID(ctx, code, ns.TenantType, ns.Code)
	if err != nil {
		return nil, err
	}
	tenant, ok := e.(*resource.Tenant)
	if !ok {
		return &resource.Tenant{Resource: e.Res()}, nil
	}
	return tenant, nil
}

// URIGenerator returns a fresh uri for a new label.
type URIGenerator func() string

// UUIDURIs returns a generator appending random uuids to base.
func UUIDURIs(base string) URIGenerator {
	base = strings.TrimSuffix(base, "/") + "/"
	return func() string {
		return base + uuid.NewString()
	}
}

// Index is the part of the search index that label writes are committed to.
type Index interface {
	SetNoCommit(noCommit bool)
	Commit(ctx context.Context) error
}

// Helper reconciles the labels of concepts.
// A Helper is intended to be used for a single request.
type Helper struct {
	labels  *manager.Manager
	tenants Tenants
	newURI  URIGenerator
	index   Index
}

// New creates a new helper.
//
// m is used to read and write labels, regardless of the type it manages.
// index may be nil.
func New(m *manager.Manager, tenants Tenants, newURI URIGenerator, index Index) *Helper {
	return &Helper{
		labels:  m.ForType(ns.XLLabel),
		tenants: tenants,
		newURI:  newURI,
		index:   index,
	}
}

// tenant resolves the tenant of concept.
func (h *Helper) tenant(ctx context.Context, concept *resource.Concept) (*resource.Tenant, error) {
	code := concept.Tenant()
	if code == "" {
		return nil, ErrNoTenant
	}

	tenant, err := h.tenants.FindTenant(ctx, code)
	if errors.Is(err, manager.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown tenant %q", ErrNoTenant, code)
	}
	if err != nil {
		return nil, err
	}
	return tenant, nil
}

// metadata returns the metadata to stamp onto labels of tenant.
func metadata(tenant *resource.Tenant) resource.Metadata {
	return resource.Metadata{TenantCode: tenant.Code(), TenantURI: tenant.URI()}
}

// AssertLabels synchronizes the simple labels of concept with its skos-xl labels.
//
// Every skos-xl label must be a nested label resource, or refer to a label that exists in the store.
// Nested labels without uri are assigned one.
//
// When the tenant of concept has skos-xl labels disabled, or force is set,
// a new label is created for every simple label without matching skos-xl label.
// Afterwards the simple labels are set to the literal forms of all skos-xl labels.
func (h *Helper) AssertLabels(ctx context.Context, concept *resource.Concept, force bool) error {
	tenant, err := h.tenant(ctx, concept)
	if err != nil {
		return err
	}
	md := metadata(tenant)
	synthesize := !tenant.EnableSkosXl() || force

	for _, xl := range resource.XLLabelProperties {
		simple := resource.LabelPairs[xl]

		values := concept.Get(xl)
		var forms []resource.Literal
		for _, value := range values {
			label, err := h.resolve(ctx, value, md)
			if err != nil {
				return err
			}
			if form, ok := firstForm(label.Resource); ok {
				forms = append(forms, form)
			}
		}

		if synthesize {
			for _, literal := range concept.Literals(simple) {
				if containsForm(forms, literal) {
					continue
				}

				label := h.newLabel(literal, md)
				values = append(values, label.Resource)
				forms = append(forms, literal)
			}
		}

		concept.Set(xl, values...)

		simples := make([]resource.Value, len(forms))
		for i, form := range forms {
			simples[i] = form
		}
		concept.Set(simple, simples...)
	}
	return nil
}

// resolve resolves a skos-xl label value into a full label.
// Nested labels are completed in place, references are fetched from the store.
func (h *Helper) resolve(ctx context.Context, value resource.Value, md resource.Metadata) (*resource.Label, error) {
	switch v := value.(type) {
	case resource.Literal:
		return nil, ErrInvalidLabel
	case resource.Entity:
		r := v.Res()
		if r.IsBlank() {
			r.SetURI(h.newURI())
		}
		if !r.Has(ns.Type) {
			r.Set(ns.Type, resource.URI(ns.XLLabel))
		}
		r.EnsureMetadata(md)
		return &resource.Label{Resource: r}, nil
	}

	uri, ok := resource.URIOf(value)
	if !ok {
		return nil, ErrInvalidLabel
	}

	exists, err := h.labels.AskForURI(ctx, uri, false, "")
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("the label %s is %w", uri, ErrLabelMissing)
	}

	e, err := h.labels.FetchByURI(ctx, uri, "")
	if err != nil {
		return nil, err
	}
	return asLabel(e), nil
}

// newLabel creates a new label holding literal.
func (h *Helper) newLabel(literal resource.Literal, md resource.Metadata) *resource.Label {
	label := resource.NewLabel(h.newURI())
	label.SetLiteralForm(literal)
	label.EnsureMetadata(md)
	return label
}

// CreateNewLabel creates a new label with the given literal form and inserts it into the store.
func (h *Helper) CreateNewLabel(ctx context.Context, literal resource.Literal, tenant *resource.Tenant) (*resource.Label, error) {
	if literal.Value == "" || literal.Language == "" || tenant == nil {
		return nil, ErrIncompleteLabel
	}

	label := h.newLabel(literal, metadata(tenant))
	if err := h.labels.Insert(ctx, label); err != nil {
		return nil, err
	}
	return label, nil
}

// Changes holds the labels to delete and insert for a concept.
type Changes struct {
	Insert resource.Collection // proposed labels
	Delete resource.Collection // stored versions of labels that exist
}

// LabelsForInsertAndDelete computes the label changes needed to store the labels of concept.
//
// Every nested label is inserted.
// When it exists already, its stored version is deleted first.
// Stored literal forms missing from the nested label are removed right away.
// Labels referenced by uri only must exist, and are left untouched.
func (h *Helper) LabelsForInsertAndDelete(ctx context.Context, concept *resource.Concept) (changes Changes, err error) {
	var md resource.Metadata
	if concept.Tenant() != "" {
		tenant, err := h.tenant(ctx, concept)
		if err != nil {
			return changes, err
		}
		md = metadata(tenant)
	}

	for _, xl := range resource.XLLabelProperties {
		for _, value := range concept.Get(xl) {
			if _, ok := value.(resource.Literal); ok {
				return changes, ErrInvalidLabel
			}
			uri, ok := resource.URIOf(value)
			if !ok {
				return changes, ErrInvalidLabel
			}

			exists, err := h.labels.AskForURI(ctx, uri, false, "")
			if err != nil {
				return changes, err
			}

			entity, full := value.(resource.Entity)
			if !full {
				if !exists {
					return changes, fmt.Errorf("the label %s is %w", uri, ErrLabelMissing)
				}
				continue
			}
			proposed := asLabel(entity)

			if exists {
				stored, err := h.labels.FetchByURI(ctx, uri, "")
				if err != nil {
					return changes, err
				}
				if err := h.removeStaleForms(ctx, uri, asLabel(stored), proposed); err != nil {
					return changes, err
				}
				changes.Delete = append(changes.Delete, stored)
			}

			proposed.EnsureMetadata(md)
			changes.Insert = append(changes.Insert, proposed)
		}
	}
	return changes, nil
}

// removeStaleForms removes literal forms of stored that proposed does not hold.
func (h *Helper) removeStaleForms(ctx context.Context, uri string, stored, proposed *resource.Label) error {
	keep := proposed.LiteralForms()
	for _, form := range stored.LiteralForms() {
		if containsForm(keep, form) {
			continue
		}
		if err := h.labels.DeleteMatchingTriples(ctx, uri, ns.LiteralForm, form); err != nil {
			return err
		}
	}
	return nil
}

// UnitOfWork drops labels that would be deleted and inserted unchanged.
//
// A deleted and an inserted label cancel out when they have the same uri,
// and both have a single literal form with the same language and value.
func UnitOfWork(changes Changes) Changes {
	dropInsert := make(map[int]struct{})
	dropDelete := make(map[int]struct{})

	for d, del := range changes.Delete {
		for i, ins := range changes.Insert {
			if labelsMatch(del.Res(), ins.Res()) {
				dropDelete[d] = struct{}{}
				dropInsert[i] = struct{}{}
			}
		}
	}

	return Changes{
		Insert: without(changes.Insert, dropInsert),
		Delete: without(changes.Delete, dropDelete),
	}
}

// InsertLabels writes the labels of concept to the store.
//
// Labels that are unchanged are not touched.
// Changed labels are deleted, then all new and changed labels are inserted at once.
// The search index commits only once, after all writes.
func (h *Helper) InsertLabels(ctx context.Context, concept *resource.Concept) error {
	changes, err := h.LabelsForInsertAndDelete(ctx, concept)
	if err != nil {
		return err
	}
	changes = UnitOfWork(changes)

	if h.index != nil {
		h.index.SetNoCommit(true)
		defer h.index.SetNoCommit(false)
	}

	for _, label := range changes.Delete {
		if err := h.labels.Delete(ctx, label.Res().URI()); err != nil {
			return err
		}
	}
	if err := h.labels.InsertCollection(ctx, changes.Insert); err != nil {
		return err
	}

	if h.index != nil {
		if err := h.index.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit search index: %w", err)
		}
	}
	return nil
}

// labelsMatch checks if a and b have the same uri and the same single literal form.
func labelsMatch(a, b *resource.Resource) bool {
	if a.URI() != b.URI() {
		return false
	}

	formsA := a.Literals(ns.LiteralForm)
	formsB := b.Literals(ns.LiteralForm)
	return len(formsA) == 1 && len(formsB) == 1 && formsA[0].SameForm(formsB[0])
}

func asLabel(e resource.Entity) *resource.Label {
	if label, ok := e.(*resource.Label); ok {
		return label
	}
	return &resource.Label{Resource: e.Res()}
}

func firstForm(r *resource.Resource) (resource.Literal, bool) {
	forms := r.Literals(ns.LiteralForm)
	if len(forms) == 0 {
		return resource.Literal{}, false
	}
	return forms[0], true
}

func containsForm(forms []resource.Literal, form resource.Literal) bool {
	for _, f := range forms {
		if f.SameForm(form) {
			return true
		}
	}
	return false
}

func without(c resource.Collection, drop map[int]struct{}) resource.Collection {
	var kept resource.Collection
	for i, e := range c {
		if _, ok := drop[i]; !ok {
			kept = append(kept, e)
		}
	}
	return kept
}
