package resource

import (
	"github.com/FAU-CDI/skosd/internal/ns"
)

//spellchecker:words skosxl statusses

// Concept statuses
const (
	StatusCandidate = "candidate"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusExpired   = "expired"
	StatusDeleted   = "deleted"
)

// IsValidStatus checks if status is a known concept status.
func IsValidStatus(status string) bool {
	switch status {
	case StatusCandidate, StatusApproved, StatusRejected, StatusExpired, StatusDeleted:
		return true
	}
	return false
}

// LabelPairs maps each skos-xl label property to the corresponding simple label property.
var LabelPairs = map[string]string{
	ns.XLPrefLabel:   ns.PrefLabel,
	ns.XLAltLabel:    ns.AltLabel,
	ns.XLHiddenLabel: ns.HiddenLabel,
}

// XLLabelProperties lists the skos-xl label properties in a fixed order.
var XLLabelProperties = []string{ns.XLPrefLabel, ns.XLAltLabel, ns.XLHiddenLabel}

// typed creates a resource of the given type.
func typed(uri, typ string) *Resource {
	r := New(uri)
	r.Add(ns.Type, URI(typ))
	return r
}

// Concept is a skos:Concept.
type Concept struct{ *Resource }

// NewConcept creates a new concept with the given uri (possibly empty).
func NewConcept(uri string) *Concept {
	return &Concept{Resource: typed(uri, ns.Concept)}
}

// Schemes returns the uris of the schemes this concept is in.
func (c *Concept) Schemes() []string {
	return c.URIs(ns.InScheme)
}

// Notation returns the first skos:notation of this concept.
func (c *Concept) Notation() string {
	return c.Literal(ns.Notation)
}

// XLLabels returns the label values for the given skos-xl property.
func (c *Concept) XLLabels(property string) []Value {
	return c.Get(property)
}

// Label is a skosxl:Label.
type Label struct{ *Resource }

// NewLabel creates a new label with the given uri.
func NewLabel(uri string) *Label {
	return &Label{Resource: typed(uri, ns.XLLabel)}
}

// LiteralForms returns the literal forms of this label.
func (l *Label) LiteralForms() []Literal {
	return l.Literals(ns.LiteralForm)
}

// SetLiteralForm replaces the literal form of this label.
func (l *Label) SetLiteralForm(form Literal) {
	l.Set(ns.LiteralForm, form)
}

// Tenant is an institution owning concepts.
type Tenant struct{ *Resource }

// NewTenant creates a new tenant.
func NewTenant(uri string) *Tenant {
	return &Tenant{Resource: typed(uri, ns.TenantType)}
}

// Code returns the openskos:code of this tenant.
func (t *Tenant) Code() string {
	return t.Literal(ns.Code)
}

// Name returns the organisation name of this tenant.
func (t *Tenant) Name() string {
	return t.Literal(ns.VCardOrgName)
}

func (t *Tenant) flag(predicate string) bool {
	for _, l := range t.Literals(predicate) {
		if value, ok := l.AsBool(); ok {
			return value
		}
	}
	return false
}

// EnableSkosXl indicates if this tenant maintains skos-xl labels itself.
func (t *Tenant) EnableSkosXl() bool {
	return t.flag(ns.EnableSkosXl)
}

// EnableStatusses indicates if this tenant uses the status system.
func (t *Tenant) EnableStatusses() bool {
	return t.flag(ns.EnableStatussesSystem)
}

// DisableSearchInOtherTenants indicates if search is restricted to this tenant.
func (t *Tenant) DisableSearchInOtherTenants() bool {
	return t.flag(ns.DisableSearchInOtherTenants)
}

// Set is a collection of concepts (not to be confused with skos:Collection).
type Set struct{ *Resource }

// NewSet creates a new set.
func NewSet(uri string) *Set {
	return &Set{Resource: typed(uri, ns.SetType)}
}

// Code returns the openskos:code of this set.
func (s *Set) Code() string {
	return s.Literal(ns.Code)
}

// ConceptScheme is a skos:ConceptScheme.
type ConceptScheme struct{ *Resource }

// NewConceptScheme creates a new concept scheme.
func NewConceptScheme(uri string) *ConceptScheme {
	return &ConceptScheme{Resource: typed(uri, ns.ConceptScheme)}
}

// Title returns the dcterms:title of this scheme.
func (cs *ConceptScheme) Title() string {
	return cs.Literal(ns.Title)
}

// SkosCollection is a skos:Collection.
type SkosCollection struct{ *Resource }

// NewSkosCollection creates a new skos collection.
func NewSkosCollection(uri string) *SkosCollection {
	return &SkosCollection{Resource: typed(uri, ns.Collection)}
}

// Person is a foaf:Person, used for creators and editors.
type Person struct{ *Resource }

// NewPerson creates a new person.
func NewPerson(uri string) *Person {
	return &Person{Resource: typed(uri, ns.Person)}
}

// RelationType is a custom relation registered as an owl:ObjectProperty.
type RelationType struct{ *Resource }

// NewRelationType creates a new relation type.
func NewRelationType(uri string) *RelationType {
	return &RelationType{Resource: typed(uri, ns.ObjectProperty)}
}

// Inverse returns the uri of the inverse relation, if any.
func (rt *RelationType) Inverse() string {
	return rt.Ref(ns.InverseOf)
}
