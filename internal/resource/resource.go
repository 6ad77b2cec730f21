package resource

import (
	"github.com/FAU-CDI/skosd/internal/ns"
)

// Entity is anything backed by a Resource.
// All concrete kinds (Concept, Label, ...) implement Entity.
type Entity interface {
	Res() *Resource
}

// Resource represents a single node of an rdf graph.
//
// Properties are stored as an insertion-ordered multimap from predicate to values.
// A Resource without a uri is blank; it is expected to receive one before being persisted.
//
// The zero Resource is a blank node without properties.
type Resource struct {
	uri   string
	blank bool

	keys  []string           // predicates in insertion order
	props map[string][]Value // values per predicate
}

func (*Resource) isValue() {}

// New creates a new resource with the given uri.
// When uri is empty, the resource is blank.
func New(uri string) *Resource {
	return &Resource{uri: uri, blank: uri == ""}
}

// NewBlank creates a new blank resource.
func NewBlank() *Resource {
	return &Resource{blank: true}
}

// Res returns r itself.
func (r *Resource) Res() *Resource {
	return r
}

// URI returns the uri of this resource.
// Blank resources return the empty string.
func (r *Resource) URI() string {
	if r.blank {
		return ""
	}
	return r.uri
}

// SetURI assigns a uri to this resource.
func (r *Resource) SetURI(uri string) {
	r.uri = uri
	r.blank = uri == ""
}

// IsBlank checks if this resource does not have a uri yet.
func (r *Resource) IsBlank() bool {
	return r.blank || r.uri == ""
}

// Predicates returns the predicates of this resource in insertion order.
func (r *Resource) Predicates() []string {
	keys := make([]string, len(r.keys))
	copy(keys, r.keys)
	return keys
}

// Len returns the number of distinct predicates.
func (r *Resource) Len() int {
	return len(r.keys)
}

// Get returns the values of the given predicate.
func (r *Resource) Get(predicate string) []Value {
	values := r.props[predicate]
	if len(values) == 0 {
		return nil
	}
	result := make([]Value, len(values))
	copy(result, values)
	return result
}

// First returns the first value of the given predicate.
func (r *Resource) First(predicate string) (Value, bool) {
	values := r.props[predicate]
	if len(values) == 0 {
		return nil, false
	}
	return values[0], true
}

// Has checks if the predicate has at least one value.
func (r *Resource) Has(predicate string) bool {
	return len(r.props[predicate]) > 0
}

// HasValue checks if the predicate has a value equal to v.
func (r *Resource) HasValue(predicate string, v Value) bool {
	for _, value := range r.props[predicate] {
		if Equal(value, v) {
			return true
		}
	}
	return false
}

// Add appends values to the given predicate.
func (r *Resource) Add(predicate string, values ...Value) {
	if len(values) == 0 {
		return
	}
	if r.props == nil {
		r.props = make(map[string][]Value)
	}
	if _, ok := r.props[predicate]; !ok {
		r.keys = append(r.keys, predicate)
	}
	r.props[predicate] = append(r.props[predicate], values...)
}

// AddUnique appends v unless an equal value is already present.
func (r *Resource) AddUnique(predicate string, v Value) {
	if r.HasValue(predicate, v) {
		return
	}
	r.Add(predicate, v)
}

// Set replaces all values of predicate.
// An existing predicate keeps its position; setting no values removes it.
func (r *Resource) Set(predicate string, values ...Value) {
	if len(values) == 0 {
		r.Unset(predicate)
		return
	}
	if _, ok := r.props[predicate]; !ok {
		r.Add(predicate, values...)
		return
	}
	r.props[predicate] = append([]Value(nil), values...)
}

// Unset removes all values of predicate.
func (r *Resource) Unset(predicate string) {
	if _, ok := r.props[predicate]; !ok {
		return
	}
	delete(r.props, predicate)
	for i, key := range r.keys {
		if key == predicate {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
}

// Remove removes all values of predicate equal to v.
func (r *Resource) Remove(predicate string, v Value) {
	values := r.props[predicate]
	kept := values[:0]
	for _, value := range values {
		if !Equal(value, v) {
			kept = append(kept, value)
		}
	}
	if len(kept) == 0 {
		r.Unset(predicate)
		return
	}
	r.props[predicate] = kept
}

// Literal returns the value of the first literal of predicate, or "".
func (r *Resource) Literal(predicate string) string {
	for _, value := range r.props[predicate] {
		if l, ok := value.(Literal); ok {
			return l.Value
		}
	}
	return ""
}

// Literals returns all literal values of predicate.
func (r *Resource) Literals(predicate string) (literals []Literal) {
	for _, value := range r.props[predicate] {
		if l, ok := value.(Literal); ok {
			literals = append(literals, l)
		}
	}
	return
}

// URIs returns the uris referenced by predicate.
// Nested resources contribute their uri, blank nested resources are skipped.
func (r *Resource) URIs(predicate string) (uris []string) {
	for _, value := range r.props[predicate] {
		if uri, ok := URIOf(value); ok {
			uris = append(uris, uri)
		}
	}
	return
}

// Ref returns the first uri referenced by predicate, or "".
func (r *Resource) Ref(predicate string) string {
	for _, value := range r.props[predicate] {
		if uri, ok := URIOf(value); ok {
			return uri
		}
	}
	return ""
}

// Types returns the rdf:type uris of this resource.
func (r *Resource) Types() []string {
	return r.URIs(ns.Type)
}

// HasType checks if this resource is of the given type.
func (r *Resource) HasType(typ string) bool {
	return r.HasValue(ns.Type, URI(typ))
}

// Status returns the openskos:status of this resource.
func (r *Resource) Status() string {
	return r.Literal(ns.Status)
}

// IsDeleted checks if this resource has been soft-deleted.
func (r *Resource) IsDeleted() bool {
	return r.Status() == StatusDeleted
}

// Tenant returns the code of the tenant this resource belongs to.
func (r *Resource) Tenant() string {
	return r.Literal(ns.Tenant)
}

// InSet returns the uri of the set this resource belongs to.
func (r *Resource) InSet() string {
	return r.Ref(ns.Set)
}

// UUID returns the openskos:uuid of this resource.
func (r *Resource) UUID() string {
	return r.Literal(ns.UUID)
}

// Clone returns a deep copy of this resource.
// Nested entities are copied as plain resources.
func (r *Resource) Clone() *Resource {
	return r.clone(make(map[*Resource]*Resource))
}

func (r *Resource) clone(seen map[*Resource]*Resource) *Resource {
	if c, ok := seen[r]; ok {
		return c
	}

	c := &Resource{uri: r.uri, blank: r.blank}
	seen[r] = c

	c.keys = append([]string(nil), r.keys...)
	if r.props != nil {
		c.props = make(map[string][]Value, len(r.props))
	}
	for key, values := range r.props {
		cvalues := make([]Value, len(values))
		for i, value := range values {
			if nested, ok := value.(Entity); ok {
				cvalues[i] = nested.Res().clone(seen)
				continue
			}
			cvalues[i] = value
		}
		c.props[key] = cvalues
	}
	return c
}
