// Package api implements the create, update, delete and read workflows for skos resources.
//
// An Orchestrator sequences the Resource Manager, the Validator Chain and the
// Label Reconciliation Engine for a single kind of resource.
// Handler binds a set of orchestrators to http.
//
// Writes are not atomic.
// When a step fails, earlier steps are not undone and the error is returned as is.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/FAU-CDI/skosd/internal/bridge"
	"github.com/FAU-CDI/skosd/internal/catalog"
	"github.com/FAU-CDI/skosd/internal/labels"
	"github.com/FAU-CDI/skosd/internal/manager"
	"github.com/FAU-CDI/skosd/internal/ns"
	"github.com/FAU-CDI/skosd/internal/resource"
	"github.com/FAU-CDI/skosd/internal/search"
	"github.com/FAU-CDI/skosd/internal/sparql"
	"github.com/FAU-CDI/skosd/internal/status"
	"github.com/FAU-CDI/skosd/internal/validator"
)

// Error is an error reported to the caller of the api.
type Error struct {
	Code    int // http status code
	Message string
}

func (err *Error) Error() string {
	return fmt.Sprintf("%d %s", err.Code, err.Message)
}

func errorf(code int, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsError turns err into an error to report to the caller.
// Errors that are not expected by the api become internal server errors.
func AsError(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}

	switch {
	case errors.Is(err, labels.ErrInvalidLabel):
		return errorf(http.StatusBadRequest, "Not a valid xl label provided.")
	case errors.Is(err, manager.ErrNotFound):
		return errorf(http.StatusNotFound, "%s", sentence(err.Error()))
	case errors.Is(err, manager.ErrAlreadyExists):
		return errorf(http.StatusConflict, "%s", sentence(err.Error()))
	case errors.Is(err, labels.ErrLabelMissing),
		errors.Is(err, labels.ErrNoTenant),
		errors.Is(err, labels.ErrIncompleteLabel),
		errors.Is(err, manager.ErrInvalidRelation),
		errors.Is(err, manager.ErrRelationCycle),
		errors.Is(err, manager.ErrDuplicateRelation),
		errors.Is(err, bridge.ErrCycle),
		errors.Is(err, sparql.ErrInvalidTerm):
		return errorf(http.StatusBadRequest, "%s", sentence(err.Error()))
	case errors.Is(err, manager.ErrTransient):
		return errorf(http.StatusServiceUnavailable, "%s", sentence(err.Error()))
	}
	return errorf(http.StatusInternalServerError, "Internal server error")
}

// sentence capitalizes s and terminates it with a period.
func sentence(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	s = string(unicode.ToUpper(r)) + s[size:]
	if !strings.HasSuffix(s, ".") {
		s += "."
	}
	return s
}

// AuthPolicy determines who may change resources.
type AuthPolicy int

const (
	// AuthNone performs no authorisation checks.
	// Callers do not need to identify themselves.
	AuthNone AuthPolicy = iota

	// AuthTenant requires the role of the resource kind,
	// and restricts users to resources of their own tenant.
	// Root users may change resources of every tenant.
	AuthTenant

	// AuthOwner is AuthTenant, but additionally users below administrator
	// may only change resources they created.
	AuthOwner
)

func (policy AuthPolicy) String() string {
	switch policy {
	case AuthNone:
		return "none"
	case AuthTenant:
		return "tenant"
	case AuthOwner:
		return "owner"
	}
	return fmt.Sprintf("AuthPolicy(%d)", int(policy))
}

// ParseAuthPolicy parses the name of an authorisation policy.
func ParseAuthPolicy(name string) (AuthPolicy, error) {
	for _, policy := range []AuthPolicy{AuthNone, AuthTenant, AuthOwner} {
		if policy.String() == name {
			return policy, nil
		}
	}
	return AuthNone, fmt.Errorf("unknown authorisation policy %q", name)
}

// Config configures orchestrators.
type Config struct {
	Manager manager.Config
	Auth    AuthPolicy

	// ForceLabels creates skos-xl labels for simple labels,
	// even when the tenant has skos-xl labels enabled.
	ForceLabels bool

	// UniquePrefLabels rejects new concepts whose preferred label is already in use.
	UniquePrefLabels bool
}

// ValidatorFactory builds the validator chain for a single request.
type ValidatorFactory func(m *manager.Manager, tenant *resource.Tenant, st *status.Status) *validator.Chain

// ResourceAPI describes how the api handles a single kind of resource.
type ResourceAPI struct {
	Name string // name in urls
	Type string // rdf:type of the resources

	// IDProperty is used to look up resources by an identifier that is neither a uri nor a uuid.
	IDProperty string

	// Role is the minimal role of users changing resources of this kind.
	Role catalog.Role

	Tenanted   bool // resources belong to a tenant
	InSet      bool // resources belong to a set
	SoftDelete bool // resources are marked as deleted instead of being removed
	Labels     bool // skos-xl labels are reconciled on every write

	// Cascade soft-deletes concepts that are only in a deleted scheme,
	// and removes the scheme from all other concepts.
	Cascade bool

	// Validator builds the validator chain.
	// When nil, validator.For is used.
	Validator ValidatorFactory
}

// The kinds of resources served by skosd.
var (
	Concepts = ResourceAPI{
		Name:       "concept",
		Type:       ns.Concept,
		IDProperty: ns.Notation,
		Role:       catalog.RoleEditor,
		Tenanted:   true,
		InSet:      true,
		SoftDelete: true,
		Labels:     true,
	}
	ConceptSchemes = ResourceAPI{
		Name:       "conceptscheme",
		Type:       ns.ConceptScheme,
		IDProperty: ns.UUID,
		Role:       catalog.RoleEditor,
		Tenanted:   true,
		InSet:      true,
		Cascade:    true,
	}
	Collections = ResourceAPI{
		Name:       "collection",
		Type:       ns.Collection,
		IDProperty: ns.UUID,
		Role:       catalog.RoleEditor,
		Tenanted:   true,
		InSet:      true,
	}
	XLLabels = ResourceAPI{
		Name:       "label",
		Type:       ns.XLLabel,
		IDProperty: ns.UUID,
		Role:       catalog.RoleEditor,
		Tenanted:   true,
	}
	Sets = ResourceAPI{
		Name:       "set",
		Type:       ns.SetType,
		IDProperty: ns.Code,
		Role:       catalog.RoleAdministrator,
		Tenanted:   true,
	}
	Tenants = ResourceAPI{
		Name:       "tenant",
		Type:       ns.TenantType,
		IDProperty: ns.Code,
		Role:       catalog.RoleRoot,
	}
	RelationTypes = ResourceAPI{
		Name:       "relationtype",
		Type:       ns.ObjectProperty,
		IDProperty: ns.UUID,
		Role:       catalog.RoleAdministrator,
	}
)

// DefaultAPIs returns all kinds of resources served by skosd.
func DefaultAPIs() []ResourceAPI {
	return []ResourceAPI{Concepts, ConceptSchemes, Collections, XLLabels, Sets, Tenants, RelationTypes}
}

// Services are the collaborators shared by all orchestrators.
type Services struct {
	Client sparql.Client

	// Catalog resolves tenants, sets and users.
	// When nil, tenants and sets are resolved from the store and only AuthNone can be used.
	Catalog *catalog.Catalog

	// Index is updated on every write.
	// When nil, Find and AutoComplete are unavailable.
	Index *search.Index

	Status *status.Status
}
