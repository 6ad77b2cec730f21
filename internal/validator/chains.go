package validator

import (
	"github.com/FAU-CDI/skosd/internal/manager"
	"github.com/FAU-CDI/skosd/internal/ns"
	"github.com/FAU-CDI/skosd/internal/resource"
	"github.com/FAU-CDI/skosd/internal/status"
)

// Rules returns fresh validators for resources of the given type.
// Unknown types are only checked for their type.
func Rules(typ string) []Validator {
	switch typ {
	case ns.Concept:
		return []Validator{
			&RequiredType{Type: ns.Concept},
			&Tenant{},
			DuplicateBroader(),
			DuplicateNarrower(),
			DuplicateRelated(),
			&InScheme{},
			&RelatedToSelf{},
			&UniqueNotation{},
			&RelationCycle{},
		}
	case ns.ConceptScheme:
		return []Validator{
			&RequiredType{Type: ns.ConceptScheme},
			&Tenant{},
			&Property{Predicate: ns.Title, Required: true},
		}
	case ns.TenantType:
		return []Validator{
			&RequiredType{Type: ns.TenantType},
			&Property{Predicate: ns.Code, Required: true, Single: true, Unique: true},
			&Property{Predicate: ns.UUID, Single: true, Unique: true},
			&Property{Predicate: ns.VCardEmail, Required: true, Single: true},
			&Property{Predicate: ns.DisableSearchInOtherTenants, Required: true, Single: true, Boolean: true},
			&Property{Predicate: ns.EnableStatussesSystem, Required: true, Single: true, Boolean: true},
			&Property{Predicate: ns.EnableSkosXl, Single: true, Boolean: true},
		}
	case ns.SetType:
		return []Validator{
			&RequiredType{Type: ns.SetType},
			&Tenant{},
			&Property{Predicate: ns.Code, Required: true, Single: true, Unique: true},
		}
	default:
		return []Validator{&RequiredType{Type: typ}}
	}
}

// For returns a chain validating resources of the type managed by m.
func For(m *manager.Manager, tenant *resource.Tenant, st *status.Status) *Chain {
	return NewChain(m, tenant, st, Rules(m.Type())...)
}
