package resource

import (
	"time"

	"github.com/FAU-CDI/skosd/internal/ns"
	"github.com/google/uuid"
)

// Metadata describes the ownership context a resource is saved in.
type Metadata struct {
	TenantCode string // code of the owning tenant
	TenantURI  string // uri of the owning tenant, used as publisher
	SetURI     string // uri of the set the resource belongs to
	PersonURI  string // uri of the acting person

	// Existing is set when the resource replaces a stored version.
	Existing bool

	// ExistingStatus is the status of the stored version (if any).
	ExistingStatus string

	// Now is the time to stamp; zero means time.Now().
	Now time.Time
}

func (md Metadata) now() time.Time {
	if md.Now.IsZero() {
		return time.Now()
	}
	return md.Now
}

// EnsureMetadata stamps ownership and timestamps onto this resource.
func (r *Resource) EnsureMetadata(md Metadata) {
	now := DateTime(md.now())

	if !r.Has(ns.UUID) {
		r.Set(ns.UUID, Plain(uuid.NewString()))
	}

	if md.TenantCode != "" {
		r.Set(ns.Tenant, Plain(md.TenantCode))
	}
	if md.TenantURI != "" {
		r.Set(ns.Publisher, URI(md.TenantURI))
	}
	if md.SetURI != "" {
		r.Set(ns.Set, URI(md.SetURI))
	}

	if !md.Existing {
		if !r.Has(ns.DateSubmitted) {
			r.Set(ns.DateSubmitted, now)
		}
		if md.PersonURI != "" && !r.Has(ns.Creator) {
			r.Set(ns.Creator, URI(md.PersonURI))
		}
		return
	}

	r.Set(ns.Modified, now)
	if md.PersonURI != "" {
		r.Set(ns.ModifiedBy, URI(md.PersonURI))
	}
}

// EnsureMetadata stamps metadata and additionally maintains the concept status.
//
// New concepts without a status become candidates.
// Updated concepts without a status inherit the stored status.
func (c *Concept) EnsureMetadata(md Metadata) {
	c.Resource.EnsureMetadata(md)

	if c.Has(ns.Status) {
		return
	}

	status := StatusCandidate
	if md.Existing && md.ExistingStatus != "" {
		status = md.ExistingStatus
	}
	c.Set(ns.Status, Plain(status))
}

// MarkDeleted sets the soft-deletion fields of r.
// deletedBy may be empty.
func (r *Resource) MarkDeleted(at time.Time, deletedBy string) {
	r.Set(ns.Status, Plain(StatusDeleted))
	r.Set(ns.DateDeleted, DateTime(at))
	if deletedBy != "" {
		r.Set(ns.DeletedBy, URI(deletedBy))
	}
}
