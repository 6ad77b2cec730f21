// Package validator implements rules checked before a resource may be written.
//
// Rules are independent of each other.
// A Chain runs several rules and collects the messages of all failing ones.
package validator

import (
	"context"
	"fmt"
	"strings"

	"github.com/FAU-CDI/skosd/internal/manager"
	"github.com/FAU-CDI/skosd/internal/resource"
	"github.com/FAU-CDI/skosd/internal/status"
)

// Validator checks a single resource.
//
// Validate reports if r passes.
// Failing validators never return errors, but accumulate messages instead.
type Validator interface {
	Validate(ctx context.Context, r resource.Entity) bool
	ErrorMessages() []string
	ErrorCodes() []int
}

// Coder is implemented by validators that fail with a specific api error code.
type Coder interface {
	Code() int
}

// ManagerAware is implemented by validators that need to query the store.
type ManagerAware interface {
	SetManager(m *manager.Manager)
}

// TenantAware is implemented by validators that need the tenant a resource is validated for.
type TenantAware interface {
	SetTenant(tenant *resource.Tenant)
}

// report accumulates messages and codes of a validator.
type report struct {
	messages []string
	codes    []int
}

// fail records a failure with the given code and returns false.
// A code of zero records no code.
func (rp *report) fail(code int, format string, args ...any) bool {
	rp.messages = append(rp.messages, fmt.Sprintf(format, args...))
	if code != 0 {
		rp.codes = append(rp.codes, code)
	}
	return false
}

func (rp *report) ErrorMessages() []string { return rp.messages }
func (rp *report) ErrorCodes() []int       { return rp.codes }

// Chain runs a sequence of validators.
// A resource passes a chain only if it passes every validator.
type Chain struct {
	report

	validators []Validator
	status     *status.Status
}

var _ Validator = (*Chain)(nil)

// NewChain creates a new chain of validators.
//
// Validators implementing ManagerAware or TenantAware receive m and tenant respectively.
// tenant may be nil, in which case it is not injected.
func NewChain(m *manager.Manager, tenant *resource.Tenant, st *status.Status, validators ...Validator) *Chain {
	for _, v := range validators {
		if ma, ok := v.(ManagerAware); ok && m != nil {
			ma.SetManager(m)
		}
		if ta, ok := v.(TenantAware); ok && tenant != nil {
			ta.SetTenant(tenant)
		}
	}
	return &Chain{validators: validators, status: st}
}

// Validate runs every validator against r.
// Messages and codes of all failing validators are accumulated.
func (c *Chain) Validate(ctx context.Context, r resource.Entity) bool {
	ok := true
	for _, v := range c.validators {
		before, beforeCodes := len(v.ErrorMessages()), len(v.ErrorCodes())
		if v.Validate(ctx, r) {
			continue
		}
		ok = false

		messages := v.ErrorMessages()[before:]
		c.messages = append(c.messages, messages...)

		codes := v.ErrorCodes()[beforeCodes:]
		if coder, isCoder := v.(Coder); isCoder && len(codes) == 0 {
			codes = []int{coder.Code()}
		}
		c.codes = append(c.codes, codes...)

		c.status.Log("validation failed", "uri", r.Res().URI(), "validator", fmt.Sprintf("%T", v), "messages", strings.Join(messages, " "))
	}
	return ok
}

// Error returns the accumulated messages joined by spaces.
func (c *Chain) Error() string {
	return strings.Join(c.messages, " ")
}

// Code returns the code of the first failure that has a code, or fallback.
func (c *Chain) Code(fallback int) int {
	if len(c.codes) > 0 {
		return c.codes[0]
	}
	return fallback
}
