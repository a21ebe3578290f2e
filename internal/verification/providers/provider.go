//go:generate mockgen -source=provider.go -destination=mocks/provider_mock.go -package=mocks Provider

package providers

import (
	"context"
	"fmt"

	"landtrust/internal/verification/identity"
)

// Field names a provider may require from an identity descriptor.
type Field string

const (
	FieldName    Field = "ownerName"
	FieldEmail   Field = "email"
	FieldAddress Field = "address"

	// FieldValidEmail is FieldEmail restricted to syntactically valid
	// addresses.
	FieldValidEmail Field = "validEmail"
)

// Requirements describes which descriptor fields a provider needs before it can
// be called. AllOf fields must all be present; when AnyOf is non-empty at least
// one of them must be present.
type Requirements struct {
	AllOf []Field
	AnyOf []Field
}

// SatisfiedBy reports whether d carries the fields this provider needs.
func (r Requirements) SatisfiedBy(d identity.Descriptor) bool {
	for _, f := range r.AllOf {
		if !has(d, f) {
			return false
		}
	}
	if len(r.AnyOf) == 0 {
		return true
	}
	for _, f := range r.AnyOf {
		if has(d, f) {
			return true
		}
	}
	return false
}

func has(d identity.Descriptor, f Field) bool {
	switch f {
	case FieldName:
		return d.HasName()
	case FieldEmail:
		return d.HasEmail()
	case FieldValidEmail:
		return d.HasValidEmail()
	case FieldAddress:
		return d.HasAddress()
	default:
		return false
	}
}

// PartialResult is one provider's normalized contribution to a trust report.
//
// Score is already on the 0-100 scale; each provider owns the formula that maps
// its native representation onto it. Details keys are provider-specific and
// merged into the report without conflict resolution.
type PartialResult struct {
	Source   string         `json:"source"`
	Score    float64        `json:"score"`
	Details  map[string]any `json:"details"`
	Warnings []string       `json:"warnings"`
}

// Provider is implemented by every external verification source.
//
// Verify returns (nil, nil) when the descriptor lacks the fields the provider
// needs: that is "no contribution", not a failure. Any call failure is returned
// as a *CallError. Implementations must not panic past their own boundary
// and must honor ctx cancellation.
type Provider interface {
	// ID returns the stable source identifier (e.g., "hunter").
	ID() string

	// Requirements returns the descriptor fields the provider needs.
	Requirements() Requirements

	// Verify performs one lookup for d.
	Verify(ctx context.Context, d identity.Descriptor) (*PartialResult, error)
}

// Registry holds the configured providers in invocation order.
//
// Order is part of the contract: verifications and warnings in a trust report
// follow it. Register all providers during initialization; Registry is not
// safe for concurrent mutation.
type Registry struct {
	ordered []Provider
	byID    map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{
		byID: make(map[string]Provider),
	}
}

// Register appends a provider to the invocation order.
// Returns an error if a provider with the same ID is already registered.
func (r *Registry) Register(p Provider) error {
	id := p.ID()
	if _, exists := r.byID[id]; exists {
		return fmt.Errorf("provider %s already registered", id)
	}
	r.byID[id] = p
	r.ordered = append(r.ordered, p)
	return nil
}

func (r *Registry) Get(id string) (Provider, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// All returns the providers in invocation order. The slice is a copy.
func (r *Registry) All() []Provider {
	out := make([]Provider, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// IDs returns provider IDs in invocation order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.ordered))
	for _, p := range r.ordered {
		ids = append(ids, p.ID())
	}
	return ids
}

func (r *Registry) Len() int {
	return len(r.ordered)
}
