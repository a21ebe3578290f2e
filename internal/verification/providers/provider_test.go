package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"landtrust/internal/verification/identity"
)

func TestRequirementsSatisfiedBy(t *testing.T) {
	email := Requirements{AllOf: []Field{FieldEmail}}
	validEmail := Requirements{AllOf: []Field{FieldValidEmail}}
	nameOrEmail := Requirements{AnyOf: []Field{FieldName, FieldEmail}}

	malformed := identity.Descriptor{OwnerName: "John Smith", Email: "john.smith"}
	wellFormed := identity.Descriptor{Email: "john@example.com"}

	assert.True(t, email.SatisfiedBy(malformed))
	assert.False(t, validEmail.SatisfiedBy(malformed))
	assert.True(t, validEmail.SatisfiedBy(wellFormed))
	assert.True(t, nameOrEmail.SatisfiedBy(malformed))
	assert.False(t, nameOrEmail.SatisfiedBy(identity.Descriptor{Address: "1 Main St"}))
	assert.True(t, Requirements{}.SatisfiedBy(identity.Descriptor{}))
}
