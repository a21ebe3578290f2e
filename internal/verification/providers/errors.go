package providers

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCategory classifies why a provider produced no contribution. Adapters
// map their API-specific failures onto it so circuit breaking, logs and the
// provider_calls_total outcome label agree across providers.
type ErrorCategory string

const (
	ErrorTimeout        ErrorCategory = "timeout"
	ErrorBadData        ErrorCategory = "bad_data"
	ErrorAuthentication ErrorCategory = "authentication"
	ErrorProviderOutage ErrorCategory = "provider_outage"
	ErrorNotFound       ErrorCategory = "not_found"
	ErrorRateLimited    ErrorCategory = "rate_limited"
	ErrorInternal       ErrorCategory = "internal"
)

// categoryPolicy says how a failure affects the next verification of the
// same owner. A transient failure may succeed if the request is re-issued; a
// failure that trips the circuit says the provider itself is unhealthy rather
// than the record being poor.
type categoryPolicy struct {
	transient    bool
	tripsCircuit bool
}

var policies = map[ErrorCategory]categoryPolicy{
	ErrorTimeout:        {transient: true, tripsCircuit: true},
	ErrorProviderOutage: {transient: true, tripsCircuit: true},
	ErrorRateLimited:    {transient: true, tripsCircuit: true},
	ErrorAuthentication: {tripsCircuit: true},
	ErrorInternal:       {tripsCircuit: true},
	ErrorNotFound:       {},
	ErrorBadData:        {},
}

// Transient reports whether re-issuing the verification could succeed.
func (c ErrorCategory) Transient() bool { return policies[c].transient }

// TripsCircuit reports whether the failure counts toward opening the
// provider's circuit breaker. A provider that answered "not found" or sent a
// body that did not parse is still reachable.
func (c ErrorCategory) TripsCircuit() bool { return policies[c].tripsCircuit }

// CallError is a categorized failure of one provider call.
type CallError struct {
	Category   ErrorCategory
	ProviderID string
	Message    string
	Err        error
}

func (e *CallError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %s [%s]: %s: %v", e.ProviderID, e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("provider %s [%s]: %s", e.ProviderID, e.Category, e.Message)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

func NewCallError(category ErrorCategory, providerID, message string, err error) *CallError {
	return &CallError{Category: category, ProviderID: providerID, Message: message, Err: err}
}

// ErrCircuitOpen is the cause of a call short-circuited by an open breaker.
var ErrCircuitOpen = errors.New("circuit open")

// CircuitOpen is the failure recorded for a provider skipped because its
// breaker is open. It scores as an outage.
func CircuitOpen(providerID string) *CallError {
	return NewCallError(ErrorProviderOutage, providerID, "circuit open", ErrCircuitOpen)
}

// CategoryOf returns the category of the first CallError in the chain. A bare
// deadline error counts as a timeout; anything else is internal.
func CategoryOf(err error) ErrorCategory {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Category
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}
	return ErrorInternal
}

// IsTransient reports whether err is a failure a re-issued request could
// recover from.
func IsTransient(err error) bool {
	return err != nil && CategoryOf(err).Transient()
}
