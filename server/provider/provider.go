package provider

import (
	"context"
)

//go:generate mockgen -destination=mocks/mock_adapter.go -package=mocks -source=provider.go Adapter

// Query describes one fetch cycle's filter. It is derived from the session
// configuration and never mutated by an adapter.
type Query struct {
	// Category is the visa category group the user selected (e.g. "schengen").
	Category string

	// Country is the mission country the user wants an appointment for.
	Country string

	// City is the applicant's city; matched case-insensitively against
	// center names reported by the backend.
	City string
}

// Adapter fetches and normalizes appointment slots from one backend.
// Implementations classify every failure as a *Error so the session runner
// can apply the retry policy without knowing backend specifics.
type Adapter interface {
	// Name returns a short stable identifier for this adapter variant
	// (e.g. "aggregator", "vfs").
	Name() string

	// FetchSlots performs one poll cycle against the backend and returns
	// the normalized slots matching the query. Slot dates are already
	// converted to the target time zone when this returns.
	FetchSlots(ctx context.Context, query Query) ([]Slot, error)
}
