// Package provider defines the statement ingestion abstraction: a
// StatementProvider interface for upstream disclosure sources and a
// registry that holds providers in consultation priority order.
package provider

import (
	"context"
	"fmt"
	"time"

	"fincanon/pkg/models"
)

// StatementProvider is the interface every upstream ingestion adapter
// implements. Fetch methods must treat provider-side absence of data as
// a successful empty result; only transport or auth failures are errors.
// Repeated calls with the same arguments are expected to return the same
// or a superset of facts as the provider's disclosure history grows.
type StatementProvider interface {
	// Name returns the provider id used in alias lookups and provenance.
	Name() string

	// FetchStatements fetches raw observations of one statement kind for
	// a company, covering disclosures with period-end dates at or after
	// since.
	FetchStatements(ctx context.Context, code string, kind models.StatementKind, since time.Time) ([]models.RawObservation, error)

	// Ping verifies connectivity and credentials.
	Ping(ctx context.Context) error
}

// TransportError wraps a transport or auth failure from a provider call.
// The pipeline treats it as "no data from this provider" and proceeds to
// the next provider in priority order.
type TransportError struct {
	Provider string
	Op       string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ErrProviderNotFound is returned when a requested provider is not registered.
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return fmt.Sprintf("provider %q not found", e.Name)
}
