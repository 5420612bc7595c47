package client

import (
	"context"

	"github.com/anmicius0/euvat-checker/internal/vat"
)

// RegistryClient verifies one identifier against the VAT registry.
// Use NewViesClient to obtain the VIES implementation.
//
// Verify performs exactly one network call and never retries. Every failure is a
// *RegistryError. Close releases idle connections.
type RegistryClient interface {
	Verify(ctx context.Context, identifier string) (*vat.VerificationResult, error)
	Close() error
}
