package vault

import "context"

// Repository defines credential persistence. Implementations must store
// token material encrypted and return ErrNotFound for absent principals.
type Repository interface {
	// Upsert inserts or replaces the principal's credential row.
	Upsert(ctx context.Context, rec *CredentialRecord) error

	// Get returns the decrypted credential record for principalID.
	Get(ctx context.Context, principalID string) (*CredentialRecord, error)
}
