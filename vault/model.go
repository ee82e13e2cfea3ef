// Package vault persists per-principal delegated-access credentials,
// encrypted at rest with the database's pgcrypto primitives. Raw token
// values never reach the logs; only lengths and expiries do.
package vault

import (
	"errors"
	"time"

	"github.com/alexanderovie/fascinante-listings/apierrors"
)

// MinTokenLength is the shortest access or refresh token the vault accepts.
// Provider tokens are far longer; anything below this is corruption or a
// key-rotation artifact.
const MinTokenLength = 20

var ErrNotFound = errors.New("credentials not found")

// CredentialRecord is one principal's delegated-access grant. Created on the
// first successful authorization exchange and updated in place on refresh;
// this layer never deletes it.
type CredentialRecord struct {
	PrincipalID  string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	TokenType    string
	Scope        string
}

// Validate enforces the token format check applied both before persistence
// and after decryption.
func (r *CredentialRecord) Validate() error {
	if r.PrincipalID == "" {
		return apierrors.New(apierrors.KindValidationError, 0, "credential record has no principal")
	}
	if len(r.AccessToken) < MinTokenLength {
		return apierrors.New(apierrors.KindTokenInvalid, 0, "access token failed format check")
	}
	if len(r.RefreshToken) < MinTokenLength {
		return apierrors.New(apierrors.KindTokenInvalid, 0, "refresh token failed format check")
	}
	return nil
}
