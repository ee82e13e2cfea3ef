package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexanderovie/fascinante-listings/apierrors"
	"github.com/alexanderovie/fascinante-listings/logging"
)

// Service wraps the repository with the principal-match check and the token
// format validation applied on both sides of encryption.
type Service struct {
	repo Repository
	log  logging.Logger
}

func NewService(repo Repository, log logging.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Store persists rec for its principal. The caller's authenticated principal
// must match the record's principal: a session for A can never write
// credentials for B.
func (s *Service) Store(ctx context.Context, authPrincipal string, rec *CredentialRecord) error {
	if authPrincipal == "" || authPrincipal != rec.PrincipalID {
		return apierrors.New(apierrors.KindInsufficientPermissions, 403,
			"authenticated principal does not match credential target")
	}

	if err := rec.Validate(); err != nil {
		return err
	}

	if err := s.repo.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("error storing credentials: %w", err)
	}

	s.log.Info(ctx, "credentials stored",
		"principal", rec.PrincipalID,
		"access_token_len", len(rec.AccessToken),
		"refresh_token_len", len(rec.RefreshToken),
		"expires_at", rec.ExpiresAt,
	)
	return nil
}

// Load returns the principal's credentials, or (nil, nil) when none exist.
// Decrypted material failing the format check is a typed TokenInvalid
// failure: it means the encryption key rotated or the row is corrupt.
func (s *Service) Load(ctx context.Context, principalID string) (*CredentialRecord, error) {
	rec, err := s.repo.Get(ctx, principalID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("error loading credentials: %w", err)
	}

	if err := rec.Validate(); err != nil {
		s.log.Error(ctx, "decrypted credentials failed format check",
			"principal", principalID,
			"access_token_len", len(rec.AccessToken),
			"refresh_token_len", len(rec.RefreshToken),
		)
		return nil, apierrors.Wrap(apierrors.KindTokenInvalid, 0,
			"stored credentials are unreadable; key rotation or corruption", err)
	}

	s.log.Debug(ctx, "credentials loaded",
		"principal", principalID,
		"expires_at", rec.ExpiresAt,
	)
	return rec, nil
}
