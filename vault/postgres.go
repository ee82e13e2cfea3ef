package vault

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alexanderovie/fascinante-listings/internal/dbx"
)

// PostgresRepository stores credentials in the provider_credentials table.
// Encryption and decryption happen inside Postgres via pgp_sym_encrypt /
// pgp_sym_decrypt, keyed by a server-held secret that never appears in
// application logs or query results.
type PostgresRepository struct {
	db  dbx.DBTX
	key string
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
// encryptionKey is the pgcrypto passphrase.
func NewPostgresRepository(db dbx.DBTX, encryptionKey string) *PostgresRepository {
	return &PostgresRepository{db: db, key: encryptionKey}
}

func (r *PostgresRepository) Upsert(ctx context.Context, rec *CredentialRecord) error {
	query := `
		INSERT INTO provider_credentials (principal_id, access_token, refresh_token, expires_at, token_type, scope, updated_at)
		VALUES ($1, pgp_sym_encrypt($2, $7), pgp_sym_encrypt($3, $7), $4, $5, $6, now())
		ON CONFLICT (principal_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			token_type = EXCLUDED.token_type,
			scope = EXCLUDED.scope,
			updated_at = now()
	`
	if _, err := r.db.ExecContext(ctx, query,
		rec.PrincipalID, rec.AccessToken, rec.RefreshToken,
		rec.ExpiresAt, rec.TokenType, rec.Scope, r.key); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, principalID string) (*CredentialRecord, error) {
	query := `
		SELECT pgp_sym_decrypt(access_token, $2), pgp_sym_decrypt(refresh_token, $2), expires_at, token_type, scope
		FROM provider_credentials
		WHERE principal_id = $1
	`
	rec := &CredentialRecord{PrincipalID: principalID}
	err := r.db.QueryRowContext(ctx, query, principalID, r.key).
		Scan(&rec.AccessToken, &rec.RefreshToken, &rec.ExpiresAt, &rec.TokenType, &rec.Scope)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}
