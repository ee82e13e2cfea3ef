// Package tokens hands out currently-valid provider access tokens,
// refreshing through the vault's refresh token when a credential is at or
// near expiry. Concurrent requests for the same principal share one
// in-flight refresh instead of stampeding the provider.
package tokens

import (
	"context"
	"time"

	"github.com/alexanderovie/fascinante-listings/apierrors"
	"github.com/alexanderovie/fascinante-listings/logging"
	"github.com/alexanderovie/fascinante-listings/vault"
	"golang.org/x/sync/singleflight"
)

// RefreshMargin is how long before expiry a token is already treated as
// stale, so callers never hold a token that dies mid-request.
const RefreshMargin = 5 * time.Minute

// Grant is the provider's answer to a refresh-token exchange.
// RefreshToken is empty unless the provider rotated it.
type Grant struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	ExpiresIn    int64
}

// Exchanger performs the provider's refresh-token exchange. Failures must
// come back classified; the coordinator does not retry them itself, that
// policy belongs to the layer wrapping gateway calls.
type Exchanger interface {
	Exchange(ctx context.Context, refreshToken string) (*Grant, error)
}

// Coordinator de-duplicates in-flight refreshes per (principal, force) key.
// State is process-local: across replicas each instance refreshes
// independently, which the provider tolerates but is a known scaling gap.
type Coordinator struct {
	vault  *vault.Service
	exch   Exchanger
	margin time.Duration
	now    func() time.Time
	group  singleflight.Group
	log    logging.Logger
}

type Option func(*Coordinator)

// WithRefreshMargin overrides how long before expiry a token counts as stale.
func WithRefreshMargin(d time.Duration) Option {
	return func(c *Coordinator) { c.margin = d }
}

func NewCoordinator(v *vault.Service, exch Exchanger, log logging.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		vault:  v,
		exch:   exch,
		margin: RefreshMargin,
		now:    time.Now,
		log:    log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AccessToken returns a valid access token for the principal, refreshing
// first when forced or when the stored token is inside the expiry margin.
// Concurrent callers with the same key join the single outstanding
// operation; the in-flight entry is dropped exactly once on completion, so
// the next caller starts fresh.
func (c *Coordinator) AccessToken(ctx context.Context, principalID string, forceRefresh bool) (string, error) {
	key := principalID
	if forceRefresh {
		key += ":force"
	}

	// The outcome is shared with piggy-backed callers, so the refresh must
	// not die with the first caller's cancellation. The exchange carries its
	// own timeout.
	v, err, shared := c.group.Do(key, func() (any, error) {
		return c.currentToken(context.WithoutCancel(ctx), principalID, forceRefresh)
	})
	if err != nil {
		return "", err
	}
	if shared {
		c.log.Debug(ctx, "refresh de-duplicated", "principal", principalID, "force", forceRefresh)
	}
	return v.(string), nil
}

func (c *Coordinator) currentToken(ctx context.Context, principalID string, forceRefresh bool) (string, error) {
	rec, err := c.vault.Load(ctx, principalID)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", apierrors.New(apierrors.KindUnauthorized, 401, "no provider credentials for principal")
	}

	if !forceRefresh && c.now().Before(rec.ExpiresAt.Add(-c.margin)) {
		return rec.AccessToken, nil
	}

	grant, err := c.exch.Exchange(ctx, rec.RefreshToken)
	if err != nil {
		c.log.Warn(ctx, "refresh exchange failed", "principal", principalID)
		return "", err
	}

	rec.AccessToken = grant.AccessToken
	if grant.RefreshToken != "" {
		rec.RefreshToken = grant.RefreshToken
	}
	rec.ExpiresAt = c.now().Add(time.Duration(grant.ExpiresIn) * time.Second)
	if grant.TokenType != "" {
		rec.TokenType = grant.TokenType
	}
	if grant.Scope != "" {
		rec.Scope = grant.Scope
	}

	if err := c.vault.Store(ctx, principalID, rec); err != nil {
		return "", err
	}

	c.log.Info(ctx, "credentials refreshed",
		"principal", principalID,
		"access_token_len", len(rec.AccessToken),
		"expires_at", rec.ExpiresAt,
		"rotated_refresh_token", grant.RefreshToken != "",
	)
	return rec.AccessToken, nil
}
