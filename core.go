// Package listings wires together the resilient access layer for provider
// business-listing APIs: the credential vault, token refresh coordination,
// rate limiting, the API gateway, the edit coordinator, and the activity
// ledger.
package listings

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alexanderovie/fascinante-listings/config"
	"github.com/alexanderovie/fascinante-listings/editor"
	"github.com/alexanderovie/fascinante-listings/gateway"
	"github.com/alexanderovie/fascinante-listings/ledger"
	"github.com/alexanderovie/fascinante-listings/logging"
	"github.com/alexanderovie/fascinante-listings/migrations"
	"github.com/alexanderovie/fascinante-listings/ratelimit"
	"github.com/alexanderovie/fascinante-listings/session"
	"github.com/alexanderovie/fascinante-listings/tokens"
	"github.com/alexanderovie/fascinante-listings/vault"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Seams for testing database setup.
var (
	sqlOpen = sql.Open

	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return goose.UpContext(ctx, db, dir, opts...)
	}
)

// Core owns the shared infrastructure and exposes the per-concern services.
type Core struct {
	cfg *config.Config
	log logging.Logger
	db  *sql.DB

	Vault    *vault.Service
	Tokens   *tokens.Coordinator
	Limiter  *ratelimit.Registry
	Gateway  *gateway.Client
	Editor   *editor.Coordinator
	Ledger   *ledger.Service
	Archiver *ledger.Archiver
}

// New opens the database, runs migrations, and wires the service graph.
func New(ctx context.Context, cfg *config.Config, log logging.Logger) (*Core, error) {
	db, err := sqlOpen("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("error running migrations: %w", err)
	}

	vaultSvc := vault.NewService(vault.NewPostgresRepository(db, cfg.VaultEncryptionKey), log)

	exchanger := tokens.NewHTTPExchanger(cfg.TokenEndpoint, cfg.ProviderClientID, cfg.ProviderClientSecret)
	coordinator := tokens.NewCoordinator(vaultSvc, exchanger, log, tokens.WithRefreshMargin(cfg.RefreshMargin))

	limiter := ratelimit.NewRegistry()

	gw := gateway.NewClient(coordinator, gateway.Endpoints{
		Identity:    cfg.IdentityEndpoint,
		Business:    cfg.BusinessEndpoint,
		Performance: cfg.PerformanceEndpoint,
	}, log, gateway.WithTimeout(cfg.RequestTimeout))

	ledgerRepo := ledger.NewPostgresRepository(db)
	ledgerSvc := ledger.NewService(ledgerRepo, log)

	return &Core{
		cfg:      cfg,
		log:      log,
		db:       db,
		Vault:    vaultSvc,
		Tokens:   coordinator,
		Limiter:  limiter,
		Gateway:  gw,
		Editor:   editor.NewCoordinator(gw, limiter, ledgerSvc, log),
		Ledger:   ledgerSvc,
		Archiver: ledger.NewArchiver(ledgerRepo, cfg.Archive(), log),
	}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetDialect("pgx")
	return gooseUpContext(ctx, db, ".")
}

// PrincipalFromSession verifies a dashboard session token and returns the
// principal it was minted for.
func (c *Core) PrincipalFromSession(token string) (string, error) {
	return session.Principal(token, []byte(c.cfg.SessionSecret))
}

// Close releases the limiter janitor and the database pool.
func (c *Core) Close() error {
	c.Limiter.Close()
	return c.db.Close()
}
