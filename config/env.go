package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays configuration values from the environment. A .env file
// in the working directory is loaded first when present; real environment
// variables win over it.
func parseEnv(config *Config) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading .env file: %w", err)
	}

	envString(&config.DatabaseDSN, "FASCINANTE_DATABASE_DSN")
	envString(&config.VaultEncryptionKey, "FASCINANTE_VAULT_ENCRYPTION_KEY")
	envString(&config.SessionSecret, "FASCINANTE_SESSION_SECRET")
	envString(&config.ProviderClientID, "FASCINANTE_PROVIDER_CLIENT_ID")
	envString(&config.ProviderClientSecret, "FASCINANTE_PROVIDER_CLIENT_SECRET")
	envString(&config.TokenEndpoint, "FASCINANTE_TOKEN_ENDPOINT")
	envString(&config.IdentityEndpoint, "FASCINANTE_IDENTITY_ENDPOINT")
	envString(&config.BusinessEndpoint, "FASCINANTE_BUSINESS_ENDPOINT")
	envString(&config.PerformanceEndpoint, "FASCINANTE_PERFORMANCE_ENDPOINT")
	envString(&config.ArchiveBucket, "FASCINANTE_ARCHIVE_BUCKET")
	envString(&config.ArchiveRegion, "FASCINANTE_ARCHIVE_REGION")
	envString(&config.ArchiveBaseEndpoint, "FASCINANTE_ARCHIVE_BASE_ENDPOINT")
	envString(&config.ArchiveAccessKey, "FASCINANTE_ARCHIVE_ACCESS_KEY")
	envString(&config.ArchiveSecretKey, "FASCINANTE_ARCHIVE_SECRET_KEY")
	envString(&config.ArchiveSealSecret, "FASCINANTE_ARCHIVE_SEAL_SECRET")

	if err := envDuration(&config.RequestTimeout, "FASCINANTE_REQUEST_TIMEOUT"); err != nil {
		return err
	}
	if err := envDuration(&config.RefreshMargin, "FASCINANTE_REFRESH_MARGIN"); err != nil {
		return err
	}

	return nil
}

func envString(dst *string, name string) {
	if v, ok := os.LookupEnv(name); ok {
		*dst = v
	}
}

func envDuration(dst *time.Duration, name string) error {
	v, ok := os.LookupEnv(name)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("error parsing %s: %w", name, err)
	}
	*dst = d
	return nil
}
