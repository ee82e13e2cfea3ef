package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/alexanderovie/fascinante-listings/internal/timex"
)

// jsonConfig is an intermediate DTO used only for reading JSON configuration
// files. It uses timex.Duration for interval fields, which allows parsing
// both string values such as "30s" and integer nanoseconds. After
// unmarshalling, its fields are copied into the runtime Config struct.
type jsonConfig struct {
	DatabaseDSN          *string         `json:"database_dsn"`
	VaultEncryptionKey   *string         `json:"vault_encryption_key"`
	SessionSecret        *string         `json:"session_secret"`
	ProviderClientID     *string         `json:"provider_client_id"`
	ProviderClientSecret *string         `json:"provider_client_secret"`
	TokenEndpoint        *string         `json:"token_endpoint"`
	IdentityEndpoint     *string         `json:"identity_endpoint"`
	BusinessEndpoint     *string         `json:"business_endpoint"`
	PerformanceEndpoint  *string         `json:"performance_endpoint"`
	RequestTimeout       *timex.Duration `json:"request_timeout"`
	RefreshMargin        *timex.Duration `json:"refresh_margin"`
	ArchiveBucket        *string         `json:"archive_bucket"`
	ArchiveRegion        *string         `json:"archive_region"`
	ArchiveBaseEndpoint  *string         `json:"archive_base_endpoint"`
	ArchiveAccessKey     *string         `json:"archive_access_key"`
	ArchiveSecretKey     *string         `json:"archive_secret_key"`
	ArchiveSealSecret    *string         `json:"archive_seal_secret"`
}

// parseJSON loads configuration values from the JSON file named by the
// FASCINANTE_CONFIG environment variable into the provided Config. When the
// variable is unset, no file is loaded. Absent keys leave the existing
// values untouched.
func parseJSON(config *Config) error {
	path := os.Getenv("FASCINANTE_CONFIG")
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	c := &jsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}

	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.VaultEncryptionKey, c.VaultEncryptionKey)
	setString(&config.SessionSecret, c.SessionSecret)
	setString(&config.ProviderClientID, c.ProviderClientID)
	setString(&config.ProviderClientSecret, c.ProviderClientSecret)
	setString(&config.TokenEndpoint, c.TokenEndpoint)
	setString(&config.IdentityEndpoint, c.IdentityEndpoint)
	setString(&config.BusinessEndpoint, c.BusinessEndpoint)
	setString(&config.PerformanceEndpoint, c.PerformanceEndpoint)
	setString(&config.ArchiveBucket, c.ArchiveBucket)
	setString(&config.ArchiveRegion, c.ArchiveRegion)
	setString(&config.ArchiveBaseEndpoint, c.ArchiveBaseEndpoint)
	setString(&config.ArchiveAccessKey, c.ArchiveAccessKey)
	setString(&config.ArchiveSecretKey, c.ArchiveSecretKey)
	setString(&config.ArchiveSealSecret, c.ArchiveSealSecret)

	if c.RequestTimeout != nil {
		config.RequestTimeout = time.Duration(c.RequestTimeout.Duration)
	}
	if c.RefreshMargin != nil {
		config.RefreshMargin = time.Duration(c.RefreshMargin.Duration)
	}

	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
