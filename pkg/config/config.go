package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/eknihyzdarma/catalog-migrator/pkg/apperrors"
	"github.com/eknihyzdarma/catalog-migrator/pkg/retry"
)

// DefaultPath is the config file read when --config is not given. It is optional.
const DefaultPath = "config.yaml"

// Config holds all configuration for catalog-migrator.
// Configuration can come from a YAML file or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (tokens, API secrets, passwords) must only come from environment variables.
type Config struct {
	Store      StoreConfig      `yaml:"store"`
	Sources    SourcesConfig    `yaml:"sources"`
	Migration  MigrationConfig  `yaml:"migration"`
	Retry      RetryConfig      `yaml:"retry"`
	Media      MediaConfig      `yaml:"media"`
	Reclassify ReclassifyConfig `yaml:"reclassify"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Log        LogConfig        `yaml:"log"`

	// CorrectionsPath points at the YAML file with duplicate pairs and cover URLs.
	CorrectionsPath string `yaml:"corrections_path" env:"CORRECTIONS_PATH" env-default:"corrections.yaml"`

	Version string `yaml:"-"` // Set at load time, not from config
}

// StoreConfig holds the remote document store connection settings.
type StoreConfig struct {
	BaseURL  string        `yaml:"base_url" env:"STRAPI_URL" env-default:"http://localhost:1337"`
	Token    string        `yaml:"-" env:"STRAPI_TOKEN"` // Secret - not in YAML
	PageSize int           `yaml:"page_size" env:"STRAPI_PAGE_SIZE" env-default:"100"`
	Timeout  time.Duration `yaml:"timeout" env:"STRAPI_TIMEOUT" env-default:"30s"`
}

// SourcesConfig locates the legacy export.
type SourcesConfig struct {
	DumpPath string `yaml:"dump_path" env:"DUMP_PATH" env-default:"data/dump.sql"`
	FeedPath string `yaml:"feed_path" env:"FEED_PATH" env-default:"data/feed.xml"`
	FilesDir string `yaml:"files_dir" env:"FILES_DIR" env-default:"data/files"`
	// Locale is the value of the dump's language column that is kept.
	Locale string       `yaml:"locale" env:"DUMP_LOCALE" env-default:"1"`
	Tables TablesConfig `yaml:"tables"`
}

// TablesConfig names the dump tables the projection reads.
type TablesConfig struct {
	Authors       string `yaml:"authors" env-default:"mod_eshop_znacka"`
	AuthorTexts   string `yaml:"author_texts" env-default:"mod_eshop_znacka_detail"`
	Products      string `yaml:"products" env-default:"mod_eshop_produkt"`
	ProductTexts  string `yaml:"product_texts" env-default:"mod_eshop_produkt_detail"`
	EbookFiles    string `yaml:"ebook_files" env-default:"eknihy_file"`
	CategoryTexts string `yaml:"category_texts" env-default:"mod_eshop_kategorie_detail"`
}

// MigrationConfig controls the upsert driver.
type MigrationConfig struct {
	// Throttle is the pause awaited before each entity's writes.
	Throttle        time.Duration `yaml:"throttle" env:"MIGRATION_THROTTLE" env-default:"400ms"`
	IncludeDumpOnly bool          `yaml:"include_dump_only" env:"MIGRATION_INCLUDE_DUMP_ONLY" env-default:"false"`
	Republish       bool          `yaml:"republish" env:"MIGRATION_REPUBLISH" env-default:"false"`
	// IgnoredAuthors are feed manufacturer values that are not real authors.
	IgnoredAuthors []string `yaml:"ignored_authors" env:"MIGRATION_IGNORED_AUTHORS" env-separator:"," env-default:"VISIBILITY"`
}

// RetryConfig controls retries of transient remote failures.
type RetryConfig struct {
	MaxRetries   int           `yaml:"max_retries" env:"RETRY_MAX_RETRIES" env-default:"3"`
	InitialDelay time.Duration `yaml:"initial_delay" env:"RETRY_INITIAL_DELAY" env-default:"500ms"`
	MaxDelay     time.Duration `yaml:"max_delay" env:"RETRY_MAX_DELAY" env-default:"10s"`
}

// MediaConfig holds the media provider credentials used by asset repair.
type MediaConfig struct {
	BaseURL      string   `yaml:"base_url" env:"CLOUDINARY_URL_BASE" env-default:"https://api.cloudinary.com/v1_1"`
	CloudName    string   `yaml:"cloud_name" env:"CLOUDINARY_CLOUD_NAME" env-default:""`
	APIKey       string   `yaml:"api_key" env:"CLOUDINARY_API_KEY" env-default:""`
	APISecret    string   `yaml:"-" env:"CLOUDINARY_API_SECRET"` // Secret - not in YAML
	RawMimeTypes []string `yaml:"raw_mime_types" env:"MEDIA_RAW_MIME_TYPES" env-separator:"," env-default:"application/pdf"`
}

// ReclassifyConfig names the categories of the reclassification pass.
type ReclassifyConfig struct {
	SourceCategory string `yaml:"source_category" env:"RECLASSIFY_SOURCE" env-default:"Česká literatura"`
	TargetCategory string `yaml:"target_category" env:"RECLASSIFY_TARGET" env-default:"Světová literatura"`
}

// LedgerConfig holds the optional PostgreSQL run ledger settings.
type LedgerConfig struct {
	Enabled        bool   `yaml:"enabled" env:"LEDGER_ENABLED" env-default:"false"`
	Host           string `yaml:"host" env:"LEDGER_HOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"LEDGER_PORT" env-default:"5432"`
	User           string `yaml:"user" env:"LEDGER_USER" env-default:"migrator"`
	Password       string `yaml:"-" env:"LEDGER_PASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"LEDGER_DATABASE" env-default:"catalog_migrator"`
	MaxConnections int32  `yaml:"max_connections" env:"LEDGER_MAX_CONNECTIONS" env-default:"4"`
	SSLMode        string `yaml:"ssl_mode" env:"LEDGER_SSLMODE" env-default:"disable"`
}

// LogConfig selects log verbosity and encoding.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"console"`
}

// Load reads configuration from path with environment variable overrides.
// A missing file at DefaultPath is not an error: env and defaults are used instead.
// Any other missing path is reported wrapped in apperrors.ErrSourceUnreadable.
func Load(path, version string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	cfg := &Config{
		Version: version,
	}

	_, statErr := os.Stat(path)
	switch {
	case statErr == nil:
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	case errors.Is(statErr, fs.ErrNotExist) && path == DefaultPath:
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	default:
		return nil, fmt.Errorf("config file %s: %w", path, errors.Join(apperrors.ErrSourceUnreadable, statErr))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks settings every command depends on. Credentials are checked
// separately by the commands that need them.
func (c *Config) Validate() error {
	if c.Store.PageSize <= 0 {
		return fmt.Errorf("store.page_size must be positive, got %d", c.Store.PageSize)
	}
	if c.Migration.Throttle < 0 {
		return fmt.Errorf("migration.throttle must not be negative")
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must not be negative")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	if _, err := url.ParseRequestURI(c.Store.BaseURL); err != nil {
		return fmt.Errorf("store.base_url is not a valid URL: %w", err)
	}
	return nil
}

// ValidateStoreCredentials ensures the store token is present for commands that write.
func (c *Config) ValidateStoreCredentials() error {
	if strings.TrimSpace(c.Store.Token) == "" {
		return fmt.Errorf("STRAPI_TOKEN is not set: %w", apperrors.ErrMissingCredential)
	}
	return nil
}

// ValidateMediaCredentials ensures the media provider can sign requests.
func (c *Config) ValidateMediaCredentials() error {
	var missing []string
	if c.Media.CloudName == "" {
		missing = append(missing, "media.cloud_name")
	}
	if c.Media.APIKey == "" {
		missing = append(missing, "media.api_key")
	}
	if c.Media.APISecret == "" {
		missing = append(missing, "CLOUDINARY_API_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s not set: %w", strings.Join(missing, ", "), apperrors.ErrMissingCredential)
	}
	return nil
}

// Policy converts the retry settings into a retry.Config.
func (c RetryConfig) Policy() *retry.Config {
	p := retry.DefaultConfig()
	p.MaxRetries = c.MaxRetries
	if c.InitialDelay > 0 {
		p.InitialDelay = c.InitialDelay
	}
	if c.MaxDelay > 0 {
		p.MaxDelay = c.MaxDelay
	}
	return p
}

// ConnectionString returns a PostgreSQL connection string for the ledger.
func (c *LedgerConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		ResolveHostForDocker(c.Host), c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// StoreURL returns the store base URL, rewritten for Docker when it points at localhost.
func (c *StoreConfig) StoreURL() string {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return c.BaseURL
	}
	host := u.Hostname()
	resolved := ResolveHostForDocker(host)
	if resolved == host {
		return c.BaseURL
	}
	if port := u.Port(); port != "" {
		u.Host = resolved + ":" + port
	} else {
		u.Host = resolved
	}
	return u.String()
}
