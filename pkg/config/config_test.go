package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eknihyzdarma/catalog-migrator/pkg/apperrors"
)

// chdirTemp moves the test into an empty directory so DefaultPath does not resolve.
func chdirTemp(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	originalDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmpDir))
	t.Cleanup(func() {
		_ = os.Chdir(originalDir)
	})
	return tmpDir
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	chdirTemp(t)
	os.Unsetenv("STRAPI_URL")
	os.Unsetenv("STRAPI_TOKEN")

	cfg, err := Load("", "test-version")
	require.NoError(t, err)

	assert.Equal(t, "test-version", cfg.Version)
	assert.Equal(t, "http://localhost:1337", cfg.Store.BaseURL)
	assert.Equal(t, 100, cfg.Store.PageSize)
	assert.Equal(t, 30*time.Second, cfg.Store.Timeout)
	assert.Equal(t, 400*time.Millisecond, cfg.Migration.Throttle)
	assert.Equal(t, []string{"VISIBILITY"}, cfg.Migration.IgnoredAuthors)
	assert.Equal(t, "1", cfg.Sources.Locale)
	assert.Equal(t, "mod_eshop_produkt", cfg.Sources.Tables.Products)
	assert.Equal(t, "Česká literatura", cfg.Reclassify.SourceCategory)
	assert.Equal(t, "Světová literatura", cfg.Reclassify.TargetCategory)
	assert.Equal(t, []string{"application/pdf"}, cfg.Media.RawMimeTypes)
	assert.False(t, cfg.Ledger.Enabled)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	tmpDir := chdirTemp(t)
	configPath := filepath.Join(tmpDir, "migrator.yaml")

	yamlContent := `
store:
  base_url: "https://cms.example.com"
  page_size: 50
sources:
  dump_path: "/data/export.sql"
  tables:
    products: "shop_product"
migration:
  throttle: 1s
  ignored_authors: ["VISIBILITY", "NEZNAMY"]
log:
  format: json
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	t.Setenv("STRAPI_PAGE_SIZE", "25")
	t.Setenv("STRAPI_TOKEN", "secret-token")

	cfg, err := Load(configPath, "dev")
	require.NoError(t, err)

	assert.Equal(t, "https://cms.example.com", cfg.Store.BaseURL)
	assert.Equal(t, 25, cfg.Store.PageSize, "env must override yaml")
	assert.Equal(t, "secret-token", cfg.Store.Token)
	assert.Equal(t, "/data/export.sql", cfg.Sources.DumpPath)
	assert.Equal(t, "shop_product", cfg.Sources.Tables.Products)
	assert.Equal(t, "mod_eshop_znacka", cfg.Sources.Tables.Authors)
	assert.Equal(t, time.Second, cfg.Migration.Throttle)
	assert.Equal(t, []string{"VISIBILITY", "NEZNAMY"}, cfg.Migration.IgnoredAuthors)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_SecretsIgnoredInYAML(t *testing.T) {
	tmpDir := chdirTemp(t)
	configPath := filepath.Join(tmpDir, "config.yaml")
	os.Unsetenv("STRAPI_TOKEN")

	yamlContent := `
store:
  token: "from-yaml"
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	cfg, err := Load(configPath, "dev")
	require.NoError(t, err)
	assert.Empty(t, cfg.Store.Token)
	assert.ErrorIs(t, cfg.ValidateStoreCredentials(), apperrors.ErrMissingCredential)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	chdirTemp(t)

	_, err := Load("does-not-exist.yaml", "dev")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrSourceUnreadable)
}

func TestLoad_InvalidLogFormat(t *testing.T) {
	chdirTemp(t)
	t.Setenv("LOG_FORMAT", "xml")

	_, err := Load("", "dev")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.format")
}

func TestValidateMediaCredentials(t *testing.T) {
	cfg := &Config{}
	err := cfg.ValidateMediaCredentials()
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrMissingCredential)
	assert.Contains(t, err.Error(), "CLOUDINARY_API_SECRET")

	cfg.Media = MediaConfig{CloudName: "demo", APIKey: "123", APISecret: "s"}
	assert.NoError(t, cfg.ValidateMediaCredentials())
}

func TestRetryConfig_Policy(t *testing.T) {
	p := RetryConfig{MaxRetries: 5, InitialDelay: time.Second, MaxDelay: time.Minute}.Policy()
	assert.Equal(t, 5, p.MaxRetries)
	assert.Equal(t, time.Second, p.InitialDelay)
	assert.Equal(t, time.Minute, p.MaxDelay)
	assert.Equal(t, 2.0, p.Multiplier)
}

func TestLedgerConfig_ConnectionString(t *testing.T) {
	c := LedgerConfig{Host: "db.internal", Port: 5433, User: "migrator", Password: "pw", Database: "ledger", SSLMode: "require"}
	assert.Equal(t, "host=db.internal port=5433 user=migrator password=pw dbname=ledger sslmode=require", c.ConnectionString())
}
