package testsupport

import (
	"path/filepath"
	"testing"

	"pixelpress/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.ExportDir = filepath.Join(base, "exports")

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithEncodeTimeout sets the encode timeout (seconds) on the test config.
func WithEncodeTimeout(seconds int) ConfigOption {
	return func(c *config.Config) {
		c.Conversion.EncodeTimeout = seconds
	}
}

// WithProductIDs overrides the storefront product identifiers.
func WithProductIDs(ids ...string) ConfigOption {
	return func(c *config.Config) {
		c.Store.ProductIDs = ids
	}
}
