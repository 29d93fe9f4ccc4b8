package config

import (
	"errors"
	"fmt"
)

var knownFormats = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"webp": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateConversion(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	if c.Paths.ExportDir == "" {
		return errors.New("paths.export_dir must be set")
	}
	return nil
}

func (c *Config) validateConversion() error {
	if _, ok := knownFormats[c.Conversion.DefaultFormat]; !ok {
		return fmt.Errorf("conversion.default_format %q is not one of jpg, jpeg, png, webp", c.Conversion.DefaultFormat)
	}
	if c.Conversion.DefaultQuality < 0 || c.Conversion.DefaultQuality > 1 {
		return errors.New("conversion.default_quality must be between 0 and 1")
	}
	if c.Conversion.EncodeTimeout < 0 {
		return errors.New("conversion.encode_timeout must be >= 0 (seconds, 0 disables)")
	}
	return nil
}

func (c *Config) validateStore() error {
	if len(c.Store.ProductIDs) == 0 {
		return errors.New("store.product_ids must include at least one product")
	}
	seen := make(map[string]struct{}, len(c.Store.ProductIDs))
	for _, id := range c.Store.ProductIDs {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("store.product_ids contains duplicate %q", id)
		}
		seen[id] = struct{}{}
	}
	if c.Store.RequestTimeout <= 0 {
		return errors.New("store.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of console, json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	return nil
}
