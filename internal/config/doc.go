// Package config loads, validates, and normalizes pixelpress configuration.
//
// Configuration lives in a TOML file (default ~/.config/pixelpress/config.toml)
// and is resolved in this order: explicit path, default path, project-local
// pixelpress.toml. A .env file next to the working directory is applied before
// environment overrides so local development can adjust settings without
// editing the config file.
package config
