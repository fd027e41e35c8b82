// Package config loads, defaults, and validates the TOML configuration for
// the Powerplay daemon and CLI.
//
// Load resolves the config file (explicit path, ~/.config/powerplay, or a
// project-local powerplay.toml), decodes it over Default(), expands paths,
// pulls secrets from the environment (GEMINI_API_KEY, EMAIL_USERNAME,
// EMAIL_PASSWORD, WORKER_ID), and validates the result. Components receive a
// constructed *Config; there is no package-level configuration state.
package config
