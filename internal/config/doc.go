// Package config manages user-level settings stored at
// ~/.config/mise/settings.yaml. Every key can also be set through an
// environment variable named with the MISE_ prefix, e.g. MISE_ENV or
// MISE_GLOBAL_CONFIG_FILE.
package config
