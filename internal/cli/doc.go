// Package cli defines the Cobra command tree for the mise CLI. Each file
// registers one top-level command (use, current, config, settings, etc.) with
// the root command. Commands parse flags, build an engine from the user's
// settings and format results; the work itself happens in internal/engine.
package cli
