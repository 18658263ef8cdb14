// Package config loads and merges rekey configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (REKEY_MAPPING_FILE, REKEY_PREFIX, REKEY_FORMAT)
//  3. A .env file in the working directory
//  4. Config file ($XDG_CONFIG_HOME/rekey/config.json)
//  5. Built-in defaults
//
// Use [Load] to obtain a merged [Config], [Save] to write the config file,
// and [SetField] to update a single key.
package config
