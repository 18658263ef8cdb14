package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvMappingFile = "REKEY_MAPPING_FILE"
	EnvPrefix      = "REKEY_PREFIX"
	EnvFormat      = "REKEY_FORMAT"
)

// DotEnvFile is read from the working directory when present.
const DotEnvFile = ".env"

// Config represents the rekey configuration.
type Config struct {
	MappingFile string `json:"mappingFile"`
	// Prefix is a pointer so an explicit empty prefix in the file survives the merge.
	Prefix *string `json:"prefix,omitempty"`
	Format string  `json:"format"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	prefix := "AB#"
	return Config{
		MappingFile: "mapping.json",
		Prefix:      &prefix,
		Format:      "text",
	}
}

// PrefixValue returns the configured prefix, or "" when unset.
func (c Config) PrefixValue() string {
	if c.Prefix == nil {
		return ""
	}
	return *c.Prefix
}

// ConfigDir returns the platform-appropriate config directory for rekey.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "rekey"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "rekey"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "rekey"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "rekey"), nil
	default:
		return filepath.Join(home, ".config", "rekey"), nil
	}
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadFile loads config from the config file. Returns zero Config and nil error if file doesn't exist.
func LoadFile() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// LoadFileOrDefault is LoadFile, but starts from Default when no config file
// exists. A malformed file is an error, never silently replaced.
func LoadFileOrDefault() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	cfg, err := LoadFile()
	if err != nil {
		return Config{}, err
	}
	merged := Default()
	mergeFile(&merged, cfg)
	return merged, nil
}

// Save writes the config to the config file.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load builds the effective config by merging: defaults <- file <- .env <- env <- overrides.
// The overrides map comes from CLI flags; a present key wins even when empty
// so that --prefix "" can clear the prefix.
func Load(overrides map[string]string) (Config, error) {
	cfg := Default()

	fileCfg, err := LoadFile()
	if err != nil {
		return Config{}, err
	}
	mergeFile(&cfg, fileCfg)

	dotEnv, err := readDotEnv(DotEnvFile)
	if err != nil {
		return Config{}, err
	}
	mergeVars(&cfg, dotEnv)
	mergeVars(&cfg, osEnv())
	mergeOverrides(&cfg, overrides)

	return cfg, nil
}

func mergeFile(dst *Config, src Config) {
	if src.MappingFile != "" {
		dst.MappingFile = src.MappingFile
	}
	if src.Prefix != nil {
		p := *src.Prefix
		dst.Prefix = &p
	}
	if src.Format != "" {
		dst.Format = src.Format
	}
}

// readDotEnv parses a dotenv file without touching the process environment.
func readDotEnv(path string) (map[string]string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return vars, nil
}

func osEnv() map[string]string {
	vars := make(map[string]string)
	for _, key := range []string{EnvMappingFile, EnvPrefix, EnvFormat} {
		if v, ok := os.LookupEnv(key); ok {
			vars[key] = v
		}
	}
	return vars
}

// mergeVars applies REKEY_* variables. A set-but-empty REKEY_PREFIX clears
// the prefix; the other keys ignore empty values.
func mergeVars(cfg *Config, vars map[string]string) {
	if v := vars[EnvMappingFile]; v != "" {
		cfg.MappingFile = v
	}
	if v, ok := vars[EnvPrefix]; ok {
		cfg.Prefix = &v
	}
	if v := vars[EnvFormat]; v != "" {
		cfg.Format = v
	}
}

func mergeOverrides(cfg *Config, overrides map[string]string) {
	if overrides == nil {
		return
	}
	if v, ok := overrides["mappingFile"]; ok && v != "" {
		cfg.MappingFile = v
	}
	if v, ok := overrides["prefix"]; ok {
		cfg.Prefix = &v
	}
	if v, ok := overrides["format"]; ok && v != "" {
		cfg.Format = v
	}
}

// SetField sets a single config field by key name. Returns error if key is unknown.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "mappingFile":
		cfg.MappingFile = value
	case "prefix":
		cfg.Prefix = &value
	case "format":
		if value != "text" && value != "json" {
			return fmt.Errorf("format must be text or json, got %q", value)
		}
		cfg.Format = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}
