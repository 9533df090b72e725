package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB
)

// sections are the top-level keys environment variables may target.
var sections = map[string]bool{
	"server":        true,
	"engine":        true,
	"auth":          true,
	"ratelimit":     true,
	"events":        true,
	"observability": true,
	"log":           true,
}

// LoadWithFile loads configuration from YAML file, then overrides with environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (SERVER_HTTP_PORT, ENGINE_WORKERS, etc.)
//  2. YAML config file (~/.config/chunkopt/config.yaml)
//  3. Hardcoded defaults
//
// A missing file is not an error.
//
// # Security Considerations
//
// The file must be mode 0600 or 0400, at most 1MB, and live under
// ~/.config/chunkopt/ or /etc/chunkopt/. Symlinks are resolved before the
// directory check.
//
// # Environment Variable Mapping
//
// The first underscore separates the section from the field name:
//
//	SERVER_HTTP_PORT -> server.http_port
//	ENGINE_MAX_CONTENT_LENGTH -> engine.max_content_length
//	RATELIMIT_PER_MINUTE -> ratelimit.per_minute
//
// Variables whose prefix is not a known section are ignored.
func LoadWithFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "chunkopt", "config.yaml")
	}

	if err := validateConfigPath(configPath); err != nil {
		return nil, fmt.Errorf("config path validation failed: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		// Validate through the opened descriptor to avoid a TOCTOU race.
		f, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		if err := validateConfigFileProperties(info); err != nil {
			return nil, fmt.Errorf("config file validation failed: %w", err)
		}

		content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// envKey maps SECTION_FIELD_NAME to section.field_name. Unknown sections
// map to "" which koanf skips.
func envKey(s string) string {
	section, field, ok := strings.Cut(strings.ToLower(s), "_")
	if !ok || field == "" || !sections[section] {
		return ""
	}
	return section + "." + field
}

// EnsureConfigDir creates ~/.config/chunkopt with 0700 permissions.
func EnsureConfigDir() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(home, ".config", "chunkopt")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}

	return nil
}

// validateConfigPath checks that path is inside an allowed directory. It
// runs even when the file does not exist.
func validateConfigPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	resolvedPath := resolveSymlinks(absPath)

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	allowedDirs := []string{
		filepath.Join(home, ".config", "chunkopt"),
		"/etc/chunkopt",
	}

	for _, dir := range allowedDirs {
		dir = resolveSymlinks(dir)
		if resolvedPath == dir || strings.HasPrefix(resolvedPath, dir+string(filepath.Separator)) {
			return nil
		}
	}

	return fmt.Errorf("config file must be in ~/.config/chunkopt/ or /etc/chunkopt/")
}

// resolveSymlinks follows symlinks in the longest existing prefix of path.
func resolveSymlinks(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	parent := filepath.Dir(path)
	if parent == path {
		return path
	}
	return filepath.Join(resolveSymlinks(parent), filepath.Base(path))
}

// validateConfigFileProperties checks file permissions and size.
func validateConfigFileProperties(info os.FileInfo) error {
	// Windows has a different permission model.
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0600 && perm != 0400 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}

	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if cfg.Server.BodyLimit == "" {
		cfg.Server.BodyLimit = "4M"
	}

	if cfg.Engine.Workers == 0 {
		cfg.Engine.Workers = runtime.NumCPU()
	}
	if cfg.Engine.MaxContentLength == 0 {
		cfg.Engine.MaxContentLength = DefaultMaxContentLength
	}
	// Zero cannot be told apart from unset; files disable the cache with a
	// negative size.
	if cfg.Engine.CacheSize == 0 {
		cfg.Engine.CacheSize = DefaultCacheSize
	}

	if cfg.RateLimit.PerMinute == 0 {
		cfg.RateLimit.PerMinute = DefaultRatePerMinute
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = DefaultRateBurst
	}

	if cfg.Events.SubjectPrefix == "" {
		cfg.Events.SubjectPrefix = DefaultSubjectPrefix
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = DefaultServiceName
	}
	if cfg.Observability.OTLPEndpoint == "" {
		cfg.Observability.OTLPEndpoint = "localhost:4317"
	}
	if cfg.Observability.OTLPProtocol == "" {
		cfg.Observability.OTLPProtocol = "grpc"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}
