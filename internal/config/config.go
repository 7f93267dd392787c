package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Backend names accepted in Config.Backend.
const (
	BackendCallback = "callback"
	BackendLocal    = "local"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvCallbackURL = "SDK_CALLBACK_URL"
	EnvScratch     = "CONTIGFILTER_SCRATCH"
	EnvAuthToken   = "KB_AUTH_TOKEN"
)

// Config holds application configuration.
type Config struct {
	// CallbackURL is the endpoint of the local callback server that proxies
	// the assembly and report storage services. Plain http is expected.
	CallbackURL string `json:"callback_url,omitempty"`

	// Scratch is the directory holding per-invocation sequence files.
	Scratch string `json:"scratch,omitempty"`

	// Backend selects the storage collaborators: "callback" (remote services
	// reached through CallbackURL) or "local" (SQLite store under the base dir).
	Backend string `json:"backend,omitempty"`

	// Token is the default caller token forwarded to collaborators when the
	// invoking transport does not carry one.
	Token string `json:"-"`

	// HTTPTimeoutSeconds bounds a single callback request. 0 means no client timeout.
	HTTPTimeoutSeconds int `json:"http_timeout_seconds,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// AllowedPaths is an allowlist of directories that `import` may read FASTA files from.
	// Paths outside <base>/imports require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for import.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited). Only set if you experience contention.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Scratch:            filepath.Join(os.TempDir(), "contigfilter"),
		Backend:            BackendCallback,
		HTTPTimeoutSeconds: 600,
		LogLevel:           "info",
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.contigfilter.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.contigfilter) and project
// (.contigfilter) directories. The project config is found by walking upward from startDir.
// Project config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .contigfilter/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".contigfilter", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// ApplyEnv overlays environment-supplied settings onto cfg.
// getenv is usually os.Getenv; tests pass a map lookup.
func ApplyEnv(cfg *Config, getenv func(string) string) *Config {
	if v := strings.TrimSpace(getenv(EnvCallbackURL)); v != "" {
		cfg.CallbackURL = v
	}
	if v := strings.TrimSpace(getenv(EnvScratch)); v != "" {
		cfg.Scratch = v
	}
	if v := strings.TrimSpace(getenv(EnvAuthToken)); v != "" {
		cfg.Token = v
	}
	return cfg
}

// Validate checks the settings the filter pipeline depends on.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendCallback:
		u, err := url.Parse(c.CallbackURL)
		if c.CallbackURL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("Invalid SDK callback url: %s", c.CallbackURL)
		}
	case BackendLocal:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendCallback, BackendLocal)
	}
	if strings.TrimSpace(c.Scratch) == "" {
		return errors.New("scratch directory is not configured")
	}
	return nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.CallbackURL = firstString(overlay.CallbackURL, base.CallbackURL)
	result.Scratch = firstString(overlay.Scratch, base.Scratch)
	result.Backend = firstString(overlay.Backend, base.Backend)
	result.Token = firstString(overlay.Token, base.Token)
	result.LogLevel = firstString(overlay.LogLevel, base.LogLevel)

	result.HTTPTimeoutSeconds = overlay.HTTPTimeoutSeconds
	if result.HTTPTimeoutSeconds == 0 {
		result.HTTPTimeoutSeconds = base.HTTPTimeoutSeconds
	}

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	// Booleans: overlay wins if true, else base
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	// Arrays: merge and deduplicate
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func firstString(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string(nil), a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
