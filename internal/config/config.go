// ABOUTME: Runtime configuration for the server and CLI.
// ABOUTME: Reads .env files and PLUGINADMIN_* variables and validates database paths.

package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultPort    = "9000"
	DefaultURL     = "http://localhost:9000"
	DefaultTimeout = 10 * time.Second
	DefaultModel   = "gpt-5-mini"
)

// Config holds everything the commands need. Flags override fields after Load.
type Config struct {
	Port        string
	DBPath      string
	URL         string
	Timeout     time.Duration
	OpenAIKey   string
	OpenAIModel string
}

// Load reads .env files (never overriding variables already set) and then
// the environment.
func Load() Config {
	loadDotEnv()
	return FromEnv(os.Getenv)
}

func loadDotEnv() {
	// Try to load .env from current dir or parent dirs
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		godotenv.Load(filepath.Join(home, ".env"))
	}
}

// FromEnv builds a Config from getenv, applying defaults for unset values.
func FromEnv(getenv func(string) string) Config {
	get := func(key, fallback string) string {
		if val := strings.TrimSpace(getenv(key)); val != "" {
			return val
		}
		return fallback
	}

	cfg := Config{
		Port:        get("PLUGINADMIN_PORT", DefaultPort),
		URL:         strings.TrimRight(get("PLUGINADMIN_URL", DefaultURL), "/"),
		Timeout:     DefaultTimeout,
		OpenAIKey:   getenv("OPENAI_API_KEY"),
		OpenAIModel: get("OPENAI_MODEL", DefaultModel),
	}

	if raw := getenv("PLUGINADMIN_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			log.Printf("Warning: PLUGINADMIN_TIMEOUT %q is invalid, using %s", raw, DefaultTimeout)
		} else {
			cfg.Timeout = d
		}
	}

	cfg.DBPath = get("PLUGINADMIN_DB_PATH", "")
	if cfg.DBPath != "" {
		cfg.DBPath = filepath.Clean(cfg.DBPath)
	}
	if cfg.DBPath == "" || cfg.DBPath == "." {
		cfg.DBPath = DefaultDBPath()
	}
	return cfg
}

// DefaultDBPath returns ./pluginadmin.db when it exists, otherwise a path
// under the XDG data directory (or its Windows equivalent).
func DefaultDBPath() string {
	cwdPath := "./pluginadmin.db"
	if _, err := os.Stat(cwdPath); err == nil {
		return cwdPath
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil || homeDir == "" || homeDir == "/" {
			log.Printf("Warning: Could not determine valid home directory (%q): %v, using %s", homeDir, err, cwdPath)
			return cwdPath
		}
		if runtime.GOOS == "windows" {
			dataHome = os.Getenv("LOCALAPPDATA")
			if dataHome == "" {
				dataHome = filepath.Join(homeDir, "AppData", "Local")
			}
		} else {
			dataHome = filepath.Join(homeDir, ".local", "share")
		}
	}

	dataDir := filepath.Join(dataHome, "pluginadmin")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Printf("Warning: Could not create data directory %s: %v, using %s", dataDir, err, cwdPath)
		return cwdPath
	}
	return filepath.Join(dataDir, "pluginadmin.db")
}

// ValidateDBPath cleans path and rejects empty, root-like, traversing or
// sensitive locations.
func ValidateDBPath(path string) (string, error) {
	cleanPath := filepath.Clean(strings.TrimSpace(path))

	if cleanPath == "" || cleanPath == "." || cleanPath == "/" {
		return "", fmt.Errorf("database path cannot be empty, '.', or '/'")
	}

	// Windows: reject bare drive letters (e.g., "C:", "D:")
	if runtime.GOOS == "windows" && len(cleanPath) == 2 && cleanPath[1] == ':' {
		return "", fmt.Errorf("database path cannot be a bare drive letter")
	}

	if strings.Contains(cleanPath, "..") {
		return "", fmt.Errorf("database path cannot contain '..'")
	}

	badPatterns := []string{".git", ".svn", "node_modules", ".env", "credentials", "secret"}
	lowerPath := strings.ToLower(cleanPath)
	for _, pattern := range badPatterns {
		if strings.Contains(lowerPath, pattern) {
			return "", fmt.Errorf("database path cannot contain '%s' directory", pattern)
		}
	}

	return cleanPath, nil
}
