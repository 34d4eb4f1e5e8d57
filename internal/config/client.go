package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	StorageFile  = "file"
	StorageRedis = "redis"

	defaultClientAPIURL  = "http://localhost:8080/api/v1"
	defaultClientTimeout = 10 * time.Second
)

// Client configures the maratonas CLI: where the API lives and where the
// session record is kept between invocations.
type Client struct {
	APIURL     string        `toml:"api_url"`
	Storage    string        `toml:"storage"`
	SessionDir string        `toml:"session_dir"`
	RedisURL   string        `toml:"redis_url"`
	Timeout    time.Duration `toml:"-"`
}

type clientFile struct {
	Client
	Timeout string `toml:"timeout"`
}

// DefaultClientPath returns $XDG_CONFIG_HOME/maratonas/config.toml, falling
// back to the user config directory.
func DefaultClientPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".maratonas", "config.toml")
	}
	return filepath.Join(dir, "maratonas", "config.toml")
}

// LoadClient reads path, when it exists, and applies MARATONAS_* overrides.
// A missing file is not an error.
func LoadClient(path string) (Client, error) {
	cfg := Client{
		APIURL:  defaultClientAPIURL,
		Storage: StorageFile,
		Timeout: defaultClientTimeout,
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Client{}, fmt.Errorf("read config: %w", err)
		default:
			var file clientFile
			if err := toml.Unmarshal(data, &file); err != nil {
				return Client{}, fmt.Errorf("parse config: %w", err)
			}
			if file.Timeout != "" {
				d, err := time.ParseDuration(file.Timeout)
				if err != nil {
					return Client{}, fmt.Errorf("parse config: timeout: %w", err)
				}
				file.Client.Timeout = d
			}
			cfg = mergeClient(cfg, file.Client)
		}
	}

	cfg = mergeClient(cfg, Client{
		APIURL:     os.Getenv("MARATONAS_API_URL"),
		Storage:    os.Getenv("MARATONAS_STORAGE"),
		SessionDir: os.Getenv("MARATONAS_SESSION_DIR"),
		RedisURL:   os.Getenv("MARATONAS_REDIS_URL"),
	})
	if v := os.Getenv("MARATONAS_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Client{}, fmt.Errorf("invalid MARATONAS_TIMEOUT: %w", err)
		}
		cfg.Timeout = d
	}

	if cfg.SessionDir == "" {
		cfg.SessionDir = filepath.Join(filepath.Dir(DefaultClientPath()), "session")
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	cfg.Storage = strings.ToLower(cfg.Storage)

	switch cfg.Storage {
	case StorageFile:
	case StorageRedis:
		if cfg.RedisURL == "" {
			return Client{}, fmt.Errorf("redis storage needs redis_url")
		}
	default:
		return Client{}, fmt.Errorf("unknown storage %q", cfg.Storage)
	}
	return cfg, nil
}

func mergeClient(base, override Client) Client {
	result := base
	if override.APIURL != "" {
		result.APIURL = override.APIURL
	}
	if override.Storage != "" {
		result.Storage = override.Storage
	}
	if override.SessionDir != "" {
		result.SessionDir = override.SessionDir
	}
	if override.RedisURL != "" {
		result.RedisURL = override.RedisURL
	}
	if override.Timeout > 0 {
		result.Timeout = override.Timeout
	}
	return result
}
