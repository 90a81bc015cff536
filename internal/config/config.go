// Package config loads server settings from built-in defaults, an optional
// TOML file and environment overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Uploads  UploadsConfig  `toml:"uploads"`
	Auth     AuthConfig     `toml:"auth"`
}

type ServerConfig struct {
	Addr        string   `toml:"addr"`
	CORSOrigins []string `toml:"cors_origins"`
	// RatePerSecond and RateBurst bound requests per client IP. Zero disables limiting.
	RatePerSecond float64 `toml:"rate_per_second"`
	RateBurst     int     `toml:"rate_burst"`
	MaxPageSize   int     `toml:"max_page_size"`
}

type DatabaseConfig struct {
	Driver string `toml:"driver"` // "sqlite" or "pgx"
	DSN    string `toml:"dsn"`
}

type UploadsConfig struct {
	Dir      string `toml:"dir"`
	MaxBytes int64  `toml:"max_bytes"`
}

type AuthConfig struct {
	SessionHours int      `toml:"session_hours"`
	AdminEmails  []string `toml:"admin_emails"`
	SecureCookie bool     `toml:"secure_cookie"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:          ":5000",
			CORSOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
			RatePerSecond: 10,
			RateBurst:     40,
			MaxPageSize:   100,
		},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "./data/blog.db"},
		Uploads:  UploadsConfig{Dir: "./uploads", MaxBytes: 5 << 20},
		Auth:     AuthConfig{SessionHours: 24 * 7},
	}
}

// Load reads path (if non-empty) over the defaults, then applies the
// environment and validates.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode TOML file %s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables. lookup is
// os.LookupEnv outside of tests.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("PORT"); ok && v != "" {
		c.Server.Addr = ":" + v
	}
	if v, ok := lookup("BLOG_ADDR"); ok && v != "" {
		c.Server.Addr = v
	}
	if v, ok := lookup("BLOG_CORS_ORIGINS"); ok {
		c.Server.CORSOrigins = splitList(v)
	}
	if v, ok := lookup("BLOG_DB_DRIVER"); ok && v != "" {
		c.Database.Driver = v
	}
	if v, ok := lookup("BLOG_DB_DSN"); ok && v != "" {
		c.Database.DSN = v
	}
	if v, ok := lookup("BLOG_UPLOAD_DIR"); ok && v != "" {
		c.Uploads.Dir = v
	}
	if v, ok := lookup("BLOG_ADMIN_EMAILS"); ok {
		c.Auth.AdminEmails = splitList(v)
	}
	if v, ok := lookup("BLOG_SESSION_HOURS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("WARNING: invalid BLOG_SESSION_HOURS %q, keeping %d: %v", v, c.Auth.SessionHours, err)
		} else {
			c.Auth.SessionHours = n
		}
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is empty"))
	}
	switch c.Database.Driver {
	case "sqlite", "pgx":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not sqlite or pgx", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is empty"))
	}
	if c.Uploads.Dir == "" {
		errs = append(errs, errors.New("uploads.dir is empty"))
	}
	if c.Auth.SessionHours < 1 {
		errs = append(errs, fmt.Errorf("auth.session_hours must be positive, got %d", c.Auth.SessionHours))
	}
	if c.Server.RatePerSecond < 0 || c.Server.RateBurst < 0 {
		errs = append(errs, errors.New("server rate limits must not be negative"))
	}
	if c.Server.MaxPageSize < 1 {
		errs = append(errs, fmt.Errorf("server.max_page_size must be positive, got %d", c.Server.MaxPageSize))
	}
	return errors.Join(errs...)
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Auth.SessionHours) * time.Hour
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
