// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable holding the config file path.
const EnvVar = "COUCHFS_CONFIG"

// Config is the configuration of one couchmount process.
type Config struct {
	// CouchDB configures the server connection.
	CouchDB CouchDBConfig `yaml:"couchdb"`

	// Mount configures the FUSE mount.
	Mount MountConfig `yaml:"mount"`

	// Log configures diagnostic output.
	Log LogConfig `yaml:"log"`
}

// CouchDBConfig configures the server connection.
type CouchDBConfig struct {
	// URI is the server root, credentials included if any.
	// Default: http://localhost:5984/
	URI string `yaml:"uri"`

	// Timeout bounds each HTTP request. Zero means no limit.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`
}

// MountConfig configures the FUSE mount.
type MountConfig struct {
	// Mountpoint is the directory the filesystem is mounted on.
	Mountpoint string `yaml:"mountpoint"`

	// Document, when set as "database/docid", mounts only that
	// document's attachments instead of the whole server.
	Document string `yaml:"document"`

	// AllowOther lets other users access the mount. Requires
	// user_allow_other in /etc/fuse.conf.
	AllowOther bool `yaml:"allow_other"`

	// FsName is the filesystem name shown in the mount table.
	// Default: couchfs
	FsName string `yaml:"fs_name"`

	// EntryTimeout, AttrTimeout and NegativeTimeout are the kernel
	// cache lifetimes for names, attributes and misses. All default
	// to zero: the kernel revalidates every access against the server,
	// so changes made by other clients show up immediately.
	EntryTimeout    time.Duration `yaml:"entry_timeout"`
	AttrTimeout     time.Duration `yaml:"attr_timeout"`
	NegativeTimeout time.Duration `yaml:"negative_timeout"`
}

// LogConfig configures diagnostic output.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Default: info
	Level string `yaml:"level"`

	// Format is text or json. Default: text
	Format string `yaml:"format"`
}

// Default returns the configuration used before any file is applied.
func Default() *Config {
	return &Config{
		CouchDB: CouchDBConfig{
			URI:     "http://localhost:5984/",
			Timeout: 30 * time.Second,
		},
		Mount: MountConfig{
			FsName: "couchfs",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from the file named by COUCHFS_CONFIG.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvVar)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your couchfs.yaml config file, or use --config flag", EnvVar)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path on top of
// Default(). Files ending in .json or .jsonc may carry comments and
// trailing commas.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	cfg.expandVariables()
	return cfg, nil
}

// loadFile merges a single configuration file into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// JSON is a subset of YAML once comments are stripped.
		data = jsonc.ToJSON(data)
	}
	return yaml.Unmarshal(data, c)
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in the
// connection URI and mountpoint.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.CouchDB.URI = expandVars(c.CouchDB.URI, vars)
	c.Mount.Mountpoint = expandVars(c.Mount.Mountpoint, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	uri, err := url.Parse(c.CouchDB.URI)
	switch {
	case c.CouchDB.URI == "":
		errs = append(errs, fmt.Errorf("couchdb.uri is required"))
	case err != nil:
		errs = append(errs, fmt.Errorf("couchdb.uri: %w", err))
	case uri.Scheme != "http" && uri.Scheme != "https":
		errs = append(errs, fmt.Errorf("couchdb.uri must be http or https, got %q", uri.Scheme))
	}
	if c.CouchDB.Timeout < 0 {
		errs = append(errs, fmt.Errorf("couchdb.timeout must not be negative"))
	}

	if c.Mount.Mountpoint == "" {
		errs = append(errs, fmt.Errorf("mount.mountpoint is required"))
	}
	if c.Mount.Document != "" {
		if _, _, err := c.Mount.DocumentScope(); err != nil {
			errs = append(errs, err)
		}
	}
	for name, timeout := range map[string]time.Duration{
		"mount.entry_timeout":    c.Mount.EntryTimeout,
		"mount.attr_timeout":     c.Mount.AttrTimeout,
		"mount.negative_timeout": c.Mount.NegativeTimeout,
	} {
		if timeout < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}

	if _, err := c.Log.level(); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be one of: [text json]"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// DocumentScope splits Document into its database and document ID.
// The ID may itself contain "/".
func (m MountConfig) DocumentScope() (database, document string, err error) {
	database, document, found := strings.Cut(m.Document, "/")
	if !found || database == "" || document == "" {
		return "", "", fmt.Errorf("mount.document must be database/docid, got %q", m.Document)
	}
	return database, document, nil
}

func (l LogConfig) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level must be one of: [debug info warn error]")
	}
	return level, nil
}

// Logger builds the process logger writing to w.
func (l LogConfig) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := l.level()
	if err != nil {
		return nil, err
	}
	options := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, options)), nil
	}
	return slog.New(slog.NewTextHandler(w, options)), nil
}
