// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.CouchDB.URI != "http://localhost:5984/" {
		t.Errorf("expected uri=http://localhost:5984/, got %s", cfg.CouchDB.URI)
	}
	if cfg.Mount.EntryTimeout != 0 || cfg.Mount.AttrTimeout != 0 || cfg.Mount.NegativeTimeout != 0 {
		t.Errorf("unexpected mount timeouts: %+v", cfg.Mount)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("unexpected log defaults: %+v", cfg.Log)
	}
}

func TestLoad_RequiresEnvVar(t *testing.T) {
	t.Setenv(EnvVar, "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when COUCHFS_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "COUCHFS_CONFIG environment variable not set") {
		t.Errorf("unexpected error message: %q", err.Error())
	}
}

func TestLoad_WithEnvVar(t *testing.T) {
	path := writeConfig(t, "couchfs.yaml", `
couchdb:
  uri: https://couch.example.com/
  timeout: 5s
mount:
  mountpoint: /mnt/couch
  allow_other: true
  attr_timeout: 250ms
log:
  level: debug
  format: json
`)
	t.Setenv(EnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.CouchDB.URI != "https://couch.example.com/" {
		t.Errorf("uri = %s", cfg.CouchDB.URI)
	}
	if cfg.CouchDB.Timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", cfg.CouchDB.Timeout)
	}
	if cfg.Mount.Mountpoint != "/mnt/couch" || !cfg.Mount.AllowOther {
		t.Errorf("mount = %+v", cfg.Mount)
	}
	if cfg.Mount.AttrTimeout != 250*time.Millisecond {
		t.Errorf("attr_timeout = %v, want 250ms", cfg.Mount.AttrTimeout)
	}
	// Unset fields keep their defaults.
	if cfg.Mount.EntryTimeout != 0 {
		t.Errorf("entry_timeout = %v, want default 0", cfg.Mount.EntryTimeout)
	}
	if cfg.Mount.FsName != "couchfs" {
		t.Errorf("fs_name = %q, want default", cfg.Mount.FsName)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadFile_JSONC(t *testing.T) {
	path := writeConfig(t, "couchfs.jsonc", `{
  // Connection to the staging server.
  "couchdb": {"uri": "http://staging:5984/"},
  "mount": {
    "mountpoint": "/mnt/staging",
    "document": "music/readme", /* attachments only */
  },
}`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.CouchDB.URI != "http://staging:5984/" {
		t.Errorf("uri = %s", cfg.CouchDB.URI)
	}
	database, document, err := cfg.Mount.DocumentScope()
	if err != nil {
		t.Fatalf("DocumentScope: %v", err)
	}
	if database != "music" || document != "readme" {
		t.Errorf("scope = %s/%s, want music/readme", database, document)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFile_ExpandsVariables(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	t.Setenv("COUCHFS_TEST_HOST", "db.internal")
	path := writeConfig(t, "couchfs.yaml", `
couchdb:
  uri: http://${COUCHFS_TEST_HOST}:${COUCHFS_TEST_PORT:-5984}/
mount:
  mountpoint: ${HOME}/couch
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.CouchDB.URI != "http://db.internal:5984/" {
		t.Errorf("uri = %s", cfg.CouchDB.URI)
	}
	if cfg.Mount.Mountpoint != "/home/tester/couch" {
		t.Errorf("mountpoint = %s", cfg.Mount.Mountpoint)
	}
}

func TestExpandVars(t *testing.T) {
	t.Setenv("COUCHFS_TEST_SET", "from-env")
	vars := map[string]string{"PROVIDED": "from-map"}

	tests := []struct {
		input string
		want  string
	}{
		{"${PROVIDED}/x", "from-map/x"},
		{"${COUCHFS_TEST_SET}", "from-env"},
		{"${COUCHFS_TEST_UNSET:-fallback}", "fallback"},
		{"${COUCHFS_TEST_UNSET}", ""},
		{"plain", "plain"},
	}
	for _, test := range tests {
		if got := expandVars(test.input, vars); got != test.want {
			t.Errorf("expandVars(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Mount.Mountpoint = "/mnt/couch"
		return cfg
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing uri", func(c *Config) { c.CouchDB.URI = "" }, "couchdb.uri is required"},
		{"bad scheme", func(c *Config) { c.CouchDB.URI = "ftp://host/" }, "must be http or https"},
		{"missing mountpoint", func(c *Config) { c.Mount.Mountpoint = "" }, "mount.mountpoint is required"},
		{"bad document", func(c *Config) { c.Mount.Document = "nodocid" }, "mount.document"},
		{"negative timeout", func(c *Config) { c.Mount.AttrTimeout = -time.Second }, "mount.attr_timeout"},
		{"bad level", func(c *Config) { c.Log.Level = "chatty" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := valid()
			test.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() accepted an invalid config")
			}
			if !strings.Contains(err.Error(), test.want) {
				t.Errorf("Validate() = %v, want mention of %q", err, test.want)
			}
		})
	}
}

func TestDocumentScopeKeepsSlashesInID(t *testing.T) {
	database, document, err := MountConfig{Document: "db/a/b"}.DocumentScope()
	if err != nil {
		t.Fatalf("DocumentScope: %v", err)
	}
	if database != "db" || document != "a/b" {
		t.Errorf("scope = %q %q, want db a/b", database, document)
	}
}

func TestLogger(t *testing.T) {
	var buffer bytes.Buffer
	logger, err := LogConfig{Level: "warn", Format: "json"}.Logger(&buffer)
	if err != nil {
		t.Fatalf("Logger: %v", err)
	}
	logger.Info("dropped")
	logger.Warn("kept", "key", "value")

	output := buffer.String()
	if strings.Contains(output, "dropped") {
		t.Errorf("info record passed a warn-level logger: %s", output)
	}
	if !strings.Contains(output, `"msg":"kept"`) || !strings.Contains(output, `"key":"value"`) {
		t.Errorf("unexpected JSON output: %s", output)
	}
}
