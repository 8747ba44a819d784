// Package backend assembles the store's load chain and writers from the
// application config.
package backend

import (
	"fmt"
	"path/filepath"
	"time"

	"jichul/internal/config"
)

// BackendType names the primary representation.
type BackendType string

const (
	CSVBackend      BackendType = "csv"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

func (t BackendType) String() string { return string(t) }

// IsValid checks if the backend type is supported
func (t BackendType) IsValid() bool {
	switch t {
	case CSVBackend, SQLiteBackend, PostgresBackend:
		return true
	}
	return false
}

// Config is the subset of the app config the store needs.
type Config struct {
	Type    BackendType
	DataDir string

	SQLiteDBPath string
	DatabaseURL  string

	GitHubRepo    string
	GitHubBranch  string
	GitHubToken   string
	RemoteTimeout time.Duration

	PayeeSeedFile string

	// ReadOnly opens a store that never writes, for processes that run
	// beside the server.
	ReadOnly bool
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:          backendType,
		DataDir:       appConfig.DataDir,
		SQLiteDBPath:  appConfig.SQLiteDBPath,
		DatabaseURL:   appConfig.DatabaseURL,
		GitHubRepo:    appConfig.GitHubRepo,
		GitHubBranch:  appConfig.GitHubBranch,
		GitHubToken:   appConfig.GitHubToken,
		RemoteTimeout: appConfig.RemoteTimeout,
		PayeeSeedFile: appConfig.PayeeSeedFile,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data directory is required")
	}
	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for postgres backend")
		}
	}
	return nil
}

func (c Config) path(name string) string {
	return filepath.Join(c.DataDir, name)
}
