package app

import (
	"errors"
	"fmt"
	"time"
)

// Cache backends accepted by Config.CacheBackend.
const (
	CacheMemory   = "memory"
	CacheFile     = "file"
	CachePostgres = "postgres"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	WorkflowPath string // hcl files with node blocks
	TasksPath    string // hcl files with task manifests

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	WorkerCount     int

	CacheBackend       string
	CacheDir           string // file backend
	CacheDSN           string // postgres backend, falls back to SWEEPGRID_DB_URL
	CacheAuthoritative bool
	ReservationTimeout time.Duration

	WorkDir    string
	ForceRerun bool
	GraphOut   string // DOT file, empty disables the export
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.WorkflowPath == "" {
		return nil, errors.New("WorkflowPath is a required configuration field and cannot be empty")
	}
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	if cfg.ReservationTimeout < 0 {
		return nil, fmt.Errorf("ReservationTimeout must not be negative, got %s", cfg.ReservationTimeout)
	}

	switch cfg.CacheBackend {
	case "":
		cfg.CacheBackend = CacheMemory
	case CacheMemory, CachePostgres:
	case CacheFile:
		if cfg.CacheDir == "" {
			return nil, errors.New("CacheDir is required for the file cache backend")
		}
	default:
		return nil, fmt.Errorf("unknown cache backend %q: must be %q, %q or %q", cfg.CacheBackend, CacheMemory, CacheFile, CachePostgres)
	}
	return &cfg, nil
}
