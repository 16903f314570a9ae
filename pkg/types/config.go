package types

import (
	"errors"
	"time"
)

// Config selects the local backend, the remote store and sync behavior.
type Config struct {
	Backend string       `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir string       `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	Remote  RemoteConfig `json:"remote" yaml:"remote" mapstructure:"remote"`
	Sync    SyncConfig   `json:"sync" yaml:"sync" mapstructure:"sync"`
	Redis   RedisConfig  `json:"redis" yaml:"redis" mapstructure:"redis"`
	Log     LogConfig    `json:"log" yaml:"log" mapstructure:"log"`
}

// RemoteConfig describes the remote relational store.
type RemoteConfig struct {
	// Driver is postgres, sqlite, memory, or empty for no remote.
	Driver string `json:"driver" yaml:"driver" mapstructure:"driver"`
	DSN    string `json:"dsn" yaml:"dsn" mapstructure:"dsn"`
}

// SyncConfig controls remote propagation.
type SyncConfig struct {
	Enabled        bool          `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	ProbeTimeout   time.Duration `json:"probe_timeout" yaml:"probe_timeout" mapstructure:"probe_timeout"`
	InitTimeout    time.Duration `json:"init_timeout" yaml:"init_timeout" mapstructure:"init_timeout"`
	ConflictPolicy string        `json:"conflict_policy" yaml:"conflict_policy" mapstructure:"conflict_policy"`
}

// RedisConfig is used when Backend is redis.
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr" mapstructure:"addr"`
	Password string `json:"password" yaml:"password" mapstructure:"password"`
	DB       int    `json:"db" yaml:"db" mapstructure:"db"`
	Prefix   string `json:"prefix" yaml:"prefix" mapstructure:"prefix"`
}

// LogConfig selects the logger mode and an optional rotated file sink.
type LogConfig struct {
	Mode      string `json:"mode" yaml:"mode" mapstructure:"mode"`
	File      string `json:"file" yaml:"file" mapstructure:"file"`
	MaxSizeMB int    `json:"max_size_mb" yaml:"max_size_mb" mapstructure:"max_size_mb"`
}

// Supported local backends.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Supported remote drivers.
const (
	RemoteNone     = ""
	RemotePostgres = "postgres"
	RemoteSQLite   = "sqlite"
	RemoteMemory   = "memory"
)

// Conflict policies for merging remote and local sets.
const (
	PolicyRemoteWins = "remote_wins"
	PolicyNewestWins = "newest_wins"
)

// Default timeouts.
const (
	DefaultProbeTimeout = 3 * time.Second
	DefaultInitTimeout  = 10 * time.Second
)

// Config validation errors.
var (
	ErrBackendEmpty          = errors.New("backend must not be empty")
	ErrBackendUnknown        = errors.New("unknown backend")
	ErrRemoteDriverUnknown   = errors.New("unknown remote driver")
	ErrRemoteDSNEmpty        = errors.New("remote dsn must not be empty")
	ErrConflictPolicyUnknown = errors.New("unknown conflict policy")
	ErrTimeoutInvalid        = errors.New("timeouts must not be negative")
	ErrRedisAddrEmpty        = errors.New("redis addr must not be empty")
)

var knownBackends = map[string]bool{
	BackendSQLite: true,
	BackendFile:   true,
	BackendRedis:  true,
	BackendMemory: true,
}

var knownDrivers = map[string]bool{
	RemoteNone:     true,
	RemotePostgres: true,
	RemoteSQLite:   true,
	RemoteMemory:   true,
}

// Validate checks that the Config is well-formed. It returns a sentinel
// error from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.Backend == BackendRedis && c.Redis.Addr == "" {
		return ErrRedisAddrEmpty
	}
	if !knownDrivers[c.Remote.Driver] {
		return ErrRemoteDriverUnknown
	}
	if (c.Remote.Driver == RemotePostgres || c.Remote.Driver == RemoteSQLite) && c.Remote.DSN == "" {
		return ErrRemoteDSNEmpty
	}
	switch c.Sync.ConflictPolicy {
	case "", PolicyRemoteWins, PolicyNewestWins:
	default:
		return ErrConflictPolicyUnknown
	}
	if c.Sync.ProbeTimeout < 0 || c.Sync.InitTimeout < 0 {
		return ErrTimeoutInvalid
	}
	return nil
}

// WithDefaults returns a copy of c with zero timeouts and policy filled in.
func (c Config) WithDefaults() Config {
	if c.Sync.ProbeTimeout == 0 {
		c.Sync.ProbeTimeout = DefaultProbeTimeout
	}
	if c.Sync.InitTimeout == 0 {
		c.Sync.InitTimeout = DefaultInitTimeout
	}
	if c.Sync.ConflictPolicy == "" {
		c.Sync.ConflictPolicy = PolicyRemoteWins
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "petcare"
	}
	return c
}
