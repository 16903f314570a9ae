package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/petcare/internal/paths"
	"github.com/mesh-intelligence/petcare/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"

	envPrefix = "PETCARE"
)

// defaultConfigYAML is the content written to config.yaml on first run.
const defaultConfigYAML = `# petcare configuration
# Every key can be overridden by an environment variable, for example
# PETCARE_BACKEND or PETCARE_SYNC_ENABLED.

# Local store: sqlite, file, redis or memory
backend: sqlite

# Data directory (optional; overridable by --data-dir flag)
# data_dir:

remote:
  # Remote database: empty (local only), postgres, sqlite or memory
  driver: ""
  dsn: ""

sync:
  enabled: false
  probe_timeout: 3s
  init_timeout: 10s
  # remote_wins or newest_wins
  conflict_policy: remote_wins

redis:
  addr: ""
  db: 0
  prefix: petcare

log:
  # off, dev or prod
  mode: "off"
  file: ""
  max_size_mb: 10
`

// loadConfig reads config.yaml from the resolved config directory using Viper.
// It creates the config directory and a default config.yaml on first run.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// setDefaults registers every key so that environment overrides apply to
// keys missing from config.yaml.
func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", types.BackendSQLite)
	v.SetDefault("data_dir", "")
	v.SetDefault("remote.driver", types.RemoteNone)
	v.SetDefault("remote.dsn", "")
	v.SetDefault("sync.enabled", false)
	v.SetDefault("sync.probe_timeout", types.DefaultProbeTimeout)
	v.SetDefault("sync.init_timeout", types.DefaultInitTimeout)
	v.SetDefault("sync.conflict_policy", types.PolicyRemoteWins)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "petcare")
	v.SetDefault("log.mode", "off")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
}

func decodeConfig(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// ensureDefaultConfigFile creates a default config.yaml if the file does not
// exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := paths.ConfigFile(configDir)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return writeAtomic(path, []byte(defaultConfigYAML))
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
