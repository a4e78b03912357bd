package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/typegraph/errors"
	"github.com/mesh-intelligence/typegraph/internal/paths"
	"github.com/mesh-intelligence/typegraph/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	// Config keys, matching the mapstructure tags of types.Config.
	cfgKeyBackend         = "backend"
	cfgKeyDataDir         = "data_dir"
	cfgKeyMaxAttempts     = "identifiers.max_attempts"
	cfgKeyDefaultType     = "relations.default_type"
	cfgKeyAutoKeyword     = "relations.auto_keyword"
	cfgKeySeed            = "relations.seed"
	cfgKeyFileObjectType  = "files.object_type"
	cfgKeyMaintainOnStart = "maintenance.on_attach"
	cfgKeyLogLevel        = "log.level"
	cfgKeyLogJSON         = "log.json"

	envLogLevel = "TYPEGRAPH_LOG_LEVEL"
)

// defaultConfigYAML is the content init writes to a new config.yaml.
const defaultConfigYAML = `# typegraph configuration

# Storage backend
backend: sqlite

# Data directory. Relative paths are resolved against the directory that
# holds this config directory. Overridden by --data-dir.
# data_dir: .typegraph-db

identifiers:
  # Attempts at allocating a base identifier before giving up.
  max_attempts: 5

relations:
  # Relation type used for matrix backfill and as the inference fallback.
  default_type: uses_object
  # Relation type value that asks for inference.
  auto_keyword: auto
  # Register the canonical relation types on attach.
  seed: true

files:
  # The only object type whose objects may own attachments.
  object_type: Filobjekt

maintenance:
  # Run the reconciliation passes every time the store is attached.
  on_attach: false

log:
  level: warn
  json: false
`

// newViper returns a viper instance with every default set.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyMaxAttempts, types.DefaultMaxAttempts)
	v.SetDefault(cfgKeyDefaultType, types.DefaultRelationType)
	v.SetDefault(cfgKeyAutoKeyword, types.DefaultAutoKeyword)
	v.SetDefault(cfgKeySeed, true)
	v.SetDefault(cfgKeyFileObjectType, types.DefaultFileObjectType)
	v.SetDefault(cfgKeyMaintainOnStart, false)
	v.SetDefault(cfgKeyLogLevel, "warn")
	v.SetDefault(cfgKeyLogJSON, false)
	_ = v.BindEnv(cfgKeyLogLevel, envLogLevel)
	return v
}

// loadConfig reads config.yaml from the resolved config directory and
// returns the validated store configuration with the data directory
// resolved. A missing config.yaml is not an error.
func (a *app) loadConfig() (types.Config, string, error) {
	var cfg types.Config
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return cfg, "", errors.Wrap(err, "resolve config dir")
	}

	v := newViper()
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, configDir, types.InCategory(errors.Wrapf(err, "read %s", filepath.Join(configDir, configFileExt)), types.ErrValidation)
		}
	}
	if a.flags.logLevel != "" {
		v.Set(cfgKeyLogLevel, a.flags.logLevel)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, configDir, types.InCategory(errors.Wrap(err, "decode config"), types.ErrValidation)
	}
	if cfg.DataDir, err = paths.ResolveDataDir(a.flags.dataDir, cfg.DataDir, configDir); err != nil {
		return cfg, configDir, errors.Wrap(err, "resolve data dir")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, configDir, err
	}
	return cfg, configDir, nil
}

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist. It reports whether it wrote the file.
func writeConfigIfMissing(configDir string) (bool, error) {
	path := filepath.Join(configDir, configFileExt)
	_, err := os.Stat(path)
	if err == nil {
		return false, nil
	}
	if !os.IsNotExist(err) {
		return false, errors.Wrap(err, "stat config file")
	}
	if err := os.WriteFile(path, []byte(defaultConfigYAML), 0o644); err != nil {
		return false, errors.Wrap(err, "write config file")
	}
	return true, nil
}
