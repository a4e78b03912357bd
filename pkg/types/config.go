package types

import (
	"regexp"

	"github.com/mesh-intelligence/typegraph/errors"
)

// Config holds backend selection and parameters for Store.Attach.
type Config struct {
	Backend     string            `mapstructure:"backend" json:"backend" yaml:"backend"`
	DataDir     string            `mapstructure:"data_dir" json:"data_dir" yaml:"data_dir"`
	Identifiers IdentifierConfig  `mapstructure:"identifiers" json:"identifiers" yaml:"identifiers"`
	Relations   RelationConfig    `mapstructure:"relations" json:"relations" yaml:"relations"`
	Files       FileConfig        `mapstructure:"files" json:"files" yaml:"files"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance" json:"maintenance" yaml:"maintenance"`
	Log         LogConfig         `mapstructure:"log" json:"log" yaml:"log"`
}

// IdentifierConfig tunes base identifier allocation.
type IdentifierConfig struct {
	// MaxAttempts bounds the retries after a unique-constraint conflict.
	MaxAttempts int `mapstructure:"max_attempts" json:"max_attempts" yaml:"max_attempts"`
}

// RelationConfig holds relation defaults.
type RelationConfig struct {
	DefaultType string `mapstructure:"default_type" json:"default_type" yaml:"default_type"`
	AutoKeyword string `mapstructure:"auto_keyword" json:"auto_keyword" yaml:"auto_keyword"`
	Seed        bool   `mapstructure:"seed" json:"seed" yaml:"seed"`
}

// FileConfig names the single object type allowed to own attachments.
type FileConfig struct {
	ObjectType string `mapstructure:"object_type" json:"object_type" yaml:"object_type"`
}

// MaintenanceConfig controls the reconciliation pass run by Attach.
type MaintenanceConfig struct {
	OnAttach bool `mapstructure:"on_attach" json:"on_attach" yaml:"on_attach"`
}

// LogConfig selects the logger built by the CLI.
type LogConfig struct {
	Level string `mapstructure:"level" json:"level" yaml:"level"`
	JSON  bool   `mapstructure:"json" json:"json" yaml:"json"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// Defaults applied when a Config field is left zero.
const (
	DefaultMaxAttempts    = 5
	DefaultRelationType   = "uses_object"
	DefaultAutoKeyword    = "auto"
	DefaultFileObjectType = "Filobjekt"
	DefaultLogLevel       = "info"
)

// Config validation errors.
var (
	ErrBackendEmpty       = InCategory(errors.New("backend must not be empty"), ErrValidation)
	ErrBackendUnknown     = InCategory(errors.New("unknown backend"), ErrValidation)
	ErrMaxAttemptsInvalid = InCategory(errors.New("identifiers.max_attempts must not be negative"), ErrValidation)
	ErrDefaultTypeInvalid = InCategory(errors.New("relations.default_type must be a lower-case key"), ErrValidation)
	ErrLogLevelUnknown    = InCategory(errors.New("unknown log level"), ErrValidation)
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

var knownLogLevels = map[string]bool{
	"": true, "debug": true, "info": true, "warn": true, "error": true,
}

// relationKeyPattern is the accepted shape for relation type keys.
var relationKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidRelationKey reports whether key is a well-formed relation type key.
func ValidRelationKey(key string) bool {
	return relationKeyPattern.MatchString(key)
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return errors.Wrapf(ErrBackendUnknown, "backend %q", c.Backend)
	}
	if c.Identifiers.MaxAttempts < 0 {
		return ErrMaxAttemptsInvalid
	}
	if c.Relations.DefaultType != "" && !ValidRelationKey(c.Relations.DefaultType) {
		return errors.Wrapf(ErrDefaultTypeInvalid, "got %q", c.Relations.DefaultType)
	}
	if !knownLogLevels[c.Log.Level] {
		return errors.Wrapf(ErrLogLevelUnknown, "level %q", c.Log.Level)
	}
	return nil
}

// MaxAttempts returns the identifier allocation attempt limit.
func (c Config) MaxAttempts() int {
	if c.Identifiers.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return c.Identifiers.MaxAttempts
}

// DefaultRelationType returns the key used for matrix backfill and as the
// inference fallback.
func (c Config) DefaultRelationType() string {
	if c.Relations.DefaultType == "" {
		return DefaultRelationType
	}
	return c.Relations.DefaultType
}

// AutoKeyword returns the relation type value that requests inference.
func (c Config) AutoKeyword() string {
	if c.Relations.AutoKeyword == "" {
		return DefaultAutoKeyword
	}
	return c.Relations.AutoKeyword
}

// FileObjectType returns the name of the attachment-owning object type.
func (c Config) FileObjectType() string {
	if c.Files.ObjectType == "" {
		return DefaultFileObjectType
	}
	return c.Files.ObjectType
}
