package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/typegraph/errors"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty backend returns ErrBackendEmpty",
			config:  Config{Backend: "", DataDir: "/tmp/data"},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "postgres", DataDir: "/tmp/data"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:    "valid sqlite config",
			config:  Config{Backend: "sqlite", DataDir: "/tmp/data"},
			wantErr: nil,
		},
		{
			name:    "sqlite with empty DataDir is valid at config level",
			config:  Config{Backend: "sqlite", DataDir: ""},
			wantErr: nil,
		},
		{
			name:    "negative max attempts",
			config:  Config{Backend: "sqlite", Identifiers: IdentifierConfig{MaxAttempts: -1}},
			wantErr: ErrMaxAttemptsInvalid,
		},
		{
			name:    "default relation type must be a key",
			config:  Config{Backend: "sqlite", Relations: RelationConfig{DefaultType: "Uses Object"}},
			wantErr: ErrDefaultTypeInvalid,
		},
		{
			name:    "unknown log level",
			config:  Config{Backend: "sqlite", Log: LogConfig{Level: "verbose"}},
			wantErr: ErrLogLevelUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "expected %v, got %v", tt.wantErr, err)
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	assert.Equal(t, DefaultMaxAttempts, c.MaxAttempts())
	assert.Equal(t, "uses_object", c.DefaultRelationType())
	assert.Equal(t, "auto", c.AutoKeyword())
	assert.Equal(t, "Filobjekt", c.FileObjectType())

	c = Config{
		Identifiers: IdentifierConfig{MaxAttempts: 9},
		Relations:   RelationConfig{DefaultType: "contains", AutoKeyword: "infer"},
		Files:       FileConfig{ObjectType: "Dokument"},
	}
	assert.Equal(t, 9, c.MaxAttempts())
	assert.Equal(t, "contains", c.DefaultRelationType())
	assert.Equal(t, "infer", c.AutoKeyword())
	assert.Equal(t, "Dokument", c.FileObjectType())
}
