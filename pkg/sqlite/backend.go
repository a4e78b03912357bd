// Package sqlite is the public entry point to the SQLite backend. The
// implementation lives in internal/sqlite.
package sqlite

import (
	"go.uber.org/zap"

	"github.com/mesh-intelligence/typegraph/internal/sqlite"
	"github.com/mesh-intelligence/typegraph/pkg/types"
)

// Option configures a backend created by NewBackend.
type Option = sqlite.Option

// WithLogger makes the backend log through l. Without it the backend logs
// nothing.
func WithLogger(l *zap.Logger) Option {
	return sqlite.WithLogger(l)
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	store := sqlite.NewBackend(sqlite.WithLogger(logger))
//	err := store.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".typegraph-db",
//	})
//	defer store.Detach()
func NewBackend(opts ...Option) types.Store {
	return sqlite.NewBackend(opts...)
}
