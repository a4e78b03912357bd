// Package sqlite implements the SQLite storage backend for typegraph.
//
// The Backend owns one database file under the configured data directory.
// Each component (type registry, entity store, rule engine, relation graph)
// is a thin accessor over the shared connection pool; every write runs in a
// single immediate transaction.
package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/typegraph/errors"
	"github.com/mesh-intelligence/typegraph/pkg/types"
)

// DatabaseFile is the name of the database inside DataDir.
const DatabaseFile = "typegraph.db"

const (
	lookupExpiration = 5 * time.Minute
	lookupCleanup    = 10 * time.Minute
)

// Compile-time interface check.
var _ types.Store = (*Backend)(nil)

// Backend implements types.Store on SQLite.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB

	log     *zap.SugaredLogger
	lookups *gocache.Cache
	prefix  *prefixLocks

	typeRegistry  *typeRegistry
	entityStore   *entityStore
	ruleEngine    *ruleEngine
	relationGraph *relationGraph
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(b *Backend) {
		if l != nil {
			b.log = l.Sugar()
		}
	}
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		log:     zap.NewNop().Sugar(),
		lookups: gocache.New(lookupExpiration, lookupCleanup),
		prefix:  newPrefixLocks(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.typeRegistry = &typeRegistry{backend: b}
	b.entityStore = &entityStore{backend: b}
	b.ruleEngine = &ruleEngine{backend: b}
	b.relationGraph = &relationGraph{backend: b}
	return b
}

// Attach opens the database under config.DataDir, creating the directory if
// needed, and applies pending migrations. With relations.seed set it
// registers the canonical relation types; with maintenance.on_attach set it
// runs Maintain once.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()

	if b.attached {
		b.mu.Unlock()
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		b.mu.Unlock()
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		b.mu.Unlock()
		return errors.Wrapf(err, "creating data dir %s", dataDir)
	}

	db, err := sql.Open("sqlite", dsn(filepath.Join(dataDir, DatabaseFile)))
	if err != nil {
		b.mu.Unlock()
		return errors.Wrap(err, "opening database")
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		b.mu.Unlock()
		return err
	}
	if v, err := schemaVersion(db); err == nil {
		b.log.Debugw("schema ready", "version", v, "data_dir", dataDir)
	}

	b.db = db
	b.config = config
	b.attached = true
	b.lookups.Flush()
	b.mu.Unlock()

	ctx := context.Background()
	if config.Relations.Seed {
		n, err := b.ruleEngine.SeedRelationTypes(ctx)
		if err != nil {
			b.Detach()
			return errors.Wrap(err, "seeding relation types")
		}
		if n > 0 {
			b.log.Infow("seeded relation types", "count", n)
		}
	}
	if config.Maintenance.OnAttach {
		if _, err := b.Maintain(ctx); err != nil {
			b.Detach()
			return errors.Wrap(err, "maintenance on attach")
		}
	}
	return nil
}

// dsn builds the connection string: foreign keys on, a busy timeout for
// concurrent writers, WAL journaling and BEGIN IMMEDIATE for every
// transaction so that read-then-write sequences hold the write lock.
func dsn(path string) string {
	return "file:" + path +
		"?_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_txlock=immediate"
}

// Detach closes the database. After Detach, all operations return
// ErrStoreDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	b.attached = false
	b.lookups.Flush()
	if b.db != nil {
		err := b.db.Close()
		b.db = nil
		if err != nil {
			return errors.Wrap(err, "closing database")
		}
	}
	return nil
}

// Types returns the type registry.
func (b *Backend) Types() types.TypeRegistry { return b.typeRegistry }

// Objects returns the entity store.
func (b *Backend) Objects() types.EntityStore { return b.entityStore }

// Rules returns the relation rule engine.
func (b *Backend) Rules() types.RuleEngine { return b.ruleEngine }

// Relations returns the relation graph.
func (b *Backend) Relations() types.RelationGraph { return b.relationGraph }

// Config returns the configuration the backend was attached with.
func (b *Backend) Config() types.Config {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config
}

// conn returns the open database or ErrStoreDetached.
func (b *Backend) conn() (*sql.DB, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	return b.db, nil
}

// dbtx is the query surface shared by *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// withTx runs fn in one transaction and commits when fn returns nil.
func (b *Backend) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	db, err := b.conn()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// Maintain runs every reconciliation pass once: namn fields, forced
// presence rows, identifier normalization and rule matrix completion.
func (b *Backend) Maintain(ctx context.Context) (*types.MaintenanceReport, error) {
	report := &types.MaintenanceReport{}
	var err error

	if report.NameFieldsFixed, err = b.typeRegistry.EnsureNameFields(ctx); err != nil {
		return nil, errors.Wrap(err, "ensuring name fields")
	}
	if report.ForcedRowsCreated, err = b.typeRegistry.EnsureForcedPresence(ctx); err != nil {
		return nil, errors.Wrap(err, "ensuring forced presence")
	}
	norm, err := b.entityStore.NormalizeIdentifiers(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "normalizing identifiers")
	}
	report.IdentifiersUpdated = norm.Updated
	report.Reallocations = norm.Reallocations
	if report.RulesCreated, err = b.ruleEngine.EnsureCompleteMatrix(ctx); err != nil {
		return nil, errors.Wrap(err, "completing rule matrix")
	}

	b.log.Infow("maintenance finished",
		"name_fields_fixed", report.NameFieldsFixed,
		"forced_rows_created", report.ForcedRowsCreated,
		"identifiers_updated", report.IdentifiersUpdated,
		"rules_created", report.RulesCreated,
	)
	return report, nil
}

// generateUUID generates a new UUID v7 for entity IDs.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return uuid.New().String()
	}
	return id.String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
