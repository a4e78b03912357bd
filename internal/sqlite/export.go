package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/typegraph/errors"
	"github.com/mesh-intelligence/typegraph/pkg/types"
)

// Export writes every logical table to dir as <table>.jsonl, rows in
// registration order. Each line is an object keyed by column name. All
// tables are read in one transaction so the files describe one state.
func (b *Backend) Export(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating export dir %s", dir)
	}
	tables := make(map[string][]json.RawMessage, len(types.StandardTableNames))
	err := b.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range types.StandardTableNames {
			records, err := dumpTable(ctx, tx, table)
			if err != nil {
				return err
			}
			tables[table] = records
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, table := range types.StandardTableNames {
		if err := writeJSONL(filepath.Join(dir, table+".jsonl"), tables[table]); err != nil {
			return errors.Wrapf(err, "exporting %s", table)
		}
	}
	b.log.Infow("export finished", "dir", dir, "tables", len(types.StandardTableNames))
	return nil
}

// dumpTable renders every row of table as a JSON object. Table names come
// from types.StandardTableNames only.
func dumpTable(ctx context.Context, q dbtx, table string) ([]json.RawMessage, error) {
	rows, err := q.QueryContext(ctx, "SELECT * FROM "+table+" ORDER BY rowid")
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", table)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s columns", table)
	}
	records := []json.RawMessage{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrapf(err, "scanning %s", table)
		}
		rec := make(map[string]any, len(cols))
		for i, c := range cols {
			if raw, ok := vals[i].([]byte); ok {
				rec[c] = string(raw)
				continue
			}
			rec[c] = vals[i]
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return nil, errors.Wrapf(err, "encoding %s row", table)
		}
		records = append(records, data)
	}
	return records, errors.Wrapf(rows.Err(), "reading %s", table)
}
