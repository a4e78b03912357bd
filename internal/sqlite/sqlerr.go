package sqlite

import (
	"database/sql"
	"strings"

	"github.com/mesh-intelligence/typegraph/errors"
)

// isUniqueViolation reports whether err is a SQLite unique constraint
// failure. With a non-empty target ("table.column") only violations naming
// that target match. The driver does not export typed errors for this, so
// the message is inspected.
func isUniqueViolation(err error, target string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	return target == "" || strings.Contains(msg, target)
}

// notFound maps sql.ErrNoRows to sentinel, annotated with the id looked up.
// Other errors are wrapped with a generic context.
func notFound(err error, sentinel error, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrapf(sentinel, "id %s", id)
	}
	return errors.Wrapf(err, "loading %s", id)
}

// likePrefix returns a LIKE pattern matching values that start with prefix.
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
