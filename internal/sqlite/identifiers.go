package sqlite

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/mesh-intelligence/typegraph/errors"
	"github.com/mesh-intelligence/typegraph/internal/ident"
	"github.com/mesh-intelligence/typegraph/pkg/types"
)

// baseIDTarget names the unique constraint allocation retries on.
const baseIDTarget = "objects.base_id"

// prefixLocks serializes identifier allocation per prefix inside one
// process. Across processes the immediate write transaction and the retry
// loop provide the guarantee.
type prefixLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newPrefixLocks() *prefixLocks {
	return &prefixLocks{locks: make(map[string]*sync.Mutex)}
}

func (p *prefixLocks) lock(prefix string) func() {
	p.mu.Lock()
	l, ok := p.locks[prefix]
	if !ok {
		l = &sync.Mutex{}
		p.locks[prefix] = l
	}
	p.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// allocateBaseID returns the next identifier for prefix: max+1 over the
// stored base identifiers with that prefix. Gaps are not reused. Call it
// inside the transaction that inserts the object.
func allocateBaseID(ctx context.Context, q dbtx, prefix string) (ident.Identifier, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT base_id FROM objects WHERE base_id LIKE ? ESCAPE '\'`,
		likePrefix(prefix+"-"),
	)
	if err != nil {
		return ident.Identifier{}, errors.Wrap(err, "scanning base identifiers")
	}
	defer rows.Close()

	var existing []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return ident.Identifier{}, errors.Wrap(err, "scanning base identifier")
		}
		existing = append(existing, id)
	}
	if err := rows.Err(); err != nil {
		return ident.Identifier{}, errors.Wrap(err, "scanning base identifiers")
	}
	return ident.New(prefix, ident.Next(existing, prefix)), nil
}

func allocationBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond
	return b
}

// withAllocation runs op under the prefix lock and retries it when it fails
// on the base_id unique constraint. Any other error stops immediately. When
// every attempt collides the result is ErrIdentifierExhausted.
func withAllocation[T any](ctx context.Context, b *Backend, prefix string, op func() (T, error)) (T, error) {
	unlock := b.prefix.lock(prefix)
	defer unlock()

	attempts := 0
	res, err := backoff.Retry(ctx, func() (T, error) {
		attempts++
		v, err := op()
		if err == nil {
			return v, nil
		}
		if isUniqueViolation(err, baseIDTarget) {
			b.log.Debugw("identifier collision, retrying", "prefix", prefix, "attempt", attempts)
			return v, err
		}
		return v, backoff.Permanent(err)
	},
		backoff.WithBackOff(allocationBackOff()),
		backoff.WithMaxTries(uint(b.Config().MaxAttempts())),
	)
	if err != nil && isUniqueViolation(err, baseIDTarget) {
		var zero T
		return zero, errors.WithDetailf(
			errors.Wrapf(types.ErrIdentifierExhausted, "prefix %s", prefix),
			"gave up after %d attempts", attempts,
		)
	}
	return res, err
}
