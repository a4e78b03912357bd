package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/typegraph/pkg/types"
)

// newTestBackend attaches a backend to a fresh data dir with the canonical
// relation types seeded. It detaches on cleanup.
func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{
		Backend:   types.BackendSQLite,
		DataDir:   t.TempDir(),
		Relations: types.RelationConfig{Seed: true},
	}))
	t.Cleanup(func() { b.Detach() })
	return b
}

func mustType(t *testing.T, b *Backend, name string) *types.ObjectType {
	t.Helper()
	ot, err := b.Types().CreateObjectType(context.Background(), &types.ObjectType{Name: name})
	require.NoError(t, err)
	return ot
}

func mustField(t *testing.T, b *Backend, typeID string, f *types.ObjectField) *types.ObjectField {
	t.Helper()
	out, err := b.Types().AddField(context.Background(), typeID, f)
	require.NoError(t, err)
	return out
}

func mustObject(t *testing.T, b *Backend, typeID string, values map[string]any) *types.Object {
	t.Helper()
	o, err := b.Objects().CreateObject(context.Background(), types.CreateObjectInput{
		ObjectTypeID: typeID,
		Values:       values,
	})
	require.NoError(t, err)
	return o
}

func fieldByName(ot *types.ObjectType, name string) *types.ObjectField {
	for _, f := range ot.Fields {
		if f.FieldName == name {
			return f
		}
	}
	return nil
}

func ptr[T any](v T) *T { return &v }
