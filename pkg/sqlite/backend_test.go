package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/typegraph/pkg/types"
)

func TestNewBackend(t *testing.T) {
	store := NewBackend(WithLogger(zap.NewNop()))
	require.NoError(t, store.Attach(types.Config{
		Backend:   types.BackendSQLite,
		DataDir:   t.TempDir(),
		Relations: types.RelationConfig{Seed: true},
	}))
	defer store.Detach()

	ctx := context.Background()
	ot, err := store.Types().CreateObjectType(ctx, &types.ObjectType{Name: "Byggdel"})
	require.NoError(t, err)
	obj, err := store.Objects().CreateObject(ctx, types.CreateObjectInput{
		ObjectTypeID: ot.ID,
		Values:       map[string]any{"namn": "Yttervägg"},
	})
	require.NoError(t, err)
	assert.Equal(t, "BYG-1", obj.BaseID)

	rts, err := store.Rules().ListRelationTypes(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, rts)
}
