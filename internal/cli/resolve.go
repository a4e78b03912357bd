package cli

import (
	"context"

	"github.com/mesh-intelligence/typegraph/errors"
	"github.com/mesh-intelligence/typegraph/pkg/types"
)

// resolveType finds an object type by id, falling back to its name.
func resolveType(ctx context.Context, store types.Store, ref string) (*types.ObjectType, error) {
	ot, err := store.Types().GetObjectType(ctx, ref)
	if errors.Is(err, types.ErrNotFound) {
		return store.Types().GetObjectTypeByName(ctx, ref)
	}
	return ot, err
}

// resolveObject finds an object by id, falling back to its base identifier
// in any accepted spelling.
func resolveObject(ctx context.Context, store types.Store, ref string) (*types.Object, error) {
	o, err := store.Objects().GetObject(ctx, ref)
	if errors.Is(err, types.ErrNotFound) {
		return store.Objects().GetObjectByBaseID(ctx, ref)
	}
	return o, err
}
