package sqlite

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/mesh-intelligence/typegraph/pkg/types"
)

func TestCreateObjectType_ProvisionsNameField(t *testing.T) {
	b := newTestBackend(t)
	ot, err := b.Types().CreateObjectType(context.Background(), &types.ObjectType{
		Name:     "Byggdel",
		Color:    "#0ea5e9",
		IDPrefix: "byg",
	})
	require.NoError(t, err)

	assert.Equal(t, "#0EA5E9", ot.Color, "color takes the palette spelling")
	assert.Equal(t, "BYG", ot.IDPrefix)
	require.Len(t, ot.Fields, 1)
	namn := ot.Fields[0]
	assert.Equal(t, types.NameFieldName, namn.FieldName)
	assert.Equal(t, types.FieldTypeText, namn.FieldType)
	assert.True(t, namn.IsRequired)
	assert.True(t, namn.IsTableVisible)
}

func TestCreateObjectType_ConnectionFields(t *testing.T) {
	b := newTestBackend(t)
	ot := mustType(t, b, "Anslutning")

	names := make([]string, 0, len(ot.Fields))
	for _, f := range ot.Fields {
		names = append(names, f.FieldName)
	}
	assert.Equal(t, []string{"namn", "del_a", "del_b"}, names)
}

func TestCreateObjectType_Validation(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	mustType(t, b, "Produkt")

	tests := []struct {
		name string
		in   *types.ObjectType
		want error
	}{
		{"empty name", &types.ObjectType{Name: "  "}, types.ErrInvalidName},
		{"duplicate ignoring case", &types.ObjectType{Name: "PRODUKT"}, types.ErrDuplicateTypeName},
		{"color outside palette", &types.ObjectType{Name: "Rum", Color: "#123456"}, types.ErrInvalidColor},
		{"bad prefix", &types.ObjectType{Name: "Rum", IDPrefix: "R-1"}, types.ErrInvalidPrefix},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Types().CreateObjectType(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, types.Classify(tt.want), types.Classify(err))
		})
	}
}

func TestUpdateObjectType(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	ot := mustType(t, b, "Rum")
	mustType(t, b, "Byggdel")

	got, err := b.Types().UpdateObjectType(ctx, ot.ID, types.ObjectTypePatch{
		Name:        ptr("Utrymme"),
		Description: ptr("Spaces"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Utrymme", got.Name)
	assert.Equal(t, "Spaces", got.Description)

	_, err = b.Types().UpdateObjectType(ctx, ot.ID, types.ObjectTypePatch{Name: ptr("byggdel")})
	assert.ErrorIs(t, err, types.ErrDuplicateTypeName)

	byName, err := b.Types().GetObjectTypeByName(ctx, "UTRYMME")
	require.NoError(t, err)
	assert.Equal(t, ot.ID, byName.ID)
}

func TestDeleteObjectType_Guards(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	sys, err := b.Types().CreateObjectType(ctx, &types.ObjectType{Name: "Filobjekt", IsSystem: true})
	require.NoError(t, err)
	assert.ErrorIs(t, b.Types().DeleteObjectType(ctx, sys.ID), types.ErrSystemType)

	used := mustType(t, b, "Byggdel")
	obj := mustObject(t, b, used.ID, map[string]any{"namn": "Vägg"})
	err = b.Types().DeleteObjectType(ctx, used.ID)
	assert.ErrorIs(t, err, types.ErrTypeHasObjects)
	assert.Equal(t, types.ClassInvariantGuard, types.Classify(err))

	require.NoError(t, b.Objects().DeleteObject(ctx, obj.ID))
	require.NoError(t, b.Types().DeleteObjectType(ctx, used.ID))
	_, err = b.Types().GetObjectType(ctx, used.ID)
	assert.ErrorIs(t, err, types.ErrObjectTypeNotFound)
}

func TestObjectTypeNameForObject(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	file := mustType(t, b, "Filobjekt")
	other := mustType(t, b, "Produkt")
	f := mustObject(t, b, file.ID, map[string]any{"namn": "ritning.pdf"})
	p := mustObject(t, b, other.ID, map[string]any{"namn": "Skruv"})

	name, err := b.Types().ObjectTypeNameForObject(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "Filobjekt", name)

	_, cached := b.lookups.Get("type-name:" + f.ID)
	assert.True(t, cached)

	ok, err := b.Types().CanOwnAttachments(ctx, f.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = b.Types().CanOwnAttachments(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = b.Types().ObjectTypeNameForObject(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrObjectNotFound)
}

func TestEnsureNameFields_RenamesInPlace(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	ot := mustType(t, b, "Produkt")
	namn := fieldByName(ot, "namn")

	// Simulate a legacy type whose name field drifted.
	_, err := b.db.Exec(`UPDATE object_fields SET field_name = 'Name', name_key = 'name', is_required = 0 WHERE id = ?`, namn.ID)
	require.NoError(t, err)

	n, err := b.Types().EnsureNameFields(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := b.Types().GetField(ctx, namn.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NameFieldName, got.FieldName)
	assert.True(t, got.IsRequired)

	n, err = b.Types().EnsureNameFields(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "second pass is a no-op")
}

func TestEnsureNameFields_AddsMissing(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	ot := mustType(t, b, "Produkt")

	_, err := b.db.Exec(`DELETE FROM object_fields WHERE object_type_id = ?`, ot.ID)
	require.NoError(t, err)

	n, err := b.Types().EnsureNameFields(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	list, err := b.Types().ListFields(ctx, ot.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsNameField())
}

// Every type owns exactly one namn field, whatever fields are added later.
func TestProperty_SingleNameField(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	counter := 0

	rapid.Check(t, func(t *rapid.T) {
		counter++
		ot, err := b.Types().CreateObjectType(ctx, &types.ObjectType{Name: fmt.Sprintf("Typ %d", counter)})
		if err != nil {
			t.Fatalf("create type: %v", err)
		}
		extra := rapid.SliceOfN(rapid.SampledFrom([]string{"Namn", "NAMN", "name", "längd", "bredd", "färg"}), 0, 5).Draw(t, "fields")
		for _, name := range extra {
			_, err := b.Types().AddField(ctx, ot.ID, &types.ObjectField{FieldName: name})
			if err != nil && types.Classify(err) != types.ClassConflict {
				t.Fatalf("add field %q: %v", name, err)
			}
		}
		list, err := b.Types().ListFields(ctx, ot.ID)
		if err != nil {
			t.Fatalf("list fields: %v", err)
		}
		count := 0
		for _, f := range list {
			if f.IsNameField() {
				count++
			}
		}
		if count != 1 {
			t.Fatalf("type %s has %d namn fields", ot.Name, count)
		}
	})
}
