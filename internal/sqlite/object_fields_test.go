package sqlite

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/typegraph/pkg/types"
)

func TestAddField_DisplayOrderAndDuplicates(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	ot := mustType(t, b, "Produkt")

	first := mustField(t, b, ot.ID, &types.ObjectField{FieldName: "Längd (m)", FieldType: types.FieldTypeNumber})
	second := mustField(t, b, ot.ID, &types.ObjectField{FieldName: "Färg"})
	assert.Equal(t, 1, first.DisplayOrder)
	assert.Equal(t, 2, second.DisplayOrder)
	assert.Equal(t, types.FieldTypeText, second.FieldType, "empty type defaults to text")

	_, err := b.Types().AddField(ctx, ot.ID, &types.ObjectField{FieldName: "längd_m"})
	assert.ErrorIs(t, err, types.ErrDuplicateFieldName)

	_, err = b.Types().AddField(ctx, ot.ID, &types.ObjectField{FieldName: "Vikt", FieldType: "integer"})
	assert.ErrorIs(t, err, types.ErrInvalidFieldType)

	_, err = b.Types().AddField(ctx, ot.ID, &types.ObjectField{
		FieldName:    "Klass",
		FieldType:    types.FieldTypeSelect,
		FieldOptions: json.RawMessage(`42`),
	})
	assert.ErrorIs(t, err, types.ErrInvalidFieldOptions)
}

func TestUpdateField_NameFieldProtected(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	ot := mustType(t, b, "Produkt")
	namn := fieldByName(ot, "namn")

	patches := map[string]types.ObjectFieldPatch{
		"rename":        {FieldName: ptr("titel")},
		"retype":        {FieldType: ptr(types.FieldTypeNumber)},
		"make optional": {IsRequired: ptr(false)},
		"hide":          {IsTableVisible: ptr(false)},
	}
	for name, patch := range patches {
		t.Run(name, func(t *testing.T) {
			_, err := b.Types().UpdateField(ctx, namn.ID, patch)
			assert.ErrorIs(t, err, types.ErrNameFieldProtected)
		})
	}
	assert.ErrorIs(t, b.Types().DeleteField(ctx, namn.ID), types.ErrNameFieldProtected)

	got, err := b.Types().UpdateField(ctx, namn.ID, types.ObjectFieldPatch{
		FieldName:   ptr("Namn"),
		DisplayName: ptr("Benämning"),
	})
	require.NoError(t, err)
	assert.Equal(t, types.NameFieldName, got.FieldName, "the stored spelling stays namn")
	assert.Equal(t, "Benämning", got.DisplayName)
}

func TestUpdateField_RequiredLocked(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	ot := mustType(t, b, "Produkt")
	f := mustField(t, b, ot.ID, &types.ObjectField{FieldName: "artikelnummer", IsRequired: true, LockRequiredSetting: true})

	_, err := b.Types().UpdateField(ctx, f.ID, types.ObjectFieldPatch{IsRequired: ptr(false)})
	assert.ErrorIs(t, err, types.ErrRequiredLocked)

	got, err := b.Types().UpdateField(ctx, f.ID, types.ObjectFieldPatch{
		IsRequired:          ptr(false),
		LockRequiredSetting: ptr(false),
	})
	require.NoError(t, err)
	assert.False(t, got.IsRequired)
}

func TestUpdateField_RetypeWithData(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	ot := mustType(t, b, "Produkt")
	f := mustField(t, b, ot.ID, &types.ObjectField{FieldName: "längd", FieldType: types.FieldTypeNumber})
	obj := mustObject(t, b, ot.ID, map[string]any{"namn": "Balk", "längd": "3.5"})

	_, err := b.Types().UpdateField(ctx, f.ID, types.ObjectFieldPatch{FieldType: ptr(types.FieldTypeText)})
	assert.ErrorIs(t, err, types.ErrFieldHasData)
	assert.ErrorIs(t, b.Types().DeleteField(ctx, f.ID), types.ErrFieldHasData)

	_, err = b.Objects().UpdateObject(ctx, obj.ID, types.UpdateObjectInput{Values: map[string]any{"namn": "Balk"}})
	require.NoError(t, err)

	got, err := b.Types().UpdateField(ctx, f.ID, types.ObjectFieldPatch{FieldType: ptr(types.FieldTypeText)})
	require.NoError(t, err)
	assert.Equal(t, types.FieldTypeText, got.FieldType)
	require.NoError(t, b.Types().DeleteField(ctx, f.ID))
}

func TestForcePresence(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	ot := mustType(t, b, "Produkt")
	before := mustObject(t, b, ot.ID, map[string]any{"namn": "Skruv"})

	mustField(t, b, ot.ID, &types.ObjectField{FieldName: "anmärkning", ForcePresence: true})

	got, err := b.Objects().GetObject(ctx, before.ID)
	require.NoError(t, err)
	v, ok := got.Data["anmärkning"]
	assert.True(t, ok, "existing objects get a placeholder row")
	assert.Nil(t, v)

	after := mustObject(t, b, ot.ID, map[string]any{"namn": "Mutter"})
	v, ok = after.Data["anmärkning"]
	assert.True(t, ok)
	assert.Nil(t, v)

	_, err = b.db.Exec("DELETE FROM object_data WHERE value_text IS NULL")
	require.NoError(t, err)
	n, err := b.Types().EnsureForcedPresence(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = b.Types().EnsureForcedPresence(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeleteField_PlaceholderRowsBlock(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	ot := mustType(t, b, "Produkt")
	obj := mustObject(t, b, ot.ID, map[string]any{"namn": "Skruv"})
	f := mustField(t, b, ot.ID, &types.ObjectField{FieldName: "anmärkning", ForcePresence: true})

	var rows int
	require.NoError(t, b.db.QueryRow("SELECT COUNT(*) FROM object_data WHERE field_id = ?", f.ID).Scan(&rows))
	require.Equal(t, 1, rows)

	err := b.Types().DeleteField(ctx, f.ID)
	assert.ErrorIs(t, err, types.ErrFieldHasData)
	assert.Equal(t, types.ClassInvariantGuard, types.Classify(err))
	_, err = b.Types().GetField(ctx, f.ID)
	require.NoError(t, err, "field survives the rejected delete")

	require.NoError(t, b.Objects().DeleteObject(ctx, obj.ID))
	require.NoError(t, b.Types().DeleteField(ctx, f.ID))
	_, err = b.Types().GetField(ctx, f.ID)
	assert.ErrorIs(t, err, types.ErrFieldNotFound)
}

func TestFieldTemplates(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	a := mustType(t, b, "Produkt")
	c := mustType(t, b, "Byggdel")

	tmpl, err := b.Types().CreateFieldTemplate(ctx, &types.FieldTemplate{
		FieldName:   "tillverkare",
		DisplayName: "Tillverkare",
		IsActive:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "tillverkare", tmpl.TemplateName, "template name defaults to the field name")

	fa, err := b.Types().AddFieldFromTemplate(ctx, a.ID, tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, tmpl.ID, fa.TemplateID)
	fc, err := b.Types().AddFieldFromTemplate(ctx, c.ID, tmpl.ID)
	require.NoError(t, err)

	tmpl.DisplayName = "Leverantör"
	tmpl.LockRequiredSetting = true
	_, err = b.Types().UpdateFieldTemplate(ctx, tmpl.ID, tmpl)
	require.NoError(t, err)

	divs, err := b.Types().TemplateDivergences(ctx)
	require.NoError(t, err)
	assert.Len(t, divs, 2)

	n, err := b.Types().PropagateTemplate(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := b.Types().GetField(ctx, fc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Leverantör", got.DisplayName)
	assert.True(t, got.LockRequiredSetting)

	divs, err = b.Types().TemplateDivergences(ctx)
	require.NoError(t, err)
	assert.Empty(t, divs)

	tmpl.IsActive = false
	_, err = b.Types().UpdateFieldTemplate(ctx, tmpl.ID, tmpl)
	require.NoError(t, err)
	other := mustType(t, b, "Rum")
	_, err = b.Types().AddFieldFromTemplate(ctx, other.ID, tmpl.ID)
	assert.ErrorIs(t, err, types.ErrTemplateInactive)

	active, err := b.Types().ListFieldTemplates(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := b.Types().ListFieldTemplates(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, b.Types().DeleteFieldTemplate(ctx, tmpl.ID))
	kept, err := b.Types().GetField(ctx, fa.ID)
	require.NoError(t, err)
	assert.Empty(t, kept.TemplateID, "fields outlive their template")
}

func TestRequiredOverrides(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	ot := mustType(t, b, "Produkt")
	optional := mustField(t, b, ot.ID, &types.ObjectField{FieldName: "färg"})
	locked := mustField(t, b, ot.ID, &types.ObjectField{FieldName: "kod", LockRequiredSetting: true})
	obj := mustObject(t, b, ot.ID, map[string]any{"namn": "Skruv"})

	require.NoError(t, b.Types().SetRequiredOverride(ctx, obj.ID, optional.ID, ptr(true)))
	_, err := b.Objects().UpdateObject(ctx, obj.ID, types.UpdateObjectInput{Values: map[string]any{"namn": "Skruv"}})
	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "färg", verr.Violations[0].Field)

	err = b.Types().SetRequiredOverride(ctx, obj.ID, locked.ID, ptr(true))
	assert.ErrorIs(t, err, types.ErrRequiredLocked)
	err = b.Types().SetRequiredOverride(ctx, obj.ID, fieldByName(ot, "namn").ID, ptr(false))
	assert.ErrorIs(t, err, types.ErrRequiredLocked)

	other := mustType(t, b, "Rum")
	err = b.Types().SetRequiredOverride(ctx, obj.ID, fieldByName(other, "namn").ID, ptr(true))
	assert.ErrorIs(t, err, types.ErrFieldNotFound)

	list, err := b.Types().ListOverrides(ctx, obj.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, *list[0].IsRequired)

	require.NoError(t, b.Types().SetRequiredOverride(ctx, obj.ID, optional.ID, nil))
	list, err = b.Types().ListOverrides(ctx, obj.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
