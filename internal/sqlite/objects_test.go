package sqlite

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/typegraph/pkg/types"
)

func TestCreateObject_IdentifiersAndData(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	ot := mustType(t, b, "Byggdel")
	mustField(t, b, ot.ID, &types.ObjectField{FieldName: "längd", FieldType: types.FieldTypeNumber})
	mustField(t, b, ot.ID, &types.ObjectField{FieldName: "bärande", FieldType: types.FieldTypeBoolean})
	mustField(t, b, ot.ID, &types.ObjectField{FieldName: "monterad", FieldType: types.FieldTypeDate})

	first := mustObject(t, b, ot.ID, map[string]any{
		"Namn":     "Vägg",
		"längd":    "2.5",
		"bärande":  "true",
		"monterad": "2024-03-01",
	})
	assert.Equal(t, "BYG-1", first.BaseID)
	assert.Equal(t, "v1", first.Version)
	assert.Equal(t, "BYG-1.v1", first.FullID)
	assert.Equal(t, types.DefaultStatus, first.Status)
	assert.Equal(t, "Byggdel", first.ObjectTypeName)
	assert.Equal(t, "Vägg", first.Data["namn"])
	assert.Equal(t, 2.5, first.Data["längd"])
	assert.Equal(t, true, first.Data["bärande"])
	assert.Equal(t, "2024-03-01", first.Data["monterad"])

	second := mustObject(t, b, ot.ID, map[string]any{"namn": "Bjälklag"})
	assert.Equal(t, "BYG-2", second.BaseID)

	require.NoError(t, b.Objects().DeleteObject(ctx, second.ID))
	third := mustObject(t, b, ot.ID, map[string]any{"namn": "Tak"})
	assert.Equal(t, "BYG-2", third.BaseID, "allocation is max+1 over live objects")
}

func TestCreateObject_CollectsViolations(t *testing.T) {
	b := newTestBackend(t)
	ot := mustType(t, b, "Produkt")
	mustField(t, b, ot.ID, &types.ObjectField{FieldName: "vikt", FieldType: types.FieldTypeNumber})

	_, err := b.Objects().CreateObject(context.Background(), types.CreateObjectInput{
		ObjectTypeID: ot.ID,
		Values:       map[string]any{"vikt": "tung", "okänd": "x"},
	})
	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)

	fields := make([]string, 0, len(verr.Violations))
	for _, v := range verr.Violations {
		fields = append(fields, v.Field)
	}
	assert.ElementsMatch(t, []string{"okänd", "namn", "vikt"}, fields)

	list, err := b.Objects().ListObjects(context.Background(), types.ObjectFilter{ObjectTypeID: ot.ID})
	require.NoError(t, err)
	assert.Empty(t, list, "nothing is stored on failure")
}

func TestCreateObject_ConnectionName(t *testing.T) {
	b := newTestBackend(t)
	ot := mustType(t, b, "Anslutning")

	obj := mustObject(t, b, ot.ID, map[string]any{"Del A": "Vägg", "del_b": "Bjälklag", "namn": "ignored"})
	assert.Equal(t, "Bjälklag - Vägg", obj.Data["namn"])
	assert.Equal(t, "ANS-1", obj.BaseID)

	_, err := b.Objects().CreateObject(context.Background(), types.CreateObjectInput{
		ObjectTypeID: ot.ID,
		Values:       map[string]any{"del_a": "Vägg"},
	})
	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
	for _, v := range verr.Violations {
		assert.NotEqual(t, types.NameFieldName, v.Field, "endpoint violations replace the namn violation")
	}
}

func TestCreateObject_ConcurrentAllocation(t *testing.T) {
	b := newTestBackend(t)
	ot := mustType(t, b, "Produkt")

	const n = 20
	var wg sync.WaitGroup
	ids := make(chan string, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			o, err := b.Objects().CreateObject(context.Background(), types.CreateObjectInput{
				ObjectTypeID: ot.ID,
				Values:       map[string]any{"namn": fmt.Sprintf("Skruv %d", i)},
			})
			if err != nil {
				errs <- err
				return
			}
			ids <- o.BaseID
		}(i)
	}
	wg.Wait()
	close(ids)
	close(errs)

	for err := range errs {
		t.Errorf("create failed: %v", err)
	}
	seen := make(map[string]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate base id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
	assert.True(t, seen["PROD-1"])
	assert.True(t, seen[fmt.Sprintf("PROD-%d", n)])
}

func TestGetObjectByBaseID(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	ot := mustType(t, b, "Kravställning")
	obj := mustObject(t, b, ot.ID, map[string]any{"namn": "Brandkrav"})
	require.Equal(t, "KRAV-1", obj.BaseID)

	for _, in := range []string{"KRAV-1", "krav-001", "Krav-1.v3"} {
		got, err := b.Objects().GetObjectByBaseID(ctx, in)
		require.NoError(t, err, in)
		assert.Equal(t, obj.ID, got.ID)
	}
	_, err := b.Objects().GetObjectByBaseID(ctx, "KRAV-2")
	assert.ErrorIs(t, err, types.ErrObjectNotFound)
}

func TestListObjects_Filters(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	a := mustType(t, b, "Produkt")
	c := mustType(t, b, "Rum")
	for i := 0; i < 3; i++ {
		mustObject(t, b, a.ID, map[string]any{"namn": fmt.Sprintf("P%d", i)})
	}
	mustObject(t, b, c.ID, map[string]any{"namn": "Kök"})
	_, err := b.Objects().CreateObject(ctx, types.CreateObjectInput{
		ObjectTypeID: c.ID, Values: map[string]any{"namn": "Hall"}, Status: types.StatusReleased,
	})
	require.NoError(t, err)

	all, err := b.Objects().ListObjects(ctx, types.ObjectFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 5)

	page, err := b.Objects().ListObjects(ctx, types.ObjectFilter{ObjectTypeID: a.ID, Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "P1", page[0].Data["namn"])

	released, err := b.Objects().ListObjects(ctx, types.ObjectFilter{Status: types.StatusReleased})
	require.NoError(t, err)
	require.Len(t, released, 1)
	assert.Equal(t, "Hall", released[0].Data["namn"])
}

func TestUpdateObject_FullReplace(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	ot := mustType(t, b, "Produkt")
	mustField(t, b, ot.ID, &types.ObjectField{FieldName: "färg"})
	obj := mustObject(t, b, ot.ID, map[string]any{"namn": "Skruv", "färg": "röd"})

	got, err := b.Objects().UpdateObject(ctx, obj.ID, types.UpdateObjectInput{
		Values: map[string]any{"namn": "Skruv M8"},
		Status: ptr(types.StatusReleased),
	})
	require.NoError(t, err)
	assert.Equal(t, "Skruv M8", got.Data["namn"])
	_, has := got.Data["färg"]
	assert.False(t, has, "a field missing from the payload is cleared")
	assert.Equal(t, types.StatusReleased, got.Status)
	assert.Equal(t, obj.BaseID, got.BaseID)

	_, err = b.Objects().UpdateObject(ctx, obj.ID, types.UpdateObjectInput{Values: map[string]any{}})
	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = b.Objects().UpdateObject(ctx, "missing", types.UpdateObjectInput{})
	assert.ErrorIs(t, err, types.ErrObjectNotFound)
}

func TestDeleteObject_Cascades(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	a := mustType(t, b, "Produkt")
	c := mustType(t, b, "Rum")
	p := mustObject(t, b, a.ID, map[string]any{"namn": "Skruv"})
	r := mustObject(t, b, c.ID, map[string]any{"namn": "Kök"})
	_, err := b.Relations().CreateRelation(ctx, p.ID, types.RelationInput{TargetObjectID: r.ID})
	require.NoError(t, err)

	require.NoError(t, b.Objects().DeleteObject(ctx, p.ID))
	assert.ErrorIs(t, b.Objects().DeleteObject(ctx, p.ID), types.ErrObjectNotFound)

	var data, rels int
	require.NoError(t, b.db.QueryRow("SELECT COUNT(*) FROM object_data WHERE object_id = ?", p.ID).Scan(&data))
	require.NoError(t, b.db.QueryRow("SELECT COUNT(*) FROM object_relations").Scan(&rels))
	assert.Zero(t, data)
	assert.Zero(t, rels)
}

func TestDuplicateObject(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	prod := mustType(t, b, "Produkt")
	room := mustType(t, b, "Rum")
	color := mustField(t, b, prod.ID, &types.ObjectField{FieldName: "färg"})
	src := mustObject(t, b, prod.ID, map[string]any{"namn": "Skruv", "färg": "röd"})
	kitchen := mustObject(t, b, room.ID, map[string]any{"namn": "Kök"})
	hall := mustObject(t, b, room.ID, map[string]any{"namn": "Hall"})
	_, err := b.Relations().CreateRelation(ctx, src.ID, types.RelationInput{TargetObjectID: kitchen.ID, Description: "monterad"})
	require.NoError(t, err)
	require.NoError(t, b.Types().SetRequiredOverride(ctx, src.ID, color.ID, ptr(true)))

	res, err := b.Objects().DuplicateObject(ctx, src.ID, types.DuplicateInput{
		Overrides:     map[string]any{"Namn": "Skruv kopia"},
		CopyRelations: true,
		Relations: []types.RelationInput{
			{TargetObjectID: hall.ID},
			{TargetObjectID: kitchen.ID},
		},
	})
	require.NoError(t, err)

	dup := res.Object
	assert.NotEqual(t, src.ID, dup.ID)
	assert.Equal(t, "PROD-2", dup.BaseID)
	assert.Equal(t, "Skruv kopia", dup.Data["namn"])
	assert.Equal(t, "röd", dup.Data["färg"])

	require.Len(t, res.Relations, 2)
	assert.Equal(t, kitchen.ID, res.Relations[0].TargetObjectID)
	assert.Equal(t, "monterad", res.Relations[0].Description)
	assert.Equal(t, hall.ID, res.Relations[1].TargetObjectID)
	require.Len(t, res.RelationErrors, 1)
	assert.Equal(t, 2, res.RelationErrors[0].Index)
	assert.Equal(t, types.ClassConflict, res.RelationErrors[0].Class)

	overrides, err := b.Types().ListOverrides(ctx, dup.ID)
	require.NoError(t, err)
	require.Len(t, overrides, 1)
	assert.Equal(t, color.ID, overrides[0].FieldID)
}

func TestNormalizeIdentifiers(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	ot := mustType(t, b, "Byggdel")
	a := mustObject(t, b, ot.ID, map[string]any{"namn": "A"})
	c := mustObject(t, b, ot.ID, map[string]any{"namn": "B"})
	d := mustObject(t, b, ot.ID, map[string]any{"namn": "C"})

	// a takes a legacy spelling of BYG-2, which c holds canonically; d
	// moves into a spelling of the freed BYG-1.
	exec := func(q string, args ...any) {
		_, err := b.db.Exec(q, args...)
		require.NoError(t, err)
	}
	exec("UPDATE objects SET base_id = ?, version = ?, full_id = ? WHERE id = ?", "byg-01", "V03", "byg-01.V03", d.ID)
	exec("UPDATE objects SET base_id = ?, version = ?, full_id = ? WHERE id = ?", "byg-002", "1", "byg-002.1", a.ID)

	report, err := b.Objects().NormalizeIdentifiers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Updated)
	require.Len(t, report.Reallocations, 1)
	assert.Equal(t, a.ID, report.Reallocations[0].ObjectID)
	assert.Equal(t, "BYG-3", report.Reallocations[0].To)

	got := func(id string) *types.Object {
		o, err := b.Objects().GetObject(ctx, id)
		require.NoError(t, err)
		return o
	}
	assert.Equal(t, "BYG-3.v1", got(a.ID).FullID)
	assert.Equal(t, "BYG-2.v1", got(c.ID).FullID)
	assert.Equal(t, "BYG-1.v3", got(d.ID).FullID)

	again, err := b.Objects().NormalizeIdentifiers(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Updated)
}
