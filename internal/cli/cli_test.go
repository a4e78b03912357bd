package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/typegraph/internal/paths"
	"github.com/mesh-intelligence/typegraph/pkg/types"
)

// testEnv runs commands against an isolated config and data dir.
type testEnv struct {
	t         *testing.T
	configDir string
	dataDir   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	t.Setenv(paths.EnvConfigDir, "")
	t.Setenv(paths.EnvDataDir, "")
	t.Setenv(envLogLevel, "")
	env := &testEnv{
		t:         t,
		configDir: filepath.Join(root, paths.ConfigDirName),
		dataDir:   filepath.Join(root, paths.DataDirName),
	}
	env.mustRun("init")
	return env
}

// run executes one command line and returns stdout and the exit code.
func (e *testEnv) run(args ...string) (string, int) {
	e.t.Helper()
	root := NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...))
	err := root.Execute()
	if err != nil {
		e.t.Logf("%v: %v", args, err)
	}
	return stdout.String(), exitCode(err)
}

func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, code := e.run(args...)
	require.Equal(e.t, exitSuccess, code, "command %v failed", args)
	return out
}

// runJSON executes a --json command and decodes the output into v.
func (e *testEnv) runJSON(v any, args ...string) {
	e.t.Helper()
	out := e.mustRun(append([]string{"--json"}, args...)...)
	require.NoError(e.t, json.Unmarshal([]byte(out), v), "output: %s", out)
}

func TestInit_WritesConfigOnce(t *testing.T) {
	env := newTestEnv(t)
	data, err := os.ReadFile(filepath.Join(env.configDir, configFileExt))
	require.NoError(t, err)
	assert.Contains(t, string(data), "backend: sqlite")
	assert.FileExists(t, filepath.Join(env.dataDir, "typegraph.db"))

	var res map[string]any
	env.runJSON(&res, "init")
	assert.Equal(t, false, res["config_written"])
	assert.Equal(t, float64(5), res["relation_types"], "seeded by the default config")
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)
	out := env.mustRun("version")
	assert.Contains(t, out, "typegraph "+Version)
}

func TestTypeObjectRelationFlow(t *testing.T) {
	env := newTestEnv(t)

	var wall types.ObjectType
	env.runJSON(&wall, "type", "create", "Byggdel", "--color", "#22c55e")
	assert.Equal(t, "BYG", wall.IDPrefix)
	var room types.ObjectType
	env.runJSON(&room, "type", "create", "Rum")

	var f types.ObjectField
	env.runJSON(&f, "field", "add", "Byggdel", `{"field_name":"längd","field_type":"number"}`)
	assert.Equal(t, "number", f.FieldType)

	var o types.Object
	env.runJSON(&o, "object", "create", "Byggdel", `{"namn":"Yttervägg","längd":"2.5"}`)
	assert.Equal(t, "BYG-1", o.BaseID)
	assert.Equal(t, 2.5, o.Data["längd"])

	var got types.Object
	env.runJSON(&got, "object", "get", "byg-001")
	assert.Equal(t, o.ID, got.ID)

	var kitchen types.Object
	env.runJSON(&kitchen, "object", "create", "Rum", `{"namn":"Kök"}`)

	var rule types.RelationTypeRule
	env.runJSON(&rule, "rule", "set", "Byggdel", "Rum", "applies_to")
	assert.True(t, rule.IsAllowed)

	var rel types.ObjectRelation
	env.runJSON(&rel, "relation", "create", "BYG-1", kitchen.BaseID)
	assert.Equal(t, "applies_to", rel.RelationType)

	// The reverse pair was blocked by the rule.
	_, code := env.run("relation", "create", kitchen.BaseID, "BYG-1")
	assert.Equal(t, exitUserError, code)

	var list []types.ObjectRelation
	env.runJSON(&list, "relation", "list", kitchen.BaseID)
	require.Len(t, list, 1)
	assert.Equal(t, types.DirectionIncoming, list[0].Direction)

	var dup types.DuplicateResult
	env.runJSON(&dup, "object", "duplicate", "BYG-1", "--copy-relations", "--overrides", `{"namn":"Innervägg"}`)
	assert.Equal(t, "BYG-2", dup.Object.BaseID)
	assert.Equal(t, "Innervägg", dup.Object.Data["namn"])
	assert.Len(t, dup.Relations, 1)
}

func TestRelationBatch_ReportsEntries(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("type", "create", "Produkt")
	env.mustRun("type", "create", "Rum")
	var p, r types.Object
	env.runJSON(&p, "object", "create", "Produkt", `{"namn":"Skruv"}`)
	env.runJSON(&r, "object", "create", "Rum", `{"namn":"Kök"}`)

	var res types.BatchResult
	env.runJSON(&res, "relation", "batch", p.BaseID,
		`[{"target_object_id":"`+r.BaseID+`"},{"target_object_id":"`+p.BaseID+`"},{"target_object_id":"ROOM-9"}]`)
	assert.Len(t, res.Created, 1)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, types.ClassValidation, res.Errors[0].Class)
	assert.Equal(t, types.ClassNotFound, res.Errors[1].Class)
}

func TestExitCodes(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("type", "create", "Produkt")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"duplicate type name", []string{"type", "create", "produkt"}, exitUserError},
		{"unknown type", []string{"object", "create", "Saknas"}, exitUserError},
		{"missing namn", []string{"object", "create", "Produkt", `{}`}, exitUserError},
		{"bad JSON", []string{"object", "create", "Produkt", `{`}, exitUserError},
		{"wrong arg count", []string{"type", "get"}, exitUserError},
		{"unknown flag", []string{"type", "list", "--nope"}, exitUserError},
		{"delete unused type", []string{"type", "delete", "Produkt"}, exitSuccess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, code := env.run(tt.args...)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestConfig_InvalidValues(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.configDir, configFileExt),
		[]byte("backend: postgres\n"), 0o644))
	_, code := env.run("type", "list")
	assert.Equal(t, exitUserError, code)

	require.NoError(t, os.WriteFile(filepath.Join(env.configDir, configFileExt),
		[]byte("backend: sqlite\nrelations:\n  default_type: Uses-Object\n"), 0o644))
	_, code = env.run("type", "list")
	assert.Equal(t, exitUserError, code)
}

func TestConfig_RelationDefaults(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.configDir, configFileExt),
		[]byte("backend: sqlite\nrelations:\n  default_type: references_object\n  auto_keyword: guess\n"), 0o644))
	env.mustRun("type", "create", "Produkt")
	env.mustRun("type", "create", "Rum")
	var p, r types.Object
	env.runJSON(&p, "object", "create", "Produkt", `{"namn":"Skruv"}`)
	env.runJSON(&r, "object", "create", "Rum", `{"namn":"Kök"}`)

	var n map[string]int
	env.runJSON(&n, "rule", "matrix")
	assert.Equal(t, 2, n["rules_created"])

	var rel types.ObjectRelation
	env.runJSON(&rel, "relation", "create", p.BaseID, r.BaseID, "--type", "guess")
	assert.Equal(t, "references_object", rel.RelationType)
}

func TestMaintainAndExport(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("type", "create", "Produkt")
	env.mustRun("type", "create", "Rum")

	var report types.MaintenanceReport
	env.runJSON(&report, "maintain")
	assert.Equal(t, 2, report.RulesCreated)
	env.runJSON(&report, "maintain")
	assert.Zero(t, report.RulesCreated)

	dir := filepath.Join(t.TempDir(), "dump")
	env.mustRun("export", dir)
	for _, table := range types.StandardTableNames {
		assert.FileExists(t, filepath.Join(dir, table+".jsonl"))
	}
}

func TestHumanOutput(t *testing.T) {
	env := newTestEnv(t)
	out := env.mustRun("type", "create", "Byggdel")
	assert.Contains(t, out, "Created object type Byggdel (prefix BYG)")

	out = env.mustRun("type", "list")
	assert.Contains(t, out, "Byggdel")
	assert.Contains(t, out, "PREFIX")

	out = env.mustRun("template", "list")
	assert.Contains(t, out, "(none)")
}
