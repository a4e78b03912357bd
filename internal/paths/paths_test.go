package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePlatform points the platform lookups at dirs under a temp root and
// restores them on cleanup.
func fakePlatform(t *testing.T, goos, cwd string) string {
	t.Helper()
	home := t.TempDir()
	saved := platformDir
	platformDir.goos = goos
	platformDir.getwd = func() (string, error) { return cwd, nil }
	platformDir.homeDir = func() (string, error) { return home, nil }
	platformDir.userConfigDir = func() (string, error) { return filepath.Join(home, "AppData"), nil }
	t.Cleanup(func() { platformDir = saved })
	return home
}

func TestDefaultDirs(t *testing.T) {
	t.Run("linux uses XDG when set", func(t *testing.T) {
		fakePlatform(t, "linux", t.TempDir())
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
		t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")

		got, err := DefaultConfigDir()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/xdg-config/typegraph", got)
		got, err = DefaultDataDir()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/xdg-data/typegraph", got)
	})

	t.Run("linux falls back to home", func(t *testing.T) {
		home := fakePlatform(t, "linux", t.TempDir())
		t.Setenv("XDG_CONFIG_HOME", "")
		t.Setenv("XDG_DATA_HOME", "")

		got, err := DefaultConfigDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".config", "typegraph"), got)
		got, err = DefaultDataDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".local", "share", "typegraph"), got)
	})

	t.Run("other platforms share the user config dir", func(t *testing.T) {
		home := fakePlatform(t, "darwin", t.TempDir())
		got, err := DefaultConfigDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, "AppData", "typegraph"), got)
		got, err = DefaultDataDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, "AppData", "typegraph"), got)
	})
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ConfigDirName), 0o755))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	fakePlatform(t, "linux", nested)
	got, ok, err := FindProjectRoot()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, root, got)

	fakePlatform(t, "linux", t.TempDir())
	_, ok, err = FindProjectRoot()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveConfigDir(t *testing.T) {
	project := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(project, ConfigDirName), 0o755))

	tests := []struct {
		name   string
		flag   string
		envVal string
		cwd    string
		want   string
	}{
		{name: "flag wins over env", flag: "/explicit/config", envVal: "/env/config", cwd: project, want: "/explicit/config"},
		{name: "env wins over project", envVal: "/env/config", cwd: project, want: "/env/config"},
		{name: "enclosing project", cwd: project, want: filepath.Join(project, ConfigDirName)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fakePlatform(t, "linux", tt.cwd)
			t.Setenv(EnvConfigDir, tt.envVal)
			got, err := ResolveConfigDir(tt.flag)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("platform default outside a project", func(t *testing.T) {
		home := fakePlatform(t, "linux", t.TempDir())
		t.Setenv(EnvConfigDir, "")
		t.Setenv("XDG_CONFIG_HOME", "")
		got, err := ResolveConfigDir("")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".config", "typegraph"), got)
	})

	t.Run("relative flag becomes absolute", func(t *testing.T) {
		t.Setenv(EnvConfigDir, "")
		got, err := ResolveConfigDir("relative/path")
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(got), "expected absolute path, got %s", got)
	})
}

func TestResolveDataDir(t *testing.T) {
	project := t.TempDir()
	configDir := filepath.Join(project, ConfigDirName)
	require.NoError(t, os.Mkdir(configDir, 0o755))
	plain := t.TempDir()

	tests := []struct {
		name        string
		flag        string
		configValue string
		envVal      string
		cwd         string
		want        string
	}{
		{name: "flag wins over all", flag: "/flag/data", configValue: "/config/data", envVal: "/env/data", cwd: project, want: "/flag/data"},
		{name: "config wins over env", configValue: "/config/data", envVal: "/env/data", cwd: project, want: "/config/data"},
		{name: "relative config is next to the config dir", configValue: "db", cwd: project, want: filepath.Join(project, "db")},
		{name: "env wins over project", envVal: "/env/data", cwd: project, want: "/env/data"},
		{name: "enclosing project", cwd: project, want: filepath.Join(project, DataDirName)},
		{name: "cwd default", cwd: plain, want: filepath.Join(plain, DataDirName)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fakePlatform(t, "linux", tt.cwd)
			t.Setenv(EnvDataDir, tt.envVal)
			got, err := ResolveDataDir(tt.flag, tt.configValue, configDir)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
