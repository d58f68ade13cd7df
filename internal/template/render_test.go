package template

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olib-dev/olib/internal/config"
)

func TestRenderWritesAndCaches(t *testing.T) {
	olibPath := t.TempDir()
	baseDir := t.TempDir()

	src := filepath.Join(olibPath, "config", "pylintrc")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0o755))
	require.NoError(t, os.WriteFile(src, []byte("app={{.Config.DisplayName}}\n"), 0o644))

	r := &Renderer{OlibPath: olibPath, BaseDir: baseDir}
	data := Data{Config: &config.Config{DisplayName: "Shop"}}

	out, err := r.Render("config/pylintrc", data, ".web.dev")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(baseDir, ".output", "tmpl", "config", "pylintrc.web.dev"), out)

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "app=Shop\n", string(content))

	// Unchanged source must not rewrite the cached output.
	before, err := os.Stat(out)
	require.NoError(t, err)
	_, err = r.Render("config/pylintrc", data, ".web.dev")
	require.NoError(t, err)
	after, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())

	// A newer source forces a re-render.
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(src, future, future))
	require.NoError(t, os.WriteFile(src, []byte("app=other\n"), 0o644))
	require.NoError(t, os.Chtimes(src, future, future))

	out2, err := r.Render("config/pylintrc", data, ".web.dev")
	require.NoError(t, err)
	content, err = os.ReadFile(out2)
	require.NoError(t, err)
	assert.Equal(t, "app=other\n", string(content))
}

func TestRenderRefreshesOnConfigChange(t *testing.T) {
	olibPath := t.TempDir()
	baseDir := t.TempDir()

	src := filepath.Join(olibPath, "config", "pylintrc")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0o755))
	require.NoError(t, os.WriteFile(src, []byte("app={{.Config.DisplayName}}\n"), 0o644))

	r := &Renderer{OlibPath: olibPath, BaseDir: baseDir}
	out, err := r.Render("config/pylintrc", Data{Config: &config.Config{DisplayName: "Shop"}}, "")
	require.NoError(t, err)

	// An olib.yaml edit after the render must invalidate the cache even
	// though the template itself is unchanged.
	cfgPath := filepath.Join(baseDir, config.FileName)
	require.NoError(t, os.WriteFile(cfgPath, []byte("display_name: Store\n"), 0o644))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(cfgPath, future, future))

	out2, err := r.Render("config/pylintrc", Data{Config: &config.Config{DisplayName: "Store"}}, "")
	require.NoError(t, err)
	content, err := os.ReadFile(out2)
	require.NoError(t, err)
	assert.Equal(t, "app=Store\n", string(content))
	assert.Equal(t, out, out2)
}

// The config templates the py tooling renders ship with the toolkit;
// both the plain and the Django variants must parse and render.
func TestShippedConfigTemplates(t *testing.T) {
	olibPath, err := filepath.Abs(filepath.Join("..", ".."))
	require.NoError(t, err)
	r := &Renderer{OlibPath: olibPath, BaseDir: t.TempDir()}

	for _, name := range []string{"config/pylintrc", "config/mypy"} {
		out, err := r.Render(name, Data{Config: config.Default()}, ".plain")
		require.NoError(t, err, name)
		plain, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.NotContains(t, string(plain), "{{")
		assert.NotContains(t, string(plain), "app.settings")

		out, err = r.Render(name, Data{
			Config: config.Default(),
			Extra:  map[string]any{"django": &config.DjangoRoot{WorkingDir: "backend", Settings: "app.settings"}},
		}, ".django")
		require.NoError(t, err, name)
		dj, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Contains(t, string(dj), "app.settings")
	}
}

func TestRenderMissingTemplate(t *testing.T) {
	r := &Renderer{OlibPath: t.TempDir(), BaseDir: t.TempDir()}
	_, err := r.Render("config/absent", Data{}, "")
	assert.Error(t, err)
}

func TestInstSuffix(t *testing.T) {
	assert.Equal(t, "", InstSuffix(nil))
	assert.Equal(t, ".web.dev", InstSuffix(&config.Inst{Name: "web", Cluster: "dev"}))
}
