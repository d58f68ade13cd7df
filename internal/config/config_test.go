package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))
	return dir
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "APP", cfg.DisplayName)
	assert.Equal(t, []string{"python"}, cfg.Tools)
	assert.Equal(t, "restrictive", cfg.License)
	assert.Nil(t, cfg.Insts)
}

func TestLoadFillsDefaults(t *testing.T) {
	dir := writeConfig(t, `
display_name: Shop
tools: [python, javascript]
insts:
  - name: web
`)
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "Shop", cfg.DisplayName)
	assert.True(t, cfg.HasTool("javascript"))
	assert.False(t, cfg.HasTool("rust"))
	assert.Equal(t, "restrictive", cfg.License)
	require.Len(t, cfg.Insts, 1)
	assert.Equal(t, "dev", cfg.Insts[0].Cluster)
	assert.Equal(t, "pck-reg.home.arpa", cfg.Insts[0].PckRegistry)
	assert.NotNil(t, cfg.Insts[0].EnvFiles)
}

func TestResolveInst(t *testing.T) {
	cfg := &Config{
		Insts: []*Inst{
			{Name: "web", Alias: "w", Cluster: "dev"},
			{Name: "web-prod", Cluster: "prod", Default: true},
		},
	}

	t.Run("default wins without selector", func(t *testing.T) {
		inst, err := cfg.ResolveInst("", "")
		require.NoError(t, err)
		assert.Equal(t, "web-prod", inst.Name)
	})

	t.Run("by name", func(t *testing.T) {
		inst, err := cfg.ResolveInst("web", "")
		require.NoError(t, err)
		assert.Equal(t, "web", inst.Name)
	})

	t.Run("by alias", func(t *testing.T) {
		inst, err := cfg.ResolveInst("w", "")
		require.NoError(t, err)
		assert.Equal(t, "web", inst.Name)
	})

	t.Run("by cluster", func(t *testing.T) {
		inst, err := cfg.ResolveInst("", "prod")
		require.NoError(t, err)
		assert.Equal(t, "web-prod", inst.Name)
	})

	t.Run("no match", func(t *testing.T) {
		_, err := cfg.ResolveInst("nope", "")
		assert.Error(t, err)
	})

	t.Run("single inst auto-selected", func(t *testing.T) {
		single := &Config{Insts: []*Inst{{Name: "only"}}}
		inst, err := single.ResolveInst("", "")
		require.NoError(t, err)
		assert.Equal(t, "only", inst.Name)
	})

	t.Run("no insts resolves to nil", func(t *testing.T) {
		none := &Config{}
		inst, err := none.ResolveInst("", "")
		require.NoError(t, err)
		assert.Nil(t, inst)
	})

	t.Run("multiple defaults is an error", func(t *testing.T) {
		dup := &Config{Insts: []*Inst{
			{Name: "a", Default: true},
			{Name: "b", Default: true},
		}}
		_, err := dup.ResolveInst("", "")
		assert.Error(t, err)
	})

	t.Run("invalid name rejected", func(t *testing.T) {
		bad := &Config{Insts: []*Inst{{Name: "Bad_Name"}}}
		_, err := bad.ResolveInst("", "")
		assert.Error(t, err)
	})
}

func TestRequireInst(t *testing.T) {
	rc := &RunContext{Config: Default()}
	_, err := rc.RequireInst()
	assert.Error(t, err)

	rc.Inst = &Inst{Name: "web"}
	inst, err := rc.RequireInst()
	require.NoError(t, err)
	assert.Equal(t, "web", inst.Name)
}
