package types

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigJSON(t *testing.T) {
	config := DefaultVMConfig()
	expected := `{"tick_limit":10000000,"memory_limit_pages":256,"host_module":"env","import_prefix":"eth2_","entry_point":"main","memory_export":"memory","no_import_prefix":false,"print_debug":false}`

	bz, err := json.Marshal(config)
	require.NoError(t, err)
	assert.Equal(t, expected, string(bz))
}

func TestConfigWithDefaults(t *testing.T) {
	config := VMConfig{TickLimit: 5}.WithDefaults()
	assert.Equal(t, Ticks(5), config.TickLimit)
	assert.Equal(t, DefaultHostModule, config.HostModule)
	assert.Equal(t, DefaultEntryPoint, config.EntryPoint)
	assert.Equal(t, DefaultImportPrefix, config.ImportPrefix)
	require.NoError(t, config.Validate())

	assert.Equal(t, DefaultVMConfig(), VMConfig{}.WithDefaults())

	bare := VMConfig{ImportPrefix: "ignored_", NoImportPrefix: true}.WithDefaults()
	assert.Equal(t, "", bare.ImportPrefix)

	custom := VMConfig{ImportPrefix: "x_"}.WithDefaults()
	assert.Equal(t, "x_", custom.ImportPrefix)
}

func TestConfigValidate(t *testing.T) {
	cases := map[string]func(*VMConfig){
		"zero ticks":     func(c *VMConfig) { c.TickLimit = 0 },
		"zero pages":     func(c *VMConfig) { c.MemoryLimitPages = 0 },
		"too many pages": func(c *VMConfig) { c.MemoryLimitPages = MaxMemoryLimitPages + 1 },
		"no host module": func(c *VMConfig) { c.HostModule = "" },
		"no entry point": func(c *VMConfig) { c.EntryPoint = "" },
		"no memory name": func(c *VMConfig) { c.MemoryExport = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			config := DefaultVMConfig()
			mutate(&config)
			require.Error(t, config.Validate())
		})
	}
}

func TestLoadVMConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scout.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tick_limit: 42\nprint_debug: true\n"), 0o644))

	config, err := LoadVMConfig(path)
	require.NoError(t, err)
	assert.Equal(t, Ticks(42), config.TickLimit)
	assert.True(t, config.PrintDebug)
	assert.Equal(t, DefaultImportPrefix, config.ImportPrefix)
	assert.Equal(t, DefaultMemoryLimitPages, config.MemoryLimitPages)

	require.NoError(t, os.WriteFile(path, []byte("memory_limit_pages: 70000\n"), 0o644))
	_, err = LoadVMConfig(path)
	require.ErrorContains(t, err, "memory_limit_pages")

	require.NoError(t, os.WriteFile(path, []byte("tick_limit: 0\n"), 0o644))
	_, err = LoadVMConfig(path)
	require.ErrorContains(t, err, "tick_limit")

	_, err = LoadVMConfig(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
