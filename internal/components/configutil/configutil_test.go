package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name    string `json:"name"`
	Workers int    `json:"workers"`
	Nested  struct {
		Url string `json:"url"`
	} `json:"nested"`
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	err := os.WriteFile(path, []byte(contents), 0o644)
	require.NoError(t, err)
}

func TestLocalName(t *testing.T) {
	require.Equal(t, filepath.Join("a", "config.local.json5"), LocalName(filepath.Join("a", "config.json5")))
	require.Equal(t, "telemetry.local.json5", LocalName("telemetry.json5"))
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.json5"), `{
		// comments are allowed
		name: "base",
		workers: 5,
		nested: { url: "https://example.com" },
	}`)
	writeFile(t, filepath.Join(dir, "config.local.json5"), `{ workers: 9 }`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, "base", cfg.Name)
	require.Equal(t, 9, cfg.Workers)
	require.Equal(t, "https://example.com", cfg.Nested.Url)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "config.json5"))
	require.True(t, os.IsNotExist(err))
}

func TestReadConfigMalformed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.json5"), `{ name: `)

	_, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.Error(t, err)
	require.False(t, os.IsNotExist(err))
}

func TestWithDefaults(t *testing.T) {
	defaults := testConfig{Name: "default", Workers: 5}
	merged, err := WithDefaults(defaults, testConfig{Workers: 2})
	require.NoError(t, err)
	require.Equal(t, "default", merged.Name)
	require.Equal(t, 2, merged.Workers)
}
