package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
}

func TestLoadMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.json5"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "config.json5")
	writeFile(t, name, `{
		// only the fields that differ from the defaults
		crm: { base_url: "https://crm.example.com" },
		website: { max_product_id: 200, cloudflare_bypass: true },
		query: { verify_ssl: false },
		crawler: { concurrent_workers: 8 },
	}`)
	writeFile(t, filepath.Join(dir, "config.local.json5"), `{
		storage: { data_dir: "/var/lib/crmlookup" },
		crawler: { request_delay_ms: 0, requests_per_second: 2.5 },
	}`)

	cfg, err := Load(name)
	require.NoError(t, err)

	require.Equal(t, "https://crm.example.com", cfg.Crm.BaseURL)
	require.Equal(t, "/api/login", cfg.Crm.LoginPath)
	require.Equal(t, 200, cfg.Website.MaxProductID)
	require.True(t, cfg.Website.CloudflareBypass)
	require.Equal(t, "https://www.tp-link.com.cn/search.html", cfg.Website.SearchURL)
	require.Equal(t, 8, cfg.Crawler.ConcurrentWorkers)
	require.Equal(t, 2.5, cfg.Crawler.RequestsPerSecond)
	// zero cannot be told apart from unset
	require.Equal(t, 500, cfg.Crawler.RequestDelayMs)

	require.Equal(t, "/var/lib/crmlookup/product_cache.json", cfg.CachePath())
	require.Equal(t, "/var/lib/crmlookup/.session", cfg.SessionPath())

	opts := cfg.CrmOptions()
	require.False(t, opts.VerifySSL)
	require.Equal(t, 30*time.Second, opts.Timeout)
	require.Equal(t, 3, opts.MaxRetries)
	require.Equal(t, "/var/lib/crmlookup/.session", opts.SessionFile)

	web := cfg.WebsiteOptions()
	require.Equal(t, 8, web.Workers)
	require.Equal(t, 500*time.Millisecond, web.RequestDelay)
	require.Equal(t, 15*time.Second, web.Timeout)
	require.Equal(t, "https://www.tp-link.com.cn/product_{id}.html", web.ProductURLTemplate)
}

func TestLoadMalformed(t *testing.T) {
	name := filepath.Join(t.TempDir(), "config.json5")
	writeFile(t, name, `{ crm: `)
	_, err := Load(name)
	require.Error(t, err)
}

func TestStoragePaths(t *testing.T) {
	cfg := Default()
	require.Equal(t, filepath.Join("data", "product_cache.json"), cfg.CachePath())
	require.Equal(t, filepath.Join("data", ".session"), cfg.SessionPath())
	require.True(t, cfg.CrmOptions().VerifySSL)

	cfg.Storage.CacheFile = "/tmp/cache.json"
	require.Equal(t, "/tmp/cache.json", cfg.CachePath())

	cfg.Query.VerifySSL = nil
	require.True(t, cfg.CrmOptions().VerifySSL)
}
