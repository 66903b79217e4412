// Package config holds the configuration of crmlookup, read from
// config.json5 and config.local.json5.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"crmlookup/internal/components/configutil"
	"crmlookup/internal/scrapers/crm"
	"crmlookup/internal/scrapers/website"
)

// DefaultName is the name of the config file looked up from the working
// directory upwards.
const DefaultName = "config.json5"

type Crm struct {
	BaseURL            string `json:"base_url"`
	LoginPath          string `json:"api_login"`
	InitHomePath       string `json:"api_init_home"`
	PriceQueryPath     string `json:"api_price_query"`
	InventoryQueryPath string `json:"api_inventory_query"`
}

type Website struct {
	BaseURL            string `json:"base_url"`
	ProductURLTemplate string `json:"product_url_template"`
	SearchURL          string `json:"search_url"`
	MaxProductID       int    `json:"max_product_id"`
	CloudflareBypass   bool   `json:"cloudflare_bypass"`
}

type Query struct {
	TimeoutSeconds int `json:"timeout_seconds"`
	MaxRetries     int `json:"max_retries"`
	// VerifySSL is a pointer so that an explicit false survives merging
	// over the defaults.
	VerifySSL *bool `json:"verify_ssl"`
}

type Storage struct {
	DataDir string `json:"data_dir"`
	// CacheFile and SessionFile are relative to DataDir unless absolute.
	CacheFile   string `json:"cache_file"`
	SessionFile string `json:"session_file"`
}

type Crawler struct {
	ConcurrentWorkers int     `json:"concurrent_workers"`
	RequestDelayMs    int     `json:"request_delay_ms"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
	RequestsPerSecond float64 `json:"requests_per_second"`
}

type Config struct {
	Crm     Crm     `json:"crm"`
	Website Website `json:"website"`
	Query   Query   `json:"query"`
	Storage Storage `json:"storage"`
	Crawler Crawler `json:"crawler"`
	// MetricsAddr is where prometheus metrics are served during long
	// running commands, empty disables it.
	MetricsAddr string `json:"metrics_addr"`
	// HttpDumpDir receives a file per http exchange when set, it is emptied
	// on startup.
	HttpDumpDir string `json:"http_dump_dir"`
	Debug       bool   `json:"debug"`
}

func Default() Config {
	verify := true
	return Config{
		Crm: Crm{
			BaseURL:            "https://sales.tp-link.net",
			LoginPath:          crm.DefaultLoginPath,
			InitHomePath:       crm.DefaultInitHomePath,
			PriceQueryPath:     crm.DefaultPriceQueryPath,
			InventoryQueryPath: crm.DefaultInventoryQueryPath,
		},
		Website: Website{
			BaseURL:            "https://www.tp-link.com.cn",
			ProductURLTemplate: "https://www.tp-link.com.cn/product_{id}.html",
			SearchURL:          "https://www.tp-link.com.cn/search.html",
			MaxProductID:       website.DefaultMaxProductID,
		},
		Query: Query{
			TimeoutSeconds: 30,
			MaxRetries:     crm.DefaultMaxRetries,
			VerifySSL:      &verify,
		},
		Storage: Storage{
			DataDir:     "data",
			CacheFile:   "product_cache.json",
			SessionFile: ".session",
		},
		Crawler: Crawler{
			ConcurrentWorkers: website.DefaultWorkers,
			RequestDelayMs:    int(website.DefaultRequestDelay / time.Millisecond),
			TimeoutSeconds:    int(website.DefaultTimeout / time.Second),
			RequestsPerSecond: 10,
		},
	}
}

// Load reads the config file and merges it over Default. A bare file name is
// looked up from the working directory upwards, a missing file gives the
// defaults.
func Load(name string) (Config, error) {
	var cfg Config
	var err error
	if filepath.Base(name) == name {
		cfg, err = configutil.ReadRecursively[Config](name)
	} else {
		cfg, err = configutil.ReadConfig[Config](name)
	}
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, err
	}
	return configutil.WithDefaults(Default(), cfg)
}

func (s Storage) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.DataDir, name)
}

// CachePath is the location of the feature cache file.
func (c Config) CachePath() string {
	return c.Storage.resolve(c.Storage.CacheFile)
}

// SessionPath is the location of the saved CRM session.
func (c Config) SessionPath() string {
	return c.Storage.resolve(c.Storage.SessionFile)
}

func (c Config) CrmOptions() crm.Options {
	verify := true
	if c.Query.VerifySSL != nil {
		verify = *c.Query.VerifySSL
	}
	return crm.Options{
		BaseURL:      c.Crm.BaseURL,
		LoginPath:    c.Crm.LoginPath,
		InitHomePath: c.Crm.InitHomePath,
		Timeout:      time.Duration(c.Query.TimeoutSeconds) * time.Second,
		MaxRetries:   c.Query.MaxRetries,
		VerifySSL:    verify,
		SessionFile:  c.SessionPath(),
	}
}

func (c Config) WebsiteOptions() website.Options {
	return website.Options{
		BaseURL:            c.Website.BaseURL,
		SearchURL:          c.Website.SearchURL,
		ProductURLTemplate: c.Website.ProductURLTemplate,
		MaxProductID:       c.Website.MaxProductID,
		Timeout:            time.Duration(c.Crawler.TimeoutSeconds) * time.Second,
		RequestDelay:       time.Duration(c.Crawler.RequestDelayMs) * time.Millisecond,
		RequestsPerSecond:  c.Crawler.RequestsPerSecond,
		Workers:            c.Crawler.ConcurrentWorkers,
		CloudflareBypass:   c.Website.CloudflareBypass,
	}
}
