// Package service ties the feature cache to the website scraper.
package service

import (
	"context"

	"crmlookup/internal/components/assert"
	"crmlookup/internal/components/telemetry"
	"crmlookup/internal/featurecache"
	"crmlookup/internal/modelmatch"
	"crmlookup/internal/scrapers/website"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("crmlookup/service")

const (
	report_features_lookup       = "features.lookup"
	report_features_update_cache = "features.update-cache"
)

// Crawler describes what the feature service needs from the website
// scraper.
//
// note: fault injection point
type Crawler interface {
	// FetchByModel finds and scrapes the product page of a single model.
	FetchByModel(ctx context.Context, model string) website.FetchResult
	// CrawlAll scrapes every product id, see website.Coordinator.CrawlAll.
	CrawlAll(ctx context.Context, workers int, onProgress website.ProgressFunc) []featurecache.FeatureSet
}

// Source tells where a LookupResult came from.
type Source int

const (
	SourceNone Source = iota
	SourceCache
	SourceCrawl
)

func (s Source) String() string {
	switch s {
	case SourceCache:
		return "cache"
	case SourceCrawl:
		return "website"
	default:
		return "none"
	}
}

type LookupResult struct {
	Features featurecache.FeatureSet
	Source   Source
	// Match is how the cache resolved the model when Source is SourceCache.
	Match featurecache.MatchKind
	// Fetch is the outcome of the crawl when the cache missed.
	Fetch website.FetchStatus
}

// Found returns true if the result carries features.
func (r LookupResult) Found() bool {
	return r.Source != SourceNone
}

// Features resolves CRM models to their feature text.
type Features struct {
	store   *featurecache.Store
	crawler Crawler
	tel     telemetry.API
	flights singleflight.Group
}

func NewFeatures(store *featurecache.Store, crawler Crawler, tel telemetry.API) *Features {
	assert.NotNil(store)
	assert.NotNil(crawler)
	assert.NotNil(tel)

	return &Features{
		store:   store,
		crawler: crawler,
		tel:     telemetry.NewScopedAPI("feature_service", tel),
	}
}

// Lookup returns the features of a model from the cache, or crawls the
// website for just that model when the cache misses. A crawled result is
// put into the cache and saved. Concurrent lookups of the same model share
// a single crawl, a lookup never starts a full crawl.
func (f *Features) Lookup(ctx context.Context, model string) LookupResult {
	ctx, span := tracer.Start(ctx, "features:lookup")
	defer span.End()

	key := modelmatch.Key(model)
	if key == "" {
		return LookupResult{}
	}

	features, kind := f.store.Lookup(ctx, model)
	if kind != featurecache.MatchMiss {
		span.SetAttributes(attribute.String("custom.source", "cache"))
		return LookupResult{Features: features, Source: SourceCache, Match: kind}
	}

	value, _, shared := f.flights.Do(key, func() (any, error) {
		return f.crawl(ctx, model), nil
	})
	span.SetAttributes(
		attribute.String("custom.source", "crawl"),
		attribute.Bool("custom.shared", shared),
	)

	res := value.(LookupResult)
	res.Features = res.Features.Clone()
	return res
}

func (f *Features) crawl(ctx context.Context, model string) LookupResult {
	res := f.crawler.FetchByModel(ctx, model)
	if res.Status != website.FetchFound {
		if res.Err != nil {
			f.tel.ReportWarning(report_features_lookup, res.Err, model)
		} else {
			f.tel.ReportDebug("website has no features", model, res.Status.String())
		}
		return LookupResult{Fetch: res.Status}
	}

	f.store.Put(res.Features)
	// save failures are reported by the store, the features are still usable
	_ = f.store.Save(ctx)

	return LookupResult{
		Features: res.Features,
		Source:   SourceCrawl,
		Fetch:    res.Status,
	}
}

// UpdateCache crawls every product on the website into the cache and saves
// it once at the end. Products are put into the cache as they arrive so that
// lookups during the crawl already see them. It returns the number of
// products crawled.
func (f *Features) UpdateCache(ctx context.Context, workers int, onProgress website.ProgressFunc) (int, error) {
	ctx, span := tracer.Start(ctx, "features:update-cache")
	defer span.End()

	products := f.crawler.CrawlAll(ctx, workers, func(p website.Progress) {
		if p.Features != nil {
			f.store.Put(*p.Features)
		}
		if onProgress != nil {
			onProgress(p)
		}
	})
	for _, product := range products {
		f.store.Put(product)
	}

	span.SetAttributes(attribute.Int("custom.crawled", len(products)))
	f.tel.ReportCount(report_features_update_cache, int64(len(products)))

	err := f.store.Save(ctx)
	if err != nil {
		return len(products), err
	}
	return len(products), nil
}
