package website

import (
	"context"
	"sync"

	"crmlookup/internal/featurecache"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
)

// progressInterval is how many completed ids pass between plain progress
// reports.
const progressInterval = 50

// Progress is reported by CrawlAll. Features is set when the report is for a
// product that was found, it is nil for the periodic reports.
type Progress struct {
	Completed int
	Total     int
	// ID is the product id the report is for, 0 for periodic reports.
	ID       int
	Features *featurecache.FeatureSet
}

type ProgressFunc func(Progress)

type crawlResult struct {
	id       int
	features featurecache.FeatureSet
	ok       bool
}

// CrawlAll scrapes every product id from 1 to MaxProductID with a pool of
// workers, each with its own http client. workers <= 0 uses the configured
// worker count. Results come back in completion order.
//
// onProgress is called from a single goroutine, once for every product found
// and once for every 50 completed ids. Ids that fail for any reason are
// skipped.
func (c *Coordinator) CrawlAll(ctx context.Context, workers int, onProgress ProgressFunc) []featurecache.FeatureSet {
	ctx, span := tracer.Start(ctx, "coordinator:crawl-all")
	defer span.End()

	if workers <= 0 {
		workers = c.opts.Workers
	}
	total := c.opts.MaxProductID
	if workers > total {
		workers = total
	}
	span.SetAttributes(
		attribute.Int("custom.workers", workers),
		attribute.Int("custom.total", total),
	)

	clients := make([]*resty.Client, workers)
	for i := range clients {
		client, err := c.newHttp()
		if err != nil {
			span.RecordError(err)
			c.tel.ReportBroken(report_coordinator_crawl_all, err)
			return []featurecache.FeatureSet{}
		}
		clients[i] = client
	}

	jobs := make(chan int)
	results := make(chan crawlResult, workers)

	wg := sync.WaitGroup{}
	for _, client := range clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				features, ok := c.fetchByID(ctx, client, id)
				results <- crawlResult{id: id, features: features, ok: ok}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for id := 1; id <= total; id++ {
			jobs <- id
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	found := []featurecache.FeatureSet{}
	completed := 0
	for res := range results {
		completed++
		if res.ok {
			found = append(found, res.features)
			if onProgress != nil {
				features := res.features.Clone()
				onProgress(Progress{
					Completed: completed,
					Total:     total,
					ID:        res.id,
					Features:  &features,
				})
			}
		}
		if completed%progressInterval == 0 {
			c.tel.ReportCount(report_coordinator_crawl_all, int64(len(found)))
			if onProgress != nil {
				onProgress(Progress{Completed: completed, Total: total})
			}
		}
	}

	span.SetAttributes(attribute.Int("custom.found", len(found)))
	c.tel.ReportDebug("crawl finished", len(found), total)
	return found
}
