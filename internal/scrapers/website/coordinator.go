// Package website scrapes product feature text from the public product
// website, either for a single CRM model or for every product id.
package website

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"crmlookup/internal/components/assert"
	"crmlookup/internal/components/chrono"
	"crmlookup/internal/components/telemetry"
	"crmlookup/internal/featurecache"
	"crmlookup/internal/modelmatch"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("crmlookup/scrapers/website")

const (
	report_coordinator_search     = "coordinator.search"
	report_coordinator_detail     = "coordinator.detail"
	report_coordinator_fetch      = "coordinator.fetch-by-model"
	report_coordinator_crawl_all  = "coordinator.crawl-all"
	report_coordinator_crawl_item = "coordinator.crawl-item"
)

// FetchStatus is the outcome of FetchByModel.
type FetchStatus int

const (
	// FetchFailed means a request or a page could not be read.
	FetchFailed FetchStatus = iota
	// FetchFound means the features were found and the page model agrees
	// with the queried model.
	FetchFound
	// FetchNotFound means the search had no result or no result matched
	// well enough to be fetched.
	FetchNotFound
	// FetchMismatch means the detail page states a model that does not
	// match the queried model.
	FetchMismatch
)

func (s FetchStatus) String() string {
	switch s {
	case FetchFound:
		return "found"
	case FetchNotFound:
		return "not found"
	case FetchMismatch:
		return "model mismatch"
	default:
		return "failed"
	}
}

// FetchResult is the outcome of FetchByModel. Features is only set when
// Status is FetchFound, Err only when Status is FetchFailed.
type FetchResult struct {
	Status   FetchStatus
	Features featurecache.FeatureSet
	// Score is the match score of the chosen search result.
	Score int
	Err   error
}

// Coordinator drives the website scraper.
type Coordinator struct {
	opts            Options
	baseUrl         *url.URL
	searchUrl       string
	productTemplate string

	tel     telemetry.API
	clock   chrono.API
	limiter *rate.Limiter
	http    *resty.Client
}

func NewCoordinator(opts Options, tel telemetry.API, clock chrono.API) (*Coordinator, error) {
	assert.NotNil(tel)
	assert.NotNil(clock)

	opts = opts.withDefaults()
	baseUrl, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if baseUrl.Scheme == "" || baseUrl.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", opts.BaseURL)
	}
	searchUrl, err := resolve(baseUrl, opts.SearchURL)
	if err != nil {
		return nil, fmt.Errorf("parse search url: %w", err)
	}
	productTemplate, err := resolveTemplate(baseUrl, opts.ProductURLTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse product url template: %w", err)
	}

	c := &Coordinator{
		opts:            opts,
		baseUrl:         baseUrl,
		searchUrl:       searchUrl,
		productTemplate: productTemplate,
		tel:             telemetry.NewScopedAPI("website_scraper", tel),
		clock:           clock,
		limiter:         newLimiter(opts.RequestsPerSecond, opts.Workers),
	}
	c.http, err = c.newHttp()
	if err != nil {
		return nil, err
	}
	return c, nil
}

// MaxProductID is the highest product id CrawlAll visits.
func (c *Coordinator) MaxProductID() int {
	return c.opts.MaxProductID
}

func getDocument(ctx context.Context, client *resty.Client, req func(*resty.Request) (*resty.Response, error)) (*goquery.Document, int, error) {
	res, err := req(client.R().SetContext(ctx))
	if err != nil {
		return nil, 0, err
	}
	if res.StatusCode() != http.StatusOK {
		return nil, res.StatusCode(), fmt.Errorf("unexpected status %s", res.Status())
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return nil, res.StatusCode(), fmt.Errorf("parse html: %w", err)
	}
	return doc, res.StatusCode(), nil
}

// Search queries the website's search page with the model as keywords.
func (c *Coordinator) Search(ctx context.Context, model string) ([]SearchResult, error) {
	ctx, span := tracer.Start(ctx, "coordinator:search")
	defer span.End()

	doc, _, err := getDocument(ctx, c.http, func(r *resty.Request) (*resty.Response, error) {
		return r.SetQueryParam("keywords", model).Get(c.searchUrl)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search request failed")
		c.tel.ReportWarning(report_coordinator_search, err, model)
		return nil, fmt.Errorf("search %q: %w", model, err)
	}

	results := parseSearchResults(doc, c.baseUrl)
	span.SetAttributes(attribute.Int("custom.results", len(results)))
	return results, nil
}

func (c *Coordinator) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FetchByModel finds the product page for a CRM model through the website
// search and scrapes its features. The detail page is only requested when a
// search result scores at least modelmatch.SearchThreshold against the
// model. When the page states its own model, it must score at least
// modelmatch.VerifyThreshold against the queried model.
func (c *Coordinator) FetchByModel(ctx context.Context, model string) FetchResult {
	ctx, span := tracer.Start(ctx, "coordinator:fetch-by-model")
	defer span.End()
	span.SetAttributes(attribute.String("custom.model", model))

	if modelmatch.Key(model) == "" {
		return FetchResult{Status: FetchNotFound}
	}
	results, err := c.Search(ctx, model)
	if err != nil {
		return FetchResult{Status: FetchFailed, Err: err}
	}
	if len(results) == 0 {
		c.tel.ReportDebug("no search results", model)
		return FetchResult{Status: FetchNotFound}
	}

	models := make([]string, len(results))
	for i, r := range results {
		models[i] = r.Model
	}
	idx, score := modelmatch.Best(model, models)
	best := results[idx]
	span.SetAttributes(attribute.Int("custom.best_score", score))
	if score < modelmatch.SearchThreshold {
		c.tel.ReportDebug("best search result scored too low", model, best.Model, score)
		return FetchResult{Status: FetchNotFound, Score: score}
	}
	c.tel.ReportDebug("chose search result", model, best.Model, score)

	err = c.wait(ctx, c.opts.RequestDelay)
	if err != nil {
		return FetchResult{Status: FetchFailed, Score: score, Err: err}
	}

	doc, _, err := getDocument(ctx, c.http, func(r *resty.Request) (*resty.Response, error) {
		return r.Get(best.URL)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "detail request failed")
		c.tel.ReportWarning(report_coordinator_detail, err, best.URL)
		return FetchResult{
			Status: FetchFailed,
			Score:  score,
			Err:    fmt.Errorf("fetch detail %s: %w", best.URL, err),
		}
	}

	features := parseDetailPage(doc, best.URL, model, chrono.Timestamp(c.clock))
	if stated := statedModel(doc); stated != "" {
		verify := modelmatch.Score(model, stated)
		if verify < modelmatch.VerifyThreshold {
			c.tel.ReportWarning(
				report_coordinator_fetch,
				fmt.Errorf("model mismatch: queried %q, page states %q (score %d)", model, stated, verify),
			)
			return FetchResult{Status: FetchMismatch, Score: score}
		}
	}
	// the detail page title wins, the search result name is a fallback
	if features.ProductName == "" {
		features.ProductName = best.Name
	}

	return FetchResult{Status: FetchFound, Features: features, Score: score}
}

// FetchByID scrapes the detail page of a product id. ok is false when the
// page does not exist or has no feature section.
func (c *Coordinator) FetchByID(ctx context.Context, id int) (featurecache.FeatureSet, bool) {
	return c.fetchByID(ctx, c.http, id)
}

func (c *Coordinator) fetchByID(ctx context.Context, client *resty.Client, id int) (featurecache.FeatureSet, bool) {
	pageUrl := c.productURL(id)
	doc, status, err := getDocument(ctx, client, func(r *resty.Request) (*resty.Response, error) {
		return r.Get(pageUrl)
	})
	if status == http.StatusNotFound {
		return featurecache.FeatureSet{}, false
	}
	if err != nil {
		c.tel.ReportDebug(report_coordinator_crawl_item+": request failed", id, err)
		return featurecache.FeatureSet{}, false
	}

	features, ok := parseProductPage(doc, id, pageUrl, chrono.Timestamp(c.clock))
	if !ok {
		c.tel.ReportDebug(report_coordinator_crawl_item+": no feature section", id)
	}
	return features, ok
}
