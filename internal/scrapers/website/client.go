package website

import (
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"crmlookup/internal/components/restyutil"
	"crmlookup/internal/components/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	DefaultSearchPath         = "/search.html"
	DefaultProductURLTemplate = "/product_{id}.html"
	DefaultMaxProductID       = 6000
	DefaultTimeout            = 15 * time.Second
	DefaultRequestDelay       = 500 * time.Millisecond
	DefaultWorkers            = 5
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Options configures the website scraper. Zero values fall back to the
// Default* constants.
type Options struct {
	// BaseURL is the site root, ex. "https://www.tp-link.com.cn".
	BaseURL string
	// SearchURL is the search page, relative paths are resolved against
	// BaseURL.
	SearchURL string
	// ProductURLTemplate is the detail page of a product with "{id}" in
	// place of the numeric product id.
	ProductURLTemplate string
	MaxProductID       int

	Timeout time.Duration
	// RequestDelay is waited between a search and the following detail
	// request.
	RequestDelay time.Duration
	// RequestsPerSecond bounds the request rate shared by every client the
	// coordinator creates, <= 0 means unlimited.
	RequestsPerSecond float64
	Workers           int
	CloudflareBypass  bool
	// HttpDump receives every http exchange when set.
	HttpDump restyutil.Output
}

func (o Options) withDefaults() Options {
	if o.SearchURL == "" {
		o.SearchURL = DefaultSearchPath
	}
	if o.ProductURLTemplate == "" {
		o.ProductURLTemplate = DefaultProductURLTemplate
	}
	if o.MaxProductID <= 0 {
		o.MaxProductID = DefaultMaxProductID
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.RequestDelay < 0 {
		o.RequestDelay = 0
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	return o
}

func resolve(base *url.URL, ref string) (string, error) {
	parsed, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(parsed).String(), nil
}

const (
	idPlaceholder = "{id}"
	// idToken stands in for the placeholder while resolving, url escaping
	// would mangle the braces
	idToken = "CRMLOOKUPPRODUCTID"
)

func resolveTemplate(base *url.URL, template string) (string, error) {
	resolved, err := resolve(base, strings.ReplaceAll(template, idPlaceholder, idToken))
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(resolved, idToken, idPlaceholder), nil
}

// productURL fills in the product url template for id.
func (c *Coordinator) productURL(id int) string {
	return strings.ReplaceAll(c.productTemplate, idPlaceholder, strconv.Itoa(id))
}

func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// newHttp creates a browser-like client. Every client shares the
// coordinator's rate limiter.
func (c *Coordinator) newHttp() (*resty.Client, error) {
	httpClient := resty.New()
	httpClient.SetBaseURL(c.baseUrl.String())
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	httpClient.SetCookieJar(jar)
	if c.opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}

	httpClient.SetHeaders(map[string]string{
		"user-agent":      userAgent,
		"accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"accept-language": "zh-CN,zh;q=0.9,en;q=0.8",
	})
	httpClient.SetTimeout(c.opts.Timeout)

	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return c.limiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, c.tel)
	restyutil.Dump(httpClient, "website", c.opts.HttpDump)
	return httpClient, nil
}
