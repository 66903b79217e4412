package website

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"crmlookup/internal/featurecache"
	"crmlookup/internal/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// SearchResult is a single hit on the website's search page.
type SearchResult struct {
	URL   string
	Model string
	Name  string
}

func parseSearchResults(doc *goquery.Document, base *url.URL) []SearchResult {
	results := []SearchResult{}
	doc.Find("div.resultDetail").Each(func(_ int, item *goquery.Selection) {
		img := item.Find("div.searchImg a").First()
		modelElem := item.Find("p.searchModel").First()
		if img.Length() == 0 || modelElem.Length() == 0 {
			return
		}
		href := strings.TrimSpace(img.AttrOr("href", ""))
		if href == "" {
			return
		}

		results = append(results, SearchResult{
			URL:   htmlutil.ResolveURL(base, href),
			Model: htmlutil.Text(modelElem),
			Name:  htmlutil.Text(item.Find("h3.searchName a")),
		})
	})
	return results
}

var featureContainerSelectors = []string{
	"div#smbproductFeature",
	"div.product-feature",
	"div.feature-list",
	".product-intro ul",
}

// featureItems returns the text of the li items in container, falling back to
// its p items when it has no li.
func featureItems(container *goquery.Selection) []string {
	items := container.Find("li")
	if items.Length() == 0 {
		items = container.Find("p")
	}
	return htmlutil.ItemTexts(items)
}

// parseFeatures reads the features from the first container selector that
// exists on the page. found is false when none of them exist.
func parseFeatures(doc *goquery.Document) (features []string, found bool) {
	for _, selector := range featureContainerSelectors {
		container := doc.Find(selector).First()
		if container.Length() == 0 {
			continue
		}
		return featureItems(container), true
	}
	return []string{}, false
}

var productIDRegex = regexp.MustCompile(`product_(\d+)`)

// productIDFromURL returns the numeric id in a "product_<id>" url, or 0.
func productIDFromURL(u string) int {
	groups := productIDRegex.FindStringSubmatch(u)
	if len(groups) < 2 {
		return 0
	}
	id, err := strconv.Atoi(groups[1])
	if err != nil {
		return 0
	}
	return id
}

const (
	detailTitleSelector = ".product-intro h1, .product-name, h1.title"
	productNameSelector = "#smbproductName, .product-intro h1, .product-name, h1.title"
)

// modelPatterns are tried in order against the product name and url when a
// page does not state its model.
var modelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(TL-[A-Z0-9\-]+)`),
	regexp.MustCompile(`(SH[A-Z0-9\-]+)`),
	regexp.MustCompile(`(SG[A-Z0-9\-]+)`),
	regexp.MustCompile(`(TF-[A-Z0-9\-_]+)`),
	regexp.MustCompile(`([A-Z]{2,}[0-9]{2,}[A-Z0-9\-_]*)`),
}

func guessModel(text string) string {
	for _, pattern := range modelPatterns {
		groups := pattern.FindStringSubmatch(text)
		if len(groups) >= 2 {
			return groups[1]
		}
	}
	return ""
}

// statedModel returns the model printed on a detail page, if any.
func statedModel(doc *goquery.Document) string {
	return htmlutil.Text(doc.Find("#smbproductModel"))
}

// parseDetailPage reads a detail page reached through a search for model.
// The returned set is keyed by the queried model.
func parseDetailPage(doc *goquery.Document, pageURL, model, crawlTime string) featurecache.FeatureSet {
	features, _ := parseFeatures(doc)
	return featurecache.FeatureSet{
		ProductModel: model,
		ProductName:  htmlutil.Text(doc.Find(detailTitleSelector)),
		ProductID:    productIDFromURL(pageURL),
		URL:          pageURL,
		Features:     features,
		CrawlTime:    crawlTime,
	}
}

// parseProductPage reads a detail page reached by its product id during a
// bulk crawl. ok is false when the page has no feature section.
func parseProductPage(doc *goquery.Document, id int, pageURL, crawlTime string) (featurecache.FeatureSet, bool) {
	container := doc.Find("div#smbproductFeature").First()
	if container.Length() == 0 {
		return featurecache.FeatureSet{}, false
	}

	name := htmlutil.Text(doc.Find(productNameSelector))
	model := statedModel(doc)
	if model == "" {
		model = guessModel(name + " " + pageURL)
	}

	return featurecache.FeatureSet{
		ProductModel: model,
		ProductName:  name,
		ProductID:    id,
		URL:          pageURL,
		Features:     featureItems(container),
		CrawlTime:    crawlTime,
	}, true
}
