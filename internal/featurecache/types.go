package featurecache

import (
	"fmt"
	"slices"
	"strings"
)

// CacheVersion is written into every saved document.
const CacheVersion = "1.0"

// FeatureSet is the marketing feature text scraped for one product.
// A zero ProductID means the id is unknown.
type FeatureSet struct {
	ProductModel string   `json:"product_model"`
	ProductName  string   `json:"product_name"`
	ProductID    int      `json:"product_id"`
	URL          string   `json:"url"`
	Features     []string `json:"features"`
	CrawlTime    string   `json:"crawl_time"`
}

// Clone returns a copy that does not share the Features slice.
func (f FeatureSet) Clone() FeatureSet {
	out := f
	out.Features = slices.Clone(f.Features)
	if out.Features == nil {
		out.Features = []string{}
	}
	return out
}

// Text renders the features as a numbered list, one per line.
func (f FeatureSet) Text() string {
	var sb strings.Builder
	for i, feature := range f.Features {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%d. %s", i+1, feature)
	}
	return sb.String()
}

// Document is the on-disk shape of the cache. It is always written whole.
type Document struct {
	CacheVersion  string                `json:"cache_version"`
	LastUpdate    string                `json:"last_update"`
	TotalProducts int                   `json:"total_products"`
	ValidIDs      []int                 `json:"valid_ids"`
	Products      map[string]FeatureSet `json:"products"`
	ModelToID     map[string]int        `json:"model_to_id"`
}

// MatchKind tells how a lookup was resolved.
type MatchKind int

const (
	MatchMiss MatchKind = iota
	MatchExact
	MatchNormalized
	MatchFuzzy
)

func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchNormalized:
		return "normalized"
	case MatchFuzzy:
		return "fuzzy"
	default:
		return "miss"
	}
}

// Info describes the cache file on disk.
type Info struct {
	Exists     bool
	Total      int
	LastUpdate string
}
