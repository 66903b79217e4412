// Package modelmatch reconciles the different spellings of a product model
// used by the CRM, the feature cache and the public website.
package modelmatch

import "strings"

// variantSuffixes are the optical/variant suffixes stripped by Normalize,
// in priority order.
var variantSuffixes = []string{
	"2.8", "4", "6", "8", "12", "16",
	"2.8MM", "4MM", "6MM", "8MM", "12MM", "16MM",
}

// Key returns the cache key form of a model: upper-cased and trimmed.
func Key(model string) string {
	return strings.ToUpper(strings.TrimSpace(model))
}

// Normalize upper-cases and trims a model and strips at most one known
// variant suffix, ex. "TL-IPC445GP-2.8" -> "TL-IPC445GP".
//
// Suffixes are tried in priority order and the first one that matches, either
// as "-<suffix>" or as a bare trailing "<suffix>", is removed. When a bare
// suffix is removed a single trailing hyphen left behind is removed too.
func Normalize(model string) string {
	if model == "" {
		return model
	}

	key := Key(model)
	for _, suffix := range variantSuffixes {
		if strings.HasSuffix(key, "-"+suffix) {
			return key[:len(key)-len(suffix)-1]
		}
		if strings.HasSuffix(key, suffix) {
			key = key[:len(key)-len(suffix)]
			return strings.TrimSuffix(key, "-")
		}
	}
	return key
}

// Base returns the normalized form cut at the first "-" or "_",
// ex. "TL-IPC445GP" -> "TL".
func Base(normalized string) string {
	idx := strings.IndexAny(normalized, "-_")
	if idx < 0 {
		return normalized
	}
	return normalized[:idx]
}
