// Package poster maps provider-relative poster paths to absolute image URLs.
package poster

import (
	"strings"

	"movielist/pkg/domain"
)

const (
	// BaseURL is the provider's image CDN root, parameterized by quality tier.
	BaseURL = "https://image.tmdb.org/t/p/"

	// DefaultQuality is used when the caller does not pick a tier.
	DefaultQuality = "w300"

	absoluteMarker = "https"
)

// URL returns the absolute URL for a poster path at the given quality tier.
// Empty input stays empty; input that is already absolute is returned
// unchanged. The function performs no I/O and never fails.
func URL(path, quality string) string {
	if path == "" {
		return ""
	}
	if strings.Contains(path, absoluteMarker) {
		return path
	}
	if quality == "" {
		quality = DefaultQuality
	}
	return BaseURL + quality + path
}

// Normalize returns a copy of the search result with its poster path rewritten
// to an absolute URL.
func Normalize(res domain.SearchResult, quality string) domain.SearchResult {
	res.PosterPath = URL(res.PosterPath, quality)
	return res
}
