// Package route defines the normalised route record consumed by the scanner and
// the helpers that derive it from raw URLs.
package route

import (
	"crypto/sha1"
	"encoding/hex"
)

// Definition is the route template a path was matched against.
type Definition struct {
	// Name is the grouping key for the template, e.g. "blog-slug".
	Name string `json:"name"`
	// Path is the template itself, e.g. "/blog/:slug".
	Path string `json:"path"`
}

// Route is a canonical page reference. Seed routes carry an empty
// DiscoveredFrom; crawl-discovered routes carry the path of the page that
// linked to them.
type Route struct {
	ID             string     `json:"id"`
	Path           string     `json:"path"`
	URL            string     `json:"url"`
	Definition     Definition `json:"definition"`
	DiscoveredFrom string     `json:"discovered_from,omitempty"`
}

// RootPath is the path of the site root.
const RootPath = "/"

// IsRootPath reports whether p is the site root.
func IsRootPath(p string) bool {
	return p == RootPath
}

func hashPath(p string) string {
	sum := sha1.Sum([]byte(p))
	return hex.EncodeToString(sum[:])[:12]
}
