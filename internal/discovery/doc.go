// Package discovery resolves the routes a scan must visit. It merges the
// manual URL list, the sitemap and live crawl discoveries into one worklist,
// escalates to JavaScript rendering when the home page yields no links, and
// down-samples seed routes that share a route template.
//
// Seed resolution and the link-discovery reactor are separate operations:
// ResolveReportableRoutes produces the initial worklist, while
// RegisterLinkDiscoveryReactor subscribes for the lifetime of the scan.
package discovery
