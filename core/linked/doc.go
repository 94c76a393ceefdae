// Package linked discovers content that pages reference from their markdown
// source rather than through the media log: PDFs, SVGs, icon placeholders,
// fragment includes and media hosted on other sites.
//
// # Resolution
//
// BuildUsageMap deduplicates the page paths it is given, fetches each page
// source with a bounded worker pool and folds the extracted references into
// per-kind maps of asset identity to referencing pages. A page whose source
// cannot be fetched is logged and contributes nothing.
//
// # Extraction
//
// Links, images and autolinks are read from the goldmark AST. Icon
// placeholders (":name:") are matched on the raw source and mapped to
// /icons/name.svg. External URLs count as media when their extension is a
// known media extension or their host matches the pattern table in
// patterns.go.
//
// # Usage
//
//	resolver := linked.NewResolver(cfg.Linked, linked.NewHTTPFetcher(cfg.Linked), folders, log)
//	usage, err := resolver.BuildUsageMap(ctx, site, pages, nil)
package linked
