// Package media holds the domain vocabulary shared by every stage of the index
// build: usage rows, the two remote log entry shapes, site coordinates and the
// path helpers used to classify what a log line points at.
//
// # Usage Rows
//
// An Entry is one (asset, referencing page) pair. The identity key is
// "hash|doc"; a row with an empty Doc is the orphan record for its hash.
//
//	e := media.Entry{Hash: "h1", Doc: "/a", Status: media.StatusReferenced}
//	e.Key() // "h1|/a"
//
// # Paths
//
// Folders classifies audit-log paths into pages and files, and NormalizePath
// gives every component the same spelling of a page path.
package media
