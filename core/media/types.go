package media

import (
	"fmt"
	"strings"

	"media-index/core/utils"
)

// Status describes whether a usage row is referenced by a page.
type Status string

const (
	StatusReferenced Status = "referenced"
	StatusUnused     Status = "unused"
	// StatusDiscovering only appears in progressive snapshots of a full build.
	StatusDiscovering Status = "discovering"
)

// Type is the coarse content type of an asset.
type Type string

const (
	TypeImage    Type = "image"
	TypeVideo    Type = "video"
	TypeDocument Type = "document"
	TypeFragment Type = "fragment"
	TypeLink     Type = "link"
	TypeUnknown  Type = "unknown"
)

// Provenance tags stored in Entry.Operation.
const (
	OpIngest         = "ingest"
	OpReuse          = "reuse"
	OpDelete         = "delete"
	OpUnlink         = "unlink"
	OpAuditlogParsed = "auditlog-parsed"
	OpExtlinksParsed = "extlinks-parsed"
)

// Entry is one row of the flat media usage table.
type Entry struct {
	Hash      string `json:"hash"`
	URL       string `json:"url"`
	Name      string `json:"name"`
	Timestamp int64  `json:"timestamp"`
	User      string `json:"user"`
	Operation string `json:"operation"`
	Type      Type   `json:"type"`
	Doc       string `json:"doc"`
	Status    Status `json:"status"`
}

// Key returns the identity key "hash|doc".
func (e Entry) Key() string {
	return EntryKey(e.Hash, e.Doc)
}

// IsOrphan reports whether the row is the unreferenced record of its hash.
func (e Entry) IsOrphan() bool {
	return e.Doc == ""
}

// EntryKey builds the identity key of a row.
func EntryKey(hash, doc string) string {
	return hash + "|" + doc
}

// Millis is an epoch timestamp in milliseconds. The log service has emitted
// both numbers and numeric or RFC 3339 strings over time, so decoding is lenient.
type Millis int64

// UnmarshalJSON accepts numbers, numeric strings and RFC 3339 strings. Null
// and the empty string decode to zero.
func (m *Millis) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == "" {
		*m = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		s = strings.Trim(s, `"`)
		if strings.TrimSpace(s) == "" {
			*m = 0
			return nil
		}
	}
	v, ok := utils.ToEpochMillis(s)
	if !ok {
		return fmt.Errorf("invalid timestamp %s", b)
	}
	*m = Millis(v)
	return nil
}

// AuditEntry is one line of the preview/audit log.
type AuditEntry struct {
	Path      string `json:"path"`
	Route     string `json:"route"`
	Method    string `json:"method"`
	Timestamp Millis `json:"timestamp"`
	User      string `json:"user"`
}

// RoutePreview is the audit route that renders a page.
const RoutePreview = "preview"

// IsPreview reports whether the line records a preview action.
func (a AuditEntry) IsPreview() bool {
	return a.Route == RoutePreview
}

// IsDelete reports whether the line records a removal.
func (a AuditEntry) IsDelete() bool {
	return strings.EqualFold(a.Method, "DELETE")
}

// MediaLogEntry is one line of the media-operations log.
type MediaLogEntry struct {
	ResourcePath     string `json:"resourcePath,omitempty"`
	OriginalFilename string `json:"originalFilename,omitempty"`
	Path             string `json:"path"`
	MediaHash        string `json:"mediaHash"`
	Timestamp        Millis `json:"timestamp"`
	User             string `json:"user"`
	Operation        string `json:"operation"`
	ContentType      string `json:"contentType,omitempty"`
}

// IsRemoval reports whether the line explicitly unlinks or deletes the asset.
func (m MediaLogEntry) IsRemoval() bool {
	op := strings.ToLower(m.Operation)
	return op == OpDelete || op == OpUnlink
}

// Site identifies the content site an index belongs to.
type Site struct {
	ID   string `json:"id"`
	Org  string `json:"org"`
	Repo string `json:"repo"`
	Ref  string `json:"ref"`
}

// DefaultRef is used when a caller does not name a branch.
const DefaultRef = "main"

// NewSite builds a Site whose ID is "org/repo".
func NewSite(org, repo, ref string) Site {
	if ref == "" {
		ref = DefaultRef
	}
	return Site{ID: org + "/" + repo, Org: org, Repo: repo, Ref: ref}
}

// ParseSiteID splits an "org/repo" id. ok is false when either half is empty.
func ParseSiteID(id string) (org, repo string, ok bool) {
	org, repo, ok = strings.Cut(id, "/")
	return org, repo, ok && org != "" && repo != "" && !strings.Contains(repo, "/")
}
