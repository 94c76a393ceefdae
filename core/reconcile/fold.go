package reconcile

import (
	"sort"
	"strings"

	"media-index/core/media"
)

// auditState is the latest preview or delete event of a path.
type auditState struct {
	ts      int64
	user    string
	deleted bool
}

// session is the media shown by one render of a page.
type session struct {
	ts   int64
	rows map[string]media.Entry
}

// Fold accumulates log entries as pages of the logs arrive. Entries at or
// before the watermark are ignored, so the same type serves full builds
// (watermark 0) and incremental builds.
//
// Fold is not safe for concurrent use; logclient.FetchAll serializes its
// callbacks.
type Fold struct {
	folders media.Folders
	since   int64

	pages    map[string]*auditState
	files    map[string]*auditState
	sessions map[string]map[int64]*session

	standalone    map[string]media.Entry
	deletedHashes map[string]struct{}

	auditCount int
	mediaCount int
}

// NewFold creates an empty fold that keeps entries newer than since.
func NewFold(folders media.Folders, since int64) *Fold {
	return &Fold{
		folders:       folders,
		since:         since,
		pages:         make(map[string]*auditState),
		files:         make(map[string]*auditState),
		sessions:      make(map[string]map[int64]*session),
		standalone:    make(map[string]media.Entry),
		deletedHashes: make(map[string]struct{}),
	}
}

// AddAudit folds preview-route audit entries into the page and file states.
func (f *Fold) AddAudit(entries []media.AuditEntry) {
	for _, a := range entries {
		ts := int64(a.Timestamp)
		if !a.IsPreview() || ts <= f.since || strings.TrimSpace(a.Path) == "" {
			continue
		}
		f.auditCount++

		target := f.files
		if f.folders.IsPage(a.Path) {
			target = f.pages
		}
		p := media.NormalizePath(a.Path)

		cur, ok := target[p]
		if !ok || ts > cur.ts || (ts == cur.ts && a.IsDelete()) {
			target[p] = &auditState{ts: ts, user: a.User, deleted: a.IsDelete()}
		}
	}
}

// AddMedia folds media-operation entries into page sessions, standalone
// uploads and the set of explicitly removed hashes.
func (f *Fold) AddMedia(entries []media.MediaLogEntry) {
	for _, m := range entries {
		ts := int64(m.Timestamp)
		if ts <= f.since || m.MediaHash == "" {
			continue
		}
		f.mediaCount++

		if m.IsRemoval() {
			f.deletedHashes[m.MediaHash] = struct{}{}
			continue
		}

		if m.ResourcePath != "" && !IsSelfReference(m) {
			page := media.NormalizePath(m.ResourcePath)
			row := entryFromMedia(m, page, media.StatusReferenced)
			f.addToSession(page, row)
			continue
		}

		if m.ResourcePath != "" || m.OriginalFilename != "" {
			row := entryFromMedia(m, "", media.StatusUnused)
			if cur, ok := f.standalone[row.Hash]; !ok || row.Timestamp > cur.Timestamp {
				f.standalone[row.Hash] = row
			}
		}
	}
}

func (f *Fold) addToSession(page string, row media.Entry) {
	byTS, ok := f.sessions[page]
	if !ok {
		byTS = make(map[int64]*session)
		f.sessions[page] = byTS
	}
	s, ok := byTS[row.Timestamp]
	if !ok {
		s = &session{ts: row.Timestamp, rows: make(map[string]media.Entry)}
		byTS[row.Timestamp] = s
	}
	if _, dup := s.rows[row.Hash]; !dup {
		s.rows[row.Hash] = row
	}
}

// IsSelfReference reports whether a media entry's resourcePath is the media
// file's own path rather than a page that displays it. The comparison is
// between normalized pathnames only, so a delivery URL on another host with
// the same path also counts as a self reference.
func IsSelfReference(m media.MediaLogEntry) bool {
	if m.ResourcePath == "" || m.Path == "" {
		return false
	}
	return media.NormalizePath(m.ResourcePath) == media.NormalizePath(media.PathnameFromURL(m.Path))
}

func entryFromMedia(m media.MediaLogEntry, doc string, status media.Status) media.Entry {
	name := m.OriginalFilename
	if name == "" {
		name = media.NameFromURL(m.Path)
	}
	t := media.TypeFromContentType(m.ContentType)
	if t == media.TypeUnknown {
		t = media.TypeFromPath(m.Path)
	}
	return media.Entry{
		Hash:      m.MediaHash,
		URL:       m.Path,
		Name:      name,
		Timestamp: int64(m.Timestamp),
		User:      m.User,
		Operation: m.Operation,
		Type:      t,
		Doc:       doc,
		Status:    status,
	}
}

// Empty reports whether no qualifying entry was folded.
func (f *Fold) Empty() bool {
	return f.auditCount == 0 && f.mediaCount == 0
}

// Counts returns the number of qualifying audit and media entries.
func (f *Fold) Counts() (audit, mediaOps int) {
	return f.auditCount, f.mediaCount
}

// Pages returns every page touched by a preview, a deletion or a media
// session, sorted.
func (f *Fold) Pages() []string {
	set := make(map[string]struct{}, len(f.pages)+len(f.sessions))
	for p := range f.pages {
		set[p] = struct{}{}
	}
	for p := range f.sessions {
		set[p] = struct{}{}
	}
	return sortedKeys(set)
}

// IsPageDeleted reports whether the latest audit event of page is a deletion.
func (f *Fold) IsPageDeleted(page string) bool {
	st, ok := f.pages[page]
	return ok && st.deleted
}

// sessionsOf returns the sessions of page, oldest first.
func (f *Fold) sessionsOf(page string) []*session {
	byTS := f.sessions[page]
	out := make([]*session, 0, len(byTS))
	for _, s := range byTS {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ts < out[j].ts })
	return out
}

// pageStamp returns the newest event timestamp and actor of page across its
// audit state and sessions.
func (f *Fold) pageStamp(page string) (int64, string) {
	var (
		ts   int64
		user string
	)
	if st, ok := f.pages[page]; ok {
		ts, user = st.ts, st.user
	}
	for _, s := range f.sessionsOf(page) {
		if s.ts > ts {
			ts = s.ts
			user = sessionUser(s)
		}
	}
	return ts, user
}

func sessionUser(s *session) string {
	hashes := make([]string, 0, len(s.rows))
	for h := range s.rows {
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)
	for _, h := range hashes {
		if u := s.rows[h].User; u != "" {
			return u
		}
	}
	return ""
}

// linkedKind returns the type of a linked-content path, or false when the
// path is not a PDF, SVG or fragment.
func linkedKind(folders media.Folders, p string) (media.Type, bool) {
	switch {
	case folders.IsFragment(p):
		return media.TypeFragment, true
	case media.Extension(p) == ".pdf":
		return media.TypeDocument, true
	case media.Extension(p) == ".svg":
		return media.TypeImage, true
	}
	return "", false
}

// Preview returns the rows discovered so far for live display: the current
// session of every page as referenced rows and standalone uploads as
// discovering. Linked content and deletions are not applied.
func (f *Fold) Preview() []media.Entry {
	var out []media.Entry
	for page := range f.sessions {
		sessions := f.sessionsOf(page)
		for _, row := range sessions[len(sessions)-1].rows {
			out = append(out, row)
		}
	}
	for _, row := range f.standalone {
		row.Status = media.StatusDiscovering
		out = append(out, row)
	}
	return out
}

// previewTS returns the timestamp of the latest non-deleting preview of page.
func (f *Fold) previewTS(page string) int64 {
	if st, ok := f.pages[page]; ok && !st.deleted {
		return st.ts
	}
	return 0
}

// isFileDeleted reports whether the latest audit event of a file path is a deletion.
func (f *Fold) isFileDeleted(p string) bool {
	st, ok := f.files[p]
	return ok && st.deleted
}

func (f *Fold) isHashDeleted(hash string) bool {
	_, ok := f.deletedHashes[hash]
	return ok
}
