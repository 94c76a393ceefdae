package reconcile

import (
	"sort"

	"media-index/core/media"
)

// Table is the in-memory media usage table of one build. Rows live in a
// slice; secondary indexes by key, hash and doc are kept in step so lookups
// and removals never scan the rows.
//
// For every hash the table holds either referenced rows (doc != "") or a
// single orphan row (doc == ""), never both.
type Table struct {
	rows   []media.Entry
	byKey  map[string]int
	byHash map[string]map[string]struct{}
	byDoc  map[string]map[string]struct{}
}

// NewTable builds a table from existing rows. Rows that would break the
// orphan invariant are dropped; duplicate keys keep the newest timestamp.
func NewTable(entries []media.Entry) *Table {
	t := &Table{
		rows:   make([]media.Entry, 0, len(entries)),
		byKey:  make(map[string]int, len(entries)),
		byHash: make(map[string]map[string]struct{}),
		byDoc:  make(map[string]map[string]struct{}),
	}
	// Referenced rows first so stale orphans are rejected by Put.
	for _, e := range entries {
		if e.Doc != "" {
			t.Put(e)
		}
	}
	for _, e := range entries {
		if e.Doc == "" {
			t.Put(e)
		}
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Get returns the row for hash|doc.
func (t *Table) Get(hash, doc string) (media.Entry, bool) {
	i, ok := t.byKey[media.EntryKey(hash, doc)]
	if !ok {
		return media.Entry{}, false
	}
	return t.rows[i], true
}

// Put inserts or replaces a row. An existing row with a newer timestamp is
// kept. A referenced row evicts the orphan of its hash; an orphan is refused
// while the hash is referenced. Put reports whether the table changed.
func (t *Table) Put(e media.Entry) bool {
	if e.Hash == "" {
		return false
	}
	if e.Doc == "" && t.IsReferenced(e.Hash) {
		return false
	}

	key := e.Key()
	if i, ok := t.byKey[key]; ok {
		if t.rows[i].Timestamp > e.Timestamp || t.rows[i] == e {
			return false
		}
		t.rows[i] = e
		return true
	}

	if e.Doc != "" {
		t.Remove(e.Hash, "")
	}

	t.byKey[key] = len(t.rows)
	t.rows = append(t.rows, e)
	addIndex(t.byHash, e.Hash, e.Doc)
	addIndex(t.byDoc, e.Doc, e.Hash)
	return true
}

// Remove deletes the row for hash|doc and returns it.
func (t *Table) Remove(hash, doc string) (media.Entry, bool) {
	key := media.EntryKey(hash, doc)
	i, ok := t.byKey[key]
	if !ok {
		return media.Entry{}, false
	}
	removed := t.rows[i]

	last := len(t.rows) - 1
	if i != last {
		t.rows[i] = t.rows[last]
		t.byKey[t.rows[i].Key()] = i
	}
	t.rows = t.rows[:last]
	delete(t.byKey, key)
	removeIndex(t.byHash, hash, doc)
	removeIndex(t.byDoc, doc, hash)
	return removed, true
}

// RemoveDoc deletes every row whose doc is doc.
func (t *Table) RemoveDoc(doc string) []media.Entry {
	hashes := t.HashesOf(doc)
	removed := make([]media.Entry, 0, len(hashes))
	for _, h := range hashes {
		if e, ok := t.Remove(h, doc); ok {
			removed = append(removed, e)
		}
	}
	return removed
}

// RemoveHash deletes every row of hash, orphan included.
func (t *Table) RemoveHash(hash string) []media.Entry {
	docs := sortedKeys(t.byHash[hash])
	removed := make([]media.Entry, 0, len(docs))
	for _, d := range docs {
		if e, ok := t.Remove(hash, d); ok {
			removed = append(removed, e)
		}
	}
	return removed
}

// HashesOf returns the sorted hashes used by doc.
func (t *Table) HashesOf(doc string) []string {
	return sortedKeys(t.byDoc[doc])
}

// DocsOf returns the sorted docs that use hash, "" for an orphan.
func (t *Table) DocsOf(hash string) []string {
	return sortedKeys(t.byHash[hash])
}

// IsReferenced reports whether any page uses hash.
func (t *Table) IsReferenced(hash string) bool {
	docs := t.byHash[hash]
	if _, orphan := docs[""]; orphan {
		return len(docs) > 1
	}
	return len(docs) > 0
}

// Entries returns a copy of the rows sorted by hash, then doc.
func (t *Table) Entries() []media.Entry {
	out := make([]media.Entry, len(t.rows))
	copy(out, t.rows)
	SortEntries(out)
	return out
}

// SortEntries orders rows by hash, then doc.
func SortEntries(entries []media.Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Hash != entries[j].Hash {
			return entries[i].Hash < entries[j].Hash
		}
		return entries[i].Doc < entries[j].Doc
	})
}

func addIndex(idx map[string]map[string]struct{}, k, v string) {
	set, ok := idx[k]
	if !ok {
		set = make(map[string]struct{})
		idx[k] = set
	}
	set[v] = struct{}{}
}

func removeIndex(idx map[string]map[string]struct{}, k, v string) {
	set, ok := idx[k]
	if !ok {
		return
	}
	delete(set, v)
	if len(set) == 0 {
		delete(idx, k)
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
