package checks

import (
	"fmt"
	"slices"

	"media-index/core/indexstore"
	"media-index/core/media"
)

// IndexReport lists invariant violations found in one persisted index.
type IndexReport struct {
	Site    string `json:"site"`
	Entries int    `json:"entries"`
	Valid   bool   `json:"valid"`
	// DuplicateKeys are hash|doc keys stored more than once.
	DuplicateKeys []string `json:"duplicate_keys"`
	// OrphanViolations are hashes with more than one orphan row, or with an
	// orphan row next to a referenced one.
	OrphanViolations []string `json:"orphan_violations"`
	// UsageMismatches are pages whose usage row disagrees with the media table.
	UsageMismatches []string `json:"usage_mismatches"`
	// MetaMismatches describe counters in the metadata that disagree with the tables.
	MetaMismatches []string `json:"meta_mismatches"`
}

// CheckIndex verifies a loaded index against the invariants every build
// maintains.
func CheckIndex(site string, entries []media.Entry, usage []indexstore.UsagePage, meta *indexstore.Meta) *IndexReport {
	report := &IndexReport{
		Site:             site,
		Entries:          len(entries),
		DuplicateKeys:    []string{},
		OrphanViolations: []string{},
		UsageMismatches:  []string{},
		MetaMismatches:   []string{},
	}

	seen := make(map[string]struct{}, len(entries))
	orphans := make(map[string]int)
	referenced := make(map[string]bool)
	for _, e := range entries {
		if _, dup := seen[e.Key()]; dup {
			report.DuplicateKeys = append(report.DuplicateKeys, e.Key())
		}
		seen[e.Key()] = struct{}{}
		if e.IsOrphan() {
			orphans[e.Hash]++
		} else {
			referenced[e.Hash] = true
		}
	}
	for hash, n := range orphans {
		if n > 1 || referenced[hash] {
			report.OrphanViolations = append(report.OrphanViolations, hash)
		}
	}
	slices.Sort(report.OrphanViolations)

	expected := indexstore.BuildUsage(entries)
	want := make(map[string][]string, len(expected))
	for _, u := range expected {
		want[u.Page] = u.Hashes
	}
	got := make(map[string][]string, len(usage))
	for _, u := range usage {
		hashes := slices.Clone(u.Hashes)
		slices.Sort(hashes)
		got[u.Page] = hashes
	}
	for page, hashes := range want {
		if !slices.Equal(hashes, got[page]) {
			report.UsageMismatches = append(report.UsageMismatches, page)
		}
	}
	for page := range got {
		if _, ok := want[page]; !ok {
			report.UsageMismatches = append(report.UsageMismatches, page)
		}
	}
	slices.Sort(report.UsageMismatches)

	if meta != nil {
		actual := indexstore.NewMeta(entries, expected, meta.LastFetchTime, meta.LastRefreshBy, meta.LastBuildMode)
		if meta.EntriesCount != actual.EntriesCount {
			report.MetaMismatches = append(report.MetaMismatches, fmt.Sprintf("entriesCount: meta %d, table %d", meta.EntriesCount, actual.EntriesCount))
		}
		if meta.MediaCount != actual.MediaCount {
			report.MetaMismatches = append(report.MetaMismatches, fmt.Sprintf("mediaCount: meta %d, table %d", meta.MediaCount, actual.MediaCount))
		}
		if meta.UsageCount != actual.UsageCount {
			report.MetaMismatches = append(report.MetaMismatches, fmt.Sprintf("usageCount: meta %d, table %d", meta.UsageCount, actual.UsageCount))
		}
	}

	report.Valid = len(report.DuplicateKeys) == 0 &&
		len(report.OrphanViolations) == 0 &&
		len(report.UsageMismatches) == 0 &&
		len(report.MetaMismatches) == 0
	return report
}
