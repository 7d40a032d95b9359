package core

// OverrideIndex maps normalized email text to its most recent ground-truth
// label, giving O(1) exact-match lookups against labeled history. The zero
// value is unavailable: lookups are skipped entirely, which is distinct
// from an empty index that simply finds no match.
type OverrideIndex struct {
	available bool
	labels    map[string]int
}

// NewUnavailableOverrideIndex returns an index in the explicit unavailable
// state, used when the historical corpus could not be loaded.
func NewUnavailableOverrideIndex() *OverrideIndex {
	return &OverrideIndex{}
}

// BuildOverrideIndex builds the index from the current records. Records are
// visited in store order, so on duplicate normalized text the most recently
// stored label wins. normalize must match the normalization applied to scan
// text at lookup time.
func BuildOverrideIndex(records []ScanRecord, normalize func(string) string) *OverrideIndex {
	labels := make(map[string]int)
	for i := range records {
		rec := &records[i]
		if !rec.Labeled() {
			continue
		}
		text := normalize(rec.Subject + " " + rec.Body)
		labels[text] = *rec.Label
	}
	return &OverrideIndex{available: true, labels: labels}
}

// Available reports whether the index was built successfully.
func (ix *OverrideIndex) Available() bool {
	return ix != nil && ix.available
}

// Lookup returns the historical label for normalized text. The second
// return is false when the index is unavailable or holds no match.
func (ix *OverrideIndex) Lookup(normalizedText string) (int, bool) {
	if !ix.Available() {
		return 0, false
	}
	label, ok := ix.labels[normalizedText]
	return label, ok
}

// Size returns the number of indexed texts, 0 when unavailable.
func (ix *OverrideIndex) Size() int {
	if !ix.Available() {
		return 0
	}
	return len(ix.labels)
}
