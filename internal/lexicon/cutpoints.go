package lexicon

import (
	"fmt"
	"sort"
	"unicode/utf8"
)

// Cutpoints holds, for each length L in MinTrackedLength..MaxTrackedLength, the
// number of words of length <= L at slot L-MinTrackedLength. Words longer than
// MaxTrackedLength count towards the last slot only.
type Cutpoints [CutpointSlots]int

// At returns the cut-point for a tracked length.
func (c Cutpoints) At(length int) int {
	return c[slotFor(length)]
}

// Entry is the indexed word list of a single combo.
type Entry struct {
	Cutpoints Cutpoints
	Words     []string
}

// NewEntry sorts words by length and computes their cut-points.
func NewEntry(words []string) Entry {
	sorted := append([]string(nil), words...)
	sortByLength(sorted)
	return Entry{Cutpoints: computeCutpoints(sorted), Words: sorted}
}

// Split returns the candidate pool for a length preference. Zero means no
// preference. Otherwise the list is cut at the preference's cut-point and the
// shorter-or-equal half is returned, or the strictly longer half when
// preferLonger is set. The returned slice aliases the entry.
func (e Entry) Split(lengthPref int, preferLonger bool) []string {
	if lengthPref == 0 {
		return e.Words
	}
	cut := e.Cutpoints.At(lengthPref)
	if preferLonger {
		return e.Words[cut:]
	}
	return e.Words[:cut]
}

// Clone returns a deep copy safe for mutation.
func (e Entry) Clone() Entry {
	return Entry{Cutpoints: e.Cutpoints, Words: append([]string(nil), e.Words...)}
}

// Remove deletes one occurrence of word and shifts the cut-points it counted
// towards. It reports false when the word is not present.
func (e *Entry) Remove(word string) bool {
	n := wordLength(word)
	i := sort.Search(len(e.Words), func(i int) bool { return wordLength(e.Words[i]) >= n })
	for ; i < len(e.Words) && wordLength(e.Words[i]) == n; i++ {
		if e.Words[i] != word {
			continue
		}
		e.Words = append(e.Words[:i], e.Words[i+1:]...)
		for slot := slotFor(n); slot < CutpointSlots; slot++ {
			e.Cutpoints[slot]--
		}
		return true
	}
	return false
}

// Validate checks the entry's invariants: words sorted by length and
// cut-points matching the words.
func (e Entry) Validate() error {
	for i := 1; i < len(e.Words); i++ {
		if wordLength(e.Words[i-1]) > wordLength(e.Words[i]) {
			return fmt.Errorf("%w: words not sorted by length at position %d", ErrInvalidEntry, i)
		}
	}
	for slot := 1; slot < CutpointSlots; slot++ {
		if e.Cutpoints[slot] < e.Cutpoints[slot-1] {
			return fmt.Errorf("%w: cut-points decrease at slot %d", ErrInvalidEntry, slot)
		}
	}
	if last := e.Cutpoints[CutpointSlots-1]; last != len(e.Words) {
		return fmt.Errorf("%w: last cut-point %d does not match %d words", ErrInvalidEntry, last, len(e.Words))
	}
	if want := computeCutpoints(e.Words); want != e.Cutpoints {
		return fmt.Errorf("%w: cut-points %v do not match word lengths %v", ErrInvalidEntry, e.Cutpoints, want)
	}
	return nil
}

// Index is the flat combo -> entry mapping loaded by every bot. It is never
// mutated after construction and may be shared freely.
type Index struct {
	entries map[string]Entry
}

// NewIndex wraps prepared entries.
func NewIndex(entries map[string]Entry) *Index {
	if entries == nil {
		entries = make(map[string]Entry)
	}
	return &Index{entries: entries}
}

// AnnotateWithLengthCutpoints computes the cut-point table of every combo.
func AnnotateWithLengthCutpoints(ci ComboIndex) *Index {
	entries := make(map[string]Entry, len(ci))
	for combo, words := range ci {
		entries[combo] = NewEntry(words)
	}
	return NewIndex(entries)
}

// Lookup returns the entry for a combo. Absent combos report false.
func (idx *Index) Lookup(combo string) (Entry, bool) {
	e, ok := idx.entries[combo]
	return e, ok
}

// Len returns the number of indexed combos.
func (idx *Index) Len() int { return len(idx.entries) }

// Combos returns the indexed combos in lexical order.
func (idx *Index) Combos() []string {
	out := make([]string, 0, len(idx.entries))
	for c := range idx.entries {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Validate checks every entry.
func (idx *Index) Validate() error {
	for combo, e := range idx.entries {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("combo '%s': %w", combo, err)
		}
	}
	return nil
}

func computeCutpoints(sorted []string) Cutpoints {
	var cut Cutpoints
	i := 0
	for slot := 0; slot < CutpointSlots; slot++ {
		limit := slot + MinTrackedLength
		for i < len(sorted) && (wordLength(sorted[i]) <= limit || limit == MaxTrackedLength) {
			i++
		}
		cut[slot] = i
	}
	return cut
}

// wordLength counts letters, not bytes.
func wordLength(w string) int {
	return utf8.RuneCountInString(w)
}

// slotFor maps a word length to its cut-point slot, clamping into the tracked range.
func slotFor(length int) int {
	length = max(MinTrackedLength, min(length, MaxTrackedLength))
	return length - MinTrackedLength
}
