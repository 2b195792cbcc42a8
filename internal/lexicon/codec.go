package lexicon

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
)

// json is the codec for index files. The standard library compatible config
// sorts map keys, which keeps saved files byte for byte reproducible.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// compressedSuffix marks index files stored brotli compressed.
const compressedSuffix = ".br"

// MarshalJSON encodes an entry as the two element array [cutpoints, words].
func (e Entry) MarshalJSON() ([]byte, error) {
	words := e.Words
	if words == nil {
		words = []string{}
	}
	return json.Marshal([2]interface{}{e.Cutpoints, words})
}

// UnmarshalJSON decodes the two element array written by MarshalJSON.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var parts []jsoniter.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	if len(parts) != 2 {
		return fmt.Errorf("%w: expected [cutpoints, words], got %d elements", ErrInvalidEntry, len(parts))
	}
	var cut []int
	if err := json.Unmarshal(parts[0], &cut); err != nil {
		return fmt.Errorf("%w: cutpoints: %v", ErrInvalidEntry, err)
	}
	if len(cut) != CutpointSlots {
		return fmt.Errorf("%w: expected %d cutpoints, got %d", ErrInvalidEntry, CutpointSlots, len(cut))
	}
	var words []string
	if err := json.Unmarshal(parts[1], &words); err != nil {
		return fmt.Errorf("%w: words: %v", ErrInvalidEntry, err)
	}
	copy(e.Cutpoints[:], cut)
	e.Words = words
	return nil
}

// Save writes the index as a JSON object keyed by combo.
func Save(w io.Writer, idx *Index) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(idx.entries); err != nil {
		return fmt.Errorf("lexicon: failed to encode index: %w", err)
	}
	return nil
}

// Load reads an index written by Save and validates every entry.
func Load(r io.Reader) (*Index, error) {
	var entries map[string]Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("lexicon: failed to decode index: %w", err)
	}
	for combo, e := range entries {
		if !validCombo(combo) {
			return nil, fmt.Errorf("%w: bad combo key '%s'", ErrInvalidEntry, combo)
		}
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("lexicon: combo '%s': %w", combo, err)
		}
	}
	return NewIndex(entries), nil
}

// SaveFile writes the index to path, replacing any existing file atomically.
// Paths ending in ".br" are brotli compressed.
func SaveFile(path string, idx *Index) (err error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return fmt.Errorf("lexicon: failed to expand path '%s': %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(expanded), ".combo-index-*.tmp")
	if err != nil {
		return fmt.Errorf("lexicon: failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	buf := bufio.NewWriter(tmp)
	if strings.HasSuffix(expanded, compressedSuffix) {
		bw := brotli.NewWriterLevel(buf, brotli.DefaultCompression)
		if err = Save(bw, idx); err != nil {
			return err
		}
		if err = bw.Close(); err != nil {
			return fmt.Errorf("lexicon: failed to finish compression: %w", err)
		}
	} else if err = Save(buf, idx); err != nil {
		return err
	}

	if err = buf.Flush(); err != nil {
		return fmt.Errorf("lexicon: failed to flush index: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("lexicon: failed to close temp file: %w", err)
	}
	if err = os.Rename(tmpPath, expanded); err != nil {
		return fmt.Errorf("lexicon: failed to move index into place: %w", err)
	}
	return nil
}

// LoadFile reads an index file written by SaveFile.
func LoadFile(path string) (*Index, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("lexicon: failed to expand path '%s': %w", path, err)
	}
	f, err := os.Open(expanded)
	if err != nil {
		return nil, fmt.Errorf("lexicon: failed to open index '%s': %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	var r io.Reader = bufio.NewReader(f)
	if strings.HasSuffix(expanded, compressedSuffix) {
		r = brotli.NewReader(r)
	}
	idx, err := Load(r)
	if err != nil {
		return nil, fmt.Errorf("lexicon: index '%s': %w", path, err)
	}
	return idx, nil
}

func validCombo(combo string) bool {
	if len(combo) != 2 && len(combo) != 3 {
		return false
	}
	for i := 0; i < len(combo); i++ {
		if strings.IndexByte(alphabet, combo[i]) < 0 {
			return false
		}
	}
	return true
}
