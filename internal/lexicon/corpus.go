package lexicon

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
)

// Corpus is a deduplicated set of lowercase words.
type Corpus struct {
	words map[string]struct{}
}

// NewCorpus builds a corpus from raw words, normalising each one the same way
// word list files are normalised.
func NewCorpus(words ...string) *Corpus {
	c := &Corpus{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		c.Add(w)
	}
	return c
}

// Add normalises and inserts a word. Words with anything but the letters a-z
// cannot be typed for a combo and are left out. It reports whether the corpus
// grew.
func (c *Corpus) Add(raw string) bool {
	w := strings.ToLower(strings.TrimSpace(raw))
	if w == "" || !hasOnlyLowercaseLetters(w) {
		return false
	}
	if _, ok := c.words[w]; ok {
		return false
	}
	c.words[w] = struct{}{}
	return true
}

func hasOnlyLowercaseLetters(w string) bool {
	for i := 0; i < len(w); i++ {
		if w[i] < 'a' || w[i] > 'z' {
			return false
		}
	}
	return true
}

// Len returns the number of distinct words.
func (c *Corpus) Len() int { return len(c.words) }

// Words returns the corpus as a sorted slice.
func (c *Corpus) Words() []string {
	out := make([]string, 0, len(c.words))
	for w := range c.words {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// BuildCorpus reads every source list and merges them without duplicates.
// A missing source fails the build unless Options.SkipMissing is set.
func (b *Builder) BuildCorpus(paths []string) (*Corpus, error) {
	corpus := NewCorpus()
	for _, p := range paths {
		added, err := b.readInto(corpus, p)
		if err != nil {
			if b.opts.SkipMissing && errors.Is(err, fs.ErrNotExist) {
				b.logger.Warn("Word list not found, skipping.", zap.String("path", p))
				continue
			}
			return nil, err
		}
		b.logger.Debug("Word list merged.", zap.String("path", p), zap.Int("added", added))
	}
	if corpus.Len() == 0 {
		return nil, ErrEmptyCorpus
	}
	b.logger.Info("Corpus built.", zap.Int("sources", len(paths)), zap.Int("words", corpus.Len()))
	return corpus, nil
}

func (b *Builder) readInto(corpus *Corpus, path string) (int, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return 0, fmt.Errorf("lexicon: failed to expand path '%s': %w", path, err)
	}
	file, err := os.Open(expanded)
	if err != nil {
		return 0, fmt.Errorf("lexicon: failed to open word list '%s': %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	added, err := ReadWords(file, corpus)
	if err != nil {
		return added, fmt.Errorf("lexicon: failed to read word list '%s': %w", path, err)
	}
	return added, nil
}

// ReadWords adds one word per line from r to the corpus and returns how many
// new words were added.
func ReadWords(r io.Reader, corpus *Corpus) (int, error) {
	added := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if corpus.Add(scanner.Text()) {
			added++
		}
	}
	return added, scanner.Err()
}
