package lexicon

import (
	"bytes"
	"context"
	"strings"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/google/go-cmp/cmp"
)

// FuzzLoad ensures arbitrary input never panics the decoder and that whatever
// it accepts satisfies the entry invariants.
func FuzzLoad(f *testing.F) {
	f.Add([]byte(`{"og":[[1,2,2,2,2,2,2,2,2,2,2,2,2,2,2,2,2,2],["dog","frog"]]}`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`{"og":[[],[]]}`))
	f.Fuzz(func(t *testing.T, data []byte) {
		idx, err := Load(bytes.NewReader(data))
		if err != nil {
			return
		}
		if err := idx.Validate(); err != nil {
			t.Fatalf("Load accepted an invalid index: %v", err)
		}
	})
}

// FuzzBuildRoundTrip builds an index from fuzzed word lists and checks it
// survives a save/load cycle unchanged.
func FuzzBuildRoundTrip(f *testing.F) {
	f.Fuzz(func(t *testing.T, data []byte) {
		consumer := fuzz.NewConsumer(data)
		var words []string
		if err := consumer.CreateSlice(&words); err != nil || len(words) == 0 {
			return
		}
		// JSON rewrites invalid UTF-8, so keep to the alphabet the game uses.
		corpus := NewCorpus()
		for _, w := range words {
			if strings.Trim(strings.ToLower(w), alphabet+" \t") == "" {
				corpus.Add(w)
			}
		}
		if corpus.Len() == 0 {
			return
		}

		idx, err := NewBuilder(nil, Options{Workers: 2}).Build(context.Background(), corpus)
		if err != nil {
			t.Fatalf("build failed: %v", err)
		}
		var buf bytes.Buffer
		if err := Save(&buf, idx); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		loaded, err := Load(&buf)
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if diff := cmp.Diff(idx.entries, loaded.entries); diff != "" {
			t.Errorf("Round trip failed. Diff:\n%s", diff)
		}
	})
}
