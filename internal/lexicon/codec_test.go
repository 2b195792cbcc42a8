package lexicon

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSampleIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewBuilder(nil, Options{Workers: 4}).Build(context.Background(), NewCorpus(sampleWords...))
	require.NoError(t, err)
	return idx
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	idx := buildSampleIndex(t)

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, idx))
	first := buf.String()

	loaded, err := Load(strings.NewReader(first))
	require.NoError(t, err)
	if diff := cmp.Diff(idx.entries, loaded.entries); diff != "" {
		t.Errorf("Round trip failed. Diff:\n%s", diff)
	}

	var again bytes.Buffer
	require.NoError(t, Save(&again, loaded))
	assert.Equal(t, first, again.String(), "re-encoding must be byte for byte identical")
}

func TestSave_OnDiskShape(t *testing.T) {
	idx := AnnotateWithLengthCutpoints(ComboIndex{"og": {"frog", "dog"}})

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, idx))
	assert.JSONEq(t, `{"og":[[1,2,2,2,2,2,2,2,2,2,2,2,2,2,2,2,2,2],["dog","frog"]]}`, buf.String())
}

func TestSaveFileLoadFile(t *testing.T) {
	idx := buildSampleIndex(t)
	dir := t.TempDir()

	for _, name := range []string{"combos.json", "combos.json.br"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, SaveFile(path, idx))

			loaded, err := LoadFile(path)
			require.NoError(t, err)
			if diff := cmp.Diff(idx.entries, loaded.entries); diff != "" {
				t.Errorf("Round trip failed. Diff:\n%s", diff)
			}
		})
	}

	plain, err := os.ReadFile(filepath.Join(dir, "combos.json"))
	require.NoError(t, err)
	compressed, err := os.ReadFile(filepath.Join(dir, "combos.json.br"))
	require.NoError(t, err)
	assert.Less(t, len(compressed), len(plain))

	leftovers, err := filepath.Glob(filepath.Join(dir, ".combo-index-*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_RejectsInvalidInput(t *testing.T) {
	cut := `[1,2,2,2,2,2,2,2,2,2,2,2,2,2,2,2,2,2]`
	cases := map[string]string{
		"not json":         `{"og":`,
		"wrong arity":      `{"og":[` + cut + `]}`,
		"short cutpoints":  `{"og":[[1,2],["dog","frog"]]}`,
		"bad cutpoints":    `{"og":[[0,2,2,2,2,2,2,2,2,2,2,2,2,2,2,2,2,2],["dog","frog"]]}`,
		"unsorted words":   `{"og":[` + cut + `,["frog","dog"]]}`,
		"bad combo key":    `{"OG":[` + cut + `,["dog","frog"]]}`,
		"combo too long":   `{"abcd":[` + cut + `,["dog","frog"]]}`,
		"words not string": `{"og":[` + cut + `,[1,2]]}`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
}
