package seed

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/tossa/pkg/phrase"
)

func TestDefaultPool(t *testing.T) {
	phrases, err := Default()
	require.NoError(t, err)
	require.Len(t, phrases, 39)

	first := phrases[0]
	require.Equal(t, "a1", first.ID)
	require.Equal(t, "いいですね", first.Native)
	require.Equal(t, "That sounds good.", first.Target)
	require.Equal(t, phrase.NewTag("同意"), first.PrimaryTag())

	ids := phrase.NewIDSet()
	for _, p := range phrases {
		require.NotEmpty(t, p.Native, p.ID)
		require.NotEmpty(t, p.Target, p.ID)
		require.NotEmpty(t, p.Tags, p.ID)
		require.False(t, ids.Has(p.ID), "duplicate id %s", p.ID)
		ids.Add(p.ID)
	}
}

func TestParseFormats(t *testing.T) {
	want := []phrase.Phrase{
		{ID: "x1", Native: "なるほど", Target: "I see.", Tags: []string{"確認"}},
		{ID: "x2", Native: "うん", Target: "Yeah."},
	}
	docs := map[string]string{
		"yaml mapping": `
phrases:
  - id: x1
    native: なるほど
    target: I see.
    tags: [確認, ""]
  - id: " x2 "
    native: うん
    target: Yeah.
`,
		"yaml list": `
- {id: x1, native: なるほど, target: I see., tags: [確認]}
- {id: x2, native: うん, target: Yeah.}
`,
		"json with jp/en": `[
  {"id": "x1", "jp": "なるほど", "en": "I see.", "tags": ["確認"]},
  {"id": "x2", "jp": "うん", "en": "Yeah."}
]`,
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			got, err := Parse([]byte(doc))
			require.NoError(t, err)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("Parse mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseRejectsScalar(t *testing.T) {
	_, err := Parse([]byte("just text"))
	require.Error(t, err)

	got, err := Parse(nil)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestWriteThenLoad(t *testing.T) {
	in := []phrase.Phrase{{
		ID: "h1", Native: "少し考えさせてください", Target: "Let me think about it.",
		Tags: []string{"保留"}, Class: &phrase.Classification{Main: "reply", Sub: "defer"},
		MeaningGroup: "think", Reading: "すこしかんがえさせてください",
	}}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, in))

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	got, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(in, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
