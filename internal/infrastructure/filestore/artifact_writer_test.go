package filestore

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type article struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

func TestWriteArtifactCreatesDirectories(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	w := NewArtifactWriter(fs, &bytes.Buffer{})

	doc := []article{{Title: "Überfall & <Co>", Link: "https://x/?a=1&b=2"}}
	require.NoError(t, w.WriteArtifact(context.Background(), "out/news/cybernews.json", doc))

	raw, err := afero.ReadFile(fs, "out/news/cybernews.json")
	require.NoError(t, err)
	want := "[\n  {\n    \"title\": \"Überfall & <Co>\",\n    \"link\": \"https://x/?a=1&b=2\"\n  }\n]\n"
	assert.Equal(t, want, string(raw))
}

func TestWriteArtifactReplacesFile(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	w := NewArtifactWriter(fs, nil)
	require.NoError(t, w.WriteArtifact(context.Background(), "news.json", []article{{Title: "old"}, {Title: "older"}}))
	require.NoError(t, w.WriteArtifact(context.Background(), "news.json", []article{}))

	raw, err := afero.ReadFile(fs, "news.json")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(raw))
}

func TestWriteArtifactStdout(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	var out bytes.Buffer
	w := NewArtifactWriter(fs, &out)

	require.NoError(t, w.WriteArtifact(context.Background(), StdoutPath, []article{{Title: "a"}}))
	assert.Contains(t, out.String(), `"title": "a"`)

	exists, err := afero.Exists(fs, StdoutPath)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestWriteArtifactEncodeError(t *testing.T) {
	t.Parallel()

	w := NewArtifactWriter(afero.NewMemMapFs(), nil)
	err := w.WriteArtifact(context.Background(), "x.json", map[string]any{"bad": make(chan int)})
	assert.ErrorContains(t, err, "encode artifact")
}
