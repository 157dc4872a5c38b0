package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"ThreatIngest/internal/ports"
)

// StdoutPath makes WriteArtifact print the document instead of storing it.
const StdoutPath = "-"

// ArtifactWriter renders export documents as indented UTF-8 JSON.
type ArtifactWriter struct {
	fs     afero.Fs
	stdout io.Writer
}

var _ ports.ArtifactWriter = (*ArtifactWriter)(nil)

// NewArtifactWriter uses fs for files and stdout for the "-" path.
func NewArtifactWriter(fs afero.Fs, stdout io.Writer) *ArtifactWriter {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if stdout == nil {
		stdout = os.Stdout
	}
	return &ArtifactWriter{fs: fs, stdout: stdout}
}

// WriteArtifact creates missing parent directories and replaces the file.
func (w *ArtifactWriter) WriteArtifact(ctx context.Context, path string, document any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(document); err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}

	if path == StdoutPath {
		if _, err := w.stdout.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("write artifact to stdout: %w", err)
		}
		return nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := w.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := afero.WriteFile(w.fs, path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
