package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"ThreatIngest/internal/ports"
)

// JSONLSink appends delivered payloads to a JSON Lines file named by the target.
type JSONLSink struct {
	fs afero.Fs
	mu sync.Mutex
}

var _ ports.Sink = (*JSONLSink)(nil)

type line struct {
	Category string          `json:"category"`
	Payload  json.RawMessage `json:"payload"`
}

func NewJSONLSink(fs afero.Fs) *JSONLSink {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &JSONLSink{fs: fs}
}

// EnsureTarget creates the file (and its directories) without truncating it.
func (s *JSONLSink) EnsureTarget(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(name); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	f, err := s.fs.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	return f.Close()
}

// Submit appends one {"category","payload"} line.
func (s *JSONLSink) Submit(ctx context.Context, target string, payload []byte, category string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(line{Category: category, Payload: payload}); err != nil {
		return fmt.Errorf("encode line: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.fs.OpenFile(target, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", target, err)
	}
	defer f.Close()

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("append %s: %w", target, err)
	}
	return nil
}
