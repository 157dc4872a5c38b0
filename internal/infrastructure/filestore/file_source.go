package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"ThreatIngest/internal/domain"
	"ThreatIngest/internal/ports"
)

// FileSource reads sample records from a local JSON file.
type FileSource struct {
	fs     afero.Fs
	path   string
	origin string
}

var _ ports.RecordSource = (*FileSource)(nil)

// NewFileSource binds a path on fs to an origin key table.
func NewFileSource(fs afero.Fs, path, origin string) *FileSource {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileSource{fs: fs, path: path, origin: origin}
}

// Name is the file base name, e.g. security_events.json.
func (f *FileSource) Name() string {
	return filepath.Base(f.path)
}

func (f *FileSource) Origin() string {
	return f.origin
}

// Path returns the configured location.
func (f *FileSource) Path() string {
	return f.path
}

// Fetch accepts a JSON array, a single value or a stream of concatenated
// values (JSON Lines included).
func (f *FileSource) Fetch(ctx context.Context) ([]domain.ExternalRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := afero.ReadFile(f.fs, f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", f.path, domain.ErrSourceNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}

	records, err := decodeRecords(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return records, nil
}

func decodeRecords(raw []byte) ([]domain.ExternalRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	var values []json.RawMessage
	for {
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		values = append(values, v)
	}

	records := make([]domain.ExternalRecord, 0, len(values))
	for _, v := range values {
		if trimmed := bytes.TrimSpace(v); len(trimmed) > 0 && trimmed[0] == '[' {
			var items []json.RawMessage
			if err := json.Unmarshal(trimmed, &items); err != nil {
				return nil, err
			}
			for _, item := range items {
				records = append(records, domain.NewExternalRecord(item))
			}
			continue
		}
		records = append(records, domain.NewExternalRecord(v))
	}
	return records, nil
}
