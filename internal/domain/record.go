package domain

import (
	"github.com/tidwall/gjson"
)

// ExternalRecord is a raw JSON value produced by a source. Its shape is not guaranteed.
type ExternalRecord struct {
	raw []byte
}

// NewExternalRecord wraps raw JSON bytes. The bytes are copied.
func NewExternalRecord(raw []byte) ExternalRecord {
	buf := make([]byte, len(raw))
	copy(buf, raw)
	return ExternalRecord{raw: buf}
}

// RecordFromMap builds a record from already decoded key/value pairs.
func RecordFromMap(values map[string]any) ExternalRecord {
	raw, err := marshalCompact(values)
	if err != nil {
		return ExternalRecord{}
	}
	return ExternalRecord{raw: raw}
}

// Raw returns the original bytes.
func (r ExternalRecord) Raw() []byte {
	return r.raw
}

// Lookup resolves a gjson path (e.g. "source.name") against the record.
// Non-object records and invalid JSON never match.
func (r ExternalRecord) Lookup(path string) gjson.Result {
	if len(r.raw) == 0 || !gjson.ValidBytes(r.raw) {
		return gjson.Result{}
	}
	return gjson.GetBytes(r.raw, path)
}

// NormalizedRecord is the fixed internal shape every record is mapped to.
// All fields are always defined; absent inputs become empty strings.
type NormalizedRecord struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
	URL     string `json:"url"`
	Date    string `json:"date"`
	Image   string `json:"image"`
	Source  string `json:"source"`

	Origin string `json:"-"`
	Raw    []byte `json:"-"`
}

// Ref returns a short human reference used in failure reports.
func (r NormalizedRecord) Ref() string {
	switch {
	case r.ID != "":
		return r.ID
	case r.Title != "":
		return r.Title
	case r.URL != "":
		return r.URL
	default:
		return "<anonymous>"
	}
}

// DeliveryTarget names a destination (index, table, stream, file) and the
// category label attached to every submitted record.
type DeliveryTarget struct {
	Name     string
	Category string
}

// Failure describes one record that could not be delivered.
type Failure struct {
	Index  int
	Ref    string
	Reason string
}

// BatchResult aggregates one delivery pass. Attempted == Succeeded + len(Failures).
type BatchResult struct {
	Target    string
	Attempted int
	Succeeded int
	Failures  []Failure
}

// Failed returns the number of failed deliveries.
func (b BatchResult) Failed() int {
	return len(b.Failures)
}

// SourceReport summarizes what happened to one source during a run.
type SourceReport struct {
	Source  string
	Skipped bool
	Err     error
	Result  BatchResult
}
