package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"

	"ThreatIngest/internal/domain"
)

type submission struct {
	target   string
	payload  string
	category string
}

type fakeSink struct {
	mu        sync.Mutex
	existing  map[string]bool
	ensureErr error
	ensured   []string
	created   []string
	failWhen  func(payload string) error
	submitted []submission
}

func newFakeSink(existing ...string) *fakeSink {
	s := &fakeSink{existing: map[string]bool{}}
	for _, name := range existing {
		s.existing[name] = true
	}
	return s
}

func (s *fakeSink) EnsureTarget(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensured = append(s.ensured, name)
	if s.ensureErr != nil {
		return s.ensureErr
	}
	if !s.existing[name] {
		s.existing[name] = true
		s.created = append(s.created, name)
	}
	return nil
}

func (s *fakeSink) Submit(_ context.Context, target string, payload []byte, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.existing[target] {
		return errors.New("no such target")
	}
	if s.failWhen != nil {
		if err := s.failWhen(string(payload)); err != nil {
			return err
		}
	}
	s.submitted = append(s.submitted, submission{target: target, payload: string(payload), category: category})
	return nil
}

func failContaining(marker string) func(string) error {
	return func(payload string) error {
		if strings.Contains(payload, marker) {
			return errors.New("rejected by destination")
		}
		return nil
	}
}

type fakeSource struct {
	name    string
	origin  string
	records []domain.ExternalRecord
	err     error
	calls   int
}

func (f *fakeSource) Name() string   { return f.name }
func (f *fakeSource) Origin() string { return f.origin }

func (f *fakeSource) Fetch(context.Context) ([]domain.ExternalRecord, error) {
	f.calls++
	return f.records, f.err
}

type fakeMetrics struct {
	batches []domain.BatchResult
	skipped []string
}

func (m *fakeMetrics) ObserveBatch(result domain.BatchResult) { m.batches = append(m.batches, result) }
func (m *fakeMetrics) ObserveSkipped(source string)           { m.skipped = append(m.skipped, source) }

func rawRecords(raws ...string) []domain.ExternalRecord {
	out := make([]domain.ExternalRecord, 0, len(raws))
	for _, raw := range raws {
		out = append(out, domain.NewExternalRecord([]byte(raw)))
	}
	return out
}
