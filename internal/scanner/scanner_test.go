package scanner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ThreatIngest/internal/domain"
)

type stubScanner struct{ name string }

func (s stubScanner) Name() string   { return s.name }
func (s stubScanner) Origin() string { return "cybernews" }
func (s stubScanner) Scan(context.Context, Request) ([]domain.ExternalRecord, error) {
	return nil, nil
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(stubScanner{name: "html"})

	got, err := reg.Resolve("html")
	require.NoError(t, err)
	assert.Equal(t, "html", got.Name())

	_, err = reg.Resolve("rss")
	assert.ErrorContains(t, err, "scanner rss is not registered")
}

func TestRegistryZeroValue(t *testing.T) {
	t.Parallel()

	var reg Registry
	reg.Register(stubScanner{name: "json"})
	_, err := reg.Resolve("json")
	assert.NoError(t, err)
}
