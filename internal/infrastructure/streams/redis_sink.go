package streams

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"ThreatIngest/internal/ports"
)

// DefaultGroup is the consumer group created next to every new stream.
const DefaultGroup = "threatingest"

// RedisSink appends payloads to Redis streams; the target names the stream key.
type RedisSink struct {
	client redis.UniversalClient
	group  string
	maxLen int64
}

var _ ports.Sink = (*RedisSink)(nil)

// NewRedisSink uses group for new streams (DefaultGroup when empty). A positive
// maxLen caps streams approximately.
func NewRedisSink(client redis.UniversalClient, group string, maxLen int64) *RedisSink {
	if group == "" {
		group = DefaultGroup
	}
	return &RedisSink{client: client, group: group, maxLen: maxLen}
}

// EnsureTarget creates the stream together with its consumer group.
func (s *RedisSink) EnsureTarget(ctx context.Context, name string) error {
	n, err := s.client.Exists(ctx, name).Result()
	if err != nil {
		return fmt.Errorf("lookup stream %s: %w", name, err)
	}
	if n > 0 {
		return nil
	}

	err = s.client.XGroupCreateMkStream(ctx, name, s.group, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create stream %s: %w", name, err)
	}
	return nil
}

// Submit adds one entry with the category and payload fields.
func (s *RedisSink) Submit(ctx context.Context, target string, payload []byte, category string) error {
	args := &redis.XAddArgs{
		Stream: target,
		Values: map[string]any{
			"category": category,
			"payload":  string(payload),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("append to stream %s: %w", target, err)
	}
	return nil
}
