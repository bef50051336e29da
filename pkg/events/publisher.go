package events

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/verinet-labs/verinetx/pkg/models"
	"github.com/verinet-labs/verinetx/pkg/utils"
)

// Stream names. Downstream collaborators (reward settlement, storage) attach
// consumer groups to these.
const (
	StreamFinalized  = "verinetx:submission.finalized"
	StreamReputation = "verinetx:reputation.updated"
	StreamArchived   = "verinetx:submission.archived"
)

// DefaultStreamMaxLen caps each stream unless overridden via env.
const DefaultStreamMaxLen = 10000

// Publisher emits engine events onto Redis streams. Publishing is
// best-effort: failures are logged and never surfaced to the mutating
// operation that triggered them. A nil Publisher is valid and publishes
// nothing.
type Publisher struct {
	client       *redis.Client
	logger       *zap.Logger
	streamMaxLen int64
}

// NewPublisher connects to Redis using environment variables:
//   - REDIS_HOST: Redis host (default: "localhost")
//   - REDIS_PORT: Redis port (default: "6379")
//   - REDIS_PASSWORD: Redis password (default: "")
//   - REDIS_DB: Redis database number (default: "0")
//   - REDIS_STREAM_MAXLEN: Max entries per stream (default: 10000, 0 = unlimited)
func NewPublisher(ctx context.Context, logger *zap.Logger) (*Publisher, error) {
	host := utils.Env("REDIS_HOST", "localhost")
	port := utils.Env("REDIS_PORT", "6379")
	password := utils.Env("REDIS_PASSWORD", "")
	db := utils.EnvInt("REDIS_DB", 0)
	streamMaxLen := utils.EnvInt64("REDIS_STREAM_MAXLEN", DefaultStreamMaxLen)

	addr := fmt.Sprintf("%s:%s", host, port)

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,

		PoolSize:     10,
		MinIdleConns: 2,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	logger.Info("Connected to Redis",
		zap.String("addr", addr),
		zap.Int("db", db),
		zap.Int64("streamMaxLen", streamMaxLen))

	return &Publisher{
		client:       rdb,
		logger:       logger,
		streamMaxLen: streamMaxLen,
	}, nil
}

// Close closes the Redis connection.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.client.Close()
}

// Health checks if Redis is reachable.
func (p *Publisher) Health(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return p.client.Ping(ctx).Err()
}

// Finalized publishes the terminal score of a submission.
func (p *Publisher) Finalized(ctx context.Context, sub *models.Submission) {
	if p == nil || sub.FinalScore == nil {
		return
	}
	auto, community := sub.VoteCounts()
	p.xadd(ctx, StreamFinalized, map[string]interface{}{
		"fingerprint":     sub.Fingerprint,
		"content_class":   sub.ContentClass,
		"final_score":     *sub.FinalScore,
		"outcome":         string(sub.Outcome),
		"automated_votes": auto,
		"community_votes": community,
	})
}

// ReputationUpdated publishes one applied reputation change.
func (p *Publisher) ReputationUpdated(ctx context.Context, addr string, ev models.ReputationEvent) {
	if p == nil {
		return
	}
	p.xadd(ctx, StreamReputation, map[string]interface{}{
		"address": addr,
		"outcome": string(ev.Outcome),
		"delta":   ev.Delta,
		"score":   ev.Score,
	})
}

// Archived publishes a completed archive dispatch.
func (p *Publisher) Archived(ctx context.Context, fingerprint, contentID string) {
	if p == nil {
		return
	}
	p.xadd(ctx, StreamArchived, map[string]interface{}{
		"fingerprint": fingerprint,
		"content_id":  contentID,
	})
}

// xadd appends to a stream, capping its length if configured. Best-effort.
func (p *Publisher) xadd(ctx context.Context, stream string, values map[string]interface{}) {
	args := &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}
	if p.streamMaxLen > 0 {
		args.MaxLen = p.streamMaxLen
		args.Approx = true
	}
	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		p.logger.Warn("Failed to add to Redis stream",
			zap.String("stream", stream),
			zap.Error(err))
	}
}
