package cluster

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ktb-chatapp/backend/internal/metrics"
	"github.com/ktb-chatapp/backend/internal/tracing"
)

// scannable is the slice of the go-redis API the cursor loop needs; both
// *redis.Client (per-node) and single-node clients satisfy it.
type scannable interface {
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

// ScanKeys streams every key matching pattern to fn. The keyspace is walked
// with cursor-based SCAN pages (never KEYS) against each master node, so a
// large namespace is enumerated incrementally instead of blocking the
// cluster. Pages are paced by the client's scan limiter. The scan restarts
// from a fresh cursor on every call; keys created or deleted mid-scan may or
// may not be observed. fn returning an error stops the scan and the error is
// returned as-is.
func (c *Client) ScanKeys(ctx context.Context, pattern string, fn func(key string) error) error {
	ctx, span := tracing.StartSpan(ctx, "cluster.scan",
		trace.WithAttributes(
			attribute.String("db.system", "redis"),
			attribute.String("db.redis.pattern", pattern),
		),
	)
	defer span.End()

	if cc, ok := c.rdb.(*redis.ClusterClient); ok {
		err := cc.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
			return c.scanNode(ctx, node, pattern, fn)
		})
		if err != nil {
			span.RecordError(err)
		}
		return err
	}
	// Single-node client (tests, local development).
	err := c.scanNode(ctx, c.rdb, pattern, fn)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (c *Client) scanNode(ctx context.Context, node scannable, pattern string, fn func(string) error) error {
	var cursor uint64
	for {
		if !c.scanPacer.Allow() {
			metrics.ClusterScanPacerWaits.Inc()
			if err := c.scanPacer.Wait(ctx); err != nil {
				return err
			}
		}
		keys, next, err := node.Scan(ctx, cursor, pattern, c.scanBatch).Result()
		if err != nil {
			return backendErr("scan", err)
		}
		metrics.ClusterScanBatches.Inc()
		for _, k := range keys {
			if err := fn(k); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// CountKeys returns the number of keys matching pattern. Cost is
// proportional to the number of live matching keys, and the count is only
// eventually consistent with concurrent writers.
func (c *Client) CountKeys(ctx context.Context, pattern string) (int, error) {
	n := 0
	err := c.ScanKeys(ctx, pattern, func(string) error {
		n++
		return nil
	})
	return n, err
}

// DeleteByPattern removes every key matching pattern and returns how many
// were deleted. Deletes are issued per scan page through a pipeline with one
// DEL per key, since matching keys land on different slots and a multi-key
// DEL would be rejected by the cluster.
func (c *Client) DeleteByPattern(ctx context.Context, pattern string) (int, error) {
	batch := make([]string, 0, c.scanBatch)
	deleted := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		_, err := c.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
			for _, k := range batch {
				p.Del(ctx, k)
			}
			return nil
		})
		if err != nil {
			return backendErr("delete", err)
		}
		deleted += len(batch)
		batch = batch[:0]
		return nil
	}

	err := c.ScanKeys(ctx, pattern, func(key string) error {
		batch = append(batch, key)
		if len(batch) >= int(c.scanBatch) {
			return flush()
		}
		return nil
	})
	if err != nil {
		return deleted, err
	}
	if err := flush(); err != nil {
		return deleted, err
	}
	return deleted, nil
}
