package txcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "echolink:tx:"

// Redis is a Cache backed by a Redis instance. Keys are scoped by namespace
// so two client processes never read each other's entries unless they are
// configured with the same namespace. A non-zero ttl bounds memory for
// long-running embedders.
type Redis struct {
	rdb       *redis.Client
	namespace string
	ttl       time.Duration
	log       *zap.Logger
}

// NewRedis builds a Redis cache. An empty namespace is replaced by a random
// per-process one.
func NewRedis(rdb *redis.Client, namespace string, ttl time.Duration, log *zap.Logger) *Redis {
	if namespace == "" {
		namespace = uuid.NewString()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Redis{rdb: rdb, namespace: namespace, ttl: ttl, log: log}
}

func (r *Redis) Namespace() string { return r.namespace }

func (r *Redis) key(txID string) string {
	return fmt.Sprintf("%s%s:%s", keyPrefix, r.namespace, txID)
}

// Get returns the cached record. Redis failures are logged and reported as a
// miss so the caller falls back to the network.
func (r *Redis) Get(ctx context.Context, txID string) (map[string]any, bool) {
	raw, err := r.rdb.Get(ctx, r.key(txID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.log.Warn("txcache: redis get", zap.String("tx", txID), zap.Error(err))
		}
		return nil, false
	}
	var rec map[string]any
	if err := json.Unmarshal(raw, &rec); err != nil {
		r.log.Warn("txcache: corrupt entry", zap.String("tx", txID), zap.Error(err))
		return nil, false
	}
	return rec, true
}

// Put overwrites the entry for txID. A failed write only costs an extra
// status request later, so it is logged and dropped.
func (r *Redis) Put(ctx context.Context, txID string, rec map[string]any) {
	raw, err := json.Marshal(rec)
	if err != nil {
		r.log.Warn("txcache: marshal record", zap.String("tx", txID), zap.Error(err))
		return
	}
	if err := r.rdb.Set(ctx, r.key(txID), raw, r.ttl).Err(); err != nil {
		r.log.Warn("txcache: redis set", zap.String("tx", txID), zap.Error(err))
	}
}

// Keys lists the transaction ids cached under this namespace.
func (r *Redis) Keys(ctx context.Context) ([]string, error) {
	prefix := keyPrefix + r.namespace + ":"
	var ids []string
	var cursor uint64
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scan tx cache: %w", err)
		}
		for _, k := range keys {
			ids = append(ids, k[len(prefix):])
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	return ids, nil
}
