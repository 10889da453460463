package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix is used when RedisConfig.KeyPrefix is empty.
const DefaultKeyPrefix = "cybermarket:session"

// RedisConfig holds connection settings for the Redis registry.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisRegistry stores bindings in Redis so they are shared between
// processes and survive a restart until the janitor prunes them.
//
// Keys:
//
//	{prefix}:conn:{kind}:{connID}    -> principal id
//	{prefix}:principal:{kind}:{id}   -> connID
//	{prefix}:conns:{kind}            -> set of bound connIDs
type RedisRegistry struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisRegistry connects to Redis and verifies the connection.
func NewRedisRegistry(cfg RedisConfig) (*RedisRegistry, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     20,
		MinIdleConns: 2,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	r := NewRedisRegistryWithClient(client, cfg.KeyPrefix)
	log.Printf("[RedisRegistry] Started - DB:%d, prefix:%s", cfg.DB, r.keyPrefix)
	return r, nil
}

// NewRedisRegistryWithClient wraps an existing client.
func NewRedisRegistryWithClient(client *redis.Client, keyPrefix string) *RedisRegistry {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &RedisRegistry{client: client, keyPrefix: keyPrefix}
}

func (r *RedisRegistry) connKey(kind Kind, connID string) string {
	return fmt.Sprintf("%s:conn:%s:%s", r.keyPrefix, kind, connID)
}

func (r *RedisRegistry) principalKey(kind Kind, principalID int64) string {
	return fmt.Sprintf("%s:principal:%s:%d", r.keyPrefix, kind, principalID)
}

func (r *RedisRegistry) indexKey(kind Kind) string {
	return fmt.Sprintf("%s:conns:%s", r.keyPrefix, kind)
}

// getString returns "" for a missing key.
func (r *RedisRegistry) getString(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

// Bind attaches principalID to connID.
func (r *RedisRegistry) Bind(ctx context.Context, kind Kind, connID string, principalID int64) error {
	prevConn, err := r.getString(ctx, r.principalKey(kind, principalID))
	if err != nil {
		return fmt.Errorf("failed to read principal binding: %w", err)
	}
	prevID, err := r.getString(ctx, r.connKey(kind, connID))
	if err != nil {
		return fmt.Errorf("failed to read connection binding: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if prevConn != "" && prevConn != connID {
			pipe.Del(ctx, r.connKey(kind, prevConn))
			pipe.SRem(ctx, r.indexKey(kind), prevConn)
		}
		if prevID != "" && prevID != strconv.FormatInt(principalID, 10) {
			if id, err := strconv.ParseInt(prevID, 10, 64); err == nil {
				pipe.Del(ctx, r.principalKey(kind, id))
			}
		}
		pipe.Set(ctx, r.connKey(kind, connID), principalID, 0)
		pipe.Set(ctx, r.principalKey(kind, principalID), connID, 0)
		pipe.SAdd(ctx, r.indexKey(kind), connID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to bind session: %w", err)
	}
	return nil
}

// Lookup returns the principal bound to connID.
func (r *RedisRegistry) Lookup(ctx context.Context, kind Kind, connID string) (int64, bool, error) {
	v, err := r.getString(ctx, r.connKey(kind, connID))
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up session: %w", err)
	}
	if v == "" {
		return 0, false, nil
	}

	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt session value %q: %w", v, err)
	}
	return id, true, nil
}

// Unbind removes the binding of one kind.
func (r *RedisRegistry) Unbind(ctx context.Context, kind Kind, connID string) (bool, error) {
	id, ok, err := r.Lookup(ctx, kind, connID)
	if err != nil || !ok {
		// still clean the index in case the value expired underneath it
		if err == nil {
			r.client.SRem(ctx, r.indexKey(kind), connID)
		}
		return false, err
	}

	owner, err := r.getString(ctx, r.principalKey(kind, id))
	if err != nil {
		return false, fmt.Errorf("failed to read principal binding: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.connKey(kind, connID))
		if owner == connID {
			pipe.Del(ctx, r.principalKey(kind, id))
		}
		pipe.SRem(ctx, r.indexKey(kind), connID)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to unbind session: %w", err)
	}
	return true, nil
}

// UnbindConn removes every binding held by connID.
func (r *RedisRegistry) UnbindConn(ctx context.Context, connID string) error {
	for _, k := range Kinds() {
		if _, err := r.Unbind(ctx, k, connID); err != nil {
			return err
		}
	}
	return nil
}

// Prune drops bindings of connections not in live.
func (r *RedisRegistry) Prune(ctx context.Context, live []string) (int, error) {
	alive := make(map[string]struct{}, len(live))
	for _, id := range live {
		alive[id] = struct{}{}
	}

	pruned := 0
	for _, k := range Kinds() {
		connIDs, err := r.client.SMembers(ctx, r.indexKey(k)).Result()
		if err != nil {
			return pruned, fmt.Errorf("failed to list sessions: %w", err)
		}
		for _, connID := range connIDs {
			if _, ok := alive[connID]; ok {
				continue
			}
			removed, err := r.Unbind(ctx, k, connID)
			if err != nil {
				log.Printf("[RedisRegistry] Error pruning %s/%s: %v", k, connID, err)
				continue
			}
			if removed {
				pruned++
			}
		}
	}
	return pruned, nil
}

// Count returns the number of bindings per kind.
func (r *RedisRegistry) Count(ctx context.Context) (map[Kind]int64, error) {
	pipe := r.client.Pipeline()
	cmds := make(map[Kind]*redis.IntCmd)
	for _, k := range Kinds() {
		cmds[k] = pipe.SCard(ctx, r.indexKey(k))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}

	counts := make(map[Kind]int64, len(cmds))
	for k, cmd := range cmds {
		counts[k] = cmd.Val()
	}
	return counts, nil
}

// Close closes the Redis client.
func (r *RedisRegistry) Close() error {
	return r.client.Close()
}

// Ensure RedisRegistry implements Registry
var _ Registry = (*RedisRegistry)(nil)
