package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Cada documento es un hash {value, version}. Las versiones salen de un
// contador INCR compartido por todo el prefijo.
const (
	redisSetScript = `
local v = redis.call("INCR", KEYS[2])
redis.call("HSET", KEYS[1], "value", ARGV[1], "version", v)
return v
`
	redisCreateScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then return -2 end
local v = redis.call("INCR", KEYS[2])
redis.call("HSET", KEYS[1], "value", ARGV[1], "version", v)
return v
`
	redisCompareAndSwapScript = `
local cur = redis.call("HGET", KEYS[1], "version")
if not cur then return -1 end
if cur ~= ARGV[1] then return -2 end
local v = redis.call("INCR", KEYS[2])
redis.call("HSET", KEYS[1], "value", ARGV[2], "version", v)
return v
`
	redisCompareAndDeleteScript = `
local cur = redis.call("HGET", KEYS[1], "version")
if not cur then return -1 end
if cur ~= ARGV[1] then return -2 end
redis.call("DEL", KEYS[1])
return 1
`
)

const (
	redisMissing  = -1
	redisConflict = -2
)

type redisDocClient interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

type redisStore struct {
	client redisDocClient
	prefix string
}

// NewRedisStore crea un DocumentStore sobre Redis. Todas las claves llevan prefix.
func NewRedisStore(client redis.UniversalClient, prefix string) DocumentStore {
	return &redisStore{
		client: client,
		prefix: prefix,
	}
}

func (s *redisStore) key(path string) string {
	return s.prefix + "doc:" + path
}

func (s *redisStore) seqKey() string {
	return s.prefix + "seq"
}

func (s *redisStore) Get(ctx context.Context, path string) (Document, error) {
	fields, err := s.client.HGetAll(ctx, s.key(path)).Result()
	if err != nil {
		return Document{}, err
	}
	value, ok := fields["value"]
	if !ok {
		return Document{}, ErrNotFound
	}
	version, err := strconv.ParseInt(fields["version"], 10, 64)
	if err != nil {
		return Document{}, fmt.Errorf("parse version of %s: %w", path, err)
	}
	return Document{Value: []byte(value), Version: version}, nil
}

func (s *redisStore) Create(ctx context.Context, path string, value []byte) (int64, error) {
	res, err := s.client.Eval(ctx, redisCreateScript, []string{s.key(path), s.seqKey()}, string(value)).Int64()
	if err != nil {
		return 0, err
	}
	if res == redisConflict {
		return 0, ErrExists
	}
	return res, nil
}

func (s *redisStore) Set(ctx context.Context, path string, value []byte) (int64, error) {
	return s.client.Eval(ctx, redisSetScript, []string{s.key(path), s.seqKey()}, string(value)).Int64()
}

func (s *redisStore) CompareAndSwap(ctx context.Context, path string, version int64, value []byte) (int64, error) {
	res, err := s.client.Eval(ctx, redisCompareAndSwapScript,
		[]string{s.key(path), s.seqKey()},
		strconv.FormatInt(version, 10), string(value),
	).Int64()
	if err != nil {
		return 0, err
	}
	switch res {
	case redisMissing:
		return 0, ErrNotFound
	case redisConflict:
		return 0, ErrVersionConflict
	}
	return res, nil
}

func (s *redisStore) CompareAndDelete(ctx context.Context, path string, version int64) error {
	res, err := s.client.Eval(ctx, redisCompareAndDeleteScript,
		[]string{s.key(path)},
		strconv.FormatInt(version, 10),
	).Int64()
	if err != nil {
		return err
	}
	switch res {
	case redisMissing:
		return ErrNotFound
	case redisConflict:
		return ErrVersionConflict
	}
	return nil
}
