package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/sxyafiq/randflake"
	"github.com/sxyafiq/randflake/checkpoint/pebblestore"
	"github.com/sxyafiq/randflake/checkpoint/redisstore"
	"github.com/sxyafiq/randflake/checkpoint/sqlitestore"
)

// Checkpoint DSN schemes.
const (
	SchemeSQLite = "sqlite"
	SchemeRedis  = "redis"
	SchemePebble = "pebble"
)

func splitDSN(dsn string) (scheme, target string, err error) {
	scheme, target, ok := strings.Cut(dsn, ":")
	if !ok || target == "" {
		return "", "", fmt.Errorf("%w: checkpoint dsn %q (want scheme:target)", randflake.ErrInvalidConfig, dsn)
	}
	switch scheme {
	case SchemeSQLite, SchemeRedis, SchemePebble:
		return scheme, target, nil
	default:
		return "", "", fmt.Errorf("%w: checkpoint scheme %q (want sqlite, redis or pebble)", randflake.ErrInvalidConfig, scheme)
	}
}

// OpenCheckpointer opens the store named by dsn. An empty dsn returns a nil
// store. The returned close function is never nil.
//
//	sqlite:/var/lib/randflake/marks.db
//	redis:localhost:6379
//	pebble:/var/lib/randflake/marks
func OpenCheckpointer(ctx context.Context, dsn string) (randflake.Checkpointer, func() error, error) {
	noop := func() error { return nil }
	if dsn == "" {
		return nil, noop, nil
	}
	scheme, target, err := splitDSN(dsn)
	if err != nil {
		return nil, noop, err
	}

	switch scheme {
	case SchemeSQLite:
		s, err := sqlitestore.Open(target)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case SchemeRedis:
		s, err := redisstore.Dial(ctx, target)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	default:
		s, err := pebblestore.Open(pebblestore.Options{DataDir: target})
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	}
}
