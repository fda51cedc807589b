// Package redisstore persists randflake checkpoints in Redis.
//
// Each machine id is a hash at <prefix><machineID> with the fields ts,
// ahead_ms, incarnation and updated_at. Writes go through a Lua script that only
// raises ts, so the mark is monotonic even with several writers.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sxyafiq/randflake"
)

// DefaultPrefix is the key prefix used when Options.Prefix is empty.
const DefaultPrefix = "randflake:checkpoint:"

// saveScript sets the hash only when ARGV[1] is above the stored ts.
// Returns 1 when written, 0 when the stored mark was already higher.
const saveScript = `local cur = redis.call("HGET", KEYS[1], "ts")
if cur and tonumber(cur) >= tonumber(ARGV[1]) then return 0 end
redis.call("HSET", KEYS[1], "ts", ARGV[1], "incarnation", ARGV[2], "updated_at", ARGV[3], "ahead_ms", ARGV[4])
return 1`

// Options configures a Store.
type Options struct {
	// Prefix overrides DefaultPrefix.
	Prefix string
}

// Store implements randflake.Checkpointer on a go-redis client.
type Store struct {
	client redis.UniversalClient
	prefix string
	owned  bool
}

// New wraps an existing client. The caller keeps ownership of client.
func New(client redis.UniversalClient, opts Options) *Store {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

// Dial connects to the Redis server at addr and checks it with PING.
func Dial(ctx context.Context, addr string) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("error connecting to Redis at %s: %w", addr, err)
	}
	s := New(client, Options{})
	s.owned = true
	return s, nil
}

func (s *Store) key(machineID int64) string {
	return s.prefix + strconv.FormatInt(machineID, 10)
}

// Load implements randflake.Checkpointer.
func (s *Store) Load(ctx context.Context, machineID int64) (randflake.Checkpoint, error) {
	fields, err := s.client.HGetAll(ctx, s.key(machineID)).Result()
	if err != nil {
		return randflake.Checkpoint{}, err
	}
	if len(fields) == 0 {
		return randflake.Checkpoint{}, randflake.ErrNoCheckpoint
	}

	ts, err := strconv.ParseInt(fields["ts"], 10, 64)
	if err != nil {
		return randflake.Checkpoint{}, fmt.Errorf("corrupt checkpoint %s: ts: %w", s.key(machineID), err)
	}
	cp := randflake.Checkpoint{
		MachineID:   machineID,
		Timestamp:   ts,
		Incarnation: fields["incarnation"],
	}
	if v, ok := fields["ahead_ms"]; ok {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return randflake.Checkpoint{}, fmt.Errorf("corrupt checkpoint %s: ahead_ms: %w", s.key(machineID), err)
		}
		cp.Ahead = time.Duration(ms) * time.Millisecond
	}
	if v, ok := fields["updated_at"]; ok {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return randflake.Checkpoint{}, fmt.Errorf("corrupt checkpoint %s: updated_at: %w", s.key(machineID), err)
		}
		cp.UpdatedAt = time.UnixMilli(ms).UTC()
	}
	return cp, nil
}

// Save implements randflake.Checkpointer.
func (s *Store) Save(ctx context.Context, cp randflake.Checkpoint) error {
	res, err := s.client.Eval(ctx, saveScript, []string{s.key(cp.MachineID)},
		cp.Timestamp, cp.Incarnation, cp.UpdatedAt.UnixMilli(), cp.Ahead.Milliseconds()).Int()
	if err != nil {
		return err
	}
	if res != 0 && res != 1 {
		return errors.New("unexpected checkpoint script result " + strconv.Itoa(res))
	}
	return nil
}

// Close closes the client if the Store created it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}
