// Package store persists room documents so a hub can restart without losing
// the canvas.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"LiveCanvas/internal/live"
	"LiveCanvas/internal/state"
)

// saveScript writes a snapshot only if it is newer than the stored one, so
// commits saved out of order never roll the document back.
var saveScript = redis.NewScript(`
local current = redis.call("HGET", KEYS[1], "version")
if current and tonumber(current) >= tonumber(ARGV[1]) then
	return 0
end
redis.call("HSET", KEYS[1], "version", ARGV[1], "records", ARGV[2])
return 1
`)

type RedisStore struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	log.Printf("[Redis] Connected to %s", addr)

	return NewRedisStoreWithClient(client), nil
}

func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{
		client:  client,
		prefix:  "livecanvas:room:",
		timeout: 5 * time.Second,
	}
}

func (s *RedisStore) key(room string) string {
	return s.prefix + room
}

// Load returns the stored snapshot of a room. found is false if the room has
// never been saved.
func (s *RedisStore) Load(ctx context.Context, room string) (snap state.Snapshot, found bool, err error) {
	vals, err := s.client.HMGet(ctx, s.key(room), "version", "records").Result()
	if err != nil {
		return state.Snapshot{}, false, fmt.Errorf("load room %s: %w", room, err)
	}
	version, _ := vals[0].(string)
	records, _ := vals[1].(string)
	if version == "" {
		return state.Snapshot{}, false, nil
	}

	snap.Version, err = strconv.ParseUint(version, 10, 64)
	if err != nil {
		return state.Snapshot{}, false, fmt.Errorf("load room %s: bad version %q: %w", room, version, err)
	}
	if err := json.Unmarshal([]byte(records), &snap.Records); err != nil {
		return state.Snapshot{}, false, fmt.Errorf("unmarshal room %s: %w", room, err)
	}
	return snap, true, nil
}

// Save stores snap unless a newer version is already stored. It reports
// whether the write happened.
func (s *RedisStore) Save(ctx context.Context, room string, snap state.Snapshot) (bool, error) {
	records := snap.Records
	if records == nil {
		records = []state.ShapeRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return false, fmt.Errorf("marshal room %s: %w", room, err)
	}

	written, err := saveScript.Run(ctx, s.client, []string{s.key(room)}, snap.Version, data).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("save room %s: %w", room, err)
	}
	return written == 1, nil
}

func (s *RedisStore) Delete(ctx context.Context, room string) error {
	if err := s.client.Del(ctx, s.key(room)).Err(); err != nil {
		return fmt.Errorf("delete room %s: %w", room, err)
	}
	return nil
}

// Attach seeds room from the store and saves every later commit.
func (s *RedisStore) Attach(ctx context.Context, room *live.Room) error {
	snap, found, err := s.Load(ctx, room.ID)
	if err != nil {
		return err
	}
	if found {
		room.Load(snap)
	}

	room.OnCommit = func(snap state.Snapshot) {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if _, err := s.Save(ctx, room.ID, snap); err != nil {
			log.Printf("[Redis] %v", err)
		}
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
