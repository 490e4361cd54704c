package redis

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/nkazmin/liveboard/cache"
	"github.com/nkazmin/liveboard/models"
)

type RedisPresenceCache struct {
	client redis.UniversalClient
}

func NewRedisPresenceCache(ctx context.Context, devMode bool, redisEndpoint string) (*RedisPresenceCache, error) {
	var client redis.UniversalClient
	if devMode {
		client = redis.NewClient(&redis.Options{
			Addr: redisEndpoint,
		})
	} else {
		client = redis.NewClient(&redis.Options{
			Addr: redisEndpoint,
			// AWS elasticache endpoints require TLS
			TLSConfig: &tls.Config{},
		})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisPresenceCache{client: client}, nil
}

func (c *RedisPresenceCache) Publish(ctx context.Context, channel string, message []byte) error {
	return c.client.Publish(ctx, channel, message).Err()
}

func (c *RedisPresenceCache) Subscribe(ctx context.Context, channel string, handler func(message []byte)) error {
	pubsub := c.client.Subscribe(ctx, channel)
	// Ensure subscription is established
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		log.Printf("Pubsub channel closed: %s", channel)
		return err
	}

	ch := pubsub.Channel()

	go func() {
		defer pubsub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				handler([]byte(msg.Payload))
			}
		}
	}()

	return nil
}

func presenceKey(canvasId, userId string) string {
	return "presence:" + canvasId + ":" + userId
}

func cursorKey(canvasId, userId string) string {
	return "cursor:" + canvasId + ":" + userId
}

func (c *RedisPresenceCache) SetPresence(ctx context.Context, canvasId string, entry models.PresenceEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, presenceKey(canvasId, entry.UserId), data, cache.PresenceTTL).Err()
}

func (c *RedisPresenceCache) DeletePresence(ctx context.Context, canvasId string, userId string) error {
	return c.client.Del(ctx, presenceKey(canvasId, userId)).Err()
}

func (c *RedisPresenceCache) GetPresence(ctx context.Context, canvasId string) ([]models.PresenceEntry, error) {
	values, err := c.scanValues(ctx, "presence:"+canvasId+":*")
	if err != nil {
		return nil, err
	}

	entries := make([]models.PresenceEntry, 0, len(values))
	for _, v := range values {
		var entry models.PresenceEntry
		if err := json.Unmarshal(v, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (c *RedisPresenceCache) SetCursor(ctx context.Context, canvasId string, entry models.CursorEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cursorKey(canvasId, entry.UserId), data, cache.CursorTTL).Err()
}

func (c *RedisPresenceCache) DeleteCursor(ctx context.Context, canvasId string, userId string) error {
	return c.client.Del(ctx, cursorKey(canvasId, userId)).Err()
}

func (c *RedisPresenceCache) GetCursors(ctx context.Context, canvasId string) ([]models.CursorEntry, error) {
	values, err := c.scanValues(ctx, "cursor:"+canvasId+":*")
	if err != nil {
		return nil, err
	}

	entries := make([]models.CursorEntry, 0, len(values))
	for _, v := range values {
		var entry models.CursorEntry
		if err := json.Unmarshal(v, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// scanValues collects the values behind every key matching pattern.
// SCAN rather than KEYS so snapshots don't block the server; expired keys
// are already gone by the time they would match, which is what gives the
// TTL its read-side authority.
func (c *RedisPresenceCache) scanValues(ctx context.Context, pattern string) ([][]byte, error) {
	var values [][]byte
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		val, err := c.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			// Key may expire between SCAN and GET
			if err == redis.Nil {
				continue
			}
			return nil, err
		}
		values = append(values, val)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return values, nil
}
