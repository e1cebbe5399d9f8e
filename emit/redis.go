package emit

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// Redis fans events out to a Redis pub/sub channel, letting the
// transport's dashboard subscribe from a separate process rather than
// sharing an in-process Emitter with the engine. Grounded on the pack's
// use of go-redis for cross-process fanout (the dashboard-over-redis
// pattern from the pack's messaging-heavy repos) rather than a
// process-internal log sink.
type Redis struct {
	client  *redis.Client
	channel string
}

// NewRedis publishes every event as a JSON message on channel.
func NewRedis(client *redis.Client, channel string) *Redis {
	return &Redis{client: client, channel: channel}
}

func (r *Redis) Emit(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	r.client.Publish(context.Background(), r.channel, data)
}

func (r *Redis) EmitBatch(ctx context.Context, events []Event) error {
	pipe := r.client.Pipeline()
	for _, e := range events {
		data, err := json.Marshal(e)
		if err != nil {
			continue
		}
		pipe.Publish(ctx, r.channel, data)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Flush forces a round-trip PING to surface any connection error; Redis
// pub/sub itself has no client-side buffer to drain.
func (r *Redis) Flush(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
