package store

import (
	"context"
	"log"
	"strings"

	"github.com/redis/go-redis/v9"
)

const changeChannelPrefix = "store:changes:"

// RedisNotifier relays change signals through Redis pub/sub so subscriptions
// on one server instance see writes made on another.
type RedisNotifier struct {
	client *redis.Client
	local  *Broadcaster
}

var _ Notifier = (*RedisNotifier)(nil)

func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client, local: NewBroadcaster()}
}

// Publish falls back to the local broadcaster when Redis is unreachable, so
// at least this instance's subscribers are refreshed.
func (n *RedisNotifier) Publish(ctx context.Context, collection string) {
	if err := n.client.Publish(context.WithoutCancel(ctx), changeChannelPrefix+collection, "1").Err(); err != nil {
		log.Printf("store: redis publish %s: %v", collection, err)
		n.local.Publish(ctx, collection)
	}
}

func (n *RedisNotifier) Subscribe(collection string) (<-chan struct{}, func()) {
	return n.local.Subscribe(collection)
}

// Run relays Redis messages to local subscribers until ctx is done.
func (n *RedisNotifier) Run(ctx context.Context) {
	pubsub := n.client.PSubscribe(ctx, changeChannelPrefix+"*")
	defer pubsub.Close()
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			n.local.Publish(ctx, strings.TrimPrefix(msg.Channel, changeChannelPrefix))
		}
	}
}
