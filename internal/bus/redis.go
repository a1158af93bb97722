package bus

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"docchat/internal/models"
	"docchat/internal/redis"

	"github.com/google/uuid"
)

const announceChannel = "docchat:announce"

// envelope carries an announcement between instances. Origin identifies
// the announcing instance so it can skip its own publications: local
// subscribers already received the value synchronously, matching the
// browser storage event that fires only in tabs that did not write.
type envelope struct {
	Origin  string          `json:"origin"`
	Session *models.Session `json:"session"`
}

// Redis extends the local bus with cross-instance delivery over a redis
// pub/sub channel.
type Redis struct {
	local  *Local
	client *redis.Client
	origin string
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRedis creates the redis-backed bus and starts its listener.
func NewRedis(client *redis.Client) (*Redis, error) {
	raw := client.Raw()
	if raw == nil {
		return nil, errors.New("redis client not initialized")
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Redis{
		local:  NewLocal(),
		client: client,
		origin: uuid.NewString(),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	pubsub := raw.Subscribe(ctx, announceChannel)
	go func() {
		defer close(b.done)
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
				var env envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					log.Printf("bus: decode announcement failed: %v", err)
					continue
				}
				if env.Origin == b.origin {
					continue
				}
				b.local.Announce(ctx, env.Session)
			}
		}
	}()

	return b, nil
}

// Announce implements Bus. Local subscribers are served first, then the
// envelope is published for other instances. A publish failure is logged
// but does not undo the local delivery; the instance stays internally
// consistent and other instances converge on the next announcement.
func (b *Redis) Announce(ctx context.Context, s *models.Session) error {
	b.local.Announce(ctx, s)

	payload, err := json.Marshal(envelope{Origin: b.origin, Session: s})
	if err != nil {
		return err
	}
	if err := b.client.Raw().Publish(ctx, announceChannel, payload).Err(); err != nil {
		log.Printf("bus: publish announcement failed: %v", err)
		return err
	}
	return nil
}

// Subscribe implements Bus.
func (b *Redis) Subscribe(h Handler) func() {
	return b.local.Subscribe(h)
}

// Close implements Bus.
func (b *Redis) Close() error {
	b.cancel()
	<-b.done
	return b.local.Close()
}
