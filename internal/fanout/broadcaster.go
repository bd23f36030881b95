package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/chess-rooms/internal/obslog"
)

const (
	channelPrefix  = "room:"
	channelSuffix  = ":moves"
	channelPattern = channelPrefix + "*" + channelSuffix
)

// Event is the cross-instance relay envelope. Payload carries either a JSON
// document or a plain-text status message, delivered verbatim to local
// subscribers on the receiving side.
type Event struct {
	RoomCode  string `json:"roomCode"`
	ServerID  string `json:"serverId"`
	Payload   string `json:"payload"`
	Timestamp int64  `json:"timestamp"`
}

func channelFor(code string) string { return channelPrefix + code + channelSuffix }

// Broadcaster fans updates out on two paths: directly to this process's
// subscribers, and over the shared bus to every other instance. Events
// tagged with our own server ID are ignored on receive since the local
// delivery already happened before publishing.
type Broadcaster struct {
	registry *Registry
	rdb      *redis.Client
	serverID string
}

func NewBroadcaster(registry *Registry, rdb *redis.Client, serverID string) *Broadcaster {
	return &Broadcaster{registry: registry, rdb: rdb, serverID: serverID}
}

// ServerID identifies this instance on the bus.
func (b *Broadcaster) ServerID() string { return b.serverID }

// Subscribe attaches a local live-update stream.
func (b *Broadcaster) Subscribe(code string) *Subscriber { return b.registry.Subscribe(code) }

// Unsubscribe detaches a local stream.
func (b *Broadcaster) Unsubscribe(code string, sub *Subscriber) {
	b.registry.Unsubscribe(code, sub)
}

// Broadcast renders the payload (strings pass through, anything else is JSON
// encoded), delivers it locally and relays it across instances. A publish
// failure is logged, never surfaced: local delivery already happened.
func (b *Broadcaster) Broadcast(ctx context.Context, code string, payload any) error {
	body, err := renderPayload(payload)
	if err != nil {
		return fmt.Errorf("encode broadcast payload: %w", err)
	}
	b.registry.Broadcast(code, []byte(body))

	event := Event{
		RoomCode:  code,
		ServerID:  b.serverID,
		Payload:   body,
		Timestamp: time.Now().UnixMilli(),
	}
	raw, err := json.Marshal(&event)
	if err != nil {
		return fmt.Errorf("encode relay event: %w", err)
	}
	if err := b.rdb.Publish(ctx, channelFor(code), raw).Err(); err != nil {
		obslog.L().Error("relay_publish_error", zap.String("code", code), zap.Error(err))
	}
	return nil
}

// Complete sends the final payload and closes the room's local streams, then
// relays the final payload so other instances can deliver it too.
func (b *Broadcaster) Complete(ctx context.Context, code string, payload any) error {
	body, err := renderPayload(payload)
	if err != nil {
		return fmt.Errorf("encode final payload: %w", err)
	}

	event := Event{
		RoomCode:  code,
		ServerID:  b.serverID,
		Payload:   body,
		Timestamp: time.Now().UnixMilli(),
	}
	raw, err := json.Marshal(&event)
	if err != nil {
		return fmt.Errorf("encode relay event: %w", err)
	}
	if err := b.rdb.Publish(ctx, channelFor(code), raw).Err(); err != nil {
		obslog.L().Error("relay_publish_error", zap.String("code", code), zap.Error(err))
	}

	b.registry.Complete(code, []byte(body))
	return nil
}

// Run listens on the shared bus and re-broadcasts foreign-instance events to
// local subscribers until the context ends.
func (b *Broadcaster) Run(ctx context.Context) error {
	sub := b.rdb.PSubscribe(ctx, channelPattern)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.handleRelay(msg.Payload)
		}
	}
}

func (b *Broadcaster) handleRelay(raw string) {
	var event Event
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		obslog.L().Error("relay_decode_error", zap.Error(err))
		return
	}
	if event.ServerID == b.serverID {
		// already delivered locally before publishing
		return
	}
	b.registry.Broadcast(event.RoomCode, []byte(event.Payload))
	obslog.L().Debug("relay_deliver",
		zap.String("code", event.RoomCode),
		zap.String("origin", event.ServerID),
	)
}

func renderPayload(payload any) (string, error) {
	switch v := payload.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
}
