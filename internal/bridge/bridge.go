// Package bridge carries protocol envelopes over Redis pub/sub for
// gateways that sit behind NAT and cannot accept inbound HTTP from the
// cloud service. Requests arrive on one channel, responses go out on
// another; the payload on both is the JSON-serialized envelope.
package bridge

import (
	"context"
	"encoding/json"
	"log"

	"github.com/qbridge/gateway-agent/internal/config"
	"github.com/qbridge/gateway-agent/internal/service"
	"github.com/redis/go-redis/v9"
)

type Bridge struct {
	client          *redis.Client
	gateway         *service.Gateway
	requestChannel  string
	responseChannel string
	ready           chan struct{}
}

func New(cfg config.Bridge, gateway *service.Gateway) *Bridge {
	return &Bridge{
		client:          redis.NewClient(&redis.Options{Addr: cfg.Addr}),
		gateway:         gateway,
		requestChannel:  cfg.RequestChannel,
		responseChannel: cfg.ResponseChannel,
		ready:           make(chan struct{}),
	}
}

// Ready is closed once the request-channel subscription is established.
func (b *Bridge) Ready() <-chan struct{} { return b.ready }

// Run consumes request envelopes until ctx is cancelled. Every inbound
// message produces exactly one response envelope: malformed JSON goes
// through the dispatcher as an empty map, which yields an error envelope.
func (b *Bridge) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.requestChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	close(b.ready)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.handle(ctx, msg.Payload)
		}
	}
}

func (b *Bridge) handle(ctx context.Context, payload string) {
	var data map[string]any
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		data = map[string]any{}
	}

	resp := b.gateway.HandleMessage(ctx, data)
	raw, err := json.Marshal(resp)
	if err != nil {
		log.Printf("bridge: marshal response: %v", err)
		return
	}
	if err := b.client.Publish(ctx, b.responseChannel, raw).Err(); err != nil {
		log.Printf("bridge: publish response: %v", err)
	}
}

func (b *Bridge) Close() error {
	return b.client.Close()
}
