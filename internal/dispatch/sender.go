// Package dispatch delivers offers to configured channels. The scheduler
// treats every sender as a black box with a binary outcome.
package dispatch

import (
	"context"
	"fmt"

	"dealradar/offers-service/internal/model"
)

// Sender delivers one offer to one channel.
type Sender interface {
	Send(ctx context.Context, offer model.Offer, ch model.ChannelConfig) error
}

// Registry routes a channel config to the sender for its type.
type Registry struct {
	senders map[string]Sender
}

// NewRegistry builds a registry; nil senders are skipped so a deployment
// without, say, a Telegram token simply has no telegram channel type.
func NewRegistry(byType map[string]Sender) *Registry {
	r := &Registry{senders: make(map[string]Sender)}
	for t, s := range byType {
		if s != nil {
			r.senders[t] = s
		}
	}
	return r
}

// Send dispatches via the sender registered for the channel's type.
func (r *Registry) Send(ctx context.Context, offer model.Offer, ch model.ChannelConfig) error {
	s, ok := r.senders[ch.Type]
	if !ok {
		return fmt.Errorf("no sender registered for channel type %q", ch.Type)
	}
	return s.Send(ctx, offer, ch)
}
