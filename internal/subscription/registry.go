// Package subscription keeps track of the channels a streaming client is
// subscribed to and sends the subscribe/unsubscribe control messages.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/alejoacosta74/coinbase-api/pkg/coinbase"
	"github.com/sirupsen/logrus"
)

// ErrInvalidArgument is returned for channels the venue does not know.
var ErrInvalidArgument = errors.New("invalid argument")

// Sender writes one control message to the websocket.
type Sender interface {
	Send(ctx context.Context, v interface{}) error
}

// MessageSigner fills the credential fields of a control message.
type MessageSigner interface {
	SignSubscription(msg *coinbase.SubscribeMessage) error
}

// Registry is the set of active channel subscriptions.
//
// One mutex covers the whole check, build, sign, send and record sequence,
// so two concurrent Subscribe calls for the same channel put exactly one
// message on the wire. Product lists are recorded as given: subscribing to a
// channel that is already active is a no-op even when the products differ.
type Registry struct {
	sender Sender
	signer MessageSigner

	mu     sync.Mutex
	active map[string][]string // channel -> product ids of the active subscription

	logger *logrus.Entry
}

// NewRegistry creates an empty registry. signer may be nil for
// unauthenticated public channels.
func NewRegistry(sender Sender, signer MessageSigner) *Registry {
	return &Registry{
		sender: sender,
		signer: signer,
		active: make(map[string][]string),
		logger: logrus.WithField("component", "subscription_registry"),
	}
}

// Subscribe sends a subscribe message for channel unless it is already active.
func (r *Registry) Subscribe(ctx context.Context, productIDs []string, channel string) error {
	ch, err := parse(channel)
	if err != nil {
		return err
	}
	key := ch.String()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.active[key]; ok {
		r.logger.Debugf("Already subscribed to %s", key)
		return nil
	}

	if err := r.send(ctx, coinbase.TypeSubscribe, ch, productIDs); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", key, err)
	}

	r.active[key] = append([]string(nil), productIDs...)
	r.logger.Infof("Subscribed to %s %v", key, productIDs)
	return nil
}

// Unsubscribe sends an unsubscribe message for channel when it is active.
func (r *Registry) Unsubscribe(ctx context.Context, productIDs []string, channel string) error {
	ch, err := parse(channel)
	if err != nil {
		return err
	}
	key := ch.String()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.active[key]; !ok {
		r.logger.Debugf("Not subscribed to %s", key)
		return nil
	}

	if err := r.send(ctx, coinbase.TypeUnsubscribe, ch, productIDs); err != nil {
		return fmt.Errorf("failed to unsubscribe from %s: %w", key, err)
	}

	delete(r.active, key)
	r.logger.Infof("Unsubscribed from %s %v", key, productIDs)
	return nil
}

// send builds, signs and writes a control message. Callers hold r.mu.
func (r *Registry) send(ctx context.Context, msgType string, ch coinbase.Channel, productIDs []string) error {
	msg := coinbase.NewSubscribeMessage(msgType, ch, productIDs)
	if r.signer != nil {
		if err := r.signer.SignSubscription(msg); err != nil {
			return fmt.Errorf("failed to sign message: %w", err)
		}
	}
	return r.sender.Send(ctx, msg)
}

// IsSubscribed reports whether channel is active.
func (r *Registry) IsSubscribed(channel string) bool {
	ch, ok := coinbase.ParseChannel(channel)
	if !ok {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok = r.active[ch.String()]
	return ok
}

// Products returns the product ids recorded for an active channel.
func (r *Registry) Products(channel string) []string {
	ch, ok := coinbase.ParseChannel(channel)
	if !ok {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.active[ch.String()]...)
}

// Active returns the active channel names, sorted.
func (r *Registry) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.active))
	for k := range r.active {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of active channels.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// Clear forgets every subscription without sending anything. It is called
// after the connection is gone, when the venue has already dropped them.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = make(map[string][]string)
}

func parse(channel string) (coinbase.Channel, error) {
	ch, ok := coinbase.ParseChannel(channel)
	if !ok {
		return 0, fmt.Errorf("unknown channel %q: %w", channel, ErrInvalidArgument)
	}
	return ch, nil
}
