package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dyluth/papernet/pkg/paper"
)

var _ paper.Publisher = (*Client)(nil)

// Publish sends event as JSON to papernet:{instance}:paper_events.
func (c *Client) Publish(ctx context.Context, event paper.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal paper event: %w", err)
	}

	channel := PaperEventsChannel(c.instanceName)
	if err := c.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish paper event: %w", err)
	}
	return nil
}

// Subscription represents an active Pub/Sub subscription to paper events.
// Caller must call Close() when done to clean up resources.
type Subscription struct {
	events <-chan *paper.Event
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of paper events.
// The channel is closed when the subscription is closed or the context is cancelled.
func (s *Subscription) Events() <-chan *paper.Event {
	return s.events
}

// Errors returns the channel of non-fatal subscription errors.
// Undecodable messages are reported here and skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription. Safe to call multiple times.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribePaperEvents subscribes to events published for this instance.
// Delivery is at-most-once: a subscriber that is not connected when an event
// is published never sees it.
func (c *Client) SubscribePaperEvents(ctx context.Context) (*Subscription, error) {
	channel := PaperEventsChannel(c.instanceName)
	pubsub := c.rdb.Subscribe(ctx, channel)

	// Wait for the subscription to be confirmed so no event published after
	// this call returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to paper events: %w", err)
	}

	eventsChan := make(chan *paper.Event, 10)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var event paper.Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal paper event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &event:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}
