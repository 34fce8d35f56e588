package messaging

import (
	"context"
	"time"
)

// InProcess is a channel-backed Client for single-binary runs and tests.
type InProcess struct {
	topic string
	ch    chan Message
}

// NewInProcess returns a client buffering up to size messages.
func NewInProcess(topic string, size int) *InProcess {
	return &InProcess{topic: topic, ch: make(chan Message, size)}
}

func (c *InProcess) Publish(ctx context.Context, key []byte, value []byte) error {
	msg := Message{Topic: c.topic, Key: key, Value: value, Time: time.Now()}
	select {
	case c.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume delivers messages until ctx is done. Handler errors are not
// redelivered.
func (c *InProcess) Consume(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-c.ch:
			_ = handler(ctx, msg)
		}
	}
}

func (c *InProcess) Topic() string { return c.topic }
