package axon

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

const DefaultAddr = "127.0.0.1:3001"

// Sender pushes a message under a topic.
type Sender interface {
	Send(ctx context.Context, topic string, msg any) error
	Close() error
}

// Noop discards every message. It is used when no axon socket is
// configured.
type Noop struct{}

func (Noop) Send(context.Context, string, any) error { return nil }

func (Noop) Close() error { return nil }

// Client is a push socket connected to a single axon peer.
type Client struct {
	addr string
	conn net.Conn
	mu   sync.Mutex
}

// Dial connects to the axon socket at addr.
func Dial(ctx context.Context, addr string, timeout time.Duration) (*Client, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("addr", addr)
	log.V(1).Info("connecting to axon socket")

	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		log.Error(err, "failed to connect to axon socket")
		return nil, fmt.Errorf("connecting to axon socket '%s': %w", addr, err)
	}
	return &Client{addr: addr, conn: conn}, nil
}

// Send writes one frame holding the topic and the message.
func (c *Client) Send(ctx context.Context, topic string, msg any) error {
	frame, err := Encode(topic, msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// zero when the context has no deadline
	deadline, _ := ctx.Deadline()
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if _, err := c.conn.Write(frame); err != nil {
		return fmt.Errorf("writing to axon socket '%s': %w", c.addr, err)
	}
	logr.FromContextOrDiscard(ctx).V(2).Info("sent message", "addr", c.addr, "topic", topic, "size", len(frame))
	return nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}
