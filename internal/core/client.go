package core

import "sync"

// DefaultQueueSize bounds the outbound lines buffered per client.
const DefaultQueueSize = 256

// Client is a connection handle as seen by the core layer. The transport owns
// the connection and drains Outbound into it.
type Client struct {
	ID   string
	Addr string

	mu       sync.Mutex
	outbound chan string
	closed   bool
	dropped  bool
}

// NewClient constructs a client with a bounded outbound queue.
func NewClient(id, addr string, queueSize int) *Client {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Client{
		ID:       id,
		Addr:     addr,
		outbound: make(chan string, queueSize),
	}
}

// Send enqueues a line without blocking. When the queue is full the consumer
// is too slow: the client is cut off and Send reports false.
func (c *Client) Send(line string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.outbound <- line:
		return true
	default:
		c.dropped = true
		c.closed = true
		close(c.outbound)
		return false
	}
}

// CloseAfterFlush stops accepting lines. Lines already queued are still
// delivered; the transport closes the connection once the queue drains.
func (c *Client) CloseAfterFlush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.outbound)
}

// Outbound is closed after CloseAfterFlush or when the client is cut off.
func (c *Client) Outbound() <-chan string {
	return c.outbound
}

// Closed reports whether the client no longer accepts lines.
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Dropped reports whether the client was cut off for falling behind.
func (c *Client) Dropped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}
