// Package transport delivers encoded commands to the robot endpoint and
// manages the connection lifecycle on its own; the pipeline core never
// reacts to transport failures.
package transport

import (
	"errors"
	"log"
	"net"
	"sync"
	"time"
)

// RetryInterval is the fixed delay between reconnection attempts.
const RetryInterval = 3 * time.Second

// ErrNotConnected is returned by Send while no connection is established.
var ErrNotConnected = errors.New("transport not connected")

// State describes the connection lifecycle.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Failed
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Failed:
		return "failed"
	default:
		return "disconnected"
	}
}

// Sender is the transport collaborator consumed by the worker lane.
type Sender interface {
	// Send writes one encoded command. It never blocks on reconnection:
	// while the link is down it fails fast with ErrNotConnected.
	Send(data []byte) error

	// State reports the current connection lifecycle state.
	State() State

	Close() error
}

// TCPClient is a Sender over a plain TCP connection with autonomous
// reconnection at a fixed interval.
type TCPClient struct {
	addr string

	mu    sync.Mutex
	conn  net.Conn
	state State

	stop chan struct{}
	done chan struct{}
}

// NewTCPClient creates a client for addr ("host:port") and starts its
// reconnection loop immediately.
func NewTCPClient(addr string) *TCPClient {
	c := &TCPClient{
		addr:  addr,
		state: Disconnected,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go c.maintain()
	return c
}

// Send writes data on the current connection. A write failure marks the
// connection failed and leaves redialing to the maintenance loop.
func (c *TCPClient) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}

	if _, err := c.conn.Write(data); err != nil {
		c.conn.Close()
		c.conn = nil
		c.state = Failed
		return err
	}
	return nil
}

// State reports the connection lifecycle state.
func (c *TCPClient) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close stops the reconnection loop and drops the connection.
func (c *TCPClient) Close() error {
	close(c.stop)
	<-c.done

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.state = Disconnected
	return nil
}

// maintain redials whenever the connection is down, with a fixed retry
// interval between attempts.
func (c *TCPClient) maintain() {
	defer close(c.done)

	ticker := time.NewTicker(RetryInterval)
	defer ticker.Stop()

	c.dial()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			down := c.conn == nil
			c.mu.Unlock()
			if down {
				c.dial()
			}
		}
	}
}

func (c *TCPClient) dial() {
	c.mu.Lock()
	c.state = Connecting
	c.mu.Unlock()

	conn, err := net.DialTimeout("tcp", c.addr, RetryInterval)

	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.stop:
		if conn != nil {
			conn.Close()
		}
		return
	default:
	}

	if err != nil {
		c.state = Failed
		log.Printf("transport: dial %s: %v (retrying in %v)", c.addr, err, RetryInterval)
		return
	}

	c.conn = conn
	c.state = Connected
	log.Printf("transport: connected to %s", c.addr)
}
