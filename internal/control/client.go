package control

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Client sends modes to a Listener
type Client struct {
	conn net.Conn
}

// Dial connects to the control listener at addr
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Send writes one mode. Messages have no delimiter, so two sends in quick
// succession may reach the listener as one chunk; callers that send
// back-to-back should pace them.
func (c *Client) Send(m int) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
		return err
	}
	if _, err := c.conn.Write([]byte(strconv.Itoa(m))); err != nil {
		return fmt.Errorf("send mode %d: %w", m, err)
	}
	return nil
}

// Close closes the connection
func (c *Client) Close() error {
	return c.conn.Close()
}
