package control

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudu/facemode/internal/mode"
)

func startListener(t *testing.T) (*Listener, *mode.Channel, <-chan error, context.CancelFunc) {
	t.Helper()

	modes := mode.NewChannel()
	l, err := Listen("127.0.0.1:0", modes)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		l.Close()
	})
	return l, modes, done, cancel
}

func dial(t *testing.T, l *Listener) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	c, err := Dial(ctx, l.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func waitMode(t *testing.T, modes *mode.Channel, want int) {
	t.Helper()
	assert.Eventually(t, func() bool { return modes.Get() == want },
		2*time.Second, 5*time.Millisecond, "mode never became %d", want)
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"1", 1, false},
		{"0", 0, false},
		{"5\n", 5, false},
		{" 12 ", 12, false},
		{"-3", -3, false},
		{"", 0, true},
		{"\n", 0, true},
		{"abc", 0, true},
		{"1a", 0, true},
		{"1.5", 0, true},
		{"99999999999999999999999", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode([]byte(tt.in))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedMessage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestListenerSetsMode(t *testing.T) {
	l, modes, _, _ := startListener(t)
	c := dial(t, l)

	require.NoError(t, c.Send(3))
	waitMode(t, modes, 3)
}

func TestListenerSurvivesMalformedMessage(t *testing.T) {
	l, modes, _, _ := startListener(t)
	c := dial(t, l)

	require.NoError(t, c.Send(2))
	waitMode(t, modes, 2)

	_, err := c.conn.Write([]byte("abc"))
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, modes.Get(), "malformed message changed the mode")

	require.NoError(t, c.Send(4))
	waitMode(t, modes, 4)
}

func TestListenerDiscardsOversizedMessage(t *testing.T) {
	l, modes, _, _ := startListener(t)
	c := dial(t, l)

	require.NoError(t, c.Send(2))
	waitMode(t, modes, 2)

	// every prefix and suffix of this parses as an integer
	_, err := c.conn.Write([]byte(strings.Repeat("0", 70) + "7"))
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, modes.Get(), "oversized message changed the mode")

	require.NoError(t, c.Send(4))
	waitMode(t, modes, 4)
}

func TestListenerReacceptsAfterDisconnect(t *testing.T) {
	l, modes, _, _ := startListener(t)

	first := dial(t, l)
	require.NoError(t, first.Send(1))
	waitMode(t, modes, 1)
	require.NoError(t, first.Close())

	second := dial(t, l)
	require.NoError(t, second.Send(7))
	waitMode(t, modes, 7)
}

func TestServeStopsWithConnectedPeer(t *testing.T) {
	l, _, done, cancel := startListener(t)
	dial(t, l)
	time.Sleep(20 * time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServeAfterClose(t *testing.T) {
	l, _, done, _ := startListener(t)

	require.NoError(t, l.Close())
	require.NoError(t, l.Close(), "close is idempotent")

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrListenerClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Close")
	}
}
