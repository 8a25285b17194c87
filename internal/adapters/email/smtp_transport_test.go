package email

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voicebridge/callout-service/internal/domain"
)

func TestSMTPSendCancelledContext(t *testing.T) {
	tr := NewSMTPTransport("localhost", 2525, "user", "pass", "from@example.com")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tr.Send(ctx, "to@example.com", "subject", "<p>hi</p>")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDelivery))
}

func TestSMTPSendAbandonedOnCancellationMidDial(t *testing.T) {
	// A listener that accepts and stays silent leaves the handshake blocked
	// waiting for the server greeting.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, acceptErr := ln.Accept()
		if acceptErr == nil {
			defer conn.Close()
			time.Sleep(2 * time.Second)
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	tr := NewSMTPTransport("127.0.0.1", port, "user", "pass", "from@example.com")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = tr.Send(ctx, "to@example.com", "subject", "<p>hi</p>")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDelivery))
	assert.Less(t, time.Since(start), time.Second)
}

func TestSMTPSendConnectionRefused(t *testing.T) {
	// Grab a free port and close it so the dial is refused immediately.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	tr := NewSMTPTransport("127.0.0.1", port, "user", "pass", "from@example.com")

	err = tr.Send(context.Background(), "to@example.com", "subject", "<p>hi</p>")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDelivery))
}
