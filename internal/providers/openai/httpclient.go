package openai

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

const (
	// DefaultConnectTimeout bounds dialing and the TLS handshake.
	DefaultConnectTimeout = 10 * time.Second
	// DefaultTranscribeReadTimeout tolerates slow first-token latency from ASR models.
	DefaultTranscribeReadTimeout = 120 * time.Second
	// DefaultCompleteReadTimeout applies to refinement and translation streams.
	DefaultCompleteReadTimeout = 60 * time.Second
	// DefaultPoolTimeout bounds how long idle keep-alive connections are retained.
	DefaultPoolTimeout = 10 * time.Second
	// DefaultWriteTimeout bounds each write of a request to the socket.
	DefaultWriteTimeout = 10 * time.Second
)

// NewHTTPClient returns a client tuned for long-lived SSE responses.
// No overall Client.Timeout is set; streams are bounded by an idle read watchdog instead.
func NewHTTPClient(connectTimeout time.Duration) (*http.Client, error) {
	tr := newTransport(connectTimeout, DefaultWriteTimeout)
	if err := http2.ConfigureTransport(tr); err != nil {
		return nil, fmt.Errorf("configure http2: %w", err)
	}
	return &http.Client{Transport: tr}, nil
}

func newTransport(connectTimeout, writeTimeout time.Duration) *http.Transport {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	dialer := &net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return &deadlineConn{Conn: conn, writeTimeout: writeTimeout}, nil
		},
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		IdleConnTimeout:       DefaultPoolTimeout,
		TLSHandshakeTimeout:   connectTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// deadlineConn arms a fresh write deadline before every write.
type deadlineConn struct {
	net.Conn
	writeTimeout time.Duration
}

func (c *deadlineConn) Write(p []byte) (int, error) {
	if c.writeTimeout > 0 {
		if err := c.Conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Write(p)
}
