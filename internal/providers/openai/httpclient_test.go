package openai

import (
	"errors"
	"net"
	"net/http"
	"testing"
	"time"
)

func TestNewHTTPClientConfiguresHTTP2(t *testing.T) {
	t.Parallel()

	client, err := NewHTTPClient(0)
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	tr, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("unexpected transport %T", client.Transport)
	}
	if _, ok := tr.TLSNextProto["h2"]; !ok {
		t.Fatalf("expected h2 to be negotiated over TLS")
	}
	if tr.TLSHandshakeTimeout != DefaultConnectTimeout {
		t.Fatalf("unexpected handshake timeout: %v", tr.TLSHandshakeTimeout)
	}
	if client.Timeout != 0 {
		t.Fatalf("streaming client must not carry an overall timeout")
	}
}

func TestDeadlineConnTimesOutStalledWrites(t *testing.T) {
	t.Parallel()

	local, remote := net.Pipe()
	defer local.Close()
	defer remote.Close()

	conn := &deadlineConn{Conn: local, writeTimeout: 20 * time.Millisecond}
	start := time.Now()
	_, err := conn.Write([]byte("POST /v1/chat/completions"))
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Fatalf("expected write timeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("write deadline not applied, blocked for %v", elapsed)
	}
}

func TestDeadlineConnRefreshesDeadlinePerWrite(t *testing.T) {
	t.Parallel()

	local, remote := net.Pipe()
	defer local.Close()
	defer remote.Close()

	go func() {
		buf := make([]byte, 16)
		for {
			if _, err := remote.Read(buf); err != nil {
				return
			}
		}
	}()

	conn := &deadlineConn{Conn: local, writeTimeout: 50 * time.Millisecond}
	for i := 0; i < 3; i++ {
		time.Sleep(30 * time.Millisecond)
		if _, err := conn.Write([]byte("chunk")); err != nil {
			t.Fatalf("write %d failed: %v", i, err)
		}
	}
}
