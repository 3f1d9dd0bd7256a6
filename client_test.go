package smbkit

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveMock listens on a loopback port and bridges accepted connections
// to the mock server, so the blocking Client runs against real sockets.
func serveMock(t *testing.T, ms *MockServer) (host string, port int) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go pumpMock(conn, ms)
		}
	}()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err = strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

// pumpMock shuttles bytes between a socket and the mock server until the
// peer hangs up.
func pumpMock(conn net.Conn, ms *MockServer) {
	defer conn.Close()

	in := make([]byte, 4096)
	out := make([]byte, 4096)
	for {
		conn.SetReadDeadline(time.Now().Add(5 * time.Millisecond))
		n, err := conn.Read(in)
		if n > 0 {
			if _, werr := ms.Write(in[:n]); werr != nil {
				return
			}
		}
		if err != nil && !isTimeout(err) {
			return
		}

		for {
			on, _ := ms.Read(out)
			if on == 0 {
				break
			}
			if _, err := conn.Write(out[:on]); err != nil {
				return
			}
		}
	}
}

func mockClientConfig(host string, port int) *Config {
	return &Config{
		Host:     host,
		Port:     port,
		Username: "user",
		Password: "Password",
		PID:      func() uint32 { return 42 },
	}
}

func TestClientDownload(t *testing.T) {
	ms := NewMockServer()
	ms.AddFile("hello.txt", []byte("hello world"))
	host, port := serveMock(t, ms)

	client, err := Dial(mockClientConfig(host, port))
	require.NoError(t, err)
	defer client.Close()

	var body bytes.Buffer
	n, err := client.Download(context.Background(), "/public/hello.txt", &body)
	require.NoError(t, err)

	assert.Equal(t, int64(11), n)
	assert.Equal(t, "hello world", body.String())
}

func TestClientUpload(t *testing.T) {
	ms := NewMockServer()
	host, port := serveMock(t, ms)

	client, err := Dial(mockClientConfig(host, port))
	require.NoError(t, err)
	defer client.Close()

	n, err := client.Upload(context.Background(), "/public/up.txt", strings.NewReader("abc"), 3)
	require.NoError(t, err)

	assert.Equal(t, int64(3), n)
	assert.Equal(t, []byte("abc"), ms.FileContents("up.txt"))
}

func TestClientSequentialTransfers(t *testing.T) {
	ms := NewMockServer()
	ms.AddFile("a.txt", []byte("aaa"))
	ms.AddFile("b.txt", []byte("bbbb"))
	host, port := serveMock(t, ms)

	client, err := Dial(mockClientConfig(host, port))
	require.NoError(t, err)
	defer client.Close()

	var a, b bytes.Buffer
	_, err = client.Download(context.Background(), "/share/a.txt", &a)
	require.NoError(t, err)
	_, err = client.Download(context.Background(), "/share/b.txt", &b)
	require.NoError(t, err)

	assert.Equal(t, "aaa", a.String())
	assert.Equal(t, "bbbb", b.String())

	// One connection, one session: a single NEGOTIATE in the log.
	negotiates := 0
	for _, cmd := range ms.CommandLog() {
		if cmd == SMB1_COM_NEGOTIATE {
			negotiates++
		}
	}
	assert.Equal(t, 1, negotiates)
}

func TestClientLoginDenied(t *testing.T) {
	ms := NewMockServer()
	ms.Statuses[SMB1_COM_SETUP_ANDX] = STATUS_LOGON_FAILURE
	host, port := serveMock(t, ms)

	_, err := Dial(mockClientConfig(host, port))
	require.ErrorIs(t, err, ErrLoginDenied)
}

func TestClientFileNotFound(t *testing.T) {
	ms := NewMockServer()
	host, port := serveMock(t, ms)

	client, err := Dial(mockClientConfig(host, port))
	require.NoError(t, err)
	defer client.Close()

	var body bytes.Buffer
	_, err = client.Download(context.Background(), "/share/missing.txt", &body)
	require.ErrorIs(t, err, ErrFileNotFound)

	var te *TransferError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "/share/missing.txt", te.Path)
}

func TestClientMalformedPath(t *testing.T) {
	ms := NewMockServer()
	host, port := serveMock(t, ms)

	client, err := Dial(mockClientConfig(host, port))
	require.NoError(t, err)
	defer client.Close()

	var body bytes.Buffer
	_, err = client.Download(context.Background(), "/shareonly", &body)
	require.ErrorIs(t, err, ErrURLMalformed)
}

func TestClientDialRefused(t *testing.T) {
	// An unused port refuses immediately; the dial must not hang.
	cfg := &Config{
		Host:        "127.0.0.1",
		Port:        1, // almost certainly closed
		Username:    "user",
		Password:    "pw",
		ConnTimeout: 500 * time.Millisecond,
		RetryPolicy: &RetryPolicy{MaxAttempts: 1},
	}

	_, err := Dial(cfg)
	require.Error(t, err)
}

func TestClientContextCancel(t *testing.T) {
	ms := NewMockServer()
	ms.AddFile("f.txt", []byte("x"))
	host, port := serveMock(t, ms)

	client, err := Dial(mockClientConfig(host, port))
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var body bytes.Buffer
	_, err = client.Download(ctx, "/share/f.txt", &body)
	require.ErrorIs(t, err, context.Canceled)
}
