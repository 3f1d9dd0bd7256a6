package smbkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		Host:     "server",
		Username: "user",
		Password: "Password",
		PID:      func() uint32 { return 0x00015678 },
	}
}

// driveToConnected runs the connection state machine until session setup
// completes.
func driveToConnected(t *testing.T, c *Conn) {
	t.Helper()
	for i := 0; i < 100; i++ {
		done, err := c.DriveConnection()
		require.NoError(t, err)
		if done {
			return
		}
	}
	t.Fatal("connection never reached Connected")
}

func newConnectedConn(t *testing.T, ms *MockServer) *Conn {
	t.Helper()
	c := NewConn(testConfig(), ms)
	driveToConnected(t, c)
	return c
}

func TestConnHandshake(t *testing.T) {
	ms := NewMockServer()
	c := NewConn(testConfig(), ms)

	assert.Equal(t, StateConnecting, c.State())
	driveToConnected(t, c)

	assert.Equal(t, StateConnected, c.State())
	assert.True(t, c.Connected())
	assert.Equal(t, ms.UID, c.uid)
	assert.Equal(t, ms.SessionKey, c.sessionKey)
	assert.Equal(t, ms.Challenge, c.challenge)
	assert.Equal(t, []SMB1Command{SMB1_COM_NEGOTIATE, SMB1_COM_SETUP_ANDX}, ms.Commands)
}

func TestConnNegotiateRejected(t *testing.T) {
	ms := NewMockServer()
	ms.Statuses[SMB1_COM_NEGOTIATE] = STATUS_ACCESS_DENIED

	c := NewConn(testConfig(), ms)

	var err error
	for i := 0; i < 100 && err == nil; i++ {
		_, err = c.DriveConnection()
	}
	require.ErrorIs(t, err, ErrCouldNotConnect)
	assert.NotContains(t, ms.Commands, SMB1_COM_SETUP_ANDX)
}

func TestConnLoginDenied(t *testing.T) {
	ms := NewMockServer()
	ms.Statuses[SMB1_COM_SETUP_ANDX] = STATUS_LOGON_FAILURE

	c := NewConn(testConfig(), ms)

	var err error
	for i := 0; i < 100 && err == nil; i++ {
		_, err = c.DriveConnection()
	}
	require.ErrorIs(t, err, ErrLoginDenied)

	// No request traffic may follow a failed login.
	assert.NotContains(t, ms.Commands, SMB1_COM_TREE_CONNECT_ANDX)
}

func TestConnUserDomainSplit(t *testing.T) {
	tests := []struct {
		name       string
		username   string
		wantUser   string
		wantDomain string
	}{
		{"plain user defaults to host domain", "jdoe", "jdoe", "server"},
		{"backslash separator", `CORP\jdoe`, "jdoe", "CORP"},
		{"forward slash separator", "CORP/jdoe", "jdoe", "CORP"},
		{"empty user", "", "", "server"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Username = tt.username

			c := NewConn(cfg, NewMockServer())
			assert.Equal(t, tt.wantUser, c.user)
			assert.Equal(t, tt.wantDomain, c.domain)
		})
	}
}

func TestConnPartialSend(t *testing.T) {
	ms := NewMockServer()
	// First write takes 7 bytes, the second nothing, the third the rest.
	ms.WriteLimits = []int{7, 0}

	c := NewConn(testConfig(), ms)

	done, err := c.DriveConnection()
	require.NoError(t, err)
	require.False(t, done)

	// The short write (and the zero-byte flush that followed) leave
	// bytes queued: the selector must ask for write readiness and the
	// engine must not start a new encode.
	assert.Equal(t, ReadinessWrite, c.SelectorHint())
	assert.Greater(t, c.sendSize, 0)
	assert.Equal(t, 7, c.sent)

	// Subsequent drives drain the queue and the handshake proceeds.
	driveToConnected(t, c)
	assert.Equal(t, 0, c.sendSize)
	assert.Equal(t, ReadinessRead, c.SelectorHint())
}

func TestConnBufferDiscipline(t *testing.T) {
	ms := NewMockServer()
	ms.WriteLimits = []int{3, 5, 0, 10}
	ms.ReadChunk = 9 // responses dribble in

	c := NewConn(testConfig(), ms)

	for i := 0; i < 200; i++ {
		done, err := c.DriveConnection()
		require.NoError(t, err)

		require.LessOrEqual(t, c.sent, c.sendSize, "sent may never pass send_size")
		require.LessOrEqual(t, c.got, len(c.recvBuf), "got may never pass capacity")

		if done {
			return
		}
	}
	t.Fatal("connection never reached Connected")
}

func TestConnSelectorHint(t *testing.T) {
	ms := NewMockServer()
	c := NewConn(testConfig(), ms)
	assert.Equal(t, ReadinessRead, c.SelectorHint())

	driveToConnected(t, c)
	assert.Equal(t, ReadinessRead, c.SelectorHint())

	c.Close()
	assert.Equal(t, ReadinessNone, c.SelectorHint())
}

func TestConnCloseReleasesRequest(t *testing.T) {
	ms := NewMockServer()
	ms.AddFile("f.txt", []byte("data"))
	c := newConnectedConn(t, ms)

	req, err := c.NewRequest("/share/f.txt", RequestOptions{Sink: WriterSink(&discard{})})
	require.NoError(t, err)

	// Disconnect before the request reaches Done; the request state must
	// be released anyway.
	c.Close()
	assert.Nil(t, c.req)
	assert.Nil(t, req.conn)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
