package smbkit

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupHandler(t *testing.T) {
	smb, ok := LookupHandler("smb")
	require.True(t, ok)
	assert.Equal(t, 445, smb.DefaultPort)
	assert.False(t, smb.UseTLS)

	smbs, ok := LookupHandler("smbs")
	require.True(t, ok)
	assert.Equal(t, 445, smbs.DefaultPort)
	assert.True(t, smbs.UseTLS)

	_, ok = LookupHandler("ftp")
	assert.False(t, ok)
}

func TestHandlerLifecycle(t *testing.T) {
	ms := NewMockServer()
	ms.AddFile("f.txt", []byte("payload"))

	h := NewHandler(testConfig())
	assert.Equal(t, ReadinessNone, h.SelectorHint())

	h.Connect(ms)
	assert.Equal(t, ReadinessRead, h.SelectorHint())

	ctx := context.Background()
	require.NoError(t, h.run(ctx, h.DriveConnection))

	var body bytes.Buffer
	require.NoError(t, h.Setup("/share/f.txt", RequestOptions{Sink: WriterSink(&body)}))
	require.NoError(t, h.run(ctx, h.DriveRequest))
	h.Done()

	assert.Equal(t, "payload", body.String())
	assert.Nil(t, h.req)

	h.Disconnect()
	assert.Equal(t, ReadinessNone, h.SelectorHint())
}

func TestHandlerDisconnectMidRequest(t *testing.T) {
	ms := NewMockServer()
	ms.AddFile("f.txt", []byte("payload"))

	h := NewHandler(testConfig())
	h.Connect(ms)
	require.NoError(t, h.run(context.Background(), h.DriveConnection))
	require.NoError(t, h.Setup("/share/f.txt", RequestOptions{Sink: WriterSink(&discard{})}))

	// Teardown without Done must not leak the request state.
	h.Disconnect()
	assert.Nil(t, h.req)
	assert.Nil(t, h.conn)
}
