package smbkit

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/absfs/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderSourceEOF(t *testing.T) {
	src := ReaderSource(bytes.NewReader([]byte("ab")))

	buf := make([]byte, 8)
	n, err := src.Fill(buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Exhaustion reads as "no data available", not an error: the upload
	// loop is bounded by the declared size.
	n, err = src.Fill(buf)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := WriterSink(&buf)

	n, err := sink.Write([]byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, "payload", buf.String())
}

func TestFileSinkAndSource(t *testing.T) {
	fs, err := memfs.NewFS()
	require.NoError(t, err)

	// Download into an absfs file.
	f, err := fs.OpenFile("/downloaded.txt", os.O_CREATE|os.O_WRONLY, 0644)
	require.NoError(t, err)
	sink := FileSink(f)
	_, err = sink.Write([]byte("from the wire"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	// Upload out of the same file.
	f, err = fs.OpenFile("/downloaded.txt", os.O_RDONLY, 0)
	require.NoError(t, err)
	defer f.Close()

	source := FileSource(f)
	buf := make([]byte, 64)
	n, err := source.Fill(buf)
	require.NoError(t, err)
	assert.Equal(t, "from the wire", string(buf[:n]))

	n, err = source.Fill(buf)
	require.NoError(t, err)
	assert.Zero(t, n, "EOF reads as no data")
}

func TestMockServerRoundTripThroughMemfs(t *testing.T) {
	// An upload driven through the engine lands in the mock's filesystem
	// and can be downloaded back unchanged.
	ms := NewMockServer()
	c := newConnectedConn(t, ms)

	content := []byte("round trip payload")
	req, err := c.NewRequest("/share/rt.bin", RequestOptions{
		Upload: true,
		Size:   int64(len(content)),
		Source: ReaderSource(bytes.NewReader(content)),
	})
	require.NoError(t, err)
	require.NoError(t, driveRequest(t, req))
	req.Done()

	var back bytes.Buffer
	req, err = c.NewRequest("/share/rt.bin", RequestOptions{Sink: WriterSink(&back)})
	require.NoError(t, err)
	require.NoError(t, driveRequest(t, req))
	req.Done()

	assert.Equal(t, content, back.Bytes())
}

var _ io.Writer = WriterSink(nil)
