package smbkit

import (
	"io"

	"github.com/absfs/absfs"
)

// BodySink receives downloaded body data. Write must consume the whole
// slice or return an error.
type BodySink interface {
	Write(p []byte) (int, error)
}

// BodySource supplies upload body data. Fill reads up to len(p) bytes and
// returns the count; returning 0 with a nil error means no data is
// available yet and the engine will ask again on the next drive. Transfer
// completion is governed by the declared upload size, not by Fill.
type BodySource interface {
	Fill(p []byte) (int, error)
}

// WriterSink adapts any io.Writer into a BodySink.
func WriterSink(w io.Writer) BodySink {
	return writerSink{w}
}

type writerSink struct {
	w io.Writer
}

func (s writerSink) Write(p []byte) (int, error) {
	return s.w.Write(p)
}

// ReaderSource adapts any io.Reader into a BodySource. io.EOF is reported
// as zero bytes available; the declared upload size decides when the
// transfer is complete.
func ReaderSource(r io.Reader) BodySource {
	return &readerSource{r}
}

type readerSource struct {
	r io.Reader
}

func (s *readerSource) Fill(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err == io.EOF {
		return n, nil
	}
	return n, err
}

// FileSink streams a download into an absfs.File.
func FileSink(f absfs.File) BodySink {
	return writerSink{f}
}

// FileSource reads upload data from an absfs.File.
func FileSource(f absfs.File) BodySource {
	return &readerSource{f}
}
