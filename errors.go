package smbkit

import (
	"errors"
	"fmt"
)

var (
	// ErrURLMalformed indicates the URL path has no share/path separator.
	ErrURLMalformed = errors.New("malformed URL: missing share or path")

	// ErrSizeExceeded indicates an encoded message would not fit its
	// frame: credentials too long for SESSION_SETUP_ANDX, host and share
	// too long for TREE_CONNECT_ANDX, or a path too long for
	// NT_CREATE_ANDX.
	ErrSizeExceeded = errors.New("encoded message exceeds frame size")

	// ErrCouldNotConnect indicates the server rejected NEGOTIATE.
	ErrCouldNotConnect = errors.New("could not connect: negotiation failed")

	// ErrLoginDenied indicates the server rejected SESSION_SETUP_ANDX.
	ErrLoginDenied = errors.New("login denied")

	// ErrAccessDenied indicates TREE_CONNECT_ANDX failed with a
	// no-access status.
	ErrAccessDenied = errors.New("remote access denied")

	// ErrFileNotFound indicates the share or file could not be opened.
	ErrFileNotFound = errors.New("remote file not found")

	// ErrRecvFailed indicates a READ_ANDX failed mid-download.
	ErrRecvFailed = errors.New("receive error during download")

	// ErrUploadFailed indicates a WRITE_ANDX failed mid-upload.
	ErrUploadFailed = errors.New("upload failed")

	// ErrMalformedFrame indicates a response whose declared block sizes
	// overrun the NetBIOS frame.
	ErrMalformedFrame = errors.New("malformed message frame")

	// ErrConnectionClosed indicates the connection has been torn down.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrPoolExhausted indicates no pooled connection became available.
	ErrPoolExhausted = errors.New("connection pool exhausted")

	// ErrRequestInFlight indicates a second request was attempted while
	// one is still active; a connection carries one request at a time.
	ErrRequestInFlight = errors.New("a request is already in flight")
)

// errAgain signals the drive functions that the engine is waiting for
// socket readiness. It never escapes to callers.
var errAgain = errors.New("again")

// TransferError records an error together with the operation and remote
// path that caused it.
type TransferError struct {
	Op   string
	Path string
	Err  error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// wrapTransferError wraps an error with operation and path information.
func wrapTransferError(op, path string, err error) error {
	if err == nil {
		return nil
	}

	// Don't double-wrap errors for the same path.
	var te *TransferError
	if errors.As(err, &te) && te.Path == path {
		return err
	}

	return &TransferError{
		Op:   op,
		Path: path,
		Err:  err,
	}
}

// statusError maps a nonzero tree-connect status to the caller-facing
// error: a no-access status is access denied, anything else reads as the
// share not existing.
func statusError(status NTStatus) error {
	if status == SMB_ERR_NOACCESS || status == STATUS_ACCESS_DENIED {
		return ErrAccessDenied
	}
	return ErrFileNotFound
}

// netError interface for network errors.
type netError interface {
	Timeout() bool
	Temporary() bool
}

// isRetryable returns true if the error indicates a transient failure that
// might succeed if the connection is re-dialed. Protocol-level failures
// (bad credentials, missing files, malformed frames) are never retried.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	var netErr netError
	if errors.As(err, &netErr) {
		if netErr.Temporary() || netErr.Timeout() {
			return true
		}
	}

	switch {
	case errors.Is(err, ErrConnectionClosed):
		return true
	case errors.Is(err, ErrPoolExhausted):
		return true
	}

	unwrapped := errors.Unwrap(err)
	if unwrapped != nil && unwrapped != err {
		return isRetryable(unwrapped)
	}

	return false
}
