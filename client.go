package smbkit

import (
	"context"
	"io"
)

// Client is a blocking convenience wrapper: it dials the server, runs the
// poll loop the readiness-driven engines expect, and exposes Download and
// Upload calls. Transfers on one Client are sequential; the underlying
// connection is reused across them while it stays healthy.
type Client struct {
	cfg     *Config
	handler *Handler
}

// Dial connects and authenticates a new client, retrying transient dial
// failures per the configured RetryPolicy.
func Dial(cfg *Config) (*Client, error) {
	return DialContext(context.Background(), cfg)
}

// DialContext is Dial with a context bounding connection establishment.
func DialContext(ctx context.Context, cfg *Config) (*Client, error) {
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{cfg: cfg}
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// connect dials the transport and drives the connection handshake to
// Connected, with retries around the whole attempt.
func (c *Client) connect(ctx context.Context) error {
	return withRetry(ctx, c.cfg, func() error {
		transport, err := dialTransport(c.cfg)
		if err != nil {
			return err
		}

		h := NewHandler(c.cfg)
		h.Connect(transport)
		if err := h.run(ctx, h.DriveConnection); err != nil {
			h.Disconnect()
			return err
		}
		c.handler = h
		return nil
	})
}

// Download fetches the file at urlPath ("/share/path/to/file") into w and
// returns the number of body bytes received.
func (c *Client) Download(ctx context.Context, urlPath string, w io.Writer) (int64, error) {
	return c.transfer(ctx, urlPath, RequestOptions{
		Sink:     WriterSink(w),
		Progress: c.progress(),
	})
}

// Upload writes size bytes from r to the file at urlPath, creating or
// overwriting it, and returns the number of body bytes sent.
func (c *Client) Upload(ctx context.Context, urlPath string, r io.Reader, size int64) (int64, error) {
	return c.transfer(ctx, urlPath, RequestOptions{
		Upload:   true,
		Size:     size,
		Source:   ReaderSource(r),
		Progress: c.progress(),
	})
}

// Transfer runs a single request with explicit options; most callers use
// Download or Upload instead.
func (c *Client) Transfer(ctx context.Context, urlPath string, opts RequestOptions) (int64, error) {
	return c.transfer(ctx, urlPath, opts)
}

func (c *Client) transfer(ctx context.Context, urlPath string, opts RequestOptions) (int64, error) {
	if c.handler == nil {
		return 0, ErrConnectionClosed
	}
	if c.cfg.OpTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.OpTimeout)
		defer cancel()
	}

	if err := c.handler.Setup(urlPath, opts); err != nil {
		return 0, wrapTransferError("setup", urlPath, err)
	}

	req := c.handler.req
	err := c.handler.run(ctx, c.handler.DriveRequest)
	n := req.BytesTransferred()
	finished := req.State() == StateDone
	c.handler.Done()

	if err != nil {
		// Protocol failures that ran the graceful close/disconnect
		// sequence leave the connection Connected and reusable. An
		// aborted exchange would desynchronize the strict
		// request/response ordering, so tear the connection down.
		conn := c.handler.conn
		if !finished || conn == nil || !conn.Connected() || conn.closed {
			c.Close()
		}
		return n, wrapTransferError(opName(opts.Upload), urlPath, err)
	}
	return n, nil
}

// progress returns the Progress collaborator for Download and Upload,
// which discards all counters.
func (c *Client) progress() Progress {
	return nopProgress{}
}

// Close tears down the connection. The client cannot be reused after.
func (c *Client) Close() error {
	if c.handler != nil {
		c.handler.Disconnect()
		c.handler = nil
	}
	return nil
}

func opName(upload bool) string {
	if upload {
		return "upload"
	}
	return "download"
}
