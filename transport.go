package smbkit

import (
	"crypto/tls"
	"net"
	"time"
)

// Transport is the non-blocking byte stream the protocol engines drive.
// Read returns the bytes currently available, 0 when none are ready.
// Write accepts as much as the stream can take without blocking and
// returns the count, which may be short or zero. Neither call may block
// indefinitely.
type Transport interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// Handshaker is implemented by transports that must complete a handshake
// before SMB traffic can flow (TLS for the smbs scheme). The connection
// engine drives Handshake from its Connecting phase until done.
type Handshaker interface {
	Handshake() (bool, error)
}

// pollInterval bounds how long a single transport call may wait for the
// socket; it is what turns blocking net.Conn I/O into the readiness
// semantics the engines expect.
const pollInterval = 50 * time.Millisecond

// netTransport adapts a net.Conn to the Transport interface using short
// deadlines: a deadline expiry reads as "no bytes ready" rather than an
// error.
type netTransport struct {
	conn net.Conn
}

// NewNetTransport wraps a net.Conn for use with the protocol engines.
func NewNetTransport(conn net.Conn) Transport {
	return &netTransport{conn: conn}
}

func (t *netTransport) Read(p []byte) (int, error) {
	t.conn.SetReadDeadline(time.Now().Add(pollInterval))
	n, err := t.conn.Read(p)
	if isTimeout(err) {
		return n, nil
	}
	return n, err
}

func (t *netTransport) Write(p []byte) (int, error) {
	t.conn.SetWriteDeadline(time.Now().Add(pollInterval))
	n, err := t.conn.Write(p)
	if isTimeout(err) {
		return n, nil
	}
	return n, err
}

func (t *netTransport) Close() error {
	return t.conn.Close()
}

// tlsTransport layers TLS over a netTransport and exposes the handshake
// to the connection engine.
type tlsTransport struct {
	netTransport
	tconn *tls.Conn
	done  bool
}

// NewTLSTransport wraps conn in a TLS client session for smbs. The
// handshake is not started here; the connection engine drives it.
func NewTLSTransport(conn net.Conn, tlsCfg *tls.Config) Transport {
	tconn := tls.Client(conn, tlsCfg)
	return &tlsTransport{
		netTransport: netTransport{conn: tconn},
		tconn:        tconn,
	}
}

func (t *tlsTransport) Handshake() (bool, error) {
	if t.done {
		return true, nil
	}
	t.tconn.SetDeadline(time.Now().Add(pollInterval))
	err := t.tconn.Handshake()
	t.tconn.SetDeadline(time.Time{})
	if isTimeout(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	t.done = true
	return true, nil
}

func (t *tlsTransport) Close() error {
	return t.tconn.Close()
}

// dialTransport establishes the TCP connection (and TLS layering for
// smbs) described by cfg.
func dialTransport(cfg *Config) (Transport, error) {
	conn, err := net.DialTimeout("tcp", cfg.addr(), cfg.ConnTimeout)
	if err != nil {
		return nil, err
	}
	if cfg.UseTLS {
		tlsCfg := cfg.TLSConfig
		if tlsCfg == nil {
			tlsCfg = &tls.Config{ServerName: cfg.Host}
		}
		return NewTLSTransport(conn, tlsCfg), nil
	}
	return NewNetTransport(conn), nil
}

// closeTransport closes the underlying socket if the transport exposes a
// Close method.
func closeTransport(t Transport) {
	if c, ok := t.(interface{ Close() error }); ok {
		c.Close()
	}
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
