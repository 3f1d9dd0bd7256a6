package smbkit

// ConnState is the connection-establishment phase.
type ConnState int

const (
	// StateConnecting waits for the TCP (and TLS) layer.
	StateConnecting ConnState = iota
	// StateNegotiate has sent NEGOTIATE and awaits the dialect response.
	StateNegotiate
	// StateSetup has sent SESSION_SETUP_ANDX and awaits authentication.
	StateSetup
	// StateConnected is ready to carry requests, reusable across
	// sequential transfers.
	StateConnected
)

// String returns the state name.
func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateNegotiate:
		return "Negotiate"
	case StateSetup:
		return "Setup"
	case StateConnected:
		return "Connected"
	default:
		return "Unknown"
	}
}

// Readiness is the socket event the engine needs next.
type Readiness int

const (
	// ReadinessNone: no socket to watch.
	ReadinessNone Readiness = iota
	// ReadinessRead: a response is pending.
	ReadinessRead
	// ReadinessWrite: a partially sent message is queued.
	ReadinessWrite
)

// Conn owns one SMB connection's protocol state: the fixed send and
// receive buffers, the partial-send bookkeeping, the negotiated NTLM
// challenge and the server-assigned user id. One request at a time rides
// on a Conn (MPX=1); the connection stays Connected between requests.
type Conn struct {
	cfg       *Config
	transport Transport
	state     ConnState

	sendBuf []byte
	recvBuf []byte
	got      int // bytes accumulated in recvBuf
	sendSize int // total bytes queued when a send came up short
	sent     int // bytes already written of the queued send

	uid        uint16
	sessionKey uint32
	challenge  [8]byte

	user   string
	domain string
	pid    uint32

	req    *Request
	closed bool
}

// NewConn creates a connection engine over an established transport and
// derives the NTLM user and domain from the configured credentials. The
// engine starts in Connecting and is advanced with DriveConnection.
func NewConn(cfg *Config, transport Transport) *Conn {
	cfg.setDefaults()

	c := &Conn{
		cfg:       cfg,
		transport: transport,
		state:     StateConnecting,
		sendBuf:   make([]byte, MaxMessageSize),
		recvBuf:   make([]byte, MaxMessageSize),
	}
	c.user, c.domain = cfg.splitUserDomain()
	c.pid = cfg.PID()
	return c
}

// State returns the connection phase.
func (c *Conn) State() ConnState {
	return c.state
}

// Connected reports whether session setup has completed.
func (c *Conn) Connected() bool {
	return c.state == StateConnected
}

// SelectorHint reports which readiness the engine is waiting for: write
// while a partial send is queued, otherwise read. A closed connection
// wants nothing.
func (c *Conn) SelectorHint() Readiness {
	if c.transport == nil || c.closed {
		return ReadinessNone
	}
	if c.sendSize > 0 {
		return ReadinessWrite
	}
	return ReadinessRead
}

// DriveConnection advances the connection state machine by one bounded
// step. It returns done=true once the session is set up; the connection
// then stays Connected for any number of sequential requests.
func (c *Conn) DriveConnection() (bool, error) {
	if c.state == StateConnecting {
		if hs, ok := c.transport.(Handshaker); ok {
			hsDone, err := hs.Handshake()
			if err != nil {
				c.markClose("TLS handshake failed")
				return false, err
			}
			if !hsDone {
				return false, nil
			}
		}

		if err := c.sendNegotiate(); err != nil {
			c.markClose("failed to send negotiate message")
			return false, err
		}
		c.state = StateNegotiate
		c.debugf("smb: sent NEGOTIATE")
	}

	// Send any queued bytes and check for a response.
	msg, err := c.sendAndRecv()
	if err != nil && err != errAgain {
		c.markClose("failed to communicate")
		return false, err
	}
	if msg == nil {
		return false, nil
	}

	done := false
	switch c.state {
	case StateNegotiate:
		if st := msg.Status(); !st.IsSuccess() {
			c.markClose("negotiation failed")
			return false, ErrCouldNotConnect
		}
		challenge, ok := msg.NegotiateChallenge()
		if !ok {
			c.markClose("short negotiate response")
			return false, ErrMalformedFrame
		}
		c.challenge = challenge
		c.sessionKey = msg.NegotiateSessionKey()
		if err := c.sendSetup(); err != nil {
			c.markClose("failed to send setup message")
			return false, err
		}
		c.state = StateSetup
		c.debugf("smb: sent SESSION_SETUP_ANDX user=%q domain=%q", c.user, c.domain)

	case StateSetup:
		if st := msg.Status(); !st.IsSuccess() {
			c.markClose("authentication failed")
			return false, ErrLoginDenied
		}
		c.uid = msg.HeaderUID()
		c.state = StateConnected
		c.debugf("smb: session established uid=0x%04x", c.uid)
		done = true

	default:
		// Unexpected message outside the handshake; ignore it.
	}

	c.popMessage()

	return done, nil
}

// Close releases the connection's buffers and parsed strings and closes
// the transport. It is safe from any phase and also releases the request
// state if the request never reached Done.
func (c *Conn) Close() error {
	if c.req != nil {
		c.req.release()
		c.req = nil
	}
	c.sendBuf = nil
	c.recvBuf = nil
	c.domain = ""
	c.user = ""
	if c.transport != nil {
		closeTransport(c.transport)
		c.transport = nil
	}
	c.closed = true
	return nil
}

// markClose flags the connection for teardown. No further messages are
// sent after this; the caller sees the error and calls Close.
func (c *Conn) markClose(reason string) {
	if !c.closed {
		c.debugf("smb: closing connection: %s", reason)
	}
	c.closed = true
}

func (c *Conn) debugf(format string, v ...interface{}) {
	if c.cfg.Logger != nil {
		c.cfg.Logger.Printf(format, v...)
	}
}

// header builds the message header for the next outgoing command, with
// the user id from session setup and the tree id of the active request.
func (c *Conn) header(cmd SMB1Command) Header {
	var tid uint16
	if c.req != nil {
		tid = c.req.tid
	}
	return Header{
		Command: cmd,
		Flags:   SMB1_FLAGS_CANONICAL_PATHNAMES | SMB1_FLAGS_CASELESS_PATHNAMES,
		Flags2:  SMB1_FLAGS2_IS_LONG_NAME | SMB1_FLAGS2_KNOWS_LONG_NAME,
		TID:     tid,
		UID:     c.uid,
		PIDLow:  uint16(c.pid),
		PIDHigh: uint16(c.pid >> 16),
	}
}

// sendMessage frames body under cmd in the send buffer and attempts to
// write it. The caller must not have a send pending.
func (c *Conn) sendMessage(cmd SMB1Command, body []byte) error {
	h := c.header(cmd)
	h.EncodeFrameHeader(c.sendBuf, len(body))
	copy(c.sendBuf[FrameHeaderSize:], body)
	return c.send(FrameHeaderSize + len(body))
}

// send writes the first n bytes of the send buffer. A short write records
// the shortfall; flush picks it up on the next drive.
func (c *Conn) send(n int) error {
	written, err := c.transport.Write(c.sendBuf[:n])
	if err != nil {
		return err
	}
	if written != n {
		c.sendSize = n
		c.sent = written
	}
	return nil
}

// flush continues a partially written send, clearing the queue only when
// everything is out.
func (c *Conn) flush() error {
	if c.sendSize == 0 {
		return nil
	}
	n, err := c.transport.Write(c.sendBuf[c.sent:c.sendSize])
	if err != nil {
		return err
	}
	if c.sent+n != c.sendSize {
		c.sent += n
	} else {
		c.sendSize = 0
		c.sent = 0
	}
	return nil
}

// sendAndRecv drains any queued send, then polls for a framed response.
// It returns errAgain while outbound bytes remain queued, and a nil
// message while the response is incomplete.
func (c *Conn) sendAndRecv() (Message, error) {
	if c.sendSize > 0 {
		if err := c.flush(); err != nil {
			return nil, err
		}
	}
	if c.sendSize > 0 {
		return nil, errAgain
	}
	return c.recvMessage()
}

// recvMessage reads whatever the transport has into the receive buffer
// and reports the message once the NetBIOS frame (and its parameter and
// data block declarations) is complete.
func (c *Conn) recvMessage() (Message, error) {
	n, err := c.transport.Read(c.recvBuf[c.got:])
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	c.got += n

	size, err := FrameSize(c.recvBuf[:c.got])
	if err != nil {
		return nil, err
	}
	if size == 0 {
		if c.got == len(c.recvBuf) {
			// The declared frame cannot fit the receive buffer.
			return nil, ErrMalformedFrame
		}
		return nil, nil
	}

	return Message(c.recvBuf[:c.got]), nil
}

// popMessage consumes the current framed message, resetting the receive
// accumulator.
func (c *Conn) popMessage() {
	c.got = 0
}

func (c *Conn) sendNegotiate() error {
	return c.sendMessage(SMB1_COM_NEGOTIATE, encodeNegotiate())
}

func (c *Conn) sendSetup() error {
	lm := LMResponse(LMHash(c.cfg.Password), c.challenge)
	var nt [24]byte
	if !c.cfg.DisableNTResponse {
		nt = LMResponse(NTHash(c.cfg.Password), c.challenge)
	}

	body, err := encodeSetup(c.user, c.domain, c.cfg.NativeOS, c.cfg.ClientName,
		c.sessionKey, lm, nt)
	if err != nil {
		return err
	}
	return c.sendMessage(SMB1_COM_SETUP_ANDX, body)
}
