package smbkit

// RequestState is the per-transfer phase.
type RequestState int

const (
	// StateRequesting is the initial phase; entering the drive loop
	// sends TREE_CONNECT_ANDX.
	StateRequesting RequestState = iota
	// StateTreeConnect awaits the tree id.
	StateTreeConnect
	// StateOpen awaits the file id from NT_CREATE_ANDX.
	StateOpen
	// StateDownload loops READ_ANDX responses into the body sink.
	StateDownload
	// StateUpload loops WRITE_ANDX requests from the body source.
	StateUpload
	// StateClose awaits the CLOSE response; its status is ignored.
	StateClose
	// StateTreeDisconnect awaits TREE_DISCONNECT; its status is ignored.
	StateTreeDisconnect
	// StateDone delivers the recorded result.
	StateDone
)

// String returns the state name.
func (s RequestState) String() string {
	switch s {
	case StateRequesting:
		return "Requesting"
	case StateTreeConnect:
		return "TreeConnect"
	case StateOpen:
		return "Open"
	case StateDownload:
		return "Download"
	case StateUpload:
		return "Upload"
	case StateClose:
		return "Close"
	case StateTreeDisconnect:
		return "TreeDisconnect"
	case StateDone:
		return "Done"
	default:
		return "Unknown"
	}
}

// RequestOptions selects the transfer direction and body plumbing for a
// request.
type RequestOptions struct {
	// Upload switches the request to writing the remote file; the file
	// is created or overwritten. Default is download.
	Upload bool

	// Size is the number of bytes the upload will carry; the upload loop
	// ends once this many bytes are acknowledged. Ignored for downloads,
	// whose size comes from the NT_CREATE_ANDX response.
	Size int64

	// Sink receives downloaded data. Required for downloads.
	Sink BodySink

	// Source supplies upload data. Required for uploads.
	Source BodySource

	// Progress receives size announcements and running counters.
	// Optional.
	Progress Progress
}

// Request owns a single file transfer's protocol state: the parsed share
// and path, the server-assigned tree and file ids, and the terminal
// result. Its lifecycle nests strictly inside a Connected connection.
type Request struct {
	conn  *Conn
	state RequestState

	share string
	path  string
	tid   uint16
	fid   uint16

	result error

	upload     bool
	infileSize int64
	size       int64
	bytecount  int64
	offset     int64

	sink     BodySink
	source   BodySource
	progress Progress

	// awaitingData re-arms a WRITE_ANDX encode whose body source had
	// nothing to give.
	awaitingData bool
}

// NewRequest parses share and file path out of urlPath and attaches a
// transfer to the connection. Exactly one request may be active per
// connection; the previous one must have reached Done first.
func (c *Conn) NewRequest(urlPath string, opts RequestOptions) (*Request, error) {
	if c.req != nil {
		return nil, wrapTransferError("request", urlPath, ErrRequestInFlight)
	}

	share, path, err := SplitSharePath(urlPath)
	if err != nil {
		return nil, err
	}

	req := &Request{
		conn:       c,
		state:      StateRequesting,
		share:      share,
		path:       path,
		upload:     opts.Upload,
		infileSize: opts.Size,
		sink:       opts.Sink,
		source:     opts.Source,
		progress:   opts.Progress,
	}
	if req.progress == nil {
		req.progress = nopProgress{}
	}

	c.req = req
	return req, nil
}

// State returns the request phase.
func (r *Request) State() RequestState {
	return r.state
}

// Result returns the recorded terminal result; nil unless the transfer
// has recorded a failure.
func (r *Request) Result() error {
	return r.result
}

// BytesTransferred returns the cumulative payload byte count.
func (r *Request) BytesTransferred() int64 {
	return r.bytecount
}

// Size returns the expected transfer size: infilesize for uploads, the
// server-reported end of file for downloads (known after Open).
func (r *Request) Size() int64 {
	return r.size
}

// Drive advances the request state machine by one bounded step. It
// returns done=true when the transfer has run to completion, with the
// recorded result as the error value. The connection remains Connected
// and can carry the next request.
func (r *Request) Drive() (bool, error) {
	c := r.conn

	// Start the request.
	if r.state == StateRequesting {
		if err := r.sendTreeConnect(); err != nil {
			c.markClose("failed to send tree connect message")
			return false, err
		}
		r.state = StateTreeConnect
		c.debugf("smb: sent TREE_CONNECT_ANDX share=%q", r.share)
	}

	// A WRITE_ANDX encode that found no body data left nothing on the
	// wire; try the encode again before polling for a response.
	if r.awaitingData && c.sendSize == 0 {
		if err := r.sendWrite(); err != nil {
			c.markClose("failed to send message")
			return false, err
		}
		if r.awaitingData {
			return false, nil
		}
	}

	// Send the previous message and check for a response.
	msg, err := c.sendAndRecv()
	if err != nil && err != errAgain {
		c.markClose("failed to communicate")
		return false, err
	}
	if msg == nil {
		return false, nil
	}

	next := StateDone
	switch r.state {
	case StateTreeConnect:
		if st := msg.Status(); !st.IsSuccess() {
			// No tree, so nothing to close or disconnect: finish
			// directly with the mapped result.
			r.result = statusError(st)
			break
		}
		r.tid = msg.HeaderTID()
		next = StateOpen

	case StateOpen:
		if st := msg.Status(); !st.IsSuccess() {
			// No file handle was produced; skip CLOSE.
			r.result = ErrFileNotFound
			next = StateTreeDisconnect
			break
		}
		r.fid = msg.CreateFID()
		r.offset = 0
		if r.upload {
			r.size = r.infileSize
			r.progress.SetUploadSize(r.size)
			next = StateUpload
		} else {
			r.size = msg.CreateEndOfFile()
			r.progress.SetDownloadSize(r.size)
			next = StateDownload
		}
		c.debugf("smb: opened %q fid=0x%04x size=%d", r.path, r.fid, r.size)

	case StateDownload:
		if st := msg.Status(); !st.IsSuccess() {
			r.result = ErrRecvFailed
			next = StateClose
			break
		}
		payload, ok := msg.ReadPayload()
		if !ok {
			c.markClose("bad read response")
			return false, ErrMalformedFrame
		}
		if len(payload) > 0 {
			if _, err := r.sink.Write(payload); err != nil {
				c.markClose("body sink failed")
				return false, err
			}
		}
		r.bytecount += int64(len(payload))
		r.offset += int64(len(payload))
		r.progress.DownloadCounter(r.bytecount)
		if len(payload) < MaxPayloadSize {
			next = StateClose
		} else {
			next = StateDownload
		}

	case StateUpload:
		if st := msg.Status(); !st.IsSuccess() {
			r.result = ErrUploadFailed
			next = StateClose
			break
		}
		n := int64(msg.WriteCount())
		r.bytecount += n
		r.offset += n
		r.progress.UploadCounter(r.bytecount)
		if r.bytecount >= r.size {
			next = StateClose
		} else {
			next = StateUpload
		}

	case StateClose:
		// The close status does not matter; disconnect the tree anyway.
		next = StateTreeDisconnect

	case StateTreeDisconnect:
		next = StateDone

	default:
		// Unexpected message; ignore it.
		c.popMessage()
		return false, nil
	}

	c.popMessage()

	var sendErr error
	done := false
	switch next {
	case StateOpen:
		sendErr = r.sendOpen()
	case StateDownload:
		sendErr = r.sendRead()
	case StateUpload:
		sendErr = r.sendWrite()
	case StateClose:
		sendErr = r.sendClose()
	case StateTreeDisconnect:
		sendErr = r.sendTreeDisconnect()
	case StateDone:
		done = true
	}

	if sendErr != nil {
		c.markClose("failed to send message")
		return false, sendErr
	}

	r.state = next

	if done {
		c.debugf("smb: request done result=%v bytes=%d", r.result, r.bytecount)
		return true, r.result
	}
	return false, nil
}

// Done releases the request state, detaching it from the connection so
// the next request can start. Safe to call after the transfer finished or
// when abandoning it.
func (r *Request) Done() {
	r.release()
}

func (r *Request) release() {
	if r.conn != nil && r.conn.req == r {
		r.conn.req = nil
	}
	r.conn = nil
	r.share = ""
	r.path = ""
	r.sink = nil
	r.source = nil
}

func (r *Request) sendTreeConnect() error {
	body, err := encodeTreeConnect(r.conn.cfg.Host, r.share)
	if err != nil {
		return err
	}
	return r.conn.sendMessage(SMB1_COM_TREE_CONNECT_ANDX, body)
}

func (r *Request) sendOpen() error {
	body, err := encodeNTCreate(r.path, r.upload)
	if err != nil {
		return err
	}
	return r.conn.sendMessage(SMB1_COM_NT_CREATE_ANDX, body)
}

func (r *Request) sendRead() error {
	return r.conn.sendMessage(SMB1_COM_READ_ANDX, encodeRead(r.fid, r.offset))
}

// sendWrite builds WRITE_ANDX in place: the fixed prefix is reserved in
// the send buffer, the payload filled from the body source, then the
// header and length fields patched around it. When the source yields
// nothing the request parks until the next drive.
func (r *Request) sendWrite() error {
	c := r.conn

	n, err := r.source.Fill(c.sendBuf[writeFixedSize : writeFixedSize+MaxPayloadSize])
	if err != nil {
		return err
	}
	if n == 0 {
		r.awaitingData = true
		return nil
	}
	r.awaitingData = false

	encodeWriteFixed(c.sendBuf, r.fid, r.offset, n)
	h := c.header(SMB1_COM_WRITE_ANDX)
	h.EncodeFrameHeader(c.sendBuf, writeFixedSize-FrameHeaderSize+n)

	return c.send(writeFixedSize + n)
}

func (r *Request) sendClose() error {
	return r.conn.sendMessage(SMB1_COM_CLOSE, encodeClose(r.fid))
}

func (r *Request) sendTreeDisconnect() error {
	return r.conn.sendMessage(SMB1_COM_TREE_DISCONNECT, encodeTreeDisconnect())
}
