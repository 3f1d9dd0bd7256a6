package smbkit

import (
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/absfs/absfs"
	"github.com/absfs/memfs"
)

// MockServer simulates an SMB1 server behind the Transport interface for
// deterministic tests: requests the engine writes are parsed and answered
// with scripted responses, synchronously and without goroutines. Files
// live in an in-memory filesystem so download payloads and upload results
// can be inspected.
//
// Fault injection: Statuses forces an error status on a command,
// WriteLimits caps how many bytes successive Write calls accept (to
// exercise partial-send bookkeeping), and ReadChunk trickles response
// bytes to exercise reassembly.
type MockServer struct {
	// Identity handed out during the handshake.
	Challenge  [8]byte
	SessionKey uint32
	UID        uint16
	TID        uint16
	FID        uint16

	// Statuses forces the response status for a command.
	Statuses map[SMB1Command]NTStatus

	// WriteLimits caps the byte count of successive client Write calls;
	// entries are consumed one per call, and an exhausted list means
	// unlimited. A zero entry accepts nothing that call.
	WriteLimits []int

	// ReadChunk caps the bytes returned per client Read (0 = no cap).
	ReadChunk int

	// Commands records every request command received, in order.
	Commands []SMB1Command

	mu    sync.Mutex
	fs    absfs.FileSystem
	files map[uint16]string // open fid -> filesystem path

	inbox  []byte
	outbox []byte
}

// NewMockServer creates a mock server with fixed handshake identifiers
// and an empty in-memory filesystem.
func NewMockServer() *MockServer {
	fs, err := memfs.NewFS()
	if err != nil {
		panic(err)
	}
	return &MockServer{
		Challenge:  [8]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
		SessionKey: 0xdeadbeef,
		UID:        0x1001,
		TID:        0x2002,
		FID:        0x3003,
		Statuses:   make(map[SMB1Command]NTStatus),
		fs:         fs,
		files:      make(map[uint16]string),
	}
}

// AddFile stores a file in the mock filesystem. The path is the
// share-relative SMB path, either separator accepted.
func (m *MockServer) AddFile(name string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.fsPath(name)
	if dir := path.Dir(p); dir != "/" && dir != "." {
		m.fs.MkdirAll(dir, 0755)
	}
	f, err := m.fs.OpenFile(p, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		panic(fmt.Sprintf("mock: add file %s: %v", p, err))
	}
	f.Write(content)
	f.Close()
}

// FileContents returns the current contents of a stored file, nil if it
// does not exist.
func (m *MockServer) FileContents(name string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readFileLocked(m.fsPath(name))
}

// readFileLocked reads a stored file; the caller holds mu.
func (m *MockServer) readFileLocked(fsPath string) []byte {
	f, err := m.fs.OpenFile(fsPath, os.O_RDONLY, 0)
	if err != nil {
		return nil
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil
	}
	return data
}

func (m *MockServer) fsPath(name string) string {
	p := strings.ReplaceAll(name, `\`, "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// Write accepts request bytes from the engine, honoring any configured
// partial-write limit, and answers every complete frame.
func (m *MockServer) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(p)
	if len(m.WriteLimits) > 0 {
		limit := m.WriteLimits[0]
		m.WriteLimits = m.WriteLimits[1:]
		if limit < n {
			n = limit
		}
	}

	m.inbox = append(m.inbox, p[:n]...)

	for {
		size, err := FrameSize(m.inbox)
		if err != nil {
			return n, err
		}
		if size == 0 {
			break
		}
		frame := m.inbox[:size]
		m.inbox = m.inbox[size:]
		m.handle(frame)
	}

	return n, nil
}

// Read hands buffered response bytes back to the engine.
func (m *MockServer) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.outbox) == 0 {
		return 0, nil
	}
	n := copy(p, m.outbox)
	if m.ReadChunk > 0 && n > m.ReadChunk {
		n = m.ReadChunk
	}
	m.outbox = m.outbox[n:]
	return n, nil
}

// CommandLog returns a copy of the received command sequence, safe to
// inspect while a pump goroutine still owns the server.
func (m *MockServer) CommandLog() []SMB1Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SMB1Command(nil), m.Commands...)
}

// handle parses one request frame and appends the scripted response.
func (m *MockServer) handle(frame []byte) {
	h, ok := DecodeFrameHeader(frame)
	if !ok {
		return
	}
	m.Commands = append(m.Commands, h.Command)

	if status, forced := m.Statuses[h.Command]; forced && status != STATUS_SUCCESS {
		m.respond(h, status, nil, nil)
		return
	}

	switch h.Command {
	case SMB1_COM_NEGOTIATE:
		m.handleNegotiate(h)
	case SMB1_COM_SETUP_ANDX:
		h.UID = m.UID
		m.respond(h, STATUS_SUCCESS, make([]byte, 6), nil)
	case SMB1_COM_TREE_CONNECT_ANDX:
		h.TID = m.TID
		m.respond(h, STATUS_SUCCESS, make([]byte, 6), nil)
	case SMB1_COM_NT_CREATE_ANDX:
		m.handleCreate(h, frame)
	case SMB1_COM_READ_ANDX:
		m.handleRead(h, frame)
	case SMB1_COM_WRITE_ANDX:
		m.handleWrite(h, frame)
	case SMB1_COM_CLOSE:
		r := NewByteReader(frame)
		r.Seek(respParamOffset)
		delete(m.files, r.ReadUint16())
		m.respond(h, STATUS_SUCCESS, nil, nil)
	case SMB1_COM_TREE_DISCONNECT:
		m.respond(h, STATUS_SUCCESS, nil, nil)
	default:
		m.respond(h, STATUS_SUCCESS, nil, nil)
	}
}

func (m *MockServer) handleNegotiate(h Header) {
	params := NewByteWriter(34)
	params.WriteUint16(0)              // dialect index
	params.WriteOneByte(0)             // security mode
	params.WriteUint16(1)              // max mpx count
	params.WriteUint16(1)              // max vcs
	params.WriteUint32(MaxMessageSize) // max buffer size
	params.WriteUint32(MaxMessageSize) // max raw size
	params.WriteUint32(m.SessionKey)
	params.WriteUint32(0) // capabilities
	params.WriteUint64(0) // system time
	params.WriteUint16(0) // time zone
	params.WriteOneByte(8) // encryption key length

	m.respond(h, STATUS_SUCCESS, params.Bytes(), m.Challenge[:])
}

func (m *MockServer) handleCreate(h Header, frame []byte) {
	r := NewByteReader(frame)
	r.Seek(respParamOffset + 5) // past andx and the reserved byte
	nameLen := int(r.ReadUint16())
	r.Seek(respParamOffset + 35)
	disposition := r.ReadUint32()

	// The path is the byte block: word_count + 24 words + byte_count.
	nameOff := FrameHeaderSize + 1 + 2*SMB1_WC_NT_CREATE_ANDX + 2
	if nameOff+nameLen > len(frame) {
		m.respond(h, STATUS_NO_SUCH_FILE, nil, nil)
		return
	}
	name := string(frame[nameOff : nameOff+nameLen])
	fsPath := m.fsPath(name)

	var size int64
	if disposition == SMB1_FILE_OVERWRITE_IF {
		f, err := m.fs.OpenFile(fsPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
		if err != nil {
			m.respond(h, STATUS_ACCESS_DENIED, nil, nil)
			return
		}
		f.Close()
	} else {
		info, err := m.fs.Stat(fsPath)
		if err != nil {
			m.respond(h, STATUS_NO_SUCH_FILE, nil, nil)
			return
		}
		size = info.Size()
	}

	m.files[m.FID] = fsPath

	params := NewByteWriter(68)
	params.WriteBytes([]byte{0xff, 0, 0, 0}) // andx
	params.WriteOneByte(0)                   // oplock level
	params.WriteUint16(m.FID)
	params.WriteUint32(0)          // create disposition result
	params.WriteUint64(0)          // create time
	params.WriteUint64(0)          // last access time
	params.WriteUint64(0)          // last write time
	params.WriteUint64(0)          // change time
	params.WriteUint32(0)          // file attributes
	params.WriteUint64(0)          // allocation size
	params.WriteUint64(uint64(size)) // end of file
	params.WriteUint16(0)          // file type
	params.WriteUint16(0)          // ipc state
	params.WriteOneByte(0)         // is directory

	m.respond(h, STATUS_SUCCESS, params.Bytes(), nil)
}

func (m *MockServer) handleRead(h Header, frame []byte) {
	r := NewByteReader(frame)
	r.Seek(respParamOffset + 4)
	fid := r.ReadUint16()
	offLow := r.ReadUint32()
	maxBytes := int(r.ReadUint16())
	r.Skip(2 + 4 + 2)
	offHigh := r.ReadUint32()
	offset := int64(offHigh)<<32 | int64(offLow)

	fsPath, ok := m.files[fid]
	if !ok {
		m.respond(h, STATUS_NO_SUCH_FILE, nil, nil)
		return
	}

	content := m.readFileLocked(fsPath)
	var data []byte
	if offset < int64(len(content)) {
		end := offset + int64(maxBytes)
		if end > int64(len(content)) {
			end = int64(len(content))
		}
		data = content[offset:end]
	}

	// Data sits immediately after the byte count; its offset field is
	// measured from the end of the NetBIOS header.
	dataOffset := SMB1HeaderSize + 1 + 24 + 2
	params := NewByteWriter(24)
	params.WriteBytes([]byte{0xff, 0, 0, 0}) // andx
	params.WriteUint16(0)                    // available
	params.WriteUint16(0)                    // data compaction mode
	params.WriteUint16(0)                    // reserved
	params.WriteUint16(uint16(len(data)))
	params.WriteUint16(uint16(dataOffset))
	params.WriteZeros(10) // reserved

	m.respond(h, STATUS_SUCCESS, params.Bytes(), data)
}

func (m *MockServer) handleWrite(h Header, frame []byte) {
	r := NewByteReader(frame)
	r.Seek(respParamOffset + 4)
	fid := r.ReadUint16()
	offLow := r.ReadUint32()
	r.Seek(FrameHeaderSize + 21)
	dataLen := int(r.ReadUint16())
	dataOff := int(r.ReadUint16())
	offHigh := r.ReadUint32()
	offset := int64(offHigh)<<32 | int64(offLow)

	fsPath, ok := m.files[fid]
	if !ok {
		m.respond(h, STATUS_NO_SUCH_FILE, nil, nil)
		return
	}

	start := NetBIOSHeaderSize + dataOff
	if start+dataLen > len(frame) {
		m.respond(h, STATUS_ACCESS_DENIED, nil, nil)
		return
	}
	data := frame[start : start+dataLen]

	f, err := m.fs.OpenFile(fsPath, os.O_WRONLY, 0644)
	if err != nil {
		m.respond(h, STATUS_ACCESS_DENIED, nil, nil)
		return
	}
	f.Seek(offset, io.SeekStart)
	f.Write(data)
	f.Close()

	params := NewByteWriter(12)
	params.WriteBytes([]byte{0xff, 0, 0, 0}) // andx
	params.WriteUint16(uint16(dataLen))      // count
	params.WriteUint16(0)                    // remaining
	params.WriteUint16(0)                    // count high
	params.WriteUint16(0)                    // reserved

	m.respond(h, STATUS_SUCCESS, params.Bytes(), nil)
}

// respond frames a response with the given parameter words and data
// block and queues it for the engine to read.
func (m *MockServer) respond(h Header, status NTStatus, params, data []byte) {
	h.Status = status

	body := NewByteWriter(3 + len(params) + len(data))
	body.WriteOneByte(byte(len(params) / 2)) // word count
	body.WriteBytes(params)
	body.WriteUint16(uint16(len(data))) // byte count
	body.WriteBytes(data)

	frame := make([]byte, FrameHeaderSize+body.Len())
	h.EncodeFrameHeader(frame, body.Len())
	copy(frame[FrameHeaderSize:], body.Bytes())

	m.outbox = append(m.outbox, frame...)
}
