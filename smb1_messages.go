package smbkit

// Request bodies are everything after the 36-byte frame header: the
// word_count byte, word_count parameter words, the byte_count and the
// data bytes. Builders return the body; the connection engine prepends
// the header when it copies the body into the send buffer.

// Byte-block capacity shared by the variable-length requests. Anything
// larger fails the encode with ErrSizeExceeded before touching the wire.
const maxRequestBytes = 1024

// writeAndX writes the unused AndX prefix: no follow-on command.
func writeAndX(w *ByteWriter) {
	w.WriteOneByte(byte(SMB1_COM_NO_ANDX_COMMAND))
	w.WriteOneByte(0)  // reserved
	w.WriteUint16(0)   // offset
}

// encodeNegotiate builds the NEGOTIATE body: a single dialect entry for
// "NT LM 0.12". 15 bytes total.
func encodeNegotiate() []byte {
	w := NewByteWriter(16)
	w.WriteOneByte(0)      // word_count
	w.WriteUint16(0x000c)  // byte_count
	w.WriteOneByte(0x02)   // dialect buffer format
	w.WriteCString(DialectNTLM012)
	return w.Bytes()
}

// encodeSetup builds the SESSION_SETUP_ANDX body carrying the NTLM
// responses and the identification strings.
func encodeSetup(user, domain, nativeOS, clientName string, sessionKey uint32, lm, nt [24]byte) ([]byte, error) {
	byteCount := len(lm) + len(nt)
	byteCount += len(user) + len(domain) + len(nativeOS) + len(clientName) + 4
	if byteCount > maxRequestBytes {
		return nil, ErrSizeExceeded
	}

	w := NewByteWriter(64 + byteCount)
	w.WriteOneByte(SMB1_WC_SETUP_ANDX)
	writeAndX(w)
	w.WriteUint16(MaxMessageSize)  // max_buffer_size
	w.WriteUint16(1)               // max_mpx_count
	w.WriteUint16(1)               // vc_number
	w.WriteUint32(sessionKey)      // echoed from negotiate
	w.WriteUint16(uint16(len(lm))) // ANSI password length
	w.WriteUint16(uint16(len(nt))) // Unicode password length
	w.WriteUint32(0)               // reserved
	w.WriteUint32(SMB1_CAP_LARGE_FILES)
	w.WriteUint16(uint16(byteCount))
	w.WriteBytes(lm[:])
	w.WriteBytes(nt[:])
	w.WriteCString(user)
	w.WriteCString(domain)
	w.WriteCString(nativeOS)
	w.WriteCString(clientName)
	return w.Bytes(), nil
}

// encodeTreeConnect builds the TREE_CONNECT_ANDX body for
// \\host\share with the match-anything service type.
func encodeTreeConnect(host, share string) ([]byte, error) {
	// 2 nulls and 3 backslashes besides the strings.
	byteCount := len(host) + len(share) + len(serviceAny) + 5
	if byteCount > maxRequestBytes {
		return nil, ErrSizeExceeded
	}

	w := NewByteWriter(16 + byteCount)
	w.WriteOneByte(SMB1_WC_TREE_CONNECT_ANDX)
	writeAndX(w)
	w.WriteUint16(0) // flags
	w.WriteUint16(0) // password length
	w.WriteUint16(uint16(byteCount))
	w.WriteBytes([]byte(`\\`))
	w.WriteBytes([]byte(host))
	w.WriteBytes([]byte(`\`))
	w.WriteCString(share)
	w.WriteCString(serviceAny)
	return w.Bytes(), nil
}

// encodeNTCreate builds the NT_CREATE_ANDX body opening path for reading
// (download) or read/write with overwrite (upload).
func encodeNTCreate(path string, upload bool) ([]byte, error) {
	if len(path)+1 > maxRequestBytes {
		return nil, ErrSizeExceeded
	}

	access := SMB1_GENERIC_READ
	disposition := SMB1_FILE_OPEN
	if upload {
		access = SMB1_GENERIC_READ | SMB1_GENERIC_WRITE
		disposition = SMB1_FILE_OVERWRITE_IF
	}

	w := NewByteWriter(64 + len(path))
	w.WriteOneByte(SMB1_WC_NT_CREATE_ANDX)
	writeAndX(w)
	w.WriteOneByte(0)                     // reserved
	w.WriteUint16(uint16(len(path)))      // name length, null excluded
	w.WriteUint32(0)                      // flags
	w.WriteUint32(0)                      // root directory fid
	w.WriteUint32(access)
	w.WriteUint64(0)                      // allocation size
	w.WriteUint32(0)                      // file attributes
	w.WriteUint32(SMB1_FILE_SHARE_ALL)
	w.WriteUint32(disposition)
	w.WriteUint32(0)                      // create options
	w.WriteUint32(0)                      // impersonation level
	w.WriteOneByte(0)                     // security flags
	w.WriteUint16(uint16(len(path) + 1))  // byte_count
	w.WriteCString(path)
	return w.Bytes(), nil
}

// encodeRead builds the READ_ANDX body requesting the next payload-sized
// chunk at the 64-bit offset.
func encodeRead(fid uint16, offset int64) []byte {
	w := NewByteWriter(32)
	w.WriteOneByte(SMB1_WC_READ_ANDX)
	writeAndX(w)
	w.WriteUint16(fid)
	w.WriteUint32(uint32(offset))       // offset low
	w.WriteUint16(MaxPayloadSize)       // max bytes
	w.WriteUint16(MaxPayloadSize)       // min bytes
	w.WriteUint32(0)                    // timeout
	w.WriteUint16(0)                    // remaining
	w.WriteUint32(uint32(offset >> 32)) // offset high
	w.WriteUint16(0)                    // byte_count
	return w.Bytes()
}

// encodeClose builds the CLOSE body for fid.
func encodeClose(fid uint16) []byte {
	w := NewByteWriter(16)
	w.WriteOneByte(SMB1_WC_CLOSE)
	w.WriteUint16(fid)
	w.WriteUint32(0) // last write time
	w.WriteUint16(0) // byte_count
	return w.Bytes()
}

// encodeTreeDisconnect builds the empty TREE_DISCONNECT body.
func encodeTreeDisconnect() []byte {
	w := NewByteWriter(4)
	w.WriteOneByte(0) // word_count
	w.WriteUint16(0)  // byte_count
	return w.Bytes()
}

// WRITE_ANDX layout inside the send buffer. The request is built in place:
// the fixed prefix is reserved, the payload filled from the body source,
// then the length fields patched. data_offset counts from the end of the
// NetBIOS header.
const (
	writeParamBytes = 2 * SMB1_WC_WRITE_ANDX
	writeFixedSize  = FrameHeaderSize + 1 + writeParamBytes + 2
	writeDataOffset = writeFixedSize - NetBIOSHeaderSize
)

// encodeWriteFixed fills the word_count, parameter words and byte_count of
// a WRITE_ANDX request into buf[FrameHeaderSize:writeFixedSize]. The
// payload of dataLen bytes must already sit at buf[writeFixedSize:].
func encodeWriteFixed(buf []byte, fid uint16, offset int64, dataLen int) {
	b := buf[FrameHeaderSize:writeFixedSize]
	for i := range b {
		b[i] = 0
	}
	b[0] = SMB1_WC_WRITE_ANDX
	b[1] = byte(SMB1_COM_NO_ANDX_COMMAND)
	// b[2] andx reserved, b[3:5] andx offset
	le.PutUint16(b[5:7], fid)
	le.PutUint32(b[7:11], uint32(offset))
	// b[11:15] timeout, b[15:17] write mode, b[17:19] remaining,
	// b[19:21] data length high
	le.PutUint16(b[21:23], uint16(dataLen))
	le.PutUint16(b[23:25], uint16(writeDataOffset))
	le.PutUint32(b[25:29], uint32(offset>>32))
	le.PutUint16(b[29:31], uint16(dataLen))
}

// Message is a framed response in the receive buffer, NetBIOS header
// included. Accessors return zero values when the frame is too short;
// FrameSize has already bounded well-formed frames.
type Message []byte

// Fixed offsets into response frames, counted from the NetBIOS header.
const (
	respStatusOffset = 9
	respTIDOffset    = 28
	respUIDOffset    = 32

	respParamOffset = FrameHeaderSize + 1

	// NEGOTIATE response: session key after dialect index, security
	// mode, mpx count, vc count, buffer and raw sizes.
	respNegSessionKeyOffset = respParamOffset + 15

	// NT_CREATE_ANDX response: fid after andx and oplock level;
	// end_of_file after the four timestamps, attributes and
	// allocation size.
	respCreateFIDOffset = respParamOffset + 5
	respCreateEOFOffset = respParamOffset + 55

	// READ_ANDX response: data length and data offset.
	respReadLenOffset = FrameHeaderSize + 11
	respReadOffOffset = FrameHeaderSize + 13

	// WRITE_ANDX response: count of bytes written.
	respWriteCountOffset = FrameHeaderSize + 5
)

// Status returns the 32-bit NT status from the header.
func (m Message) Status() NTStatus {
	if len(m) < respStatusOffset+4 {
		return 0
	}
	return NTStatus(le.Uint32(m[respStatusOffset:]))
}

// HeaderTID returns the tree id assigned in the header.
func (m Message) HeaderTID() uint16 {
	if len(m) < respTIDOffset+2 {
		return 0
	}
	return le.Uint16(m[respTIDOffset:])
}

// HeaderUID returns the user id assigned in the header.
func (m Message) HeaderUID() uint16 {
	if len(m) < respUIDOffset+2 {
		return 0
	}
	return le.Uint16(m[respUIDOffset:])
}

// NegotiateSessionKey returns the session key echoed back during setup.
func (m Message) NegotiateSessionKey() uint32 {
	if len(m) < respNegSessionKeyOffset+4 {
		return 0
	}
	return le.Uint32(m[respNegSessionKeyOffset:])
}

// NegotiateChallenge copies the 8-byte server challenge out of the
// NEGOTIATE response byte block.
func (m Message) NegotiateChallenge() ([8]byte, bool) {
	var challenge [8]byte
	if len(m) < respParamOffset {
		return challenge, false
	}
	wc := int(m[FrameHeaderSize])
	off := respParamOffset + wc*2 + 2
	if len(m) < off+8 {
		return challenge, false
	}
	copy(challenge[:], m[off:off+8])
	return challenge, true
}

// CreateFID returns the file id from an NT_CREATE_ANDX response.
func (m Message) CreateFID() uint16 {
	if len(m) < respCreateFIDOffset+2 {
		return 0
	}
	return le.Uint16(m[respCreateFIDOffset:])
}

// CreateEndOfFile returns the 64-bit file size from an NT_CREATE_ANDX
// response.
func (m Message) CreateEndOfFile() int64 {
	if len(m) < respCreateEOFOffset+8 {
		return 0
	}
	return int64(le.Uint64(m[respCreateEOFOffset:]))
}

// ReadPayload locates the data carried by a READ_ANDX response.
func (m Message) ReadPayload() ([]byte, bool) {
	if len(m) < respReadOffOffset+2 {
		return nil, false
	}
	length := int(le.Uint16(m[respReadLenOffset:]))
	offset := int(le.Uint16(m[respReadOffOffset:])) + NetBIOSHeaderSize
	if offset+length > len(m) {
		return nil, false
	}
	return m[offset : offset+length], true
}

// WriteCount returns the number of bytes the server accepted from a
// WRITE_ANDX request.
func (m Message) WriteCount() uint16 {
	if len(m) < respWriteCountOffset+2 {
		return 0
	}
	return le.Uint16(m[respWriteCountOffset:])
}
