package smbkit

import "encoding/binary"

// Header represents the fixed 32-byte SMB1 message header. On the wire it
// is preceded by the 4-byte NetBIOS session header; offsets in response
// parsing count from the start of that framing.
type Header struct {
	Command   SMB1Command
	Status    NTStatus
	Flags     uint8
	Flags2    uint16
	PIDHigh   uint16
	Signature [8]byte
	TID       uint16
	PIDLow    uint16
	UID       uint16
	MID       uint16
}

// EncodeFrameHeader writes the NetBIOS session header followed by the SMB1
// header into buf, which must hold at least FrameHeaderSize bytes.
// bodyLen is the number of parameter and data bytes that follow the
// header; the NetBIOS length covers the SMB header plus the body.
func (h *Header) EncodeFrameHeader(buf []byte, bodyLen int) {
	for i := 0; i < FrameHeaderSize; i++ {
		buf[i] = 0
	}
	buf[0] = NetBIOSSessionMessage
	// 24-bit big-endian length; the high byte is always zero at our
	// message sizes, so only the low two bytes are populated.
	binary.BigEndian.PutUint16(buf[2:4], uint16(SMB1HeaderSize+bodyLen))
	copy(buf[4:8], SMB1ProtocolID)
	buf[8] = byte(h.Command)
	le.PutUint32(buf[9:13], uint32(h.Status))
	buf[13] = h.Flags
	le.PutUint16(buf[14:16], h.Flags2)
	le.PutUint16(buf[16:18], h.PIDHigh)
	copy(buf[18:26], h.Signature[:])
	// buf[26:28] reserved
	le.PutUint16(buf[28:30], h.TID)
	le.PutUint16(buf[30:32], h.PIDLow)
	le.PutUint16(buf[32:34], h.UID)
	le.PutUint16(buf[34:36], h.MID)
}

// DecodeFrameHeader parses the SMB1 header out of a framed message
// (NetBIOS header included). It returns false if the buffer is too short
// or the protocol signature does not match.
func DecodeFrameHeader(buf []byte) (Header, bool) {
	var h Header
	if len(buf) < FrameHeaderSize {
		return h, false
	}
	if string(buf[4:8]) != SMB1ProtocolID {
		return h, false
	}
	h.Command = SMB1Command(buf[8])
	h.Status = NTStatus(le.Uint32(buf[9:13]))
	h.Flags = buf[13]
	h.Flags2 = le.Uint16(buf[14:16])
	h.PIDHigh = le.Uint16(buf[16:18])
	copy(h.Signature[:], buf[18:26])
	h.TID = le.Uint16(buf[28:30])
	h.PIDLow = le.Uint16(buf[30:32])
	h.UID = le.Uint16(buf[32:34])
	h.MID = le.Uint16(buf[34:36])
	return h, true
}

// FrameSize inspects got accumulated bytes and reports how many bytes the
// complete framed message occupies. It returns (0, nil) while the frame is
// still incomplete. A frame whose declared word_count/byte_count overruns
// the NetBIOS length yields ErrMalformedFrame.
//
// Only the low 16 bits of the 24-bit NetBIOS length are honored; messages
// never exceed MaxMessageSize here so the high byte is always zero.
func FrameSize(buf []byte) (int, error) {
	if len(buf) < NetBIOSHeaderSize {
		return 0, nil
	}
	nbtSize := int(binary.BigEndian.Uint16(buf[2:4])) + NetBIOSHeaderSize
	if len(buf) < nbtSize {
		return 0, nil
	}

	// Validate the parameter and data block lengths against the frame.
	msgSize := FrameHeaderSize
	if nbtSize >= msgSize+1 {
		// Word count plus that many 16-bit parameter words.
		msgSize += 1 + int(buf[msgSize])*2
		if nbtSize >= msgSize+2 {
			// Byte count plus that many data bytes.
			msgSize += 2 + int(le.Uint16(buf[msgSize:msgSize+2]))
			if nbtSize < msgSize {
				return 0, ErrMalformedFrame
			}
		}
	}

	return nbtSize, nil
}
