package smbkit

// SMB1 protocol constants.
const (
	// SMB1 protocol signature, first byte 0xFF.
	SMB1ProtocolID = "\xFFSMB"

	// Fixed SMB1 header size, not counting the NetBIOS session header.
	SMB1HeaderSize = 32

	// NetBIOS Session Service header size.
	NetBIOSHeaderSize = 4

	// Total bytes preceding the parameter block of every message.
	FrameHeaderSize = NetBIOSHeaderSize + SMB1HeaderSize

	// MaxPayloadSize caps the data portion of a single READ_ANDX or
	// WRITE_ANDX exchange.
	MaxPayloadSize = 0x8000

	// MaxMessageSize is the capacity of the send and receive buffers and
	// the buffer size advertised during session setup.
	MaxMessageSize = MaxPayloadSize + 0x1000
)

// NetBIOS session message types.
const (
	NetBIOSSessionMessage byte = 0x00
)

// The single dialect this client negotiates.
const DialectNTLM012 = "NT LM 0.12"

// SMB1 command codes.
type SMB1Command uint8

const (
	SMB1_COM_CLOSE           SMB1Command = 0x04
	SMB1_COM_TREE_DISCONNECT SMB1Command = 0x71
	SMB1_COM_NEGOTIATE       SMB1Command = 0x72
	SMB1_COM_SETUP_ANDX      SMB1Command = 0x73
	SMB1_COM_TREE_CONNECT_ANDX    SMB1Command = 0x75
	SMB1_COM_NT_CREATE_ANDX  SMB1Command = 0xa2
	SMB1_COM_READ_ANDX       SMB1Command = 0x2e
	SMB1_COM_WRITE_ANDX      SMB1Command = 0x2f
	SMB1_COM_NO_ANDX_COMMAND SMB1Command = 0xff
)

// String returns the command name.
func (c SMB1Command) String() string {
	switch c {
	case SMB1_COM_CLOSE:
		return "SMB_COM_CLOSE"
	case SMB1_COM_TREE_DISCONNECT:
		return "SMB_COM_TREE_DISCONNECT"
	case SMB1_COM_NEGOTIATE:
		return "SMB_COM_NEGOTIATE"
	case SMB1_COM_SETUP_ANDX:
		return "SMB_COM_SESSION_SETUP_ANDX"
	case SMB1_COM_TREE_CONNECT_ANDX:
		return "SMB_COM_TREE_CONNECT_ANDX"
	case SMB1_COM_NT_CREATE_ANDX:
		return "SMB_COM_NT_CREATE_ANDX"
	case SMB1_COM_READ_ANDX:
		return "SMB_COM_READ_ANDX"
	case SMB1_COM_WRITE_ANDX:
		return "SMB_COM_WRITE_ANDX"
	case SMB1_COM_NO_ANDX_COMMAND:
		return "SMB_COM_NO_ANDX_COMMAND"
	default:
		return "SMB_COM_UNKNOWN"
	}
}

// Header flags.
const (
	SMB1_FLAGS_CASELESS_PATHNAMES uint8 = 0x08
	SMB1_FLAGS_CANONICAL_PATHNAMES uint8 = 0x10
)

// Header flags2.
const (
	SMB1_FLAGS2_KNOWS_LONG_NAME uint16 = 0x0001
	SMB1_FLAGS2_IS_LONG_NAME    uint16 = 0x0040
)

// Capabilities advertised in SESSION_SETUP_ANDX. Only large-file support
// is claimed; Unicode deliberately stays off so paths remain OEM strings.
const (
	SMB1_CAP_LARGE_FILES uint32 = 0x00004000
)

// Fixed word counts of the request parameter blocks.
const (
	SMB1_WC_SETUP_ANDX        = 13
	SMB1_WC_TREE_CONNECT_ANDX = 4
	SMB1_WC_NT_CREATE_ANDX    = 24
	SMB1_WC_READ_ANDX         = 12
	SMB1_WC_WRITE_ANDX        = 14
	SMB1_WC_CLOSE             = 3
)

// NT_CREATE_ANDX fields.
const (
	SMB1_GENERIC_READ  uint32 = 0x80000000
	SMB1_GENERIC_WRITE uint32 = 0x40000000

	SMB1_FILE_SHARE_ALL uint32 = 0x07

	SMB1_FILE_OPEN         uint32 = 0x01
	SMB1_FILE_OVERWRITE_IF uint32 = 0x05
)

// NTStatus is the 32-bit status carried in the SMB1 header.
type NTStatus uint32

// Status values the engine distinguishes. SMB_ERR_NOACCESS is a
// DOS-class code (ERRDOS/ERRnoaccess) some servers return for
// TREE_CONNECT_ANDX instead of an NT status.
const (
	STATUS_SUCCESS       NTStatus = 0x00000000
	STATUS_ACCESS_DENIED NTStatus = 0xC0000022
	STATUS_LOGON_FAILURE NTStatus = 0xC000006D
	STATUS_NO_SUCH_FILE  NTStatus = 0xC000000F
	STATUS_BAD_NETWORK_NAME NTStatus = 0xC00000CC

	SMB_ERR_NOACCESS NTStatus = 0x00050001
)

// IsSuccess returns true if status indicates success.
func (s NTStatus) IsSuccess() bool {
	return s == STATUS_SUCCESS
}

// String returns the status name.
func (s NTStatus) String() string {
	switch s {
	case STATUS_SUCCESS:
		return "STATUS_SUCCESS"
	case STATUS_ACCESS_DENIED:
		return "STATUS_ACCESS_DENIED"
	case STATUS_LOGON_FAILURE:
		return "STATUS_LOGON_FAILURE"
	case STATUS_NO_SUCH_FILE:
		return "STATUS_NO_SUCH_FILE"
	case STATUS_BAD_NETWORK_NAME:
		return "STATUS_BAD_NETWORK_NAME"
	case SMB_ERR_NOACCESS:
		return "SMB_ERR_NOACCESS"
	default:
		return "STATUS_UNKNOWN"
	}
}

// Service type string sent in TREE_CONNECT_ANDX; matches any share type.
const serviceAny = "?????"
