package smbkit

import "context"

// ProtocolHandler describes a URL scheme served by the engine.
type ProtocolHandler struct {
	Scheme      string
	DefaultPort int
	UseTLS      bool
}

var handlers = map[string]ProtocolHandler{
	"smb":  {Scheme: "smb", DefaultPort: 445, UseTLS: false},
	"smbs": {Scheme: "smbs", DefaultPort: 445, UseTLS: true},
}

// LookupHandler returns the handler registered for scheme.
func LookupHandler(scheme string) (ProtocolHandler, bool) {
	h, ok := handlers[scheme]
	return h, ok
}

// Handler bundles the engine entry points an outer transfer loop drives:
// setup, connect, the two drive calls, done and disconnect, plus the
// selector hint. It carries one connection and its active request.
type Handler struct {
	cfg  *Config
	conn *Conn
	req  *Request
}

// NewHandler creates a handler for cfg. Connect must be called before
// driving.
func NewHandler(cfg *Config) *Handler {
	cfg.setDefaults()
	return &Handler{cfg: cfg}
}

// Connect attaches a transport and initializes the connection engine.
// The connection is kept alive across requests.
func (h *Handler) Connect(transport Transport) {
	h.conn = NewConn(h.cfg, transport)
}

// Setup parses the share and path out of urlPath and creates the request
// state. Fails with ErrURLMalformed when the path has no share/file
// separator.
func (h *Handler) Setup(urlPath string, opts RequestOptions) error {
	req, err := h.conn.NewRequest(urlPath, opts)
	if err != nil {
		return err
	}
	h.req = req
	return nil
}

// DriveConnection advances connection establishment.
func (h *Handler) DriveConnection() (bool, error) {
	return h.conn.DriveConnection()
}

// DriveRequest advances the active transfer.
func (h *Handler) DriveRequest() (bool, error) {
	return h.req.Drive()
}

// SelectorHint reports the readiness the engine waits for.
func (h *Handler) SelectorHint() Readiness {
	if h.conn == nil {
		return ReadinessNone
	}
	return h.conn.SelectorHint()
}

// Done releases the request state after a transfer.
func (h *Handler) Done() {
	if h.req != nil {
		h.req.Done()
		h.req = nil
	}
}

// Disconnect tears the connection down from any phase, releasing the
// request state too if Done was bypassed.
func (h *Handler) Disconnect() {
	if h.conn != nil {
		h.conn.Close()
		h.conn = nil
	}
	h.req = nil
}

// run drives the handler until the given drive function completes,
// honoring ctx cancellation between steps.
func (h *Handler) run(ctx context.Context, drive func() (bool, error)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		done, err := drive()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}
