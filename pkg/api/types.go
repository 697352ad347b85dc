package api

import "context"

// Type identifies the kind of connection a transport hands to the chain.
type Type string

const (
	// TypeRequest is a request/response connection: the transport delivers
	// body chunks and expects a response start followed by body chunks.
	TypeRequest Type = "request"
	// TypeMessage is a bidirectional message-stream connection.
	TypeMessage Type = "message"
	// TypeLifecycle is the process lifecycle channel carrying startup and
	// shutdown signals, distinct from request traffic.
	TypeLifecycle Type = "lifecycle"
)

// Addr identifies one endpoint of a connection.
type Addr struct {
	Host string
	Port int
}

// RawHeader is a single header as delivered by the transport. Name and
// value are unmodified byte sequences; names are conventionally lowercase
// on the wire, but consumers must not rely on it.
type RawHeader struct {
	Name  []byte
	Value []byte
}

// Scope describes one connection. The transport populates it before the
// first event and never changes it afterwards; handlers treat it as
// read-only and attach per-connection state to the context instead.
// Router-assigned path parameters live on the request facade, not here.
type Scope struct {
	Type     Type
	Proto    string // transport protocol version, e.g. "1.1"
	Scheme   string // "http" or "https"
	Method   string
	Path     string
	RootPath string
	Query    []byte // raw query bytes, undecoded
	Headers  []RawHeader
	Client   Addr
	Server   Addr
}

// ReceiveFunc pulls the next event from the transport. It blocks until an
// event is available or ctx is done. Repeated calls yield events strictly
// in arrival order.
type ReceiveFunc func(ctx context.Context) (Event, error)

// SendFunc forwards one event to the transport.
type SendFunc func(ctx context.Context, ev Event) error

// Conn bundles the scope and event operations of a single connection for
// hand-off through the handler chain. Receive or Send may be nil when the
// transport does not support that direction; using a missing operation is
// a usage error (ErrNoReceive, ErrNoSend).
type Conn struct {
	Scope   *Scope
	Receive ReceiveFunc
	Send    SendFunc
}
