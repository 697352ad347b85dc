package request

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rhuss/relais/pkg/api"
)

// Request is the lazily-decoding facade over one request connection.
// Accessors compute their view on first use and keep it for the lifetime
// of the instance. A Request is used from the single task handling its
// connection and needs no locking.
type Request struct {
	conn   api.Conn
	params map[string]string

	// cache holds the derived views, one slot per accessor. Slots whose
	// zero value is a valid result carry an explicit filled flag.
	cache struct {
		headers   http.Header
		url       *url.URL
		query     url.Values
		queryOK   bool
		cookies   map[string]string
		ctype     string
		ctypeOpts map[string]string
		ctypeOK   bool
		body      []byte
		bodyOK    bool
		text      string
		textOK    bool
		json      any
		jsonOK    bool
		form      url.Values
	}
}

// New wraps a connection in a request facade.
func New(conn api.Conn) *Request {
	return &Request{conn: conn}
}

// Conn returns the underlying connection.
func (r *Request) Conn() api.Conn { return r.conn }

// Scope returns the transport-provided connection scope.
func (r *Request) Scope() *api.Scope { return r.conn.Scope }

// Method returns the connection's method.
func (r *Request) Method() string { return r.conn.Scope.Method }

// Path returns the connection's path, without the root path prefix.
func (r *Request) Path() string { return r.conn.Scope.Path }

// Headers returns the connection headers as a case-insensitive multi-value
// map. Raw byte pairs are decoded per ISO 8859-1; duplicates of a header
// keep their arrival order.
func (r *Request) Headers() http.Header {
	if r.cache.headers == nil {
		h := make(http.Header, len(r.conn.Scope.Headers))
		for _, raw := range r.conn.Scope.Headers {
			h.Add(latin1(raw.Name), latin1(raw.Value))
		}
		r.cache.headers = h
	}
	return r.cache.headers
}

// URL reconstructs the full request URL from the scope. A host header
// overrides the transport-provided host, and a port carried in the header
// wins over the transport-level one. Default ports are elided.
func (r *Request) URL() *url.URL {
	if r.cache.url == nil {
		scope := r.conn.Scope
		scheme := scope.Scheme
		if scheme == "" {
			scheme = "http"
		}
		host := scope.Server.Host
		port := scope.Server.Port
		if h := r.Headers().Get("Host"); h != "" {
			host = h
		}
		if h, p, err := net.SplitHostPort(host); err == nil {
			host = h
			if n, err := strconv.Atoi(p); err == nil {
				port = n
			}
		}
		hostport := host
		if port != 0 && !isDefaultPort(scheme, port) {
			hostport = net.JoinHostPort(host, strconv.Itoa(port))
		}
		r.cache.url = &url.URL{
			Scheme:   scheme,
			Host:     hostport,
			Path:     scope.RootPath + scope.Path,
			RawQuery: latin1(scope.Query),
		}
	}
	return r.cache.url
}

func isDefaultPort(scheme string, port int) bool {
	switch scheme {
	case "http", "ws":
		return port == 80
	case "https", "wss":
		return port == 443
	}
	return false
}

// Query returns the parsed query parameters. Parsing is lenient: pairs
// that fail to unescape are dropped rather than failing the whole query.
func (r *Request) Query() url.Values {
	if !r.cache.queryOK {
		q, _ := url.ParseQuery(r.URL().RawQuery)
		r.cache.query = q
		r.cache.queryOK = true
	}
	return r.cache.query
}

// Cookies returns the cookies sent with the connection. A later duplicate
// of a name overwrites the earlier value.
func (r *Request) Cookies() map[string]string {
	if r.cache.cookies == nil {
		r.cache.cookies = parseCookies(r.Headers().Get("Cookie"))
	}
	return r.cache.cookies
}

func (r *Request) fillContentType() {
	if !r.cache.ctypeOK {
		ctype, opts := ParseOptionsHeader(r.Headers().Get("Content-Type"))
		r.cache.ctype = ctype
		r.cache.ctypeOpts = opts
		r.cache.ctypeOK = true
	}
}

// ContentType returns the primary media type of the connection body, e.g.
// "application/json". Empty when no content-type header was sent.
func (r *Request) ContentType() string {
	r.fillContentType()
	return r.cache.ctype
}

// Charset returns the charset declared in the content-type header, or
// "utf-8" when none is declared.
func (r *Request) Charset() string {
	r.fillContentType()
	if cs := r.cache.ctypeOpts["charset"]; cs != "" {
		return cs
	}
	return defaultCharset
}

// Body drains the connection's receive stream and returns the complete
// payload, chunks concatenated in arrival order. The stream is read
// exactly once: repeated calls return the identical cached bytes.
func (r *Request) Body(ctx context.Context) ([]byte, error) {
	if r.cache.bodyOK {
		return r.cache.body, nil
	}
	if r.conn.Receive == nil {
		return nil, api.ErrNoReceive
	}
	var body []byte
	for {
		ev, err := r.conn.Receive(ctx)
		if err != nil {
			return nil, err
		}
		body = append(body, ev.Body...)
		if !ev.More {
			break
		}
	}
	r.cache.body = body
	r.cache.bodyOK = true
	return body, nil
}

// Text decodes the body using the declared charset. The decoded string is
// cached on success; a failure is reported as a *api.DecodeError with the
// encoding purpose and nothing is cached.
func (r *Request) Text(ctx context.Context) (string, error) {
	if r.cache.textOK {
		return r.cache.text, nil
	}
	body, err := r.Body(ctx)
	if err != nil {
		return "", err
	}
	text, err := decodeCharset(body, r.Charset())
	if err != nil {
		return "", api.NewEncodingError(err)
	}
	r.cache.text = text
	r.cache.textOK = true
	return text, nil
}

// JSON parses the body text as JSON into untyped Go values. The parsed
// value is cached under its own slot, so a later Text call or a repeated
// JSON call does not decode again. A charset failure from the text step
// propagates unchanged; a parse failure is reported with the json purpose.
func (r *Request) JSON(ctx context.Context) (any, error) {
	if r.cache.jsonOK {
		return r.cache.json, nil
	}
	text, err := r.Text(ctx)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, api.NewJSONError(err)
	}
	r.cache.json = v
	r.cache.jsonOK = true
	return v, nil
}

// Form parses the body as submitted form data: multipart/form-data when
// the content type says so, URL-encoded otherwise. Blank values are kept.
// Any failure, including a charset failure while decoding part values, is
// reported with the form purpose.
func (r *Request) Form(ctx context.Context) (url.Values, error) {
	if r.cache.form != nil {
		return r.cache.form, nil
	}
	body, err := r.Body(ctx)
	if err != nil {
		return nil, err
	}
	var form url.Values
	if r.ContentType() == "multipart/form-data" {
		form, err = parseMultipart(body, r.cache.ctypeOpts["boundary"], r.Charset())
	} else {
		form, err = parseURLEncoded(body, r.Charset())
	}
	if err != nil {
		return nil, api.NewFormError(err)
	}
	r.cache.form = form
	return form, nil
}

func parseURLEncoded(body []byte, charset string) (url.Values, error) {
	text, err := decodeCharset(body, charset)
	if err != nil {
		return nil, err
	}
	return url.ParseQuery(text)
}

func parseMultipart(body []byte, boundary, charset string) (url.Values, error) {
	form := url.Values{}
	mr := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		name := part.FormName()
		if name == "" {
			continue
		}
		data, err := io.ReadAll(part)
		if err != nil {
			return nil, err
		}
		value, err := decodeCharset(data, charset)
		if err != nil {
			return nil, err
		}
		form.Add(name, value)
	}
	return form, nil
}

// Param returns the named router parameter, or the empty string.
func (r *Request) Param(name string) string { return r.params[name] }

// Params returns the router-assigned parameters. The routing stage sets
// them before the route handler runs; they are kept apart from the
// transport-provided scope.
func (r *Request) Params() map[string]string { return r.params }

// SetParams installs the router-assigned parameters.
func (r *Request) SetParams(params map[string]string) { r.params = params }

// Receive pulls the next event from the connection, for handlers that
// consume the stream directly instead of through Body.
func (r *Request) Receive(ctx context.Context) (api.Event, error) {
	if r.conn.Receive == nil {
		return api.Event{}, api.ErrNoReceive
	}
	return r.conn.Receive(ctx)
}

// Send forwards an event to the connection.
func (r *Request) Send(ctx context.Context, ev api.Event) error {
	if r.conn.Send == nil {
		return api.ErrNoSend
	}
	return r.conn.Send(ctx, ev)
}
