package http

import (
	"bytes"
	"context"
	"io"
	"net/http"
	neturl "net/url"

	"github.com/pkg/errors"
)

// RequestConfig collects everything needed to build a Request. It is a plain
// value; NewRequest validates it and freezes a copy.
type RequestConfig struct {
	// Method is GET or POST. When empty it is GET if no body was configured
	// and POST otherwise.
	Method  string
	URL     string
	Headers Headers

	Kind BodyKind
	// Payload is the object serialized for JSONBody.
	Payload any
	// Params are the fields of a FormBody, or the form-data fields of a MultipartBody.
	Params Fields
	// PartHeaders are the explicit parts of a MultipartBody, written before Params.
	PartHeaders Fields

	// Client overrides the process default client.
	Client *Client
}

type RequestOption func(*RequestConfig)

// WithHeaders appends headers in order.
func WithHeaders(h Headers) RequestOption {
	return func(c *RequestConfig) {
		c.Headers = append(c.Headers, h...)
	}
}

func WithHeader(name, value string) RequestOption {
	return func(c *RequestConfig) {
		c.Headers = append(c.Headers, HeaderField{Name: name, Value: value})
	}
}

// WithClient dispatches the request on c instead of the default client.
func WithClient(c *Client) RequestOption {
	return func(cfg *RequestConfig) {
		cfg.Client = c
	}
}

// Request is an immutable description of one HTTP request.
type Request struct {
	method      string
	url         string
	headers     Headers
	kind        BodyKind
	payload     any
	params      Fields
	partHeaders Fields
	client      *Client
}

// Get builds a GET request.
func Get(url string, opts ...RequestOption) (*Request, error) {
	return newRequest(RequestConfig{Method: http.MethodGet, URL: url}, opts)
}

// PostJSON builds a POST request whose body is payload serialized as JSON.
func PostJSON(url string, payload any, opts ...RequestOption) (*Request, error) {
	return newRequest(RequestConfig{Method: http.MethodPost, URL: url, Kind: JSONBody, Payload: payload}, opts)
}

// PostForm builds a URL-encoded POST request. Every field must be text.
func PostForm(url string, fields Fields, opts ...RequestOption) (*Request, error) {
	return newRequest(RequestConfig{Method: http.MethodPost, URL: url, Kind: FormBody, Params: fields}, opts)
}

// PostMultipart builds a multipart/form-data POST request. Either field list may be nil.
func PostMultipart(url string, params, partHeaders Fields, opts ...RequestOption) (*Request, error) {
	return newRequest(RequestConfig{
		Method:      http.MethodPost,
		URL:         url,
		Kind:        MultipartBody,
		Params:      params,
		PartHeaders: partHeaders,
	}, opts)
}

func newRequest(cfg RequestConfig, opts []RequestOption) (*Request, error) {
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewRequest(cfg)
}

// NewRequest validates cfg and returns the frozen request. Configuration
// problems are reported with ErrConfig, file values in a form body with ErrType.
func NewRequest(cfg RequestConfig) (*Request, error) {
	if cfg.URL == "" {
		return nil, newKindError(ErrConfig, "url is required")
	}
	if err := ValidateURL(cfg.URL); err != nil {
		return nil, errors.Wrap(ErrConfig, err.Error())
	}

	method := cfg.Method
	if method == "" {
		method = http.MethodGet
		if cfg.Kind != JSONBody || cfg.Payload != nil || cfg.Params != nil || cfg.PartHeaders != nil {
			method = http.MethodPost
		}
	}
	if method != http.MethodGet && method != http.MethodPost {
		return nil, newKindError(ErrConfig, "unsupported method %q", method)
	}

	if method == http.MethodPost {
		switch cfg.Kind {
		case JSONBody, MultipartBody:
		case FormBody:
			if err := checkFormFields(cfg.Params); err != nil {
				return nil, err
			}
		default:
			return nil, newKindError(ErrConfig, "unknown body kind %v", cfg.Kind)
		}
	}

	client := cfg.Client
	if client == nil {
		client = DefaultClient()
	}
	if client == nil {
		return nil, newKindError(ErrConfig, "http client is nil")
	}

	return &Request{
		method:      method,
		url:         cfg.URL,
		headers:     cfg.Headers.clone(),
		kind:        cfg.Kind,
		payload:     cfg.Payload,
		params:      cfg.Params.clone(),
		partHeaders: cfg.PartHeaders.clone(),
		client:      client,
	}, nil
}

func (r *Request) Method() string { return r.method }

func (r *Request) URL() string { return r.url }

// Headers returns a copy of the request headers in insertion order.
func (r *Request) Headers() Headers { return r.headers.clone() }

func (r *Request) Kind() BodyKind { return r.kind }

func (r *Request) Client() *Client { return r.client }

// Assemble builds the body and returns the wire request. GET requests never
// carry a body.
func (r *Request) Assemble() (*WireRequest, error) {
	w := &WireRequest{
		Method:  r.method,
		URL:     r.url,
		Headers: r.headers.clone(),
	}
	if r.method == http.MethodGet {
		return w, nil
	}

	var (
		body bodyTuple
		err  error
	)
	switch r.kind {
	case FormBody:
		body, err = buildFormBody(r.params)
	case MultipartBody:
		body, err = buildMultipartBody(r.params, r.partHeaders)
	default:
		body, err = buildJSONBody(r.payload)
	}
	if err != nil {
		return nil, err
	}
	w.Body = body.data
	w.ContentType = body.contentType
	return w, nil
}

// WireRequest is an assembled request, ready to be sent.
type WireRequest struct {
	Method      string
	URL         string
	Headers     Headers
	ContentType string
	Body        []byte
}

// HTTPRequest converts w into a net/http request bound to ctx. The body's
// content type replaces any Content-Type header set by the caller, since a
// multipart boundary must match the body.
func (w *WireRequest) HTTPRequest(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if w.Method != http.MethodGet {
		body = bytes.NewReader(w.Body)
	}
	req, err := http.NewRequestWithContext(ctx, w.Method, w.URL, body)
	if err != nil {
		return nil, WrapKind(ErrRequest, err, "creating HTTP request")
	}
	for _, f := range w.Headers {
		req.Header.Add(f.Name, f.Value)
	}
	if w.ContentType != "" {
		req.Header.Set("Content-Type", w.ContentType)
	}
	return req, nil
}

// ValidateURL checks that a URL is well-formed and uses an allowed scheme
func ValidateURL(rawURL string) error {
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return errors.Errorf("invalid URL: %v", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Errorf("unsupported URL scheme: %s (only http and https are allowed)", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("URL must have a host")
	}

	return nil
}
