package http

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	neturl "net/url"
	"time"

	"github.com/apex/log"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 30 * time.Second
	// DefaultMaxRedirects is the maximum number of redirects to follow
	DefaultMaxRedirects = 10
	// DefaultMaxIdleConns is the maximum number of idle connections in the pool
	DefaultMaxIdleConns = 100
	// DefaultMaxIdleConnsPerHost is the maximum number of idle connections per host
	DefaultMaxIdleConnsPerHost = 10
	// DefaultIdleConnTimeout is how long idle connections stay in the pool
	DefaultIdleConnTimeout = 90 * time.Second
	// DefaultMaxConcurrent bounds the exchanges in flight on one client
	DefaultMaxConcurrent = 64
)

// Client is the shared transport handle. It sends requests synchronously
// with Do and asynchronously with Enqueue, which runs exchanges on a pool of
// goroutines bounded by WithMaxConcurrent.
type Client struct {
	httpClient     *http.Client
	transport      http.RoundTripper
	timeout        time.Duration
	followRedirect bool
	maxRedirects   int
	validateSSL    bool
	proxyURL       string
	defaultHeaders Headers
	maxConcurrent  int
	rateLimit      float64

	limiter   *rate.Limiter
	sem       chan struct{}
	logger    log.Interface
	recorders []Recorder
}

type ClientOption func(*Client)

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		timeout:        DefaultTimeout,
		followRedirect: true,
		maxRedirects:   DefaultMaxRedirects,
		validateSSL:    true,
		maxConcurrent:  DefaultMaxConcurrent,
		logger:         log.Log,
	}

	for _, opt := range opts {
		opt(c)
	}

	transport := c.transport
	if transport == nil {
		t := &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        DefaultMaxIdleConns,
			MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
			IdleConnTimeout:     DefaultIdleConnTimeout,
		}

		// Configure TLS verification
		if !c.validateSSL {
			t.TLSClientConfig = &tls.Config{
				InsecureSkipVerify: true,
			}
		}

		if c.proxyURL != "" {
			proxyURL, err := neturl.Parse(c.proxyURL)
			if err == nil {
				t.Proxy = http.ProxyURL(proxyURL)
			} else {
				c.logger.Warnf("ignoring invalid proxy URL %q: %v", c.proxyURL, err)
			}
		}
		transport = t
	}

	redirectPolicy := func(req *http.Request, via []*http.Request) error {
		if !c.followRedirect {
			return http.ErrUseLastResponse
		}
		if len(via) >= c.maxRedirects {
			return http.ErrUseLastResponse
		}
		return nil
	}

	c.httpClient = &http.Client{
		Transport:     transport,
		Timeout:       c.timeout,
		CheckRedirect: redirectPolicy,
	}

	if c.maxConcurrent < 1 {
		c.maxConcurrent = DefaultMaxConcurrent
	}
	c.sem = make(chan struct{}, c.maxConcurrent)

	if c.rateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(c.rateLimit), 1)
	}

	return c
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithFollowRedirects(follow bool) ClientOption {
	return func(c *Client) {
		c.followRedirect = follow
	}
}

func WithMaxRedirects(max int) ClientOption {
	return func(c *Client) {
		c.maxRedirects = max
	}
}

// WithDefaultHeader adds a header sent on every request that does not set it itself.
func WithDefaultHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.defaultHeaders = append(c.defaultHeaders, HeaderField{Name: key, Value: value})
	}
}

// WithDefaultHeaders sets multiple default headers for all requests
func WithDefaultHeaders(headers Headers) ClientOption {
	return func(c *Client) {
		c.defaultHeaders = append(c.defaultHeaders, headers...)
	}
}

// WithValidateSSL enables or disables SSL certificate validation
func WithValidateSSL(validate bool) ClientOption {
	return func(c *Client) {
		c.validateSSL = validate
	}
}

// WithProxy sets the proxy URL for all requests
func WithProxy(proxyURL string) ClientOption {
	return func(c *Client) {
		c.proxyURL = proxyURL
	}
}

// WithTransport replaces the round tripper. TLS and proxy options are then ignored.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.transport = rt
	}
}

// WithMaxConcurrent bounds the number of asynchronous exchanges in flight.
func WithMaxConcurrent(n int) ClientOption {
	return func(c *Client) {
		c.maxConcurrent = n
	}
}

// WithRateLimit paces outgoing requests to rps requests per second. Zero disables pacing.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		c.rateLimit = rps
	}
}

func WithLogger(logger log.Interface) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRecorder registers r to receive one Entry per dispatched call.
func WithRecorder(r Recorder) ClientOption {
	return func(c *Client) {
		if r != nil {
			c.recorders = append(c.recorders, r)
		}
	}
}

func (c *Client) Logger() log.Interface {
	return c.logger
}

// Do sends req and reads the whole response body. A non-2xx status is not an
// error; only failures to obtain a response are, tagged with ErrTransport.
func (c *Client) Do(ctx context.Context, req *http.Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, WrapKind(ErrTransport, err, "waiting for rate limiter")
		}
	}

	for _, f := range c.defaultHeaders {
		if req.Header.Get(f.Name) == "" {
			req.Header.Set(f.Name, f.Value)
		}
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return nil, WrapKind(ErrTransport, err, "sending HTTP request")
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	duration := time.Since(start)
	if err != nil {
		return nil, WrapKind(ErrTransport, err, "reading response body")
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Proto:      httpResp.Proto,
		Headers:    httpResp.Header.Clone(),
		Body:       respBody,
		Duration:   duration,
	}, nil
}

// Enqueue sends req on a pool goroutine and hands the outcome to fn there.
// It never blocks the caller. fn is called exactly once.
func (c *Client) Enqueue(ctx context.Context, req *http.Request, fn func(*Response, error)) {
	go func() {
		select {
		case c.sem <- struct{}{}:
		case <-ctx.Done():
			fn(nil, WrapKind(ErrTransport, ctx.Err(), "waiting for dispatcher slot"))
			return
		}
		defer func() { <-c.sem }()

		resp, err := c.Do(ctx, req)
		fn(resp, err)
	}()
}

// Record forwards e to every registered recorder.
func (c *Client) Record(e Entry) {
	for _, r := range c.recorders {
		r.Record(e)
	}
}
