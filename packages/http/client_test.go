package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doGet(t *testing.T, client *Client, url string) (*Response, error) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	return client.Do(context.Background(), req)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestClient_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/test", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message": "hello"}`))
	}))
	defer server.Close()

	client := NewClient()
	resp, err := doGet(t, client, server.URL+"/test")

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header("Content-Type"))
	assert.Contains(t, resp.BodyString(), "hello")
	assert.True(t, resp.IsJSON())
}

func TestClient_WithTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(WithTimeout(50 * time.Millisecond))
	_, err := doGet(t, client, server.URL)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))
	assert.Contains(t, err.Error(), "context deadline exceeded")
}

func TestClient_WithDefaultHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "request-agent", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(
		WithDefaultHeader("Authorization", "test-token"),
		WithDefaultHeaders(NewHeaders("User-Agent", "custom-agent")),
	)
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "request-agent")

	resp, err := client.Do(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestClient_FollowRedirects(t *testing.T) {
	redirectCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/final" {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`final`))
			return
		}
		redirectCount++
		http.Redirect(w, r, "/final", http.StatusFound)
	}))
	defer server.Close()

	client := NewClient(WithFollowRedirects(true))
	resp, err := doGet(t, client, server.URL+"/redirect")

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "final", resp.BodyString())
	assert.Equal(t, 1, redirectCount)
}

func TestClient_NoFollowRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	}))
	defer server.Close()

	client := NewClient(WithFollowRedirects(false))
	resp, err := doGet(t, client, server.URL+"/redirect")

	require.NoError(t, err)
	assert.Equal(t, 302, resp.StatusCode)
}

func TestClient_MaxRedirects(t *testing.T) {
	redirectCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		redirectCount++
		http.Redirect(w, r, "/redirect", http.StatusFound)
	}))
	defer server.Close()

	client := NewClient(WithMaxRedirects(3))
	resp, err := doGet(t, client, server.URL+"/redirect")

	require.NoError(t, err)
	assert.Equal(t, 302, resp.StatusCode)
	assert.LessOrEqual(t, redirectCount, 4)
}

func TestClient_WithTransport(t *testing.T) {
	client := NewClient(WithTransport(roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})))

	_, err := doGet(t, client, "http://example.invalid/")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestClient_Enqueue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))
	defer server.Close()

	client := NewClient()
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	done := make(chan *Response, 1)
	client.Enqueue(context.Background(), req, func(resp *Response, err error) {
		assert.NoError(t, err)
		done <- resp
	})

	select {
	case resp := <-done:
		assert.Equal(t, http.StatusTeapot, resp.StatusCode)
		assert.Equal(t, "short and stout", resp.BodyString())
	case <-time.After(5 * time.Second):
		t.Fatal("enqueued request never completed")
	}
}

func TestClient_EnqueueCancelledWhileQueued(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	client := NewClient(
		WithMaxConcurrent(1),
		WithTransport(roundTripFunc(func(r *http.Request) (*http.Response, error) {
			close(started)
			<-release
			return nil, errors.New("released")
		})),
	)
	defer close(release)

	first, err := http.NewRequest(http.MethodGet, "http://example.invalid/1", nil)
	require.NoError(t, err)
	client.Enqueue(context.Background(), first, func(*Response, error) {})
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	second, err := http.NewRequest(http.MethodGet, "http://example.invalid/2", nil)
	require.NoError(t, err)

	done := make(chan error, 1)
	client.Enqueue(ctx, second, func(resp *Response, err error) {
		assert.Nil(t, resp)
		done <- err
	})
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, ErrTransport))
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled request never completed")
	}
}

func TestClient_MaxConcurrent(t *testing.T) {
	var inFlight, peak atomic.Int32
	client := NewClient(
		WithMaxConcurrent(2),
		WithTransport(roundTripFunc(func(r *http.Request) (*http.Response, error) {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			inFlight.Add(-1)
			return &http.Response{StatusCode: 200, Status: "200 OK", Body: http.NoBody, Header: http.Header{}}, nil
		})),
	)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		req, err := http.NewRequest(http.MethodGet, "http://example.invalid/", nil)
		require.NoError(t, err)
		wg.Add(1)
		client.Enqueue(context.Background(), req, func(*Response, error) { wg.Done() })
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestClient_WithRateLimit(t *testing.T) {
	var calls atomic.Int32
	client := NewClient(
		WithRateLimit(20),
		WithTransport(roundTripFunc(func(r *http.Request) (*http.Response, error) {
			calls.Add(1)
			return &http.Response{StatusCode: 200, Status: "200 OK", Body: http.NoBody, Header: http.Header{}}, nil
		})),
	)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := doGet(t, client, "http://example.invalid/")
		require.NoError(t, err)
	}

	assert.Equal(t, int32(3), calls.Load())
	// burst of one, then 50ms per token
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestClient_Record(t *testing.T) {
	var got []Entry
	var mu sync.Mutex
	rec := RecorderFunc(func(e Entry) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e)
	})
	client := NewClient(WithRecorder(rec), WithRecorder(nil))

	client.Record(Entry{ID: "a", Outcome: OutcomeSuccess})

	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid http URL",
			url:     "http://example.com/path",
			wantErr: false,
		},
		{
			name:    "valid https URL",
			url:     "https://example.com/path",
			wantErr: false,
		},
		{
			name:    "invalid scheme",
			url:     "ftp://example.com",
			wantErr: true,
			errMsg:  "unsupported URL scheme",
		},
		{
			name:    "missing scheme",
			url:     "example.com/path",
			wantErr: true,
			errMsg:  "unsupported URL scheme",
		},
		{
			name:    "missing host",
			url:     "http:///path",
			wantErr: true,
			errMsg:  "URL must have a host",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResponse_IsSuccess(t *testing.T) {
	tests := []struct {
		statusCode int
		expected   bool
	}{
		{200, true},
		{201, true},
		{204, true},
		{299, true},
		{300, false},
		{400, false},
		{404, false},
		{500, false},
	}

	for _, tt := range tests {
		resp := &Response{StatusCode: tt.statusCode}
		assert.Equal(t, tt.expected, resp.IsSuccess(), "StatusCode: %d", tt.statusCode)
	}
}

func TestResponse_Reason(t *testing.T) {
	assert.Equal(t, "Not Found", (&Response{StatusCode: 404, Status: "404 Not Found"}).Reason())
	assert.Equal(t, "Internal Server Error", (&Response{StatusCode: 500}).Reason())
}
