package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetDefaultClient(t *testing.T) {
	t.Helper()
	defaultMu.Lock()
	defaultClient.Store(nil)
	defaultSet.Store(false)
	defaultMu.Unlock()
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

type multipartPart struct {
	name        string
	filename    string
	contentType string
	disposition string
	body        string
}

func readParts(t *testing.T, w *WireRequest) []multipartPart {
	t.Helper()
	mediaType, params, err := mime.ParseMediaType(w.ContentType)
	require.NoError(t, err)
	require.Equal(t, "multipart/form-data", mediaType)

	reader := multipart.NewReader(strings.NewReader(string(w.Body)), params["boundary"])
	var parts []multipartPart
	for {
		p, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(p)
		require.NoError(t, err)
		parts = append(parts, multipartPart{
			name:        p.FormName(),
			filename:    p.FileName(),
			contentType: p.Header.Get("Content-Type"),
			disposition: p.Header.Get("Content-Disposition"),
			body:        string(body),
		})
	}
	return parts
}

func TestHeaders_PreserveInsertionOrder(t *testing.T) {
	headers := NewHeaders(
		"X-Zeta", "1",
		"Accept", "application/json",
		"X-Multi", "a",
		"X-Alpha", "2",
		"X-Multi", "b",
	)
	req, err := Get("http://example.com/", WithHeaders(headers), WithClient(NewClient()))
	require.NoError(t, err)

	wire, err := req.Assemble()
	require.NoError(t, err)

	assert.Equal(t, headers, wire.Headers)
	assert.Equal(t, []string{"a", "b"}, wire.Headers.Header().Values("X-Multi"))
}

func TestHeaders_Absent(t *testing.T) {
	req, err := Get("http://example.com/", WithClient(NewClient()))
	require.NoError(t, err)

	wire, err := req.Assemble()
	require.NoError(t, err)

	assert.Empty(t, wire.Headers)
	assert.Nil(t, HeadersFromMap(nil))
}

func TestHeadersFromMap_Sorted(t *testing.T) {
	h := HeadersFromMap(map[string]string{"b": "2", "a": "1", "c": "3"})

	assert.Equal(t, Headers{{"a", "1"}, {"b", "2"}, {"c", "3"}}, h)
	assert.Equal(t, "2", h.Get("B"))
	assert.True(t, h.Has("C"))
	assert.False(t, h.Has("d"))
}

func TestRequest_HeadersAreCopied(t *testing.T) {
	headers := NewHeaders("X-Foo", "1")
	req, err := Get("http://example.com/", WithHeaders(headers), WithClient(NewClient()))
	require.NoError(t, err)

	headers[0].Value = "mutated"
	got := req.Headers()
	got[0].Value = "also mutated"

	assert.Equal(t, "1", req.Headers().Get("X-Foo"))
}

type user struct {
	Name    string            `json:"name"`
	Age     int               `json:"age"`
	Tags    []string          `json:"tags"`
	Address *address          `json:"address,omitempty"`
	Extra   map[string]string `json:"extra,omitempty"`
}

type address struct {
	City string `json:"city"`
}

func TestAssemble_JSONBodyRoundTrip(t *testing.T) {
	payload := user{
		Name:    "zhangsan",
		Age:     30,
		Tags:    []string{"a", "b"},
		Address: &address{City: "Hangzhou"},
		Extra:   map[string]string{"k": "v"},
	}
	req, err := PostJSON("http://example.com/users", payload, WithClient(NewClient()))
	require.NoError(t, err)

	wire, err := req.Assemble()
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, wire.Method)
	assert.Equal(t, ContentTypeJSON, wire.ContentType)
	var decoded user
	require.NoError(t, json.Unmarshal(wire.Body, &decoded))
	assert.Equal(t, payload, decoded)
}

func TestAssemble_JSONBodyNilPayload(t *testing.T) {
	req, err := NewRequest(RequestConfig{Method: http.MethodPost, URL: "http://example.com/", Client: NewClient()})
	require.NoError(t, err)

	wire, err := req.Assemble()
	require.NoError(t, err)

	assert.Equal(t, JSONBody, req.Kind())
	assert.Equal(t, "null", string(wire.Body))
	assert.Equal(t, ContentTypeJSON, wire.ContentType)
}

type node struct {
	Next *node `json:"next"`
}

func TestAssemble_JSONBodySerializationError(t *testing.T) {
	cyclic := &node{}
	cyclic.Next = cyclic

	tests := []struct {
		name    string
		payload any
	}{
		{name: "cycle", payload: cyclic},
		{name: "unsupported type", payload: map[string]any{"ch": make(chan int)}},
		{name: "function", payload: func() {}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := PostJSON("http://example.com/", tt.payload, WithClient(NewClient()))
			require.NoError(t, err)

			wire, err := req.Assemble()

			assert.Nil(t, wire)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrSerialization))
		})
	}
}

func TestAssemble_FormBody(t *testing.T) {
	fields := Fields{}.Add("b", Text("2")).Add("a", Text("1")).Add("q", Text("love & peace"))
	req, err := PostForm("http://example.com/login", fields, WithClient(NewClient()))
	require.NoError(t, err)

	wire, err := req.Assemble()
	require.NoError(t, err)

	assert.Equal(t, ContentTypeForm, wire.ContentType)
	assert.Equal(t, "b=2&a=1&q=love+%26+peace", string(wire.Body))
	values, err := url.ParseQuery(string(wire.Body))
	require.NoError(t, err)
	assert.Equal(t, url.Values{"a": {"1"}, "b": {"2"}, "q": {"love & peace"}}, values)
}

func TestPostForm_FileValueIsTypeError(t *testing.T) {
	fields := Fields{}.Add("a", Text("1")).Add("f", File("/tmp/x.txt"))

	req, err := PostForm("http://example.com/", fields, WithClient(NewClient()))

	assert.Nil(t, req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrType))
	assert.Contains(t, err.Error(), "form field 'f'")
}

func TestAssemble_MultipartFileParam(t *testing.T) {
	path := writeTempFile(t, "x.txt", "file content")
	req, err := PostMultipart("http://example.com/upload", Fields{}.Add("f", File(path)), nil, WithClient(NewClient()))
	require.NoError(t, err)

	wire, err := req.Assemble()
	require.NoError(t, err)

	parts := readParts(t, wire)
	require.Len(t, parts, 1)
	assert.Equal(t, "f", parts[0].name)
	assert.Equal(t, "x.txt", parts[0].filename)
	assert.Equal(t, FilePartContentType, parts[0].contentType)
	assert.Equal(t, "file content", parts[0].body)
}

func TestAssemble_MultipartPartHeadersFirst(t *testing.T) {
	path := writeTempFile(t, "avatar.png", "png bytes")
	partHeaders := Fields{}.Add("token", Text("abc")).Add("avatar", File(path))
	params := Fields{}.Add("name", Text("zhangsan")).Add("doc", File(path))

	req, err := PostMultipart("http://example.com/upload", params, partHeaders, WithClient(NewClient()))
	require.NoError(t, err)
	wire, err := req.Assemble()
	require.NoError(t, err)

	parts := readParts(t, wire)
	require.Len(t, parts, 4)

	assert.Equal(t, `form-data; name="token"`, parts[0].disposition)
	assert.Empty(t, parts[0].contentType)
	assert.Equal(t, "abc", parts[0].body)

	assert.Equal(t, `form-data; name="avatar"`, parts[1].disposition)
	assert.Equal(t, FilePartContentType, parts[1].contentType)
	assert.Equal(t, "png bytes", parts[1].body)

	assert.Equal(t, "name", parts[2].name)
	assert.Empty(t, parts[2].filename)
	assert.Equal(t, "zhangsan", parts[2].body)

	assert.Equal(t, "doc", parts[3].name)
	assert.Equal(t, "avatar.png", parts[3].filename)
	assert.Equal(t, FilePartContentType, parts[3].contentType)
}

func TestAssemble_MultipartEmpty(t *testing.T) {
	req, err := PostMultipart("http://example.com/upload", nil, nil, WithClient(NewClient()))
	require.NoError(t, err)

	wire, err := req.Assemble()
	require.NoError(t, err)

	assert.Empty(t, readParts(t, wire))
}

func TestAssemble_MultipartMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.txt")
	req, err := PostMultipart("http://example.com/upload", Fields{}.Add("f", File(missing)), nil, WithClient(NewClient()))
	require.NoError(t, err)

	_, err = req.Assemble()

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRequest))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestAssemble_GetHasNoBody(t *testing.T) {
	req, err := NewRequest(RequestConfig{URL: "http://example.com/", Client: NewClient()})
	require.NoError(t, err)

	wire, err := req.Assemble()
	require.NoError(t, err)
	httpReq, err := wire.HTTPRequest(context.Background())
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, req.Method())
	assert.Nil(t, wire.Body)
	assert.Empty(t, wire.ContentType)
	assert.Nil(t, httpReq.Body)
}

func TestNewRequest_MethodInference(t *testing.T) {
	client := NewClient()
	tests := []struct {
		name     string
		cfg      RequestConfig
		expected string
	}{
		{name: "no body", cfg: RequestConfig{}, expected: http.MethodGet},
		{name: "payload", cfg: RequestConfig{Payload: map[string]int{"a": 1}}, expected: http.MethodPost},
		{name: "form kind", cfg: RequestConfig{Kind: FormBody}, expected: http.MethodPost},
		{name: "multipart params", cfg: RequestConfig{Kind: MultipartBody, Params: Fields{}}, expected: http.MethodPost},
		{name: "explicit", cfg: RequestConfig{Method: http.MethodPost}, expected: http.MethodPost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.URL = "http://example.com/"
			tt.cfg.Client = client
			req, err := NewRequest(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, req.Method())
		})
	}
}

func TestNewRequest_ConfigErrors(t *testing.T) {
	client := NewClient()
	tests := []struct {
		name   string
		cfg    RequestConfig
		errMsg string
	}{
		{name: "missing url", cfg: RequestConfig{Client: client}, errMsg: "url is required"},
		{name: "bad scheme", cfg: RequestConfig{URL: "ftp://example.com", Client: client}, errMsg: "unsupported URL scheme"},
		{name: "bad method", cfg: RequestConfig{URL: "http://example.com", Method: "PUT", Client: client}, errMsg: "unsupported method"},
		{name: "bad kind", cfg: RequestConfig{URL: "http://example.com", Method: "POST", Kind: BodyKind(9), Client: client}, errMsg: "unknown body kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := NewRequest(tt.cfg)
			assert.Nil(t, req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfig))
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestWireRequest_HTTPRequest(t *testing.T) {
	req, err := PostForm("http://example.com/", Fields{}.Add("a", Text("1")),
		WithHeader("Content-Type", "text/plain"),
		WithHeader("X-Trace", "t1"),
		WithClient(NewClient()))
	require.NoError(t, err)
	wire, err := req.Assemble()
	require.NoError(t, err)

	httpReq, err := wire.HTTPRequest(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ContentTypeForm, httpReq.Header.Get("Content-Type"))
	assert.Equal(t, "t1", httpReq.Header.Get("X-Trace"))
	assert.Equal(t, int64(len("a=1")), httpReq.ContentLength)
	body, err := io.ReadAll(httpReq.Body)
	require.NoError(t, err)
	assert.Equal(t, "a=1", string(body))
}

func TestFieldValue(t *testing.T) {
	text := Text("hello")
	file := File("/var/data/report.pdf")

	assert.Equal(t, TextValue, text.Kind())
	assert.Equal(t, "hello", text.Text())
	assert.Empty(t, text.FileName())
	assert.Equal(t, FileValue, file.Kind())
	assert.Equal(t, "/var/data/report.pdf", file.Path())
	assert.Equal(t, "report.pdf", file.FileName())
	assert.Equal(t, "file", file.Kind().String())
}

func TestFieldsFromMap(t *testing.T) {
	fields := FieldsFromMap(map[string]string{"b": "2", "a": "1"})

	require.Len(t, fields, 2)
	assert.Equal(t, "a", fields[0].Key)
	assert.Equal(t, "2", fields[1].Value.Text())
	assert.Nil(t, FieldsFromMap(nil))
}

func TestDefaultClient_ConcurrentFirstUse(t *testing.T) {
	resetDefaultClient(t)
	defer resetDefaultClient(t)

	const n = 32
	clients := make([]*Client, n)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			clients[i] = DefaultClient()
		}(i)
	}
	close(start)
	wg.Wait()

	for _, c := range clients {
		require.NotNil(t, c)
		assert.Same(t, clients[0], c)
	}
}

func TestInitClient(t *testing.T) {
	resetDefaultClient(t)
	defer resetDefaultClient(t)

	custom := NewClient(WithTimeout(0))
	InitClient(custom)
	assert.Same(t, custom, DefaultClient())

	req, err := Get("http://example.com/")
	require.NoError(t, err)
	assert.Same(t, custom, req.Client())

	override := NewClient()
	req, err = Get("http://example.com/", WithClient(override))
	require.NoError(t, err)
	assert.Same(t, override, req.Client())
}

func TestInitClient_NilIsConfigError(t *testing.T) {
	resetDefaultClient(t)
	defer resetDefaultClient(t)

	InitClient(nil)

	req, err := Get("http://example.com/")
	assert.Nil(t, req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfig))
	assert.Contains(t, err.Error(), "http client is nil")
}
