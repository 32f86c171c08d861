package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hitcall/packages/call"
	"github.com/abdul-hamid-achik/hitcall/packages/core/env"
	hitcallhttp "github.com/abdul-hamid-achik/hitcall/packages/http"
	"github.com/abdul-hamid-achik/hitcall/packages/output"
)

// requestSpec is a request described on the command line. It can be built
// any number of times.
type requestSpec struct {
	method string
	kind   hitcallhttp.BodyKind
	url    string
	items  *requestItems
	parts  hitcallhttp.Fields
}

// bodyKind picks the body encoding from the --form and --multipart flags.
func bodyKind(form, multipart bool) (hitcallhttp.BodyKind, error) {
	switch {
	case form && multipart:
		return 0, newUsageError("--form and --multipart cannot be used together")
	case form:
		return hitcallhttp.FormBody, nil
	case multipart:
		return hitcallhttp.MultipartBody, nil
	default:
		return hitcallhttp.JSONBody, nil
	}
}

func newRequestSpec(method string, kind hitcallhttp.BodyKind, args, partArgs []string, resolver *env.Resolver) (*requestSpec, error) {
	method = strings.ToUpper(method)
	if method != http.MethodGet && method != http.MethodPost {
		return nil, newUsageError("unsupported method %q, expected GET or POST", method)
	}

	items, err := parseItems(args[1:], kind, resolver)
	if err != nil {
		return nil, err
	}
	if method == http.MethodGet && items.hasBody() {
		return nil, newUsageError("GET requests carry no body; use key==value for query parameters")
	}

	if len(partArgs) > 0 && kind != hitcallhttp.MultipartBody {
		return nil, newUsageError("--part requires --multipart")
	}
	var parts hitcallhttp.Fields
	for _, p := range partArgs {
		f, err := parsePart(p, resolver)
		if err != nil {
			return nil, err
		}
		parts = append(parts, f)
	}

	url, err := items.withQuery(resolver.Resolve(args[0]))
	if err != nil {
		return nil, err
	}

	return &requestSpec{
		method: method,
		kind:   kind,
		url:    url,
		items:  items,
		parts:  parts,
	}, nil
}

// build constructs the request. It matches bench.BuildFunc.
func (r *requestSpec) build(opts ...hitcallhttp.RequestOption) (*hitcallhttp.Request, error) {
	opts = append([]hitcallhttp.RequestOption{hitcallhttp.WithHeaders(r.items.headers)}, opts...)

	if r.method == http.MethodGet {
		return hitcallhttp.Get(r.url, opts...)
	}
	switch r.kind {
	case hitcallhttp.FormBody:
		return hitcallhttp.PostForm(r.url, r.items.fields, opts...)
	case hitcallhttp.MultipartBody:
		return hitcallhttp.PostMultipart(r.url, r.items.fields, r.parts, opts...)
	default:
		return hitcallhttp.PostJSON(r.url, r.items.jsonPayload(), opts...)
	}
}

type callResult struct {
	data    json.RawMessage
	code    int
	message string
	ok      bool
}

// dispatch executes req, waits for its callback and prints the outcome.
// The path selects part of the data with a gjson path.
func (s *session) dispatch(ctx context.Context, req *hitcallhttp.Request, path string) error {
	done := make(chan callResult, 1)
	c := call.New[json.RawMessage](req)

	start := time.Now()
	c.ExecuteContext(ctx, call.Funcs[json.RawMessage]{
		Success: func(data json.RawMessage) { done <- callResult{data: data, ok: true} },
		Error:   func(code int, message string) { done <- callResult{code: code, message: message} },
	})
	res := <-done
	s.out.FormatCall(c.ID(), req.Method(), req.URL(), time.Since(start))

	if !res.ok {
		s.out.FormatFailure(res.code, res.message)
		return withExitCode(callExitCode(res.code), nil)
	}

	data := []byte(res.data)
	if path != "" {
		picked, err := output.Pick(data, path)
		if err != nil {
			return withExitCode(ExitCallFailure, err)
		}
		data = picked
	}
	s.out.FormatData(data)
	return nil
}

// send builds spec and dispatches it on the session's client.
func (s *session) send(ctx context.Context, spec *requestSpec, path string) error {
	req, err := spec.build()
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}
	return s.dispatch(ctx, req, path)
}
