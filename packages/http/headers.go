package http

import (
	"net/http"
	"sort"
	"strings"
)

type HeaderField struct {
	Name  string
	Value string
}

// Headers is an ordered header list. Names and values are not validated here;
// net/http rejects illegal ones when the request is sent.
type Headers []HeaderField

// NewHeaders builds a header list from name/value pairs. A trailing name
// without a value gets an empty value.
func NewHeaders(pairs ...string) Headers {
	if len(pairs) == 0 {
		return nil
	}
	h := make(Headers, 0, (len(pairs)+1)/2)
	for i := 0; i < len(pairs); i += 2 {
		field := HeaderField{Name: pairs[i]}
		if i+1 < len(pairs) {
			field.Value = pairs[i+1]
		}
		h = append(h, field)
	}
	return h
}

// HeadersFromMap converts a map, sorting names so the result is deterministic.
func HeadersFromMap(m map[string]string) Headers {
	if m == nil {
		return nil
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	h := make(Headers, 0, len(names))
	for _, name := range names {
		h = append(h, HeaderField{Name: name, Value: m[name]})
	}
	return h
}

// Get returns the first value for name, compared case-insensitively.
func (h Headers) Get(name string) string {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

func (h Headers) Has(name string) bool {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}

// Header converts the list into a net/http header. Repeated names keep their
// relative order.
func (h Headers) Header() http.Header {
	header := make(http.Header, len(h))
	for _, f := range h {
		header.Add(f.Name, f.Value)
	}
	return header
}

func (h Headers) clone() Headers {
	if h == nil {
		return nil
	}
	out := make(Headers, len(h))
	copy(out, h)
	return out
}
