package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/abdul-hamid-achik/hitcall/packages/core/env"
	"github.com/abdul-hamid-achik/hitcall/packages/http"
	"github.com/pkg/errors"
)

var reHeaderFieldName = regexp.MustCompile("^[-!#$%&'*+.^_|~a-zA-Z0-9]+$")

type itemType int

const (
	unknownItem itemType = iota
	headerItem
	queryItem
	dataFieldItem
	rawJSONFieldItem
	fileFieldItem
)

type usageError string

func (e *usageError) Error() string {
	return string(*e)
}

func newUsageError(format string, args ...any) error {
	u := usageError(strings.TrimSpace(fmt.Sprintf(format, args...)))
	return errors.WithStack(&u)
}

type queryParam struct {
	key, value string
}

type jsonField struct {
	key string
	raw json.RawMessage
}

// requestItems is the parsed form of the trailing CLI arguments.
type requestItems struct {
	headers http.Headers
	query   []queryParam
	fields  http.Fields
	json    []jsonField
	parts   http.Fields
}

func (in *requestItems) hasBody() bool {
	return len(in.fields) > 0 || len(in.json) > 0 || len(in.parts) > 0
}

// parseItems parses httpie-style request items:
//
//	Name:value   header
//	key==value   query parameter
//	key=value    text field
//	key=@path    field read from a file
//	key:=json    raw JSON field (JSON bodies only)
//	key@path     file attachment (multipart bodies only)
//
// Values are expanded by resolver before use.
func parseItems(args []string, kind http.BodyKind, resolver *env.Resolver) (*requestItems, error) {
	in := &requestItems{}
	for _, arg := range args {
		if err := parseItem(arg, kind, resolver, in); err != nil {
			return nil, err
		}
	}
	return in, nil
}

func parseItem(s string, kind http.BodyKind, resolver *env.Resolver, in *requestItems) error {
	typ, name, value := splitItem(s)
	value = resolver.Resolve(value)

	switch typ {
	case headerItem:
		if !reHeaderFieldName.MatchString(name) {
			return newUsageError("invalid header field name: %s", name)
		}
		in.headers = append(in.headers, http.HeaderField{Name: name, Value: strings.TrimSpace(value)})

	case queryItem:
		in.query = append(in.query, queryParam{key: name, value: value})

	case dataFieldItem:
		if kind == http.JSONBody {
			text := value
			if path, ok := strings.CutPrefix(value, "@"); ok {
				b, err := os.ReadFile(path)
				if err != nil {
					return errors.Wrapf(err, "reading '%s' for field '%s'", path, name)
				}
				text = string(b)
			}
			raw, err := json.Marshal(text)
			if err != nil {
				return errors.Wrapf(err, "encoding field '%s'", name)
			}
			in.json = append(in.json, jsonField{key: name, raw: raw})
			return nil
		}
		// a form body rejects the file value when the request is built
		in.fields = in.fields.Add(name, fieldValue(value))

	case rawJSONFieldItem:
		if kind != http.JSONBody {
			return newUsageError("raw JSON field item cannot be used in non-JSON body")
		}
		if !json.Valid([]byte(value)) {
			return newUsageError("invalid JSON at '%s': %s", name, value)
		}
		in.json = append(in.json, jsonField{key: name, raw: json.RawMessage(value)})

	case fileFieldItem:
		if kind != http.MultipartBody {
			return newUsageError("file field item cannot be used in non-multipart body (perhaps you meant --multipart?)")
		}
		in.fields = in.fields.Add(name, http.File(value))

	default:
		return newUsageError("unknown request item: %s", s)
	}
	return nil
}

// parsePart parses a --part value, key=value or key=@path.
func parsePart(s string, resolver *env.Resolver) (http.Field, error) {
	key, value, ok := strings.Cut(s, "=")
	if !ok || key == "" {
		return http.Field{}, newUsageError("invalid part %q, expected key=value or key=@path", s)
	}
	return http.Field{Key: key, Value: fieldValue(resolver.Resolve(value))}, nil
}

func fieldValue(value string) http.FieldValue {
	if path, ok := strings.CutPrefix(value, "@"); ok {
		return http.File(path)
	}
	return http.Text(value)
}

func splitItem(s string) (itemType, string, string) {
	for i, c := range s {
		switch c {
		case ':':
			if i+1 < len(s) && s[i+1] == '=' {
				return rawJSONFieldItem, s[:i], s[i+2:]
			}
			return headerItem, s[:i], s[i+1:]
		case '=':
			if i+1 < len(s) && s[i+1] == '=' {
				return queryItem, s[:i], s[i+2:]
			}
			return dataFieldItem, s[:i], s[i+1:]
		case '@':
			return fileFieldItem, s[:i], s[i+1:]
		}
	}
	return unknownItem, "", ""
}

// jsonPayload joins the JSON fields into one object, keeping argument order.
// It is nil when no field was given, so the body is the JSON null.
func (in *requestItems) jsonPayload() json.RawMessage {
	if len(in.json) == 0 {
		return nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range in.json {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(f.key)
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(f.raw)
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

// withQuery appends the query items to rawURL in argument order.
func (in *requestItems) withQuery(rawURL string) (string, error) {
	if len(in.query) == 0 {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", newUsageError("invalid URL: %s", rawURL)
	}
	pairs := make([]string, 0, len(in.query))
	for _, q := range in.query {
		pairs = append(pairs, url.QueryEscape(q.key)+"="+url.QueryEscape(q.value))
	}
	if u.RawQuery != "" {
		u.RawQuery += "&"
	}
	u.RawQuery += strings.Join(pairs, "&")
	return u.String(), nil
}
