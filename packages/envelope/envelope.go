// Package envelope decodes the {code, message, data} wrapper that every
// server response is expected to follow.
//
// The payload type is only known at the call site, so decoding is generic:
// Decode[T] unwraps data into T on a 2xx status and reports code and message
// as a *Failure otherwise.
package envelope

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/abdul-hamid-achik/hitcall/packages/http"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
)

type Envelope[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// Failure is the error-path content of an envelope received with a non-2xx status.
type Failure struct {
	Code    int
	Message string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("code %d: %s", f.Code, f.Message)
}

// shapeSchema accepts any object whose code and message, when present, have
// the envelope types. data is left to the decoder of T.
const shapeSchema = `{
	"type": "object",
	"properties": {
		"code": {"type": ["integer", "null"]},
		"message": {"type": ["string", "null"]}
	}
}`

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func loadSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(shapeSchema))
	})
	return schema, schemaErr
}

// Decode unwraps resp. On a 2xx status it returns data decoded as T, even if
// code and message are also set. On any other status it returns a *Failure
// built from code and message, and data is never decoded. A body that is not
// an envelope yields an error matching http.ErrDecode.
func Decode[T any](resp *http.Response) (T, error) {
	var zero T
	if resp == nil {
		return zero, errors.Wrap(http.ErrDecode, "nil response")
	}
	return DecodeBody[T](resp.StatusCode, resp.Body, resp.Reason())
}

// DecodeBody is Decode for a raw status and body. reason is used as the
// failure message when a non-2xx envelope carries none.
func DecodeBody[T any](status int, body []byte, reason string) (T, error) {
	var zero T
	if err := CheckShape(body); err != nil {
		return zero, err
	}

	if status >= 200 && status < 300 {
		var env Envelope[T]
		if err := json.Unmarshal(body, &env); err != nil {
			return zero, http.WrapKind(http.ErrDecode, err, "decoding envelope data")
		}
		return env.Data, nil
	}

	return zero, failureFrom(status, body, reason)
}

// CheckShape reports whether body is a JSON object with envelope-typed code
// and message fields.
func CheckShape(body []byte) error {
	if !gjson.ValidBytes(body) {
		return errors.Wrap(http.ErrDecode, "response body is not valid JSON")
	}

	s, err := loadSchema()
	if err != nil {
		return http.WrapKind(http.ErrDecode, err, "loading envelope schema")
	}
	result, err := s.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return http.WrapKind(http.ErrDecode, err, "validating envelope")
	}
	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return errors.Wrapf(http.ErrDecode, "response body is not an envelope: %s", strings.Join(problems, "; "))
	}
	return nil
}

func failureFrom(status int, body []byte, reason string) *Failure {
	f := &Failure{Code: status, Message: reason}
	fields := gjson.GetManyBytes(body, "code", "message")
	if fields[0].Exists() && fields[0].Type != gjson.Null {
		f.Code = int(fields[0].Int())
	}
	if fields[1].Exists() && fields[1].Type != gjson.Null {
		f.Message = fields[1].String()
	}
	return f
}
