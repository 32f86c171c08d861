package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"os"
	"strings"
)

// BodyKind selects how a POST payload is encoded.
type BodyKind int

const (
	// JSONBody is the default kind: the payload object is serialized as-is, nil included.
	JSONBody BodyKind = iota
	FormBody
	MultipartBody
)

func (k BodyKind) String() string {
	switch k {
	case JSONBody:
		return "json"
	case FormBody:
		return "form"
	case MultipartBody:
		return "multipart"
	default:
		return fmt.Sprintf("BodyKind(%d)", int(k))
	}
}

const (
	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"
	// FilePartContentType is sent on every multipart part that carries a file.
	FilePartContentType = "file/*"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

type bodyTuple struct {
	data        []byte
	contentType string
}

func buildJSONBody(payload any) (bodyTuple, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return bodyTuple{}, WrapKind(ErrSerialization, err, "marshaling JSON body")
	}
	return bodyTuple{data: data, contentType: ContentTypeJSON}, nil
}

// checkFormFields rejects file values, which a URL-encoded body cannot carry.
func checkFormFields(fields Fields) error {
	for _, f := range fields {
		if f.Value.Kind() != TextValue {
			return newKindError(ErrType, "form field '%s' is a %s value; form bodies accept text only", f.Key, f.Value.Kind())
		}
	}
	return nil
}

func buildFormBody(fields Fields) (bodyTuple, error) {
	if err := checkFormFields(fields); err != nil {
		return bodyTuple{}, err
	}
	// url.Values.Encode sorts keys, so the pairs are joined by hand to keep insertion order.
	pairs := make([]string, 0, len(fields))
	for _, f := range fields {
		pairs = append(pairs, url.QueryEscape(f.Key)+"="+url.QueryEscape(f.Value.Text()))
	}
	return bodyTuple{
		data:        []byte(strings.Join(pairs, "&")),
		contentType: ContentTypeForm,
	}, nil
}

// buildMultipartBody writes the part headers first, then the params.
func buildMultipartBody(params, partHeaders Fields) (bodyTuple, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for _, f := range partHeaders {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"`, quoteEscaper.Replace(f.Key)))
		if f.Value.Kind() == FileValue {
			h.Set("Content-Type", FilePartContentType)
		}
		if err := writePart(writer, h, f); err != nil {
			return bodyTuple{}, err
		}
	}

	for _, f := range params {
		if f.Value.Kind() != FileValue {
			if err := writer.WriteField(f.Key, f.Value.Text()); err != nil {
				return bodyTuple{}, WrapKind(ErrRequest, err, "writing multipart field")
			}
			continue
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(f.Key), quoteEscaper.Replace(f.Value.FileName())))
		h.Set("Content-Type", FilePartContentType)
		if err := writePart(writer, h, f); err != nil {
			return bodyTuple{}, err
		}
	}

	if err := writer.Close(); err != nil {
		return bodyTuple{}, WrapKind(ErrRequest, err, "closing multipart body")
	}
	return bodyTuple{data: body.Bytes(), contentType: writer.FormDataContentType()}, nil
}

func writePart(writer *multipart.Writer, h textproto.MIMEHeader, f Field) error {
	part, err := writer.CreatePart(h)
	if err != nil {
		return WrapKind(ErrRequest, err, "creating multipart part")
	}
	if f.Value.Kind() != FileValue {
		_, err = io.WriteString(part, f.Value.Text())
		return WrapKind(ErrRequest, err, "writing multipart part")
	}

	file, err := os.Open(f.Value.Path())
	if err != nil {
		return WrapKind(ErrRequest, err, fmt.Sprintf("opening file for part '%s'", f.Key))
	}
	defer file.Close()

	if _, err := io.Copy(part, file); err != nil {
		return WrapKind(ErrRequest, err, fmt.Sprintf("reading file for part '%s'", f.Key))
	}
	return nil
}
