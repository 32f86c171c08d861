package http

import (
	"path/filepath"
	"sort"
)

// FieldKind tells a text field from a file attachment.
type FieldKind int

const (
	TextValue FieldKind = iota
	FileValue
)

func (k FieldKind) String() string {
	switch k {
	case TextValue:
		return "text"
	case FileValue:
		return "file"
	default:
		return "unknown"
	}
}

// FieldValue is a form or multipart value: either plain text or a reference
// to a file on disk. Build one with Text or File.
type FieldValue struct {
	kind FieldKind
	text string
	path string
}

// Text returns a plain text value.
func Text(s string) FieldValue {
	return FieldValue{kind: TextValue, text: s}
}

// File returns a value whose content is read from path when the body is built.
func File(path string) FieldValue {
	return FieldValue{kind: FileValue, path: path}
}

func (v FieldValue) Kind() FieldKind { return v.kind }

// Text returns the text of a TextValue, or "" for a file.
func (v FieldValue) Text() string { return v.text }

// Path returns the path of a FileValue, or "" for text.
func (v FieldValue) Path() string { return v.path }

// FileName returns the base name of the file path, used as the multipart filename.
func (v FieldValue) FileName() string {
	if v.kind != FileValue {
		return ""
	}
	return filepath.Base(v.path)
}

type Field struct {
	Key   string
	Value FieldValue
}

// Fields is an insertion-ordered list of form fields.
type Fields []Field

// Add appends a field and returns the extended list.
func (f Fields) Add(key string, value FieldValue) Fields {
	return append(f, Field{Key: key, Value: value})
}

// FieldsFromMap converts a map of text values. Keys are sorted because Go
// maps carry no insertion order.
func FieldsFromMap(m map[string]string) Fields {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make(Fields, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, Field{Key: k, Value: Text(m[k])})
	}
	return fields
}

func (f Fields) clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	copy(out, f)
	return out
}
