package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/hitcall/packages/http"
)

// JSONEntry is the machine-readable form of a journal entry.
type JSONEntry struct {
	ID         string  `json:"id"`
	Method     string  `json:"method"`
	URL        string  `json:"url"`
	StatusCode int     `json:"statusCode,omitempty"`
	Outcome    string  `json:"outcome"`
	Code       int     `json:"code,omitempty"`
	Message    string  `json:"message,omitempty"`
	Duration   float64 `json:"duration"` // milliseconds
	StartedAt  string  `json:"startedAt"`
}

type JSONFormatter struct {
	writer io.Writer
}

func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{writer: os.Stdout}
}

func (f *JSONFormatter) SetWriter(w io.Writer) {
	f.writer = w
}

// FormatHistory writes entries as an indented JSON array.
func (f *JSONFormatter) FormatHistory(entries []http.Entry) error {
	out := make([]JSONEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, JSONEntry{
			ID:         e.ID,
			Method:     e.Method,
			URL:        e.URL,
			StatusCode: e.StatusCode,
			Outcome:    string(e.Outcome),
			Code:       e.Code,
			Message:    e.Message,
			Duration:   float64(e.Duration.Microseconds()) / 1000,
			StartedAt:  e.StartedAt.UTC().Format(time.RFC3339Nano),
		})
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}
