package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hitcall/packages/http"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

// Pick extracts a gjson path from data. An empty path returns data unchanged.
func Pick(data []byte, path string) ([]byte, error) {
	if path == "" {
		return data, nil
	}
	result := gjson.GetBytes(data, path)
	if !result.Exists() {
		return nil, errors.Errorf("path %q not found in response data", path)
	}
	return []byte(result.Raw), nil
}

// FormatData prints the data of a successful call as indented JSON.
func (f *ConsoleFormatter) FormatData(data []byte) {
	if len(data) == 0 {
		data = []byte("null")
	}
	out := pretty.Pretty(data)
	if !f.noColor && !color.NoColor {
		out = pretty.Color(out, nil)
	}
	_, _ = f.writer.Write(out)
}

// FormatFailure prints the code and message an error callback received.
func (f *ConsoleFormatter) FormatFailure(code int, message string) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", red(fmt.Sprintf("error %d:", code)), message)
}

// FormatCall prints the request line of a call in verbose mode.
func (f *ConsoleFormatter) FormatCall(id, method, url string, elapsed time.Duration) {
	if !f.verbose {
		return
	}
	cyan := color.New(color.FgCyan).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s %s %s\n", cyan(method), url, cyan(fmt.Sprintf("(%dms)", elapsed.Milliseconds())), faint(id))
}

// FormatHistory prints journal entries, newest first, one per line.
func (f *ConsoleFormatter) FormatHistory(entries []http.Entry) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	if len(entries) == 0 {
		fmt.Fprintln(f.writer, "No calls recorded.")
		return
	}

	for _, e := range entries {
		symbol := green("✓")
		detail := ""
		if e.Outcome != http.OutcomeSuccess {
			symbol = red("✗")
			detail = " " + red(fmt.Sprintf("%d %s", e.Code, truncate(e.Message, 60)))
		}
		status := "---"
		if e.StatusCode != 0 {
			status = fmt.Sprintf("%d", e.StatusCode)
		}
		fmt.Fprintf(f.writer, "%s %s %-4s %s %s %s%s\n",
			faint(e.StartedAt.Local().Format("2006-01-02 15:04:05")),
			symbol, e.Method, status, e.URL,
			faint(fmt.Sprintf("%dms", e.Duration.Milliseconds())),
			detail)
		if f.verbose {
			fmt.Fprintf(f.writer, "    %s\n", faint(e.ID))
		}
	}
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("hitcall"), version)
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
