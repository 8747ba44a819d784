package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow, color.Bold)
	red    = color.New(color.FgRed)
)

// printer writes command results as colored text, or as one JSON document
// when --format json is set.
type printer struct {
	w      io.Writer
	format string
}

func newPrinter(w io.Writer, format string) *printer {
	return &printer{w: w, format: format}
}

func (p *printer) json() bool { return p.format == "json" }

// Result prints data as JSON, or the text lines otherwise.
func (p *printer) Result(data any, text func()) error {
	if p.json() {
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	text()
	return nil
}

func (p *printer) Success(format string, args ...any) {
	green.Fprintf(p.w, "  → %s\n", fmt.Sprintf(format, args...))
}

func (p *printer) Info(format string, args ...any) {
	fmt.Fprintf(p.w, "  → %s\n", fmt.Sprintf(format, args...))
}

func (p *printer) Warning(format string, args ...any) {
	yellow.Fprintf(p.w, "  ⚠ %s\n", fmt.Sprintf(format, args...))
}

func (p *printer) Error(text string) {
	red.Fprintf(p.w, "Error: %s\n", text)
}
