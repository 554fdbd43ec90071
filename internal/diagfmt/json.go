package diagfmt

import (
	"encoding/json"
	"fmt"
	"io"

	"tracetree/internal/diag"
)

// LocationJSON представляет местоположение в трассе для JSON
type LocationJSON struct {
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
}

// DiagnosticJSON представляет диагностику в JSON формате
type DiagnosticJSON struct {
	Severity string            `json:"severity"`
	Code     string            `json:"code"`
	Title    string            `json:"title"`
	Message  string            `json:"message"`
	Location LocationJSON      `json:"location"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// DiagnosticsOutput представляет корневую структуру JSON вывода
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
	Dropped     int              `json:"dropped,omitempty"`
}

// Build converts the bag into its JSON shape.
func Build(bag *diag.Bag, opts JSONOpts) DiagnosticsOutput {
	out := DiagnosticsOutput{Diagnostics: []DiagnosticJSON{}}
	if bag == nil {
		return out
	}
	items := bag.Items()
	if opts.Max > 0 && len(items) > opts.Max {
		items = items[:opts.Max]
	}
	for _, d := range items {
		dj := DiagnosticJSON{
			Severity: d.Severity.String(),
			Code:     d.Code.ID(),
			Title:    d.Code.Title(),
			Message:  d.Message,
			Location: LocationJSON{File: opts.Path, Line: d.Line},
		}
		if opts.IncludeFields && len(d.Fields) > 0 {
			dj.Fields = make(map[string]string, len(d.Fields))
			for _, f := range d.Fields {
				dj.Fields[f.Key] = fmt.Sprint(f.Value)
			}
		}
		out.Diagnostics = append(out.Diagnostics, dj)
	}
	out.Count = len(out.Diagnostics)
	out.Dropped = bag.Len() - out.Count + bag.Dropped()
	return out
}

// JSON writes the diagnostics of bag as an indented JSON document.
func JSON(w io.Writer, bag *diag.Bag, opts JSONOpts) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Build(bag, opts))
}
