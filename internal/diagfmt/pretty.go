package diagfmt

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"tracetree/internal/diag"
)

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
// Для каждого diag печатает:
// <path>:<line>: <SEV> <CODE>: <Message>
// затем, по опции, поля диагностики по одному на строку.
func Pretty(w io.Writer, bag *diag.Bag, opts PrettyOpts) error {
	if bag == nil {
		return nil
	}
	sevColors := map[diag.Severity]*color.Color{
		diag.SevInfo:    color.New(color.FgCyan),
		diag.SevWarning: color.New(color.FgYellow, color.Bold),
		diag.SevError:   color.New(color.FgRed, color.Bold),
	}
	dim := color.New(color.Faint)
	for _, c := range sevColors {
		setColor(c, opts.Color)
	}
	setColor(dim, opts.Color)

	items := bag.Items()
	shown := len(items)
	if opts.Max > 0 && shown > opts.Max {
		shown = opts.Max
	}
	for _, d := range items[:shown] {
		sev := d.Severity.String()
		if c, ok := sevColors[d.Severity]; ok {
			sev = c.Sprint(sev)
		}
		if _, err := fmt.Fprintf(w, "%s: %s %s: %s\n", location(opts.Path, d.Line), sev, d.Code.ID(), d.Message); err != nil {
			return err
		}
		if !opts.ShowFields {
			continue
		}
		for _, f := range d.Fields {
			if _, err := fmt.Fprintf(w, "    %s\n", dim.Sprintf("%s = %v", f.Key, f.Value)); err != nil {
				return err
			}
		}
	}
	if hidden := len(items) - shown + bag.Dropped(); hidden > 0 {
		if _, err := fmt.Fprintf(w, "... %d more diagnostics not shown\n", hidden); err != nil {
			return err
		}
	}
	return nil
}

func setColor(c *color.Color, on bool) {
	if on {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
}

func location(path string, line int) string {
	if path == "" {
		path = "<trace>"
	}
	if line <= 0 {
		return path
	}
	return fmt.Sprintf("%s:%d", path, line)
}
