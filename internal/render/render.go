// Package render turns a rebuilt call tree into text.
//
// Two formats exist: an indented outline with brace delimited nesting
// (Text) and a Graphviz document (Dot). Each renderer keeps its running
// state in its own context struct, walked over the tree by a closure.
package render

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"tracetree/internal/calltree"
	"tracetree/internal/record"
)

// Tree is the input of every renderer.
type Tree = calltree.Tree[record.Record]

// MaxLabelWidth bounds graph labels, in terminal columns.
const MaxLabelWidth = 50

// Report summarises one rendering pass.
type Report struct {
	Rendered int // node lines written
	Skipped  int // nodes matched by a skip filter
	// Columns maps each column to the nodes assigned to it (graph only).
	Columns map[string][]calltree.NodeID
}

// ind returns the indentation for a nesting level.
func ind(level int) string {
	if level < 0 {
		return strings.Repeat("_", -level*2)
	}
	return strings.Repeat(" ", level*2)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// truncateLabel shortens s to MaxLabelWidth columns followed by "...".
func truncateLabel(s string) string {
	if runewidth.StringWidth(s) <= MaxLabelWidth {
		return s
	}
	return runewidth.Truncate(s, MaxLabelWidth, "") + "..."
}

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// quote makes s safe inside a double-quoted DOT string.
func quote(s string) string {
	return dotEscaper.Replace(s)
}

// writer accumulates the first write error so renderers can write freely and
// check once.
type writer struct {
	w   interface{ WriteString(string) (int, error) }
	err error
}

func (w *writer) line(indent int, format string, args ...any) {
	if w.err != nil {
		return
	}
	if _, err := w.w.WriteString(ind(indent)); err != nil {
		w.err = err
		return
	}
	if len(args) > 0 {
		format = fmt.Sprintf(format, args...)
	}
	if _, err := w.w.WriteString(format + "\n"); err != nil {
		w.err = err
	}
}

func (w *writer) blank() {
	if w.err != nil {
		return
	}
	_, w.err = w.w.WriteString("\n")
}
