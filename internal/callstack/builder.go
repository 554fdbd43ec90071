// Package callstack rebuilds call nesting from a linear instruction trace.
//
// A call instruction is immediately followed in the trace by the first
// instruction of its callee, so the builder keeps a stack of open call
// frames: the node of every call whose body is still being appended. Returns
// close frames by matching the return target against the function that
// issued each open call, innermost first. When the match is not the top of
// the stack the frames above it never saw their own return; they are
// discarded and the event is reported as a stack repair.
package callstack

import (
	"context"
	"fmt"

	"tracetree/internal/calltree"
	"tracetree/internal/diag"
	"tracetree/internal/record"
	"tracetree/internal/trace"
)

// Tree is the call tree produced by the builder.
type Tree = calltree.Tree[record.Record]

// Stats summarises one reconstruction.
type Stats struct {
	Records       int `json:"records"` // trace rows fed, synthetic markers excluded
	Pushes        int `json:"pushes"`
	Pops          int `json:"pops"`
	Repairs       int `json:"repairs"`       // returns that closed more than one frame
	Discarded     int `json:"discarded"`     // frames dropped by repairs
	ErrorMarkers  int `json:"error_markers"` // returns with no open frame
	MaxStackDepth int `json:"max_depth"`     // open frames, root included
}

// Builder grows a call tree one record at a time.
type Builder struct {
	tree     *Tree
	stack    []calltree.NodeID
	prev     record.Record
	prevNode calltree.NodeID
	reporter diag.Reporter
	stats    Stats

	tracer trace.Tracer
	span   uint64
}

// New returns a builder whose stack holds only the root. A nil reporter
// discards diagnostics.
func New(reporter diag.Reporter) *Builder {
	if reporter == nil {
		reporter = diag.NopReporter{}
	}
	return &Builder{
		tree:     calltree.New[record.Record](),
		stack:    []calltree.NodeID{calltree.Root},
		prevNode: calltree.Root,
		reporter: reporter,
		stats:    Stats{MaxStackDepth: 1},
	}
}

// Feed appends rec to the tree and updates the open frame stack. line is the
// 1-based trace row, used only to anchor diagnostics.
func (b *Builder) Feed(line int, rec record.Record) calltree.NodeID {
	b.stats.Records++

	if b.prev.IsCall() && rec.Target != b.prev.Target {
		b.push(b.prevNode)
	}

	node := b.tree.Append(b.top(), rec)

	if rec.IsReturn() {
		b.closeFrame(line, &rec)
		if len(b.stack) > 1 {
			b.stack = b.stack[:len(b.stack)-1]
			b.stats.Pops++
		} else {
			b.tree.Append(node, record.ErrorMarker())
			b.stats.ErrorMarkers++
		}
	}

	b.prev = rec
	b.prevNode = node
	return node
}

func (b *Builder) push(id calltree.NodeID) {
	b.stack = append(b.stack, id)
	b.stats.Pushes++
	b.stats.MaxStackDepth = max(b.stats.MaxStackDepth, len(b.stack))
}

func (b *Builder) top() calltree.NodeID {
	return b.stack[len(b.stack)-1]
}

// closeFrame finds the innermost open frame issued from rec's return target
// and discards every frame above it. Nothing changes when no frame matches.
func (b *Builder) closeFrame(line int, rec *record.Record) {
	for i := len(b.stack) - 1; i >= 0; i-- {
		frame := b.tree.Value(b.stack[i])
		if frame.Function != rec.Target {
			continue
		}
		frames := len(b.stack) - i
		if frames > 1 {
			b.stats.Repairs++
			b.stats.Discarded += frames - 1
			if b.tracer != nil {
				trace.Point(b.tracer, trace.ScopeDetail, "repair", fmt.Sprintf("line=%d frames=%d", line, frames), b.span)
			}
			b.reporter.Report(diag.Diagnostic{
				Severity: diag.SevWarning,
				Code:     diag.StackRepair,
				Message:  fmt.Sprintf("return to %q closes %d frames", rec.Target, frames),
				Line:     line,
				Fields: []diag.Field{
					{Key: "frames", Value: frames},
					{Key: "target", Value: rec.Target},
					{Key: "address", Value: rec.Address},
					{Key: "instruction", Value: rec.Instruction},
					{Key: "result", Value: rec.Result},
				},
			})
		}
		b.stack = b.stack[:i+1]
		return
	}
}

// Depth returns the number of open frames, root included.
func (b *Builder) Depth() int { return len(b.stack) }

// OpenFrames returns the call nodes still open, outermost first. The root is
// not included.
func (b *Builder) OpenFrames() []calltree.NodeID {
	out := make([]calltree.NodeID, len(b.stack)-1)
	copy(out, b.stack[1:])
	return out
}

// Stats returns counters collected so far.
func (b *Builder) Stats() Stats { return b.stats }

// Tree returns the tree built so far.
func (b *Builder) Tree() *Tree { return b.tree }

// Source yields trace records in order. *record.Reader implements it.
type Source interface {
	Next() (record.Record, bool)
	Line() int
}

// Build feeds every record of src into the builder. At the end of the input
// frames still open are reported once as an informational diagnostic.
func (b *Builder) Build(ctx context.Context, src Source) *Tree {
	b.tracer = trace.FromContext(ctx)
	_, span := trace.Start(ctx, trace.ScopeStage, "build")
	b.span = span.ID()
	for {
		rec, ok := src.Next()
		if !ok {
			break
		}
		b.Feed(src.Line(), rec)
	}
	if open := len(b.stack) - 1; open > 0 {
		b.reporter.Report(diag.Diagnostic{
			Severity: diag.SevInfo,
			Code:     diag.UnclosedFrames,
			Message:  fmt.Sprintf("%d frames still open at end of trace", open),
			Line:     src.Line(),
			Fields:   []diag.Field{{Key: "frames", Value: open}},
		})
	}
	span.WithExtra("records", fmt.Sprint(b.stats.Records)).End("")
	return b.tree
}
