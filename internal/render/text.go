package render

import (
	"bufio"
	"io"

	"tracetree/internal/calltree"
	"tracetree/internal/record"
)

// Text renders the tree as an indented outline. Every nesting level is
// wrapped in braces:
//
//	{
//	  app:void Worker::Run(void)
//	  {
//	    push    ebp
//	    ...
//	  }
//	}
type Text struct {
	// Skip hides nodes whose raw result contains any of these substrings.
	Skip []string
	// PruneSkipped also hides the subtree of a skipped node.
	PruneSkipped bool
}

type textContext struct {
	opts      *Text
	tree      *Tree
	out       writer
	prevDepth int
	report    Report
}

// Render writes the outline of tr to w. The output is balanced: every
// opening brace is closed before Render returns.
func (t Text) Render(w io.Writer, tr *Tree) (Report, error) {
	bw := bufio.NewWriter(w)
	ctx := &textContext{opts: &t, tree: tr, out: writer{w: bw}}
	tr.Walk(ctx.visit)
	ctx.finish()
	if ctx.out.err != nil {
		return ctx.report, ctx.out.err
	}
	return ctx.report, bw.Flush()
}

func (c *textContext) visit(id calltree.NodeID, depth int) calltree.Action {
	if id == calltree.Root {
		return calltree.Descend
	}
	rec := c.tree.Value(id)
	if containsAny(rec.Result, c.opts.Skip) {
		c.report.Skipped++
		if c.opts.PruneSkipped {
			return calltree.Prune
		}
		return calltree.Descend
	}

	c.moveTo(depth)
	c.out.line(depth, "%s", textLabel(rec))
	c.report.Rendered++
	return calltree.Descend
}

// moveTo emits the braces between the previous rendered depth and depth.
func (c *textContext) moveTo(depth int) {
	for level := c.prevDepth; level < depth; level++ {
		c.out.line(level, "{")
	}
	for level := c.prevDepth; level > depth; level-- {
		c.out.line(level-1, "}")
	}
	c.prevDepth = depth
}

func (c *textContext) finish() {
	c.moveTo(0)
}

func textLabel(rec *record.Record) string {
	if rec.IsCall() {
		return rec.Module + ":" + record.WithoutAccessKeyword(rec.Target)
	}
	return rec.Callee()
}
