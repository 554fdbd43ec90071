package render

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"

	"tracetree/internal/calltree"
	"tracetree/internal/record"
)

const (
	fillWithModule    = "#decbe4"
	fillWithoutModule = "#fed9a6"
)

// Dot renders the tree as a Graphviz document. Call nesting becomes nested
// clusters, trace order becomes a chain of edges from Begin to End, and
// calls are mirrored into side columns grouped by module or by column
// filter.
type Dot struct {
	// Skip hides nodes whose raw result contains any of these substrings.
	Skip []string
	// Columns names the side columns. A node joins every column whose name
	// occurs in its clean result. When empty, columns are derived from the
	// module of each node instead.
	Columns []string
	// PruneSkipped also hides the subtree of a skipped node.
	PruneSkipped bool
}

type dotContext struct {
	opts      *Dot
	tree      *Tree
	out       writer
	prevDepth int
	prevName  string
	columns   map[string][]calltree.NodeID
	report    Report
}

// Render writes the graph of tr to w.
func (d Dot) Render(w io.Writer, tr *Tree) (Report, error) {
	bw := bufio.NewWriter(w)
	ctx := &dotContext{
		opts:     &d,
		tree:     tr,
		out:      writer{w: bw},
		prevName: "Begin",
		columns:  make(map[string][]calltree.NodeID, len(d.Columns)),
	}
	ctx.header()
	tr.Walk(ctx.visit)
	ctx.footer()

	ctx.report.Columns = ctx.columns
	if ctx.out.err != nil {
		return ctx.report, ctx.out.err
	}
	return ctx.report, bw.Flush()
}

func (c *dotContext) header() {
	c.out.line(0, "digraph {")
	c.out.line(1, `graph [newrank=true,ranksep="0.15"];`)
	c.out.line(1, "node [newrank=true,shape=box style=filled];")
	c.out.blank()
	c.out.line(1, "Begin[];")
	c.out.blank()
	c.prevDepth = 1

	for _, col := range c.opts.Columns {
		c.columns[col] = nil
	}
}

func (c *dotContext) visit(id calltree.NodeID, depth int) calltree.Action {
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
	// only plain retn is hidden, "bnd retn" stays a node
	if rec.Mnemonic == record.MnemonicReturn {
		return calltree.Descend
	}

	c.assignColumns(id, rec)
	c.moveTo(id, depth)

	name := nodeName(id)
	fill := fillWithoutModule
	if rec.Module != "" {
		fill = fillWithModule
	}
	label, tooltip := nodeLabel(rec)
	c.out.line(depth, `%s[label="%s",fillcolor="%s",tooltip="%s",];`, name, label, fill, tooltip)
	c.out.line(depth, "%s -> %s;", c.prevName, name)

	c.prevName = name
	c.report.Rendered++
	return calltree.Descend
}

func (c *dotContext) assignColumns(id calltree.NodeID, rec *record.Record) {
	if len(c.opts.Columns) == 0 {
		if rec.Module != "" {
			c.columns[rec.Module] = append(c.columns[rec.Module], id)
		}
		return
	}
	for _, col := range c.opts.Columns {
		if strings.Contains(rec.Clean, col) {
			c.columns[col] = append(c.columns[col], id)
		}
	}
}

// moveTo opens one cluster per level entered and closes one per level left.
// The cluster of a level is labeled by the ancestor owning that level.
func (c *dotContext) moveTo(id calltree.NodeID, depth int) {
	for level := c.prevDepth + 1; level <= depth; level++ {
		owner := c.tree.Ancestor(id, level-1)
		target := c.tree.Value(owner).Target
		c.out.line(level-1, "subgraph cluster_%d {", owner)
		c.out.line(level, `label = "%s";`, quote(truncateLabel(record.FunctionNameOnly(target))))
		c.out.line(level, `tooltip = "%s";`, quote(target))
		c.out.line(level, "style=filled;")
		c.out.line(level, `fillcolor = "%d";`, level%7+1)
		c.out.line(level, "colorscheme=greys9;")
	}
	for level := c.prevDepth; level > depth; level-- {
		c.out.line(level-1, "}")
	}
	c.prevDepth = depth
}

func (c *dotContext) footer() {
	for level := c.prevDepth; level > 1; level-- {
		c.out.line(level-1, "}")
	}
	c.out.line(1, "%s->End;", c.prevName)

	names := make([]string, 0, len(c.columns))
	for name := range c.columns {
		names = append(names, name)
	}
	slices.Sort(names)

	for n, name := range names {
		nodes := c.columns[name]
		first := fmt.Sprintf("first_%d", n)

		c.out.line(1, "subgraph cluster_col%d {", n)
		c.out.line(2, `label = "%s";`, quote(name))
		c.out.line(2, "style=filled;")
		c.out.line(2, `fillcolor = "%d";`, n%9+1)
		c.out.line(2, "colorscheme=bugn9;")
		c.out.line(2, "%s[style=invis];", first)
		for _, id := range nodes {
			rec := c.tree.Value(id)
			c.out.line(2, `%s[label="%s",tooltip="%s",];`,
				externName(n, id),
				quote(truncateLabel(record.FunctionNameOnly(rec.Target))),
				callTooltip(rec))
		}
		c.out.line(1, "}")

		for _, id := range nodes {
			c.out.line(1, "{rank=same;%s;%s};", externName(n, id), nodeName(id))
		}
		c.out.line(1, "{rank=min;%s};", first)
	}
	c.out.line(0, "}")
}

func nodeName(id calltree.NodeID) string {
	return fmt.Sprintf("instr_%d", id)
}

func externName(col int, id calltree.NodeID) string {
	return fmt.Sprintf("extern_%d_%d", col, id)
}

// nodeLabel returns the escaped label and tooltip of a node.
func nodeLabel(rec *record.Record) (label, tooltip string) {
	if rec.IsCall() {
		return quote(truncateLabel(record.FunctionNameOnly(rec.Target))), callTooltip(rec)
	}
	return quote(truncateLabel(rec.Callee())), quote(rec.Instruction)
}

// callTooltip joins the clean result, address and instruction with literal
// DOT line breaks.
func callTooltip(rec *record.Record) string {
	return quote(rec.Clean) + `\n\n` + quote(rec.Address) + `\n\n` + quote(rec.Instruction)
}
