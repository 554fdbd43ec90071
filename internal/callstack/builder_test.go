package callstack

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracetree/internal/calltree"
	"tracetree/internal/diag"
	"tracetree/internal/record"
)

// call is a call issued from fn whose callee label is target.
func call(fn, target string) record.Record {
	return record.New("1", ".text:"+fn+"+1", "call    "+target, "L L"+target)
}

// ret is a return executed in fn back into target.
func ret(fn, target string) record.Record {
	return record.New("1", ".text:"+fn+"+9", "retn", "L L"+target+"+1F")
}

func op(fn string) record.Record {
	return record.New("1", ".text:"+fn+"+2", "mov     eax, 1", "x")
}

func feedAll(b *Builder, recs ...record.Record) []calltree.NodeID {
	ids := make([]calltree.NodeID, len(recs))
	for i, r := range recs {
		ids[i] = b.Feed(i+1, r)
	}
	return ids
}

func realNodes(tr *Tree) int {
	n := 0
	tr.Walk(func(id calltree.NodeID, _ int) calltree.Action {
		if id != calltree.Root && tr.Value(id).Address != record.ErrorText {
			n++
		}
		return calltree.Descend
	})
	return n
}

func TestSingleInstruction(t *testing.T) {
	b := New(nil)
	ids := feedAll(b, op("main"))

	tr := b.Tree()
	require.Equal(t, 2, tr.Len())
	assert.Equal(t, []calltree.NodeID{ids[0]}, tr.Children(calltree.Root))
	assert.Equal(t, 1, b.Depth())
	assert.Zero(t, b.Stats().Pushes)
}

func TestCallThenMatchingReturn(t *testing.T) {
	bag := diag.NewBag(8)
	b := New(diag.BagReporter{Bag: bag})
	ids := feedAll(b, call("main", "foo"), ret("foo", "main"))

	tr := b.Tree()
	assert.Equal(t, []calltree.NodeID{ids[0]}, tr.Children(calltree.Root))
	assert.Equal(t, []calltree.NodeID{ids[1]}, tr.Children(ids[0]))
	assert.Equal(t, 1, b.Depth())
	assert.Equal(t, 1, b.Stats().Pushes)
	assert.Equal(t, 1, b.Stats().Pops)
	assert.Zero(t, bag.Len())
}

func TestUnmatchedReturnAtRootAddsErrorMarker(t *testing.T) {
	bag := diag.NewBag(8)
	b := New(diag.BagReporter{Bag: bag})
	ids := feedAll(b, op("main"), ret("main", "nowhere"))

	tr := b.Tree()
	children := tr.Children(ids[1])
	require.Len(t, children, 1)
	assert.Equal(t, record.ErrorMarker(), *tr.Value(children[0]))
	assert.Equal(t, 1, b.Depth())
	assert.Equal(t, 1, b.Stats().ErrorMarkers)
	assert.Zero(t, bag.Len())
	assert.Equal(t, 2, realNodes(tr))
}

func TestReturnSkippingAFrameIsRepaired(t *testing.T) {
	bag := diag.NewBag(8)
	b := New(diag.BagReporter{Bag: bag})
	ids := feedAll(b,
		call("main", "A"), // frame of the call into A
		call("A", "B"),    // frame of the call into B
		call("B", "C"),    // frame of the call into C
		op("C"),
		ret("C", "A"), // C returns straight into A
	)

	require.Equal(t, 1, bag.Len())
	d := bag.Items()[0]
	assert.Equal(t, diag.StackRepair, d.Code)
	assert.Equal(t, 5, d.Line)
	frames, _ := d.Get("frames")
	assert.Equal(t, 2, frames)
	target, _ := d.Get("target")
	assert.Equal(t, "A", target)

	st := b.Stats()
	assert.Equal(t, 1, st.Repairs)
	assert.Equal(t, 1, st.Discarded)
	assert.Equal(t, 1, st.Pops)
	assert.Equal(t, 4, st.MaxStackDepth)
	assert.Equal(t, []calltree.NodeID{ids[0]}, b.OpenFrames())

	// the next instruction lands in A's body
	next := b.Feed(6, op("A"))
	assert.Equal(t, ids[0], b.Tree().Parent(next))
}

func TestUnmatchedReturnInsideFrameClosesTop(t *testing.T) {
	bag := diag.NewBag(8)
	b := New(diag.BagReporter{Bag: bag})
	feedAll(b, call("main", "A"), op("A"), ret("A", "elsewhere"))

	assert.Equal(t, 1, b.Depth())
	assert.Zero(t, b.Stats().ErrorMarkers)
	assert.Zero(t, bag.Len())
}

func TestSameTargetDoesNotPush(t *testing.T) {
	b := New(nil)
	thunk := record.New("1", ".text:main+1", "call    j_foo", "L Lfoo")
	jump := record.New("1", ".text:j_foo", "jmp     foo", "L Lfoo")
	ids := feedAll(b, thunk, jump)

	assert.Equal(t, 1, b.Depth())
	assert.Equal(t, []calltree.NodeID{ids[0], ids[1]}, b.Tree().Children(calltree.Root))
}

func TestEmptyFunctionFrameNeverMatchesNamedTarget(t *testing.T) {
	b := New(nil)
	// raw address: no function can be recovered from it
	raw := record.New("1", "00401000", "call    foo", "L Lfoo")
	feedAll(b, raw, op("foo"), ret("foo", "main"))

	// no match anywhere: best effort pop of the top frame
	assert.Equal(t, 1, b.Depth())
	assert.Equal(t, 1, b.Stats().Pops)
}

func TestChildrenKeepTraceOrder(t *testing.T) {
	b := New(nil)
	ids := feedAll(b, call("main", "f"), op("f"), op("f"), op("f"), ret("f", "main"), op("main"))

	tr := b.Tree()
	assert.Equal(t, []calltree.NodeID{ids[1], ids[2], ids[3], ids[4]}, tr.Children(ids[0]))
	assert.Equal(t, []calltree.NodeID{ids[0], ids[5]}, tr.Children(calltree.Root))
	assert.Equal(t, 6, realNodes(tr))
}

func TestBuildFromReaderReportsOpenFrames(t *testing.T) {
	input := strings.Join([]string{
		"1\t.text:main+1\tcall    f\tL Lf",
		"1\t.text:f+0\tpush    ebp\tx",
		"bad row",
		"1\t.text:f+1\tretn\tL Lmain+5",
	}, "\n")
	bag := diag.NewBag(8)
	b := New(diag.BagReporter{Bag: bag})
	tr := b.Build(context.Background(), record.NewReader(strings.NewReader(input)))

	assert.Equal(t, 2, realNodes(tr))
	require.Equal(t, 1, bag.Len())
	assert.Equal(t, diag.UnclosedFrames, bag.Items()[0].Code)
	assert.Equal(t, 2, b.Stats().Records)
}
