package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracetree/internal/diag"
	"tracetree/internal/tracecache"
)

var sample = strings.Join([]string{
	"1\t.text:main+1\tcall    foo\tL Lapp:void foo(void)",
	"1\t.text:foo+0\tpush    ebp\tx",
	"1\t.text:foo+1\tretn\tL Lmain+6",
	"1\t.text:main+6\tnop\tx",
}, "\n")

func writeTrace(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trace.tsv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRunWritesBothOutputs(t *testing.T) {
	input := writeTrace(t, sample)
	outs, err := ResolveOutputs(KindAll, filepath.Join(t.TempDir(), "out.gv"), "", "")
	require.NoError(t, err)

	var events []Event
	res, err := Run(context.Background(), &Request{
		Input:    input,
		Outputs:  outs,
		Progress: SinkFunc(func(e Event) { events = append(events, e) }),
	})
	require.NoError(t, err)

	text := readFile(t, outs[0].Path)
	dot := readFile(t, outs[1].Path)
	assert.Equal(t, "{\n  app:void foo(void)\n  {\n    push    ebp\n    retn\n  }\n  nop\n}\n", text)
	assert.True(t, strings.HasPrefix(dot, "digraph {\n"))
	assert.NotEqual(t, outs[0].Path, outs[1].Path)

	assert.Equal(t, 4, res.Stats.Records)
	assert.Equal(t, 1, res.Stats.Pushes)
	assert.Empty(t, res.OpenFrames)
	assert.Zero(t, res.Diagnostics.Len())
	assert.Equal(t, outs, res.Written)
	assert.Equal(t, 4, res.Reports[FormatText].Rendered)
	assert.Equal(t, 3, res.Reports[FormatDot].Rendered)
	for _, stage := range Stages {
		assert.True(t, res.Timings.Has(stage), stage)
	}

	var done []Stage
	for _, e := range events {
		assert.Equal(t, input, e.Item)
		if e.Status == StatusDone {
			done = append(done, e.Stage)
		}
	}
	assert.Equal(t, Stages, done)
}

func TestRunStdoutTextFirst(t *testing.T) {
	var buf bytes.Buffer
	outs, err := ResolveOutputs(KindAll, Stdout, "", "")
	require.NoError(t, err)
	_, err = Run(context.Background(), &Request{Input: writeTrace(t, sample), Outputs: outs, Stdout: &buf})
	require.NoError(t, err)

	got := buf.String()
	textEnd := strings.Index(got, "digraph {")
	require.Positive(t, textEnd)
	assert.True(t, strings.HasPrefix(got, "{\n"))
}

func TestRunMissingInputIsEmptyTree(t *testing.T) {
	var buf bytes.Buffer
	res, err := Run(context.Background(), &Request{
		Input:   filepath.Join(t.TempDir(), "absent.tsv"),
		Outputs: []Output{{FormatText, Stdout}},
		Stdout:  &buf,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Tree.Len())
	assert.Empty(t, buf.String())
	assert.Equal(t, 1, res.Diagnostics.Count(diag.InputReadError))
}

func TestRunReportsTruncationAndRepairs(t *testing.T) {
	body := strings.Join([]string{
		"1\t.text:main+1\tcall    A\tL LA",
		"1\t.text:A+0\tcall    B\tL LB",
		"1\t.text:B+0\tnop\tx",
		"1\t.text:B+1\tretn\tL Lmain+6",
		"only two\tcells",
		"1\t.text:main+6\tnop\tx",
	}, "\n")
	var seen []diag.Diagnostic
	res, err := Run(context.Background(), &Request{
		Input:    writeTrace(t, body),
		Reporter: diag.ReporterFunc(func(d diag.Diagnostic) { seen = append(seen, d) }),
	})
	require.NoError(t, err)

	assert.Equal(t, 4, res.Stats.Records)
	assert.Equal(t, 1, res.Stats.Repairs)
	assert.Equal(t, 1, res.Diagnostics.Count(diag.StackRepair))
	assert.Equal(t, 1, res.Diagnostics.Count(diag.InputTruncated))
	assert.Len(t, seen, res.Diagnostics.Len())

	items := res.Diagnostics.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 4, items[0].Line)
	assert.Equal(t, 5, items[1].Line)
}

func TestRunOutputFailureIsError(t *testing.T) {
	_, err := Run(context.Background(), &Request{
		Input:   writeTrace(t, sample),
		Outputs: []Output{{FormatText, filepath.Join(t.TempDir(), "missing", "dir", "out.txt")}},
	})
	assert.Error(t, err)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, &Request{Input: writeTrace(t, sample)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunUsesCache(t *testing.T) {
	cache, err := tracecache.OpenDir(t.TempDir())
	require.NoError(t, err)
	input := writeTrace(t, sample)
	req := &Request{Input: input, Cache: cache, Outputs: []Output{{FormatText, Stdout}}}

	var first, second bytes.Buffer
	req.Stdout = &first
	res1, err := Run(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, res1.CacheHit)

	req.Stdout = &second
	res2, err := Run(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res2.CacheHit)
	assert.Equal(t, first.String(), second.String())
	assert.Equal(t, res1.Stats, res2.Stats)
}

func TestChannelSink(t *testing.T) {
	ch := make(chan Event, 1)
	ChannelSink{Ch: ch}.OnEvent(Event{Stage: StageRead, Status: StatusDone})
	assert.Equal(t, StageRead, (<-ch).Stage)

	// nil channel drops events
	ChannelSink{}.OnEvent(Event{})
}
