package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"tracetree/internal/diag"
)

func sampleBag() *diag.Bag {
	bag := diag.NewBag(10)
	bag.Add(diag.Diagnostic{
		Severity: diag.SevWarning,
		Code:     diag.StackRepair,
		Message:  `return to "main" closes 2 frames`,
		Line:     4,
		Fields:   []diag.Field{{Key: "frames", Value: 2}, {Key: "target", Value: "main"}},
	})
	bag.Add(diag.Diagnostic{
		Severity: diag.SevInfo,
		Code:     diag.InputTruncated,
		Message:  "line 5 has fewer than four cells, input ends there",
		Line:     5,
	})
	return bag
}

func TestPrettyPlain(t *testing.T) {
	var buf bytes.Buffer
	if err := Pretty(&buf, sampleBag(), PrettyOpts{Path: "trace.tsv", ShowFields: true}); err != nil {
		t.Fatalf("Pretty: %v", err)
	}
	want := strings.Join([]string{
		`trace.tsv:4: WARNING STK1001: return to "main" closes 2 frames`,
		"    frames = 2",
		"    target = main",
		"trace.tsv:5: INFO INP2001: line 5 has fewer than four cells, input ends there",
		"",
	}, "\n")
	if got := buf.String(); got != want {
		t.Fatalf("Pretty output mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestPrettyMax(t *testing.T) {
	var buf bytes.Buffer
	if err := Pretty(&buf, sampleBag(), PrettyOpts{Max: 1}); err != nil {
		t.Fatalf("Pretty: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "<trace>:4: WARNING") {
		t.Fatalf("unexpected first line: %q", out)
	}
	if !strings.Contains(out, "... 1 more diagnostics not shown") {
		t.Fatalf("missing overflow line: %q", out)
	}
}

func TestPrettyColor(t *testing.T) {
	var buf bytes.Buffer
	if err := Pretty(&buf, sampleBag(), PrettyOpts{Color: true}); err != nil {
		t.Fatalf("Pretty: %v", err)
	}
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("expected ANSI escapes in %q", buf.String())
	}
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, sampleBag(), JSONOpts{Path: "trace.tsv", IncludeFields: true}); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if out.Count != 2 || len(out.Diagnostics) != 2 {
		t.Fatalf("count = %d, len = %d", out.Count, len(out.Diagnostics))
	}
	first := out.Diagnostics[0]
	if first.Code != "STK1001" || first.Severity != "WARNING" || first.Location.Line != 4 {
		t.Fatalf("unexpected first diagnostic: %+v", first)
	}
	if first.Fields["frames"] != "2" {
		t.Fatalf("fields = %v", first.Fields)
	}
}

func TestJSONNilBag(t *testing.T) {
	out := Build(nil, JSONOpts{})
	if out.Count != 0 || out.Diagnostics == nil {
		t.Fatalf("unexpected output for nil bag: %+v", out)
	}
}
