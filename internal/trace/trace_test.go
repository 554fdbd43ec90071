package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"off", LevelOff, true},
		{"", LevelOff, true},
		{"STAGE", LevelStage, true},
		{"detail", LevelDetail, true},
		{"loud", LevelOff, false},
	}
	for _, tc := range cases {
		got, err := ParseLevel(tc.in)
		if (err == nil) != tc.ok {
			t.Fatalf("ParseLevel(%q) error = %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestStageLevelFiltersDetail(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelStage, Output: &buf, Format: FormatText})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	span := Begin(tr, ScopeStage, "build", 0)
	Point(tr, ScopeDetail, "hidden", "", span.ID())
	span.WithExtra("records", "3").End("")

	out := buf.String()
	if strings.Count(out, "\n") != 2 {
		t.Fatalf("expected begin and end lines, got:\n%s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("detail event leaked at stage level:\n%s", out)
	}
	if !strings.Contains(out, "{records=3}") {
		t.Fatalf("missing extra on end event:\n%s", out)
	}
}

func TestNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDetail, FormatNDJSON)
	Point(tr, ScopeDetail, "render:dot", "out.dot", 0)

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid json %q: %v", buf.String(), err)
	}
	if decoded["name"] != "render:dot" || decoded["kind"] != "point" {
		t.Fatalf("unexpected event %v", decoded)
	}
}

func TestContextDefaultsToNop(t *testing.T) {
	if FromContext(context.Background()).Enabled() {
		t.Fatalf("expected nop tracer")
	}
	var buf bytes.Buffer
	ctx := WithTracer(context.Background(), NewStreamTracer(&buf, LevelStage, FormatText))
	if !FromContext(ctx).Enabled() {
		t.Fatalf("expected attached tracer")
	}
	if span := Begin(Nop, ScopeStage, "x", 0); span.End("") != 0 {
		t.Fatalf("nop span must report zero duration")
	}
}

func TestStartNestsSpans(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithTracer(context.Background(), NewStreamTracer(&buf, LevelStage, FormatNDJSON))

	ctx, outer := Start(ctx, ScopeCommand, "render")
	_, inner := Start(ctx, ScopeStage, "build")
	if SpanFromContext(ctx) != outer.ID() {
		t.Fatalf("context carries span %d, want %d", SpanFromContext(ctx), outer.ID())
	}
	inner.End("")
	inner.End("")
	outer.End("")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 events, got %d:\n%s", len(lines), buf.String())
	}
	var begin map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &begin); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if begin["name"] != "build" || uint64(begin["parent_id"].(float64)) != outer.ID() {
		t.Fatalf("inner span not parented to outer: %v", begin)
	}
}

func TestStartDisabledKeepsContext(t *testing.T) {
	ctx := context.Background()
	got, span := Start(ctx, ScopeStage, "build")
	if got != ctx || span.ID() != 0 {
		t.Fatalf("disabled tracer must not touch the context")
	}
}
