package main

import (
	"bytes"
	"encoding/json"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"tracetree/internal/diag"
)

func TestConfigureLoggerLevels(t *testing.T) {
	cases := []struct {
		level string
		quiet bool
		want  log.Level
	}{
		{"debug", false, log.DebugLevel},
		{"info", true, log.WarnLevel},
		{"error", true, log.ErrorLevel},
		{" warn ", false, log.WarnLevel},
	}
	for _, tc := range cases {
		logger := log.New()
		if err := configureLogger(logger, tc.level, "text", tc.quiet); err != nil {
			t.Fatalf("configureLogger(%q) error: %v", tc.level, err)
		}
		if logger.GetLevel() != tc.want {
			t.Fatalf("configureLogger(%q, quiet=%v) level = %v, want %v", tc.level, tc.quiet, logger.GetLevel(), tc.want)
		}
	}
}

func TestConfigureLoggerRejectsBadInput(t *testing.T) {
	if err := configureLogger(log.New(), "loud", "text", false); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if err := configureLogger(log.New(), "info", "xml", false); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestConfigureLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New()
	logger.SetOutput(&buf)
	if err := configureLogger(logger, "info", "json", false); err != nil {
		t.Fatalf("configureLogger error: %v", err)
	}
	logger.WithField("input", "run.txt").Info("rendered")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "rendered" || entry["input"] != "run.txt" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestLogReporterMapsSeverity(t *testing.T) {
	logger, hook := test.NewNullLogger()
	r := logReporter{logger: logger, input: "run.txt"}

	r.Report(diag.Diagnostic{
		Severity: diag.SevWarning,
		Code:     diag.StackRepair,
		Message:  "return closed 2 frames",
		Line:     12,
		Fields:   []diag.Field{{Key: "frames", Value: 2}},
	})
	r.Report(diag.Diagnostic{Severity: diag.SevError, Code: diag.InputReadError, Message: "read failed"})

	entries := hook.AllEntries()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	warn := entries[0]
	if warn.Level != log.WarnLevel || warn.Message != "return closed 2 frames" {
		t.Fatalf("unexpected warning entry: %v %q", warn.Level, warn.Message)
	}
	if warn.Data["code"] != diag.StackRepair.ID() || warn.Data["line"] != 12 || warn.Data["frames"] != 2 {
		t.Fatalf("unexpected fields: %v", warn.Data)
	}
	if entries[1].Level != log.ErrorLevel {
		t.Fatalf("error diagnostic logged at %v", entries[1].Level)
	}
	if _, ok := entries[1].Data["line"]; ok {
		t.Fatalf("line field set without a line")
	}
}
