package main

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"tracetree/internal/diag"
)

// timeStampFormat keeps fixed-width nanosecond timestamps.
const timeStampFormat = "2006-01-02T15:04:05.000000000Z07:00"

// setupLogging configures the standard logrus logger from the persistent
// flags. Logs go to stderr so that stdout stays free for rendered output.
func setupLogging(cmd *cobra.Command, _ []string) error {
	root := cmd.Root()
	levelStr, err := root.PersistentFlags().GetString("log-level")
	if err != nil {
		return fmt.Errorf("failed to get log-level flag: %w", err)
	}
	formatStr, err := root.PersistentFlags().GetString("log-format")
	if err != nil {
		return fmt.Errorf("failed to get log-format flag: %w", err)
	}
	quiet, err := root.PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}

	logger := log.StandardLogger()
	logger.SetOutput(cmd.ErrOrStderr())
	if err := configureLogger(logger, levelStr, formatStr, quiet); err != nil {
		return err
	}
	return nil
}

func configureLogger(logger *log.Logger, levelStr, formatStr string, quiet bool) error {
	level, err := log.ParseLevel(strings.TrimSpace(levelStr))
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	if quiet && level > log.WarnLevel {
		level = log.WarnLevel
	}
	logger.SetLevel(level)

	switch strings.ToLower(strings.TrimSpace(formatStr)) {
	case "", "text":
		logger.SetFormatter(&log.TextFormatter{
			DisableColors:          true,
			FullTimestamp:          true,
			TimestampFormat:        timeStampFormat,
			DisableSorting:         true,
			DisableLevelTruncation: true,
			QuoteEmptyFields:       true,
		})
	case "json":
		logger.SetFormatter(&log.JSONFormatter{TimestampFormat: timeStampFormat})
	default:
		return fmt.Errorf("invalid --log-format %q (expected text|json)", formatStr)
	}
	logger.SetReportCaller(false)
	return nil
}

// logReporter writes every diagnostic to a logrus logger as it is produced.
type logReporter struct {
	logger log.FieldLogger
	input  string
}

func (r logReporter) Report(d diag.Diagnostic) {
	fields := log.Fields{
		"code":  d.Code.ID(),
		"input": r.input,
	}
	if d.Line > 0 {
		fields["line"] = d.Line
	}
	for _, f := range d.Fields {
		fields[f.Key] = f.Value
	}
	entry := r.logger.WithFields(fields)
	switch d.Severity {
	case diag.SevError:
		entry.Error(d.Message)
	case diag.SevWarning:
		entry.Warn(d.Message)
	default:
		entry.Info(d.Message)
	}
}
