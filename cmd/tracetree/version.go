package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"tracetree/internal/version"
)

type versionOptions struct {
	format   string
	showHash bool
	showDate bool
	showGo   bool
}

type versionPayload struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	Tagline   string `json:"tagline"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version,omitempty"`
}

const versionTagline = "every call finds its way home"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show tracetree build fingerprints",
	Args:  cobra.NoArgs,
	RunE:  versionExecution,
}

func init() {
	versionCmd.Flags().Bool("hash", false, "include git commit hash")
	versionCmd.Flags().Bool("date", false, "include build timestamp")
	versionCmd.Flags().Bool("full", false, "show every recorded bit of build metadata")
	versionCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

func versionExecution(cmd *cobra.Command, _ []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	hash, err := cmd.Flags().GetBool("hash")
	if err != nil {
		return err
	}
	date, err := cmd.Flags().GetBool("date")
	if err != nil {
		return err
	}
	full, err := cmd.Flags().GetBool("full")
	if err != nil {
		return err
	}
	opts := versionOptions{
		format:   strings.ToLower(format),
		showHash: hash || full,
		showDate: date || full,
		showGo:   full,
	}

	switch opts.format {
	case "pretty", "json":
		// supported
	default:
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}

	info := version.Current()
	if opts.format == "json" {
		return renderVersionJSON(cmd.OutOrStdout(), info, opts)
	}

	colorOn, err := useColor(cmd, stdoutFile(cmd))
	if err != nil {
		return err
	}
	renderVersionPretty(cmd.OutOrStdout(), info, opts, colorOn)
	return nil
}

func renderVersionPretty(out io.Writer, info version.Info, opts versionOptions, colorOn bool) {
	v := info.Version
	if colorOn {
		v = version.Pretty(v)
	}
	fmt.Fprintf(out, "tracetree %s: %s\n", v, versionTagline)
	if opts.showHash {
		fmt.Fprintf(out, "commit: %s\n", valueOrUnknown(info.GitCommit))
	}
	if opts.showDate {
		fmt.Fprintf(out, "built:  %s\n", valueOrUnknown(info.BuildDate))
	}
	if opts.showGo {
		fmt.Fprintf(out, "go:     %s\n", valueOrUnknown(info.GoVersion))
	}
	if !opts.showHash && !opts.showDate && !opts.showGo {
		fmt.Fprintln(out, "set --hash, --date, or --full for more build trivia")
	}
}

func renderVersionJSON(out io.Writer, info version.Info, opts versionOptions) error {
	payload := versionPayload{
		Tool:    "tracetree",
		Version: info.Version,
		Tagline: versionTagline,
	}
	if opts.showHash {
		payload.GitCommit = valueOrUnknown(info.GitCommit)
	}
	if opts.showDate {
		payload.BuildDate = valueOrUnknown(info.BuildDate)
	}
	if opts.showGo {
		payload.GoVersion = valueOrUnknown(info.GoVersion)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func valueOrUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
