package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"tracetree/internal/callstack"
	"tracetree/internal/calltree"
	"tracetree/internal/diagfmt"
	"tracetree/internal/observ"
	"tracetree/internal/pipeline"
	"tracetree/internal/trace"
)

var statsCmd = &cobra.Command{
	Use:   "stats [flags]",
	Short: "Summarize the call structure of a trace",
	Args:  cobra.NoArgs,
	RunE:  statsExecution,
}

func init() {
	statsCmd.Flags().String("input", "", "trace file exported by IDA")
	statsCmd.Flags().String("config", "", "configuration file (default: nearest "+configFileName+")")
	statsCmd.Flags().String("format", "pretty", "output format (pretty|json)")
	statsCmd.Flags().Int("top", 10, "number of modules to list")
	statsCmd.Flags().Bool("diagnostics", false, "list the diagnostics of the run")
}

type moduleCount struct {
	Module string `json:"module"`
	Calls  int    `json:"calls"`
}

type statsPayload struct {
	Input      string                     `json:"input"`
	Nodes      int                        `json:"nodes"`
	Stats      callstack.Stats            `json:"stats"`
	OpenFrames int                        `json:"open_frames"`
	Modules    []moduleCount              `json:"modules"`
	MemoHits   uint64                     `json:"memo_hits"`
	MemoMisses uint64                     `json:"memo_misses"`
	Diagnostic *diagfmt.DiagnosticsOutput `json:"diagnostics,omitempty"`
	Timings    *observ.Report             `json:"timings,omitempty"`
}

func statsExecution(cmd *cobra.Command, _ []string) error {
	input, err := cmd.Flags().GetString("input")
	if err != nil {
		return err
	}
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	top, err := cmd.Flags().GetInt("top")
	if err != nil {
		return err
	}
	showDiags, err := cmd.Flags().GetBool("diagnostics")
	if err != nil {
		return err
	}
	format = strings.ToLower(format)
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}

	cleanupTrace, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanupTrace()
	ctx, span := trace.Start(cmd.Context(), trace.ScopeCommand, "stats")
	defer span.End("")

	if !cmd.Flags().Changed("input") {
		cfg, err := loadConfig(configPath, ".")
		if err != nil {
			return err
		}
		if cfg != nil && cfg.Config.Input.Path != "" {
			input = cfg.Config.Input.Path
		}
	}
	maxDiag, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return err
	}

	res, err := pipeline.Run(ctx, &pipeline.Request{Input: input, MaxDiagnostics: maxDiag})
	if err != nil {
		return err
	}
	log.WithField("input", input).Debug("trace summarized")

	timer := observ.NewTimer()
	for _, stage := range []pipeline.Stage{pipeline.StageRead, pipeline.StageBuild} {
		timer.Add(string(stage), res.Timings.Duration(stage), "")
	}

	payload := statsPayload{
		Input:      input,
		Nodes:      res.Tree.Len() - 1,
		Stats:      res.Stats,
		OpenFrames: len(res.OpenFrames),
		Modules:    countModules(res.Tree, top),
		MemoHits:   res.MemoHits,
		MemoMisses: res.MemoMisses,
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}
	if showTimings {
		report := timer.Report()
		payload.Timings = &report
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		if showDiags {
			d := diagfmt.Build(res.Diagnostics, diagfmt.JSONOpts{Path: input, IncludeFields: true})
			payload.Diagnostic = &d
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}

	colorOn, err := useColor(cmd, stdoutFile(cmd))
	if err != nil {
		return err
	}
	if err := renderStatsPretty(out, &payload, colorOn); err != nil {
		return err
	}
	if showDiags {
		if err := diagfmt.Pretty(out, res.Diagnostics, diagfmt.PrettyOpts{Color: colorOn, Path: input, ShowFields: true}); err != nil {
			return err
		}
	}
	if showTimings {
		_, err = fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
	}
	return err
}

// countModules counts call nodes per module, most frequent first.
func countModules(tr *callstack.Tree, top int) []moduleCount {
	counts := map[string]int{}
	tr.Walk(func(id calltree.NodeID, _ int) calltree.Action {
		if id == calltree.Root {
			return calltree.Descend
		}
		rec := tr.Value(id)
		if rec.IsCall() && rec.Module != "" {
			counts[rec.Module]++
		}
		return calltree.Descend
	})
	out := make([]moduleCount, 0, len(counts))
	for m, n := range counts {
		out = append(out, moduleCount{Module: m, Calls: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Calls != out[j].Calls {
			return out[i].Calls > out[j].Calls
		}
		return out[i].Module < out[j].Module
	})
	if top > 0 && len(out) > top {
		out = out[:top]
	}
	return out
}

func renderStatsPretty(w io.Writer, p *statsPayload, colorOn bool) error {
	title := lipgloss.NewStyle().Bold(true)
	key := lipgloss.NewStyle().Width(16).Foreground(lipgloss.Color("6"))
	warn := lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	box := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	if !colorOn {
		title, key, warn = plain(title), plain(key), plain(warn)
	}

	row := func(k string, v any, highlight bool) string {
		val := fmt.Sprint(v)
		if highlight {
			val = warn.Render(val)
		}
		return key.Render(k) + val
	}

	lines := []string{
		title.Render(p.Input),
		"",
		row("records", p.Stats.Records, false),
		row("nodes", p.Nodes, false),
		row("max depth", p.Stats.MaxStackDepth, false),
		row("calls entered", p.Stats.Pushes, false),
		row("returns", p.Stats.Pops, false),
		row("repairs", p.Stats.Repairs, p.Stats.Repairs > 0),
		row("frames dropped", p.Stats.Discarded, p.Stats.Discarded > 0),
		row("error markers", p.Stats.ErrorMarkers, p.Stats.ErrorMarkers > 0),
		row("open frames", p.OpenFrames, false),
	}
	if total := p.MemoHits + p.MemoMisses; total > 0 {
		lines = append(lines, row("memo hit rate", fmt.Sprintf("%.1f%%", 100*float64(p.MemoHits)/float64(total)), false))
	}
	if len(p.Modules) > 0 {
		lines = append(lines, "", title.Render("modules"))
		for _, m := range p.Modules {
			lines = append(lines, row(m.Module, m.Calls, false))
		}
	}

	_, err := fmt.Fprintln(w, box.Render(strings.Join(lines, "\n")))
	return err
}

func plain(s lipgloss.Style) lipgloss.Style {
	return s.UnsetForeground().UnsetBold()
}
