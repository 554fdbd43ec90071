package main

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"tracetree/internal/diag"
	"tracetree/internal/filterlist"
	"tracetree/internal/observ"
	"tracetree/internal/pipeline"
	"tracetree/internal/trace"
	"tracetree/internal/tracecache"
)

var renderCmd = &cobra.Command{
	Use:   "render [flags]",
	Short: "Rebuild the call tree of a trace and write it as text and/or dot",
	Long: `Rebuild the call tree of an IDA instruction trace.

With --type all the outline and the graph are written next to each other:
the --output extension is replaced by .txt and .dot. With --output - both
documents go to stdout, the outline first.`,
	Args: cobra.NoArgs,
	RunE: renderExecution,
}

func init() {
	renderCmd.Flags().String("input", "", "trace file exported by IDA")
	renderCmd.Flags().String("output", pipeline.Stdout, "output file (- for stdout)")
	renderCmd.Flags().String("filters", "", "file of result substrings whose nodes are hidden")
	renderCmd.Flags().String("columns", "", "file of substrings naming the side columns of the graph")
	renderCmd.Flags().String("type", string(pipeline.KindAll), "output type (all|text|dot)")
	renderCmd.Flags().Bool("prune-skipped", false, "also hide the subtree of a filtered node")
	renderCmd.Flags().Bool("cache", false, "reuse parsed traces from the user cache directory")
	renderCmd.Flags().String("config", "", "configuration file (default: nearest "+configFileName+")")
}

func renderExecution(cmd *cobra.Command, _ []string) error {
	timer := observ.NewTimer()

	cleanupTrace, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanupTrace()
	cleanupProf, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer cleanupProf()

	ctx, cmdSpan := trace.Start(cmd.Context(), trace.ScopeCommand, "render")
	defer cmdSpan.End("")

	phase := timer.Begin("config")
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	cfg, err := loadConfig(configPath, ".")
	if err != nil {
		return err
	}
	if cfg != nil {
		log.WithField("path", cfg.Path).Debug("configuration loaded")
	}
	flags, err := readRenderFlags(cmd)
	if err != nil {
		return err
	}
	opts, err := mergeOptions(flags, cfg)
	if err != nil {
		return err
	}
	outputs, err := pipeline.ResolveOutputs(opts.Kind, opts.Output, opts.TextPath, opts.DotPath)
	if err != nil {
		return err
	}
	if opts.Kind == pipeline.KindAll && len(outputs) == 2 && outputs[0].Path != pipeline.Stdout {
		log.WithFields(log.Fields{"text": outputs[0].Path, "dot": outputs[1].Path}).Info("writing outline and graph")
	}
	timer.End(phase, "")

	phase = timer.Begin("lists")
	lists, err := filterlist.LoadAll(ctx, opts.SkipFile, opts.ColumnsFile, filterlist.Lists{
		Skip:    opts.Skip,
		Columns: opts.Columns,
	})
	if err != nil {
		return err
	}
	timer.End(phase, fmt.Sprintf("%d skip, %d columns", len(lists.Skip), len(lists.Columns)))

	maxDiag, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return err
	}
	req := &pipeline.Request{
		Input:          opts.Input,
		Outputs:        outputs,
		Stdout:         cmd.OutOrStdout(),
		Skip:           lists.Skip,
		Columns:        lists.Columns,
		PruneSkipped:   opts.PruneSkipped,
		MaxDiagnostics: maxDiag,
		Reporter:       logReporter{logger: log.StandardLogger(), input: opts.Input},
	}
	if opts.Cache {
		cache, err := tracecache.Open("tracetree")
		if err != nil {
			log.WithError(err).Warn("trace cache unavailable")
		} else {
			req.Cache = cache
		}
	}

	uiValue, err := cmd.Root().PersistentFlags().GetString("ui")
	if err != nil {
		return err
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}
	// the progress view shares stdout with the documents
	withUI := shouldUseTUI(mode) && !writesStdout(outputs)

	phase = timer.Begin("pipeline")
	var res pipeline.Result
	if withUI {
		res, err = runPipelineWithUI(ctx, "tracetree", req)
	} else {
		res, err = pipeline.Run(ctx, req)
	}
	timer.End(phase, "")
	if err != nil {
		return err
	}

	logSummary(opts.Input, &res)

	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}
	if showTimings {
		errOut := cmd.ErrOrStderr()
		if err := printStageTimings(errOut, res.Timings); err != nil {
			return err
		}
		fmt.Fprint(errOut, timer.Summary())
	}
	return nil
}

func writesStdout(outputs []pipeline.Output) bool {
	for _, o := range outputs {
		if o.Path == pipeline.Stdout {
			return true
		}
	}
	return false
}

func logSummary(input string, res *pipeline.Result) {
	written := make([]string, 0, len(res.Written))
	for _, o := range res.Written {
		written = append(written, fmt.Sprintf("%s=%s", o.Format, o.Path))
	}
	entry := log.WithFields(log.Fields{
		"input":         input,
		"records":       res.Stats.Records,
		"max_depth":     res.Stats.MaxStackDepth,
		"repairs":       res.Stats.Repairs,
		"error_markers": res.Stats.ErrorMarkers,
		"open_frames":   len(res.OpenFrames),
		"cache_hit":     res.CacheHit,
		"outputs":       strings.Join(written, ","),
	})
	if res.Diagnostics.HasWarnings() {
		warnings := 0
		for _, d := range res.Diagnostics.Items() {
			if d.Severity >= diag.SevWarning {
				warnings++
			}
		}
		entry = entry.WithField("warnings", warnings)
	}
	entry.Info("call tree rebuilt")
}
