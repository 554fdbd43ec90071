package main

import (
	"github.com/spf13/cobra"

	"tracetree/internal/pipeline"
)

// renderOptions are the effective settings of one render run, after flags
// were layered over the configuration file.
type renderOptions struct {
	Input        string
	Output       string
	Kind         pipeline.Kind
	TextPath     string
	DotPath      string
	SkipFile     string
	ColumnsFile  string
	Skip         []string
	Columns      []string
	PruneSkipped bool
	Cache        bool
}

// flagValues holds the raw render flags and which of them were set.
type flagValues struct {
	input, output, filters, columns, kind string
	pruneSkipped, cache                   bool
	changed                               func(name string) bool
}

func readRenderFlags(cmd *cobra.Command) (flagValues, error) {
	var v flagValues
	var err error
	fl := cmd.Flags()
	if v.input, err = fl.GetString("input"); err != nil {
		return v, err
	}
	if v.output, err = fl.GetString("output"); err != nil {
		return v, err
	}
	if v.filters, err = fl.GetString("filters"); err != nil {
		return v, err
	}
	if v.columns, err = fl.GetString("columns"); err != nil {
		return v, err
	}
	if v.kind, err = fl.GetString("type"); err != nil {
		return v, err
	}
	if v.pruneSkipped, err = fl.GetBool("prune-skipped"); err != nil {
		return v, err
	}
	if v.cache, err = fl.GetBool("cache"); err != nil {
		return v, err
	}
	v.changed = fl.Changed
	return v, nil
}

// mergeOptions layers explicitly set flags over cfg. Flags left at their
// defaults only apply when the file does not set the value.
func mergeOptions(flags flagValues, cfg *loadedConfig) (renderOptions, error) {
	changed := flags.changed
	if changed == nil {
		changed = func(string) bool { return false }
	}
	var fc fileConfig
	if cfg != nil {
		fc = cfg.Config
	}

	pick := func(flag, flagValue, fileValue string) string {
		if changed(flag) || fileValue == "" {
			return flagValue
		}
		return fileValue
	}

	opts := renderOptions{
		Input:       pick("input", flags.input, fc.Input.Path),
		Output:      pick("output", flags.output, fc.Output.Path),
		TextPath:    fc.Output.TextPath,
		DotPath:     fc.Output.DotPath,
		SkipFile:    pick("filters", flags.filters, fc.Filters.SkipFile),
		ColumnsFile: pick("columns", flags.columns, fc.Filters.ColumnsFile),
		Skip:        fc.Filters.Skip,
		Columns:     fc.Filters.Columns,
	}

	kind, err := pipeline.ParseKind(pick("type", flags.kind, fc.Output.Type))
	if err != nil {
		return opts, err
	}
	opts.Kind = kind

	opts.PruneSkipped = flags.pruneSkipped
	if !changed("prune-skipped") && cfg.IsDefined("filters", "prune_skipped") {
		opts.PruneSkipped = fc.Filters.PruneSkipped
	}
	opts.Cache = flags.cache
	if !changed("cache") && cfg.IsDefined("cache", "enabled") {
		opts.Cache = fc.Cache.Enabled
	}
	return opts, nil
}
