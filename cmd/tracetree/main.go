// Package main implements the tracetree CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tracetree/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "tracetree",
	Short: "Rebuild call trees from IDA instruction traces",
	Long: `tracetree reads an instruction trace exported by the IDA debugger
(tab separated: thread, address, instruction, result), rebuilds the call
nesting and writes it as an indented outline, a Graphviz graph, or both.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

// main registers subcommands and persistent flags, then executes the root
// command. If command execution returns an error, the process exits with
// status code 1.
func main() {
	// Устанавливаем версию для автоматического флага --version
	rootCmd.Version = version.Current().Version

	// Добавляем команды
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	pf := rootCmd.PersistentFlags()
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("quiet", false, "suppress non-essential output")
	pf.Bool("timings", false, "show timing information")
	pf.Int("max-diagnostics", 1000, "maximum number of diagnostics to keep")
	pf.String("log-level", "info", "log level (debug|info|warn|error)")
	pf.String("log-format", "text", "log format (text|json)")
	pf.String("trace", "", "write phase trace events to this file (- for stderr)")
	pf.String("trace-level", "off", "phase trace level (off|stage|detail)")
	pf.String("cpu-profile", "", "write a CPU profile to this file")
	pf.String("mem-profile", "", "write a heap profile to this file")
	pf.String("runtime-trace", "", "write a Go runtime trace to this file")
	pf.String("ui", "auto", "progress UI (auto|on|off)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// useColor resolves the --color flag against the terminal state of f.
func useColor(cmd *cobra.Command, f *os.File) (bool, error) {
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false, err
	}
	switch colorFlag {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "auto", "":
		return isTerminal(f), nil
	}
	return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", colorFlag)
}

// stdoutFile returns the command's stdout when it is a file.
func stdoutFile(cmd *cobra.Command) *os.File {
	if f, ok := cmd.OutOrStdout().(*os.File); ok {
		return f
	}
	return os.Stdout
}
