// Command shell is the job-control shell's entrypoint. Grounded on
// internal/jobworker/cli's flag-then-dispatch Run(), adapted to this
// program's two subcommands: the interactive REPL, and the hidden
// re-exec trampoline every forked stage runs through (spec.md §9,
// SPEC_FULL.md §5).
package main

import (
	"flag"
	"os"

	"github.com/bkjg/project-shell/internal/pipeline"
	"github.com/bkjg/project-shell/internal/shell"
)

var (
	promptFlag  = flag.String("prompt", "# ", "prompt string")
	historyFlag = flag.String("history", defaultHistoryPath(), "path to the command history file")
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) >= 2 && os.Args[1] == pipeline.StageArg {
		pipeline.RunChild(os.Args[2:])
		return 0 // unreachable: RunChild always calls os.Exit or execs.
	}

	flag.Parse()

	s := shell.New(shell.Config{
		Prompt:      *promptFlag,
		HistoryPath: *historyFlag,
	})
	return s.Run()
}

func defaultHistoryPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home + "/.history"
	}
	return ".history"
}
