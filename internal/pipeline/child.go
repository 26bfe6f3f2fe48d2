package pipeline

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/bkjg/project-shell/internal/builtin"
	"github.com/bkjg/project-shell/internal/external"
)

// StageArg is the sentinel subcommand a re-exec'd stage is launched with.
// cmd/shell recognizes it as os.Args[1] and calls RunChild instead of
// starting the interactive REPL. Adapted from internal/jobworker/reexec's
// Reexec sentinel.
const StageArg = "__shell_exec_stage__"

// RunChild is the entire body of a pipeline stage's child process. It never
// returns: it either hands off to a built-in and calls os.Exit, or execs
// the external command directly. Grounded on shell.c's child branch of
// do_job/do_stage, adapted per SPEC_FULL.md §5 to reset the signal
// dispositions a plain os/exec fork cannot reset for us.
func RunChild(argv []string) {
	resetInheritedDispositions()

	ctx := &builtin.Context{Stdout: os.Stdout}
	if code, ok := builtin.DispatchChild(ctx, argv); ok {
		os.Exit(code)
	}

	if err := external.Exec(argv); err != nil {
		os.Stderr.WriteString(argv[0] + ": " + err.Error() + "\n")
		os.Exit(127)
	}
}

// resetInheritedDispositions restores default handling for the signals the
// shell ignores or catches while driving job control. Without this step a
// re-exec'd stage would inherit SIG_IGN for SIGTSTP/SIGTTIN/SIGTTOU, which
// survives execve, and a freshly-exec'd program would never be able to
// suspend itself with ^Z. Grounded on shell.c's Signal(..., SIG_DFL) reset
// that a forked-and-exec'd child performs before running the real command.
func resetInheritedDispositions() {
	signal.Reset(syscall.SIGINT, syscall.SIGTSTP, syscall.SIGTTIN, syscall.SIGTTOU, syscall.SIGCHLD)
}
