// Package builtin implements the shell's in-process commands (spec.md C3):
// quit, cd, jobs, fg, bg, kill, history.
package builtin

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bkjg/project-shell/internal/job"
	"github.com/bkjg/project-shell/internal/validator"
)

// Context carries everything a built-in needs to act on shell-wide state.
// The shell package supplies the callbacks; builtin never imports
// internal/pipeline or internal/monitor directly, which would otherwise
// create an import cycle (pipeline's child trampoline calls DispatchChild).
type Context struct {
	// Table is the job table built-ins report on and mutate.
	Table *job.Table
	// Stdout is where a built-in writes its output.
	Stdout io.Writer
	// HistoryPath is the file the "history" built-in displays.
	HistoryPath string

	// Resume continues the job at slot (or the highest live background job
	// if slot < 0), optionally moving it to the foreground. It reports
	// whether a job was found. Implements jobs.c's resumejob.
	Resume func(slot int, foreground bool) bool
	// Launch starts argv as a new job, foreground unless bg is true.
	// Implements shell.c's do_job for commands a built-in itself needs to
	// run as a child (history's "cat").
	Launch func(argv []string, bg bool) (slot int, err error)
	// Shutdown runs the shell's termination sequence (kill and reap
	// remaining background jobs) and returns the process exit status.
	Shutdown func() int
}

type builtinFunc func(ctx *Context, argv []string) int

var table = map[string]builtinFunc{
	"quit":    doQuit,
	"cd":      doChdir,
	"jobs":    doJobs,
	"fg":      doFg,
	"bg":      doBg,
	"kill":    doKill,
	"history": doHistory,
}

// Dispatch runs argv[0] as a built-in if it is one, reporting ok=false if
// argv[0] names no built-in (the Go spelling of command.c builtin_command's
// negative out-of-band return). Grounded on command.c's builtins[] table.
func Dispatch(ctx *Context, argv []string) (code int, ok bool) {
	if len(argv) == 0 {
		return 0, false
	}
	fn, found := table[argv[0]]
	if !found {
		return 0, false
	}
	return fn(ctx, argv[1:]), true
}

// DispatchChild is the same built-in table made reachable from a pipeline
// stage running in a re-exec'd child: the stage trampoline
// (internal/pipeline's RunChild) calls it for every pipeline stage before
// falling back to the external executor. The child's Context carries only
// Stdout, with no job table and no callbacks, and a built-in run there acts
// on the child process, not on the shell. A single-stage command that names
// a built-in never reaches it: the launcher runs that built-in in the
// shell's own process through Dispatch, with or without a trailing "&".
func DispatchChild(ctx *Context, argv []string) (code int, ok bool) {
	return Dispatch(ctx, argv)
}

func doQuit(ctx *Context, argv []string) int {
	status := 0
	if ctx.Shutdown != nil {
		status = ctx.Shutdown()
	}
	os.Exit(status)
	return status // unreachable
}

// doChdir changes the shell's working directory. A bare "cd" goes to $HOME.
// Grounded on command.c's do_chdir: the glob-match count rule uses
// gl_pathc > 1 (zero matches falls through to chdir on the literal
// pattern, not an error) rather than != 1.
func doChdir(ctx *Context, argv []string) int {
	path := ""
	if len(argv) > 0 {
		path = argv[0]
	}
	if path == "" {
		path = os.Getenv("HOME")
	}

	matches, _ := filepath.Glob(path)
	v := validator.New()
	v.Assert(len(matches) <= 1, "cd: wrong number of arguments")
	if err := v.Err(); err != nil {
		fmt.Fprintf(ctx.Stdout, "cd: wrong numbers of arguments\n")
		return 1
	}

	target := path
	if len(matches) == 1 {
		target = matches[0]
	}

	if err := os.Chdir(target); err != nil {
		fmt.Fprintf(ctx.Stdout, "cd: %s: %s\n", err, path)
		return 1
	}
	return 0
}

func doJobs(ctx *Context, argv []string) int {
	ctx.Table.Watch(ctx.Stdout, job.All)
	return 0
}

// doFg moves a background job to the foreground: "fg" picks the
// highest-numbered live job, "fg n" picks job n. Grounded on command.c's
// do_fg.
func doFg(ctx *Context, argv []string) int {
	slot := parseSlot(argv)
	if !ctx.Resume(slot, true) {
		fmt.Fprintf(ctx.Stdout, "fg: job not found: %s\n", arg0(argv))
	}
	return 0
}

// doBg resumes a stopped background job without moving it to the
// foreground. Grounded on command.c's do_bg.
func doBg(ctx *Context, argv []string) int {
	slot := parseSlot(argv)
	if !ctx.Resume(slot, false) {
		fmt.Fprintf(ctx.Stdout, "bg: job not found: %s\n", arg0(argv))
	}
	return 0
}

// doKill sends SIGTERM to a job named "%n". Grounded on command.c's do_kill;
// unlike fg/bg, kill requires the "%" job-spec prefix.
func doKill(ctx *Context, argv []string) int {
	v := validator.New()
	v.AssertFunc(func() bool { return len(argv) > 0 && strings.HasPrefix(argv[0], "%") }, "kill: expected %n job spec")
	if err := v.Err(); err != nil {
		fmt.Fprintf(ctx.Stdout, "kill: usage: kill %%n\n")
		return 1
	}

	slot, err := strconv.Atoi(strings.TrimPrefix(argv[0], "%"))
	if err != nil {
		fmt.Fprintf(ctx.Stdout, "kill: usage: kill %%n\n")
		return 1
	}

	if !ctx.Table.Kill(slot) {
		fmt.Fprintf(ctx.Stdout, "kill: job not found: %s\n", argv[0])
	}
	return 0
}

// doHistory displays the shell's history file by launching "cat" against it
// through the normal job-launch path, rather than reading the file
// in-process. Grounded on command.c's do_history.
func doHistory(ctx *Context, argv []string) int {
	if ctx.Launch == nil {
		return 1
	}
	if _, err := ctx.Launch([]string{"cat", ctx.HistoryPath}, false); err != nil {
		fmt.Fprintf(ctx.Stdout, "history: %s\n", err)
		return 1
	}
	return 0
}

func parseSlot(argv []string) int {
	if len(argv) == 0 {
		return -1
	}
	n, err := strconv.Atoi(argv[0])
	if err != nil {
		return -1
	}
	return n
}

func arg0(argv []string) string {
	if len(argv) == 0 {
		return ""
	}
	return argv[0]
}
