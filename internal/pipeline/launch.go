// Package pipeline starts jobs: single external/built-in commands and
// multi-stage pipelines (spec.md C7), plus the child-side re-exec
// trampoline every forked stage runs through (child.go).
package pipeline

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/pkg/errors"

	"github.com/bkjg/project-shell/internal/builtin"
	"github.com/bkjg/project-shell/internal/job"
	"github.com/bkjg/project-shell/internal/monitor"
	"github.com/bkjg/project-shell/internal/redirect"
	"github.com/bkjg/project-shell/internal/token"
)

// Launcher runs commands and pipelines against a shared job table,
// controlling terminal, and built-in dispatch context. Grounded on
// shell.c's do_job/do_stage/do_pipeline, which close over the same
// process-wide jobs table, tty_fd, and sigchld_mask.
type Launcher struct {
	Table   *job.Table
	Builtin *builtin.Context
	TTY     *os.File
	SIGCHLD <-chan os.Signal
	Stdout  *os.File
}

// Launch runs tokens (already stripped of a trailing "&" marker by the
// caller) as a single command or a pipeline, per bg. For a background job
// it returns the slot the job landed in. It returns -1 if the command was a
// built-in dispatched synchronously in-process (no job created), was empty,
// or ran in the foreground until it finished. A foreground job that stops
// yields job.FG, although the monitor has by then moved the job itself to a
// newly allocated background slot.
func (l *Launcher) Launch(tokens []token.Token, bg bool) (int, error) {
	stages := splitStages(tokens)
	if len(stages) == 1 {
		return l.launchSingle(stages[0], bg)
	}
	return l.launchPipeline(stages, bg)
}

// launchSingle is shell.c's do_job.
func (l *Launcher) launchSingle(tokens []token.Token, bg bool) (int, error) {
	res, err := redirect.Resolve(tokens)
	if err != nil {
		return -1, err
	}
	argv := argvOf(res.Tokens)
	if len(argv) == 0 {
		closeResult(res)
		return -1, nil
	}

	// Built-ins always run synchronously in the shell's own process,
	// whether or not the command line ended in "&" — shell.c's do_job
	// calls builtin_command before it ever looks at bg.
	if _, ok := builtin.Dispatch(l.Builtin, argv); ok {
		closeResult(res)
		return -1, nil
	}

	cmd := l.stageCmd(argv, fileOr(res.Stdin, os.Stdin), fileOr(res.Stdout, l.Stdout))
	if err := cmd.Start(); err != nil {
		closeResult(res)
		return -1, errors.Wrap(err, "start job")
	}
	closeResult(res)

	pid := cmd.Process.Pid
	slot := l.Table.AddJob(pid, bg)
	if err := l.Table.AddProcess(slot, pid, argv); err != nil {
		return slot, errors.Wrap(err, "register process")
	}

	if !bg {
		return l.monitorForeground(slot)
	}
	fmt.Fprintf(l.Stdout, "[%d] %d\n", slot, pid)
	return slot, nil
}

// launchPipeline is shell.c's do_pipeline, forking one child per stage and
// wiring stage i's stdout to stage i+1's stdin. The first stage's process
// becomes the job's process group leader; every later stage joins that
// group.
func (l *Launcher) launchPipeline(stageTokens [][]token.Token, bg bool) (int, error) {
	stages := make([]stageSpec, len(stageTokens))
	for i, toks := range stageTokens {
		res, err := redirect.Resolve(toks)
		if err != nil {
			for _, s := range stages[:i] {
				s.close()
			}
			return -1, err
		}
		argv := argvOf(res.Tokens)
		if len(argv) == 0 {
			for _, s := range stages[:i] {
				s.close()
			}
			closeResult(res)
			return -1, errors.New("pipeline: empty stage")
		}
		stages[i] = stageSpec{argv: argv, stdin: res.Stdin, stdout: res.Stdout}
	}

	pipes := make([]*os.File, 0, (len(stages)-1)*2)
	defer func() {
		for _, f := range pipes {
			f.Close()
		}
	}()

	for i := 0; i < len(stages)-1; i++ {
		r, w, err := os.Pipe()
		if err != nil {
			return -1, errors.Wrap(err, "pipeline: create pipe")
		}
		stages[i].pipeOut = w
		stages[i+1].pipeIn = r
		pipes = append(pipes, r, w)
	}

	var pgid int
	var pids []int
	for i, s := range stages {
		stdin := firstNonNil(s.stdin, s.pipeIn, os.Stdin)
		stdout := firstNonNil(s.stdout, s.pipeOut, l.Stdout)

		cmd := l.stageCmd(s.argv, stdin, stdout)
		if i == 0 {
			cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		} else {
			cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true, Pgid: pgid}
		}

		if err := cmd.Start(); err != nil {
			for _, s := range stages {
				s.close()
			}
			return -1, errors.Wrapf(err, "start stage %d", i)
		}

		if i == 0 {
			pgid = cmd.Process.Pid
		}
		pids = append(pids, cmd.Process.Pid)

		// The parent's copy of a pipe end is only needed by the two
		// stages straddling it; once both have been started it may be
		// closed here. Closing s.pipeIn after start avoids holding the
		// read end open in the parent past the point any later stage
		// could need it (there is none, once stage i is launched).
		if s.pipeIn != nil {
			s.pipeIn.Close()
		}
	}
	// Every stage has now inherited the write end of the pipe that feeds
	// it; the parent's copies must all be closed or the final reader
	// never sees EOF.
	for _, s := range stages {
		if s.pipeOut != nil {
			s.pipeOut.Close()
		}
	}
	for i := range stages {
		closeResult2(stages[i].stdin, stages[i].stdout)
	}

	slot := l.Table.AddJob(pgid, bg)
	for i, s := range stages {
		if err := l.Table.AddProcess(slot, pids[i], s.argv); err != nil {
			return slot, errors.Wrap(err, "register pipeline stage")
		}
	}

	if !bg {
		return l.monitorForeground(slot)
	}
	fmt.Fprintf(l.Stdout, "[%d] %d\n", slot, pgid)
	return slot, nil
}

// MonitorForeground waits on whatever job already occupies the table's
// foreground slot. It is exported for the "fg" built-in (internal/shell's
// resume callback), which moves a background job into FG itself via
// job.Table.Move before calling this rather than through Launch.
func (l *Launcher) MonitorForeground() (int, error) {
	return l.monitorForeground(job.FG)
}

func (l *Launcher) monitorForeground(slot int) (int, error) {
	outcome, _, err := monitor.Wait(l.Table, l.TTY, l.SIGCHLD, l.Stdout)
	if err != nil {
		return slot, errors.Wrap(err, "monitor foreground job")
	}
	if outcome == monitor.Stopped {
		return slot, nil
	}
	return -1, nil
}

// stageCmd builds the exec.Cmd that re-execs the shell's own binary with
// the stage trampoline sentinel, per SPEC_FULL.md §5.
func (l *Launcher) stageCmd(argv []string, stdin, stdout *os.File) *exec.Cmd {
	self, err := os.Executable()
	if err != nil {
		self = os.Args[0]
	}
	args := append([]string{StageArg}, argv...)
	cmd := exec.Command(self, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = os.Stderr
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	}
	return cmd
}

type stageSpec struct {
	argv           []string
	stdin, stdout  *os.File // user redirection, if any
	pipeIn, pipeOut *os.File
}

func (s stageSpec) close() {
	closeResult2(s.stdin, s.stdout)
	if s.pipeIn != nil {
		s.pipeIn.Close()
	}
	if s.pipeOut != nil {
		s.pipeOut.Close()
	}
}

func splitStages(tokens []token.Token) [][]token.Token {
	var stages [][]token.Token
	start := 0
	for i, t := range tokens {
		if t.Kind == token.Pipe {
			stages = append(stages, tokens[start:i])
			start = i + 1
		}
	}
	stages = append(stages, tokens[start:])
	return stages
}

func argvOf(tokens []token.Token) []string {
	argv := make([]string, 0, len(tokens))
	for _, t := range tokens {
		argv = append(argv, t.Text)
	}
	return argv
}

func fileOr(f *os.File, fallback *os.File) *os.File {
	if f != nil {
		return f
	}
	return fallback
}

func firstNonNil(files ...*os.File) *os.File {
	for _, f := range files {
		if f != nil {
			return f
		}
	}
	return nil
}

func closeResult(res redirect.Result) {
	closeResult2(res.Stdin, res.Stdout)
}

func closeResult2(stdin, stdout *os.File) {
	if stdin != nil {
		stdin.Close()
	}
	if stdout != nil {
		stdout.Close()
	}
}
