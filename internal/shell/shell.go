// Package shell implements the REPL (spec.md C9): startup, the read-eval
// loop, and shutdown.
package shell

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/bkjg/project-shell/internal/builtin"
	"github.com/bkjg/project-shell/internal/job"
	"github.com/bkjg/project-shell/internal/log"
	"github.com/bkjg/project-shell/internal/pipeline"
	"github.com/bkjg/project-shell/internal/token"
)

var logger = log.New(os.Stdout, "shell")

// Config holds the shell's externally configurable knobs (SPEC_FULL.md §1):
// the prompt string and the history file path. Nothing else is
// configurable, matching spec.md §6's minimal CLI surface.
type Config struct {
	Prompt      string
	HistoryPath string
}

// Shell is the interactive job-control shell: a job table, a seized
// controlling terminal, and a line-reading loop. Grounded on shell.c's
// main/eval plus jobs.c's initjobs/shutdownjobs.
type Shell struct {
	cfg Config

	table   *job.Table
	tty     *os.File
	sigchld chan os.Signal

	launcher *pipeline.Launcher
	builtin  *builtin.Context

	history []string
}

// New constructs a Shell. It does not touch the terminal or install signal
// handlers; call Run to do that.
func New(cfg Config) *Shell {
	table := job.NewTable()

	s := &Shell{
		cfg:     cfg,
		table:   table,
		sigchld: make(chan os.Signal, 64),
	}

	s.builtin = &builtin.Context{
		Table:       table,
		Stdout:      os.Stdout,
		HistoryPath: cfg.HistoryPath,
		Resume:      s.resume,
		Launch:      s.launchForBuiltin,
		Shutdown:    s.Shutdown,
	}

	return s
}

// Run seizes the controlling terminal, installs signal handling, and drives
// the read-eval loop until EOF or "quit". It returns the process exit
// status. Grounded on jobs.c's initjobs and shell.c's main.
func (s *Shell) Run() int {
	if err := s.initJobs(); err != nil {
		logger.Errorf("seize controlling terminal: %s", err)
		fmt.Fprintf(os.Stderr, "shell: %s\n", err)
		return 1
	}
	logger.Infof("shell started; history: %s", s.cfg.HistoryPath)

	s.launcher = &pipeline.Launcher{
		Table:   s.table,
		Builtin: s.builtin,
		TTY:     s.tty,
		SIGCHLD: s.sigchld,
		Stdout:  os.Stdout,
	}

	signal.Notify(s.sigchld, syscall.SIGCHLD)
	signal.Ignore(syscall.SIGTSTP, syscall.SIGTTIN, syscall.SIGTTOU)

	// SIGINT: job-control already transfers terminal ownership to a
	// foreground job's process group for the duration of any command, so
	// ^C during a running job reaches that group directly and never
	// involves the shell at all. The only case the shell itself must
	// handle is ^C while blocked reading a line at the prompt — shell.c's
	// sigint_handler uses siglongjmp to abandon the partial line and
	// redisplay the prompt. A Go goroutine cannot be unwound that way, so
	// the line reader runs on its own goroutine and the mainline selects
	// between a completed line and a pending SIGINT, abandoning whatever
	// the reader goroutine is still blocked on.
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT)

	lines := make(chan lineResult)
	go readLines(lines)

readLoop:
	for {
		fmt.Fprint(os.Stdout, s.cfg.Prompt)
		select {
		case res := <-lines:
			if !res.ok {
				break readLoop
			}
			if res.line != "" {
				s.history = append(s.history, res.line)
				s.eval(res.line)
			}
			s.reapAndWatch()
		case <-sigint:
			fmt.Fprintln(os.Stdout)
		}
	}

	fmt.Fprintln(os.Stdout)
	return s.Shutdown()
}

// lineResult is one line read from stdin, or ok=false on EOF/error.
type lineResult struct {
	line string
	ok   bool
}

// readLines feeds complete lines from stdin to out until EOF, then sends a
// final !ok result. It runs for the lifetime of the shell so that a ^C at
// the prompt, which the mainline handles by simply looping back to a fresh
// prompt, never has to cancel an in-flight read: the reader just keeps
// going and the next line it produces answers the next prompt.
func readLines(out chan<- lineResult) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		out <- lineResult{line: scanner.Text(), ok: true}
	}
	out <- lineResult{ok: false}
}

// reapAndWatch drains any SIGCHLD notifications queued since the last
// command, reaps the processes they describe, and announces background
// state changes. Grounded on shell.c's main loop, which calls into the
// SIGCHLD handler's wait4 loop (here, Reap) before every watchjobs sweep —
// spec.md §4.6/§4.9 require job state to be current before that sweep, not
// just whenever the next blocking wait happens to land.
func (s *Shell) reapAndWatch() {
drain:
	for {
		select {
		case <-s.sigchld:
		default:
			break drain
		}
	}
	s.table.Reap()
	s.table.WatchContinued(os.Stdout)
	s.table.Watch(os.Stdout, job.Finished)
}

// eval tokenizes a line, strips a trailing background marker, and launches
// it as a single command or a pipeline. Grounded on shell.c's eval.
func (s *Shell) eval(line string) {
	tokens, bg := stripBackground(token.Tokenize(line))
	if len(tokens) == 0 {
		return
	}

	if _, err := s.launcher.Launch(tokens, bg); err != nil {
		fmt.Fprintf(os.Stdout, "%s\n", err)
	}
}

// stripBackground reports whether the line ended in a trailing "&" marker
// and returns the token stream with it removed. Grounded on shell.c's eval,
// which checks token[ntokens-1] == T_BGJOB before dispatching.
func stripBackground(tokens []token.Token) ([]token.Token, bool) {
	if len(tokens) == 0 {
		return tokens, false
	}
	if tokens[len(tokens)-1].Kind == token.BGJob {
		return tokens[:len(tokens)-1], true
	}
	return tokens, false
}

// launchForBuiltin adapts the launcher to the signature internal/builtin's
// Context.Launch callback expects, for the "history" built-in.
func (s *Shell) launchForBuiltin(argv []string, bg bool) (int, error) {
	tokens := make([]token.Token, len(argv))
	for i, a := range argv {
		tokens[i] = token.Token{Kind: token.String, Text: a}
	}
	return s.launcher.Launch(tokens, bg)
}

// resume implements jobs.c's resumejob for the fg/bg built-ins: it
// continues a stopped job (or just moves a running one to the foreground)
// and, if requested, monitors it.
func (s *Shell) resume(slot int, foreground bool) bool {
	if slot < 0 {
		slot = s.table.HighestLive()
	}
	if slot < 0 {
		return false
	}
	state, ok := s.table.Peek(slot)
	if !ok || state == job.Finished {
		return false
	}

	s.table.Continue(slot)

	if !foreground {
		return true
	}

	if err := s.table.Move(slot, job.FG); err != nil {
		return false
	}
	if _, err := s.launcher.MonitorForeground(); err != nil {
		fmt.Fprintf(os.Stdout, "%s\n", err)
	}
	return true
}

// initJobs seizes the controlling terminal: duplicate stdin to a private,
// close-on-exec descriptor and claim the foreground process group.
// Grounded on jobs.c's initjobs.
func (s *Shell) initJobs() error {
	fd, err := unix.Dup(int(os.Stdin.Fd()))
	if err != nil {
		return err
	}
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFD, unix.FD_CLOEXEC); err != nil {
		unix.Close(fd)
		return err
	}

	s.tty = os.NewFile(uintptr(fd), "/dev/tty")

	pgrp := unix.Getpgrp()
	return unix.IoctlSetPointerInt(fd, unix.TIOCSPGRP, pgrp)
}

// Shutdown kills every remaining background job, waits for it to finish,
// reports it, and closes the saved terminal descriptor. Grounded on
// jobs.c's shutdownjobs.
func (s *Shell) Shutdown() int {
	for _, slot := range s.table.BackgroundSlots() {
		if state, ok := s.table.Peek(slot); ok && state != job.Finished {
			s.table.Kill(slot)
		}
	}
	s.drainShutdown()
	s.table.Watch(os.Stdout, job.Finished)

	if s.tty != nil {
		s.tty.Close()
	}
	return 0
}

// drainShutdown blocks, reaping children, until no background job remains
// in a non-FINISHED state.
func (s *Shell) drainShutdown() {
	for {
		anyLive := false
		for _, slot := range s.table.BackgroundSlots() {
			if state, ok := s.table.Peek(slot); ok && state != job.Finished {
				anyLive = true
				break
			}
		}
		if !anyLive {
			return
		}
		<-s.sigchld
		s.table.Reap()
	}
}
