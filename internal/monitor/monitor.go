// Package monitor implements the foreground job monitor (spec.md C8): it
// transfers terminal ownership to a newly launched foreground job, blocks
// until that job leaves the RUNNING state, and classifies the outcome.
package monitor

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/bkjg/project-shell/internal/job"
)

// Outcome describes how a monitored foreground job left the RUNNING state.
type Outcome int

const (
	// Finished means the job exited or was killed by a signal; its slot has
	// been harvested and deleted.
	Finished Outcome = iota
	// Stopped means the job was suspended and has been parked in a new
	// background slot.
	Stopped
)

// Wait transfers the controlling terminal to the job table's foreground
// job, blocks until that job stops running, then restores the shell's own
// terminal ownership and terminal attributes. sigchld must be the same
// channel the shell's mainline goroutine registered via signal.Notify for
// SIGCHLD — Wait both reads it and calls table.Reap() to process awaited
// children, exactly as jobs.c monitorjob's Sigsuspend-loop calls into the
// SIGCHLD handler on every wakeup. Reports go to w, the shell's stdout.
func Wait(table *job.Table, tty *os.File, sigchld <-chan os.Signal, w io.Writer) (outcome Outcome, status unix.WaitStatus, err error) {
	fd := int(tty.Fd())

	saved, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return Finished, 0, errors.Wrap(err, "monitor: save terminal attributes")
	}

	pgid, ok := table.PGID(job.FG)
	if !ok {
		return Finished, 0, errors.New("monitor: no foreground job")
	}
	if err := unix.IoctlSetPointerInt(fd, unix.TIOCSPGRP, pgid); err != nil {
		return Finished, 0, errors.Wrap(err, "monitor: seize terminal")
	}

	for {
		state, ok := table.Peek(job.FG)
		if !ok || state != job.Running {
			break
		}
		waitForChildActivity(table, sigchld)
	}

	shellPgid := unix.Getpgrp()
	_ = unix.IoctlSetPointerInt(fd, unix.TIOCSPGRP, shellPgid)
	_ = unix.IoctlSetTermios(fd, unix.TCSADRAIN, saved)

	state, _ := table.Peek(job.FG)
	switch state {
	case job.Stopped:
		table.Park(job.FG)
		table.Watch(w, job.Stopped)
		return Stopped, 0, nil
	default: // job.Finished, or already gone
		_, ws, _ := table.Collect(job.FG)
		table.Watch(w, job.Finished)
		return Finished, ws, nil
	}
}

// waitForChildActivity blocks for the next SIGCHLD notification (or returns
// immediately if one is already queued) and reaps every child that is
// currently collectable. This is the Go-native equivalent of sigsuspend:
// the mainline goroutine yields here, and only here, while a foreground job
// runs.
func waitForChildActivity(table *job.Table, sigchld <-chan os.Signal) {
	<-sigchld
	table.Reap()
}

// Discard drains and ignores one pending SIGCHLD notification without
// reaping, used by callers that want to resynchronize the channel without
// risking a blocking receive. Exported for tests; the shell's mainline loop
// does not need it since Wait always reaps on every receive.
func Discard(sigchld <-chan os.Signal) {
	select {
	case <-sigchld:
	default:
	}
}
