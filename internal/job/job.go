// Package job implements the job table and process-group lifecycle manager
// (spec.md C5) and the SIGCHLD-driven reaper (C6). A Table is mainline-owned
// (spec.md invariant I6): Reap is only ever invoked from the single mainline
// goroutine's own SIGCHLD-channel receive, never concurrently with that same
// goroutine's Launch/AddJob/AddProcess sequence, so the reaper can never
// observe a pid before its job entry exists (spec.md O2) without needing
// process-wide signal masking — see internal/pipeline and internal/monitor,
// and spec.md §9's note that a message-passing realization of this
// discipline is an equally valid model of the source's sigprocmask bracket.
package job

import (
	"github.com/google/uuid"
	"github.com/kballard/go-shellquote"
	"golang.org/x/sys/unix"
)

// Status is a job or process's aggregate lifecycle state.
type Status string

const (
	// Running indicates the job (or process) is currently scheduled.
	Running Status = "running"
	// Stopped indicates the job (or process) has been suspended (SIGTSTP or
	// equivalent).
	Stopped Status = "stopped"
	// Finished indicates the job (or process) has exited or been killed by
	// a signal.
	Finished Status = "finished"
)

// aggregate derives a job's Status from its processes: RUNNING if any
// process is RUNNING, else STOPPED if any is STOPPED, else FINISHED.
// Grounded on jobs.c's job_state.
func aggregate(procs []*Process) Status {
	state := Finished
	for _, p := range procs {
		switch p.Status {
		case Running:
			return Running
		case Stopped:
			state = Stopped
		}
	}
	return state
}

// Process is a single member of a pipeline.
type Process struct {
	// Pid is the kernel process id.
	Pid int
	// Status is the process's current lifecycle state.
	Status Status
	// WaitStatus is the last raw wait status observed for this process.
	// HasWaitStatus is false until the reaper observes the process for the
	// first time — the Go equivalent of spec.md's sentinel -1 "unknown",
	// since unix.WaitStatus carries no natural unset value.
	WaitStatus    unix.WaitStatus
	HasWaitStatus bool
}

// Job is an ordered pipeline of processes sharing one process group.
type Job struct {
	// ID is an internal identifier assigned when the job is added; nothing
	// in the shell reads or logs it. The user-facing identifier is the Table
	// slot, a distinct namespace.
	ID uuid.UUID

	// Pgid is the process-group id; 0 means the slot is free.
	Pgid int
	// Processes is the pipeline, left to right.
	Processes []*Process
	// Status is the aggregate state, recomputed after every process update.
	Status Status
	// Continued is a one-shot flag set when the reaper observes a WCONTINUED
	// transition that brings this job's aggregate state back to RUNNING (a
	// continue that leaves the aggregate state unchanged does not set it),
	// and cleared once Table.
	// WatchContinued reports it. It exists because the raw wait status on a
	// process is sticky — without a separate flag a resumed job would be
	// reported as "continue" on every subsequent report, not just the first.
	Continued bool

	argv [][]string
}

// Command renders the job's command line as "argv0 a1 … | argv0 b1 …",
// shell-escaping each argument. Grounded on jobs.c's mkcommand/strapp,
// implemented with github.com/kballard/go-shellquote rather than hand-rolled
// string appending.
func (j *Job) Command() string {
	parts := make([]string, len(j.argv))
	for i, argv := range j.argv {
		parts[i] = shellquote.Join(argv...)
	}
	return joinPipeline(parts)
}

func joinPipeline(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " | "
		}
		out += p
	}
	return out
}

// lastStatus returns the raw wait status of the job's last process — the
// job's own reportable exit status, per jobs.c's exitcode().
func (j *Job) lastStatus() (unix.WaitStatus, bool) {
	if len(j.Processes) == 0 {
		return 0, false
	}
	last := j.Processes[len(j.Processes)-1]
	return last.WaitStatus, last.HasWaitStatus
}

func (j *Job) recompute() {
	j.Status = aggregate(j.Processes)
}
