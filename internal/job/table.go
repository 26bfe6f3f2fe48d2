package job

import (
	"fmt"
	"io"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/google/uuid"
)

// FG is the reserved foreground slot. Background slots start at BG.
const (
	FG = 0
	BG = 1
)

// All is a wildcard Watch filter meaning "report every occupied background
// slot regardless of its state" — the Go spelling of jobs.c's ALL.
const All Status = ""

// Table is the shell's job table: an ordered mapping from slot number to
// job, slot 0 reserved for the foreground. Grounded on jobs.c's jobs[]
// array and allocjob/addjob/deljob/movejob.
type Table struct {
	mu   sync.Mutex
	jobs []*Job // jobs[FG] may be nil; jobs[BG:] may contain nil holes
}

// NewTable creates an empty Table.
func NewTable() *Table {
	return &Table{jobs: make([]*Job, BG)}
}

// AddJob allocates a slot for a new job (slot 0 if bg is false, else the
// lowest free slot >= 1, else a newly appended one) and returns it.
// Grounded on jobs.c's addjob/allocjob.
func (t *Table) AddJob(pgid int, bg bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	slot := FG
	if bg {
		slot = t.allocLocked()
	}

	t.jobs[slot] = &Job{
		ID:     uuid.New(),
		Pgid:   pgid,
		Status: Running,
	}
	return slot
}

func (t *Table) allocLocked() int {
	for i := BG; i < len(t.jobs); i++ {
		if t.jobs[i] == nil {
			return i
		}
	}
	t.jobs = append(t.jobs, nil)
	return len(t.jobs) - 1
}

// AddProcess appends a process to the job at slot, extending its command
// string. Grounded on jobs.c's addproc/allocproc.
func (t *Table) AddProcess(slot int, pid int, argv []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	j := t.at(slot)
	if j == nil {
		return fmt.Errorf("job: slot %d is free", slot)
	}

	j.Processes = append(j.Processes, &Process{Pid: pid, Status: Running})
	j.argv = append(j.argv, append([]string(nil), argv...))
	j.recompute()
	return nil
}

// Peek returns a job's current aggregate state without mutating the table.
func (t *Table) Peek(slot int) (Status, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	j := t.at(slot)
	if j == nil {
		return "", false
	}
	return j.Status, true
}

// PGID returns the process-group id of the job at slot.
func (t *Table) PGID(slot int) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	j := t.at(slot)
	if j == nil {
		return 0, false
	}
	return j.Pgid, true
}

// Command returns the job's reportable command-line text.
func (t *Table) Command(slot int) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	j := t.at(slot)
	if j == nil {
		return "", false
	}
	return j.Command(), true
}

// Collect is jobs.c's jobstate: it returns the job's aggregate state, and if
// that state is FINISHED, harvests the last process's wait status and
// deletes the job.
func (t *Table) Collect(slot int) (state Status, status unix.WaitStatus, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	j := t.at(slot)
	if j == nil {
		return "", 0, false
	}

	state = j.Status
	if state == Finished {
		status, _ = j.lastStatus()
		t.deleteLocked(slot)
	}
	return state, status, true
}

// Move relocates the job at from into to, which must be free. Grounded on
// jobs.c's movejob.
func (t *Table) Move(from, to int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.at(to) != nil {
		return fmt.Errorf("job: slot %d is occupied", to)
	}
	j := t.at(from)
	if j == nil {
		return fmt.Errorf("job: slot %d is free", from)
	}

	t.ensure(to)
	t.jobs[to] = j
	t.jobs[from] = nil
	return nil
}

// Kill sends SIGCONT (if stopped) then SIGTERM to the job's process group.
// It reports false if the slot is free or already finished. Grounded on
// jobs.c's killjob.
func (t *Table) Kill(slot int) bool {
	t.mu.Lock()
	j := t.at(slot)
	if j == nil || j.Status == Finished {
		t.mu.Unlock()
		return false
	}
	pgid := j.Pgid
	stopped := j.Status == Stopped
	t.mu.Unlock()

	if stopped {
		_ = unix.Kill(-pgid, unix.SIGCONT)
	}
	_ = unix.Kill(-pgid, unix.SIGTERM)
	return true
}

// Continue sends SIGCONT to the job's process group. Used by Resume.
func (t *Table) Continue(slot int) bool {
	t.mu.Lock()
	j := t.at(slot)
	if j == nil {
		t.mu.Unlock()
		return false
	}
	pgid := j.Pgid
	t.mu.Unlock()

	return unix.Kill(-pgid, unix.SIGCONT) == nil
}

// HighestLive returns the highest-numbered background slot that has not
// finished, or -1 if none. Grounded on jobs.c's resumejob's "j < 0" search.
func (t *Table) HighestLive() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := len(t.jobs) - 1; i >= BG; i-- {
		if t.jobs[i] != nil && t.jobs[i].Status != Finished {
			return i
		}
	}
	return -1
}

// Report is one line of Watch output.
type Report struct {
	Slot    int
	Status  Status
	Command string
	// Continued is true when the job's last observed transition was a
	// SIGCONT rather than a fresh RUNNING start.
	Continued bool
	// Exited/Signaled/ExitCode/Signal describe a FINISHED job's outcome.
	Exited   bool
	ExitCode int
	Signaled bool
	Signal   int
}

// Watch reports every occupied background slot whose state equals which
// (or every occupied background slot if which == All), writing one line per
// job to w, and deletes any job it reports that has FINISHED. Grounded on
// jobs.c's watchjobs.
func (t *Table) Watch(w io.Writer, which Status) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for slot := BG; slot < len(t.jobs); slot++ {
		j := t.jobs[slot]
		if j == nil {
			continue
		}
		if which != All && j.Status != which {
			continue
		}

		rep := Report{Slot: slot, Status: j.Status, Command: j.Command()}
		status, has := j.lastStatus()
		switch j.Status {
		case Running:
			rep.Continued = j.Continued
		case Finished:
			if has && status.Exited() {
				rep.Exited = true
				rep.ExitCode = status.ExitStatus()
			} else if has && status.Signaled() {
				rep.Signaled = true
				rep.Signal = int(status.Signal())
			}
		}

		fmt.Fprint(w, formatReport(rep))

		if j.Status == Finished {
			t.deleteLocked(slot)
		}
	}
}

// WatchContinued reports every background job whose Continued flag is set
// (a WCONTINUED transition the reaper observed since the last report that
// moved the job's aggregate state back to RUNNING) and clears the flag once
// reported, so each resume is announced exactly once.
func (t *Table) WatchContinued(w io.Writer) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for slot := BG; slot < len(t.jobs); slot++ {
		j := t.jobs[slot]
		if j == nil || !j.Continued {
			continue
		}
		fmt.Fprintf(w, "[%d] continue '%s'\n", slot, j.Command())
		j.Continued = false
	}
}

func formatReport(r Report) string {
	switch r.Status {
	case Running:
		if r.Continued {
			return fmt.Sprintf("[%d] continue '%s'\n", r.Slot, r.Command)
		}
		return fmt.Sprintf("[%d] running '%s'\n", r.Slot, r.Command)
	case Stopped:
		return fmt.Sprintf("[%d] suspended '%s'\n", r.Slot, r.Command)
	default: // Finished
		if r.Exited {
			return fmt.Sprintf("[%d] exited '%s', status=%d\n", r.Slot, r.Command, r.ExitCode)
		}
		if r.Signaled {
			return fmt.Sprintf("[%d] killed '%s' by signal %d\n", r.Slot, r.Command, r.Signal)
		}
		return fmt.Sprintf("[%d] exited '%s'\n", r.Slot, r.Command)
	}
}

// Park moves the job at slot from (typically FG) into a freshly allocated
// background slot and returns that slot. Grounded on jobs.c monitorjob's
// allocjob-then-movejob sequence when a foreground job stops.
func (t *Table) Park(from int) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	to := t.allocLocked()
	t.jobs[to] = t.jobs[from]
	t.jobs[from] = nil
	return to
}

// BackgroundSlots returns every currently occupied background slot, in
// ascending order.
func (t *Table) BackgroundSlots() []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	var slots []int
	for i := BG; i < len(t.jobs); i++ {
		if t.jobs[i] != nil {
			slots = append(slots, i)
		}
	}
	return slots
}

func (t *Table) at(slot int) *Job {
	if slot < 0 || slot >= len(t.jobs) {
		return nil
	}
	return t.jobs[slot]
}

func (t *Table) ensure(slot int) {
	for slot >= len(t.jobs) {
		t.jobs = append(t.jobs, nil)
	}
}

func (t *Table) deleteLocked(slot int) {
	if slot >= 0 && slot < len(t.jobs) {
		t.jobs[slot] = nil
	}
}
