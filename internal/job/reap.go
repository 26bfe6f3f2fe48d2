package job

import (
	"golang.org/x/sys/unix"
)

// Reap drains every exited, stopped, or continued child currently
// collectable via a non-blocking wait, updating the owning process and job
// records, and reports whether any job's aggregate status changed as a
// result. It is the Go-native equivalent of jobs.c's sigchld_handler, meant
// to be invoked once per SIGCHLD delivery from a signal.Notify channel —
// the channel read itself is the sigsuspend-loop wakeup, this call is the
// wait4 loop that follows it.
func (t *Table) Reap() (changed bool) {
	for {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(-1, &ws, unix.WNOHANG|unix.WUNTRACED|unix.WCONTINUED, nil)
		if err != nil || pid <= 0 {
			return changed
		}

		if t.applyWaitStatus(pid, ws) {
			changed = true
		}
	}
}

// applyWaitStatus finds the process with the given pid, updates its status
// from ws, recomputes its job's aggregate state, and reports whether the
// job's aggregate state actually changed.
func (t *Table) applyWaitStatus(pid int, ws unix.WaitStatus) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, j := range t.jobs {
		if j == nil {
			continue
		}
		for _, p := range j.Processes {
			if p.Pid != pid {
				continue
			}

			p.WaitStatus = ws
			p.HasWaitStatus = true

			switch {
			case ws.Exited(), ws.Signaled():
				p.Status = Finished
			case ws.Stopped():
				p.Status = Stopped
			case ws.Continued():
				p.Status = Running
			}

			before := j.Status
			j.recompute()
			if ws.Continued() && before != Running && j.Status == Running {
				j.Continued = true
			}
			return j.Status != before
		}
	}
	return false
}
