package job

import (
	"strings"
	"testing"

	"golang.org/x/sys/unix"
)

func TestAddJobForeground(t *testing.T) {
	tbl := NewTable()
	slot := tbl.AddJob(1234, false)
	if slot != FG {
		t.Fatalf("slot = %d, want %d", slot, FG)
	}
	status, ok := tbl.Peek(FG)
	if !ok || status != Running {
		t.Fatalf("status = %v, %v, want Running, true", status, ok)
	}
}

func TestAddJobBackgroundReusesLowestFreeSlot(t *testing.T) {
	tbl := NewTable()
	first := tbl.AddJob(100, true)
	second := tbl.AddJob(200, true)
	if first != BG || second != BG+1 {
		t.Fatalf("slots = %d, %d, want %d, %d", first, second, BG, BG+1)
	}

	if _, _, ok := tbl.Collect(first); !ok {
		t.Fatal("Collect(first) = false")
	}
	// first is still RUNNING (no process finished), so it is not freed by
	// Collect; simulate freeing it directly to test slot reuse.
	tbl.mu.Lock()
	tbl.jobs[first] = nil
	tbl.mu.Unlock()

	third := tbl.AddJob(300, true)
	if third != first {
		t.Fatalf("third slot = %d, want reused slot %d", third, first)
	}
}

func TestAddProcessAndCommand(t *testing.T) {
	tbl := NewTable()
	slot := tbl.AddJob(42, true)
	if err := tbl.AddProcess(slot, 100, []string{"yes"}); err != nil {
		t.Fatal(err)
	}
	if err := tbl.AddProcess(slot, 101, []string{"head", "-n", "3"}); err != nil {
		t.Fatal(err)
	}

	cmd, ok := tbl.Command(slot)
	if !ok {
		t.Fatal("Command() = false")
	}
	if want := "yes | head -n 3"; cmd != want {
		t.Errorf("Command() = %q, want %q", cmd, want)
	}
}

func TestAddProcessUnknownSlot(t *testing.T) {
	tbl := NewTable()
	if err := tbl.AddProcess(5, 1, []string{"x"}); err == nil {
		t.Fatal("expected error for free slot")
	}
}

func TestCollectDeletesFinishedJob(t *testing.T) {
	tbl := NewTable()
	slot := tbl.AddJob(7, true)
	tbl.AddProcess(slot, 7, []string{"true"})

	tbl.mu.Lock()
	tbl.jobs[slot].Processes[0].Status = Finished
	tbl.jobs[slot].Processes[0].WaitStatus = unix.WaitStatus(0)
	tbl.jobs[slot].Processes[0].HasWaitStatus = true
	tbl.jobs[slot].recompute()
	tbl.mu.Unlock()

	state, _, ok := tbl.Collect(slot)
	if !ok || state != Finished {
		t.Fatalf("Collect = %v, %v, want Finished, true", state, ok)
	}
	if _, ok := tbl.Peek(slot); ok {
		t.Error("slot should be freed after Collect of a finished job")
	}
}

func TestMove(t *testing.T) {
	tbl := NewTable()
	slot := tbl.AddJob(9, true)
	if err := tbl.Move(slot, slot+5); err != nil {
		t.Fatal(err)
	}
	if _, ok := tbl.Peek(slot); ok {
		t.Error("source slot should be free after Move")
	}
	if _, ok := tbl.Peek(slot + 5); !ok {
		t.Error("destination slot should hold the job after Move")
	}
}

func TestMoveOccupiedDestination(t *testing.T) {
	tbl := NewTable()
	a := tbl.AddJob(1, true)
	b := tbl.AddJob(2, true)
	if err := tbl.Move(a, b); err == nil {
		t.Fatal("expected error moving into occupied slot")
	}
}

func TestHighestLive(t *testing.T) {
	tbl := NewTable()
	if got := tbl.HighestLive(); got != -1 {
		t.Fatalf("HighestLive() on empty table = %d, want -1", got)
	}
	tbl.AddJob(1, true)
	second := tbl.AddJob(2, true)
	if got := tbl.HighestLive(); got != second {
		t.Fatalf("HighestLive() = %d, want %d", got, second)
	}
}

func TestWatchReportsAndDeletesFinished(t *testing.T) {
	tbl := NewTable()
	slot := tbl.AddJob(55, true)
	tbl.AddProcess(slot, 55, []string{"echo", "hi"})

	tbl.mu.Lock()
	tbl.jobs[slot].Processes[0].Status = Finished
	tbl.jobs[slot].Processes[0].HasWaitStatus = true
	tbl.jobs[slot].recompute()
	tbl.mu.Unlock()

	var buf strings.Builder
	tbl.Watch(&buf, All)

	if !strings.Contains(buf.String(), "echo hi") {
		t.Errorf("Watch output = %q, want it to mention the command", buf.String())
	}
	if _, ok := tbl.Peek(slot); ok {
		t.Error("finished job should be deleted after Watch reports it")
	}
}

func TestWatchFiltersByStatus(t *testing.T) {
	tbl := NewTable()
	running := tbl.AddJob(1, true)
	tbl.AddProcess(running, 1, []string{"sleep", "1"})

	stopped := tbl.AddJob(2, true)
	tbl.AddProcess(stopped, 2, []string{"vi"})
	tbl.mu.Lock()
	tbl.jobs[stopped].Processes[0].Status = Stopped
	tbl.jobs[stopped].recompute()
	tbl.mu.Unlock()

	var buf strings.Builder
	tbl.Watch(&buf, Stopped)

	if strings.Contains(buf.String(), "sleep") {
		t.Errorf("Watch(Stopped) reported the running job: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "vi") {
		t.Errorf("Watch(Stopped) did not report the stopped job: %q", buf.String())
	}
	if _, ok := tbl.Peek(stopped); !ok {
		t.Error("stopped job should not be deleted by Watch")
	}
}

func TestWatchContinuedReportsOnceThenClears(t *testing.T) {
	tbl := NewTable()
	slot := tbl.AddJob(3, true)
	tbl.AddProcess(slot, 3, []string{"vi"})

	tbl.mu.Lock()
	tbl.jobs[slot].Continued = true
	tbl.mu.Unlock()

	var first strings.Builder
	tbl.WatchContinued(&first)
	if !strings.Contains(first.String(), "[1] continue 'vi'") {
		t.Errorf("WatchContinued = %q, want it to report the continued job", first.String())
	}

	var second strings.Builder
	tbl.WatchContinued(&second)
	if second.Len() != 0 {
		t.Errorf("WatchContinued second call = %q, want empty (flag should clear after reporting)", second.String())
	}
}
