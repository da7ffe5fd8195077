package jobs

import (
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sys/unix"

	"src.elv.sh/mshell/pkg/status"
)

func exited(code int) unix.WaitStatus { return unix.WaitStatus(code << 8) }

func killed(sig unix.Signal) unix.WaitStatus { return unix.WaitStatus(sig) }

// A fake wait4 backed by a queue of terminated children.
type fakeWaiter struct {
	mu     sync.Mutex
	queue  []Completion
	noKids bool
	err    error
}

func (fw *fakeWaiter) push(pid int, ws unix.WaitStatus) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.queue = append(fw.queue, Completion{pid, ws})
}

func (fw *fakeWaiter) wait(ws *unix.WaitStatus) (int, error) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.err != nil {
		return -1, fw.err
	}
	if len(fw.queue) == 0 {
		if fw.noKids {
			return -1, unix.ECHILD
		}
		return 0, nil
	}
	c := fw.queue[0]
	fw.queue = fw.queue[1:]
	*ws = c.Status
	return c.Pid, nil
}

func TestCompletionString(t *testing.T) {
	tests := []struct {
		c    Completion
		want string
	}{
		{Completion{12, exited(0)},
			"Background process(12) terminated. (exited with status 0)"},
		{Completion{34, exited(3)},
			"Background process(34) terminated. (exited with status 3)"},
		{Completion{56, killed(unix.SIGKILL)},
			"Background process(56) terminated. (killed by signal 9)"},
	}
	for _, test := range tests {
		if got := test.c.String(); got != test.want {
			t.Errorf("got %q, want %q", got, test.want)
		}
	}
}

func TestReap_ClassifiesChildren(t *testing.T) {
	fw := &fakeWaiter{}
	tb := NewTable(fw.wait, nil)

	tb.Lock()
	tb.AddForeground(100)
	tb.AddForeground(101)
	tb.Unlock()

	fw.push(100, exited(0))
	fw.push(200, exited(1))
	tb.Reap()

	tb.Lock()
	if alive := tb.Alive(); alive != 1 {
		t.Errorf("Alive() -> %d, want 1", alive)
	}
	if spawned := tb.Spawned(); spawned != 2 {
		t.Errorf("Spawned() -> %d, want 2", spawned)
	}
	tb.Unlock()

	fw.push(300, killed(unix.SIGTERM))
	fw.noKids = true
	tb.Reap()

	want := []Completion{{200, exited(1)}, {300, killed(unix.SIGTERM)}}
	if diff := cmp.Diff(want, tb.Completions()); diff != "" {
		t.Errorf("Completions() (-want +got):\n%s", diff)
	}
}

func TestWaitForeground_BlocksUntilAllReaped(t *testing.T) {
	fw := &fakeWaiter{}
	tb := NewTable(fw.wait, nil)

	tb.Lock()
	tb.AddForeground(1)
	tb.AddForeground(2)

	done := make(chan struct{})
	go func() {
		tb.WaitForeground()
		if tb.Spawned() != 0 {
			t.Errorf("Spawned() -> %d after WaitForeground, want 0", tb.Spawned())
		}
		tb.Unlock()
		close(done)
	}()

	fw.push(1, exited(0))
	tb.Reap()
	select {
	case <-done:
		t.Fatal("WaitForeground returned with a child alive")
	case <-time.After(50 * time.Millisecond):
	}

	fw.push(2, exited(0))
	tb.Reap()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("WaitForeground did not return")
	}
}

func TestWaitForeground_NothingSpawned(t *testing.T) {
	tb := NewTable((&fakeWaiter{}).wait, nil)
	tb.Lock()
	tb.WaitForeground()
	tb.Unlock()
}

func TestReap_QueueIsBounded(t *testing.T) {
	fw := &fakeWaiter{}
	tb := NewTable(fw.wait, nil)
	for i := 0; i < MaxCompletions+10; i++ {
		fw.push(1000+i, exited(0))
	}
	tb.Reap()

	cs := tb.Completions()
	if len(cs) != MaxCompletions {
		t.Fatalf("queued %d completions, want %d", len(cs), MaxCompletions)
	}
	if cs[0].Pid != 1000 || cs[len(cs)-1].Pid != 1000+MaxCompletions-1 {
		t.Errorf("the oldest completions should be kept")
	}
}

func TestReap_WaitFailureIsFatal(t *testing.T) {
	exitStatus := -1
	tb := NewTable((&fakeWaiter{err: unix.EINVAL}).wait,
		func(i int) { exitStatus = i })
	tb.Reap()
	if exitStatus != status.Wait {
		t.Errorf("exit called with %d, want %d", exitStatus, status.Wait)
	}
}

func TestReportCompletions(t *testing.T) {
	fw := &fakeWaiter{}
	tb := NewTable(fw.wait, nil)
	fw.push(7, exited(2))
	fw.push(8, killed(unix.SIGINT))
	tb.Reap()

	var sb strings.Builder
	tb.ReportCompletions(&sb)
	want := "Background process(7) terminated. (exited with status 2)\n" +
		"Background process(8) terminated. (killed by signal 2)\n"
	if sb.String() != want {
		t.Errorf("got %q, want %q", sb.String(), want)
	}

	// The queue is now empty.
	sb.Reset()
	tb.ReportCompletions(&sb)
	if sb.String() != "" {
		t.Errorf("second report wrote %q, want nothing", sb.String())
	}
}

func TestRelay(t *testing.T) {
	fw := &fakeWaiter{}
	tb := NewTable(fw.wait, nil)
	sigCh := make(chan os.Signal)
	stop := tb.relay(sigCh)
	defer stop()

	fw.push(42, exited(0))
	sigCh <- unix.SIGCHLD
	// The relay only receives the next signal after the previous Reap has
	// returned.
	sigCh <- unix.SIGCHLD

	if cs := tb.Completions(); len(cs) != 1 || cs[0].Pid != 42 {
		t.Errorf("Completions() -> %v, want pid 42 only", cs)
	}
}

func TestStartReaper_StopReturns(t *testing.T) {
	fw := &fakeWaiter{noKids: true}
	tb := NewTable(fw.wait, nil)

	done := make(chan struct{})
	go func() {
		tb.StartReaper()()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stopping the reaper did not return")
	}
}
