// Package jobs keeps track of the children spawned by the shell: which ones
// are in the foreground and still alive, and which background ones have
// terminated but not been reported yet.
//
// All state is guarded by one mutex. The driver holds it from before it
// spawns a pipeline until that pipeline's foreground children have all been
// reaped; the reaper takes it before reaping. Since a child can then never be
// reaped before the spawner has registered it, no termination is
// misclassified or lost.
package jobs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"src.elv.sh/mshell/pkg/logutil"
	"src.elv.sh/mshell/pkg/status"
)

// Capacity limits.
const (
	// MaxForeground is the maximum number of foreground children of one
	// pipeline. A pipeline has fewer stages than half the maximum line
	// length.
	MaxForeground = 1024
	// MaxCompletions is the capacity of the background completion queue.
	// Completions beyond it are dropped.
	MaxCompletions = 1024
)

var logger = logutil.GetLogger("[jobs] ")

// Completion records the termination of a background child.
type Completion struct {
	Pid    int
	Status unix.WaitStatus
}

// String returns the line reported for the completion, without the newline.
func (c Completion) String() string {
	how := "exited with status " + fmt.Sprint(c.Status.ExitStatus())
	if c.Status.Signaled() {
		how = "killed by signal " + fmt.Sprint(int(c.Status.Signal()))
	}
	return fmt.Sprintf("Background process(%d) terminated. (%s)", c.Pid, how)
}

// WaitFunc reaps one terminated child without blocking. It has the semantics
// of wait4(-1, status, WNOHANG, nil).
type WaitFunc func(status *unix.WaitStatus) (pid int, err error)

func wait4(ws *unix.WaitStatus) (int, error) {
	return unix.Wait4(-1, ws, unix.WNOHANG, nil)
}

// Table is the job accounting state of a shell.
type Table struct {
	mu   sync.Mutex
	cond *sync.Cond

	fgPids  []int
	alive   int
	pending []Completion

	wait WaitFunc
	exit func(int)
}

// NewTable creates a Table. If wait is nil, children of the current process
// are reaped with wait4. The exit function is called with status.Wait when
// reaping fails; if it is nil, os.Exit is used.
func NewTable(wait WaitFunc, exit func(int)) *Table {
	if wait == nil {
		wait = wait4
	}
	if exit == nil {
		exit = os.Exit
	}
	t := &Table{wait: wait, exit: exit}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// Lock blocks reaping. It must be held while spawning children and
// registering them with AddForeground.
func (t *Table) Lock() { t.mu.Lock() }

// Unlock allows reaping again.
func (t *Table) Unlock() { t.mu.Unlock() }

// AddForeground registers a foreground child and counts it as alive. The
// caller must hold the lock.
func (t *Table) AddForeground(pid int) {
	if len(t.fgPids) >= MaxForeground {
		// Cannot happen for pipelines from lines of bounded length.
		logger.Printf("too many foreground children, pid %d is not tracked", pid)
		return
	}
	t.fgPids = append(t.fgPids, pid)
	t.alive++
	logger.Printf("foreground child %d, %d alive", pid, t.alive)
}

// Spawned returns the number of foreground children registered since the
// last WaitForeground. The caller must hold the lock.
func (t *Table) Spawned() int { return len(t.fgPids) }

// Alive returns the number of foreground children that have not been reaped.
// The caller must hold the lock.
func (t *Table) Alive() int { return t.alive }

// WaitForeground waits until all registered foreground children have been
// reaped, and then forgets them. The caller must hold the lock; it is
// released while waiting and held again when WaitForeground returns.
//
// There is no timeout: a foreground child that never exits blocks the caller
// forever.
func (t *Table) WaitForeground() {
	for t.alive > 0 {
		t.cond.Wait()
	}
	t.fgPids = t.fgPids[:0]
}

// Reap reaps all terminated children without blocking. Foreground children
// are counted down; background children are queued as completions.
func (t *Table) Reap() {
	t.mu.Lock()
	defer t.mu.Unlock()
	reaped := false
	for {
		var ws unix.WaitStatus
		pid, err := t.wait(&ws)
		if err == unix.EINTR {
			continue
		}
		if errors.Is(err, unix.ECHILD) {
			break
		}
		if err != nil {
			logger.Println("wait failed:", err)
			t.exit(status.Wait)
			return
		}
		if pid <= 0 {
			break
		}
		reaped = true
		t.record(pid, ws)
	}
	if reaped {
		t.cond.Broadcast()
	}
}

func (t *Table) record(pid int, ws unix.WaitStatus) {
	if t.isForeground(pid) {
		t.alive--
		logger.Printf("foreground child %d terminated (%v), %d alive", pid, ws, t.alive)
		return
	}
	if len(t.pending) >= MaxCompletions {
		logger.Printf("completion queue full, dropping pid %d", pid)
		return
	}
	t.pending = append(t.pending, Completion{pid, ws})
	logger.Printf("background child %d terminated (%v)", pid, ws)
}

func (t *Table) isForeground(pid int) bool {
	for _, fgPid := range t.fgPids {
		if fgPid == pid {
			return true
		}
	}
	return false
}

// Completions returns a copy of the queued background completions, in the
// order in which the children were reaped.
func (t *Table) Completions() []Completion {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Completion(nil), t.pending...)
}

// ReportCompletions writes one line for each queued background completion to
// w and empties the queue. Nothing is written if the queue is empty.
func (t *Table) ReportCompletions(w io.Writer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, c := range t.pending {
		fmt.Fprintln(w, c.String())
	}
	t.pending = t.pending[:0]
}
