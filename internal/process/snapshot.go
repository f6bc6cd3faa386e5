// Package process takes snapshots of the running process table and reads
// the live attributes of the processes a rule targets.
//
// A Snapshot is immutable. Refreshing produces a new Snapshot that the
// caller swaps in whole; nothing is ever updated in place.
package process

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/procfs"
	"golang.org/x/sync/errgroup"

	"ruleomatic/internal/kernel"
	"ruleomatic/internal/logging"
	"ruleomatic/internal/types"
)

// Scanner enumerates processes under a procfs mount.
type Scanner struct {
	fs     procfs.FS
	reader *kernel.Reader
}

// NewScanner returns a Scanner for the procfs mounted at procRoot. An empty
// procRoot means kernel.DefaultProcRoot.
func NewScanner(procRoot string) (*Scanner, error) {
	if procRoot == "" {
		procRoot = kernel.DefaultProcRoot
	}
	fs, err := procfs.NewFS(procRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to open procfs at %s: %w", procRoot, err)
	}
	return &Scanner{fs: fs, reader: kernel.NewReader(procRoot)}, nil
}

// entry is one process seen during a scan.
type entry struct {
	pid  int
	comm string
}

// Snapshot is the process table at one point in time, indexed by
// lowercased process name.
type Snapshot struct {
	reader  *kernel.Reader
	byName  map[string][]entry
	count   int
	takenAt time.Time
}

// Scan enumerates every process and records its name. Processes that exit
// while being scanned are skipped.
func (s *Scanner) Scan(ctx context.Context) (*Snapshot, error) {
	timer := logging.StartTimer(logging.CategoryProcess, "scan processes")
	defer timer.StopWithThreshold(250 * time.Millisecond)

	procs, err := s.fs.AllProcs()
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}
	sort.Sort(procs)

	snap := &Snapshot{
		reader:  s.reader,
		byName:  make(map[string][]entry, len(procs)),
		takenAt: time.Now(),
	}
	for _, p := range procs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		comm, err := p.Comm()
		if err != nil {
			continue
		}
		key := strings.ToLower(comm)
		snap.byName[key] = append(snap.byName[key], entry{pid: p.PID, comm: comm})
		snap.count++
	}

	logging.Get(logging.CategoryProcess).Debugw("process table scanned",
		"processes", snap.count, "names", len(snap.byName))
	return snap, nil
}

// Len returns the number of processes in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return s.count
}

// TakenAt returns when the snapshot was taken.
func (s *Snapshot) TakenAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.takenAt
}

// IsActive reports whether a process named name (case-insensitive) was
// running when the snapshot was taken. A nil Snapshot has no processes.
func (s *Snapshot) IsActive(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.byName[strings.ToLower(name)]
	return ok
}

// PIDs returns the ids of the processes named name, lowest first.
func (s *Snapshot) PIDs(name string) []int {
	if s == nil {
		return nil
	}
	entries := s.byName[strings.ToLower(name)]
	out := make([]int, len(entries))
	for i, e := range entries {
		out[i] = e.pid
	}
	return out
}

// Processes reads the live attributes of every process named name
// (case-insensitive), ordered by PID. Reads run in parallel; a process
// that vanished since the scan is still returned with whatever attributes
// could be read.
func (s *Snapshot) Processes(ctx context.Context, name string) ([]types.ProcessInfo, error) {
	if s == nil {
		return nil, nil
	}
	entries := s.byName[strings.ToLower(name)]
	if len(entries) == 0 {
		return nil, nil
	}

	out := make([]types.ProcessInfo, len(entries))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, e := range entries {
		i, e := i, e
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			out[i] = s.reader.Read(e.pid, e.comm)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
