// Package kernel reads the live scheduling, IO and OOM attributes of a
// process. Every attribute is read independently and degrades to nil on
// failure; no read ever fails the whole snapshot.
package kernel

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"ruleomatic/internal/logging"
	"ruleomatic/internal/types"
)

// DefaultProcRoot is where procfs is normally mounted.
const DefaultProcRoot = "/proc"

// Scheduler policy codes (linux/sched.h).
const (
	schedNormal   = 0
	schedFIFO     = 1
	schedRR       = 2
	schedBatch    = 3
	schedIdle     = 5
	schedDeadline = 6
)

// IO priority classes (linux/ioprio.h).
const (
	ioprioClassShift = 13
	ioprioWhoProcess = 1
)

// Reader reads per-process attributes. The zero value is not usable; call
// NewReader. A Reader holds no mutable state and is safe for concurrent use.
type Reader struct {
	procRoot string
	sys      syscaller
}

// syscaller isolates the scheduler and priority syscalls so tests can stub
// them. Each method returns the raw kernel result.
type syscaller interface {
	getpriority(pid int) (int, error)
	schedGetScheduler(pid int) (int, error)
	schedGetParam(pid int) (int, error)
	schedGetAttrLatencyNice(pid int) (int, error)
	ioprioGet(pid int) (int, error)
}

// NewReader returns a Reader that resolves /proc files under procRoot.
// An empty procRoot means DefaultProcRoot.
func NewReader(procRoot string) *Reader {
	if procRoot == "" {
		procRoot = DefaultProcRoot
	}
	return &Reader{procRoot: procRoot, sys: hostSyscalls{}}
}

// ProcRoot returns the procfs mount point the reader uses.
func (r *Reader) ProcRoot() string {
	return r.procRoot
}

// Read collects all attributes of pid into a ProcessInfo named name.
func (r *Reader) Read(pid int, name string) types.ProcessInfo {
	policy, rtprio := r.ReadScheduler(pid)
	return types.ProcessInfo{
		PID:         pid,
		Name:        name,
		Nice:        r.ReadNice(pid),
		OOMScoreAdj: r.ReadOOMScoreAdj(pid),
		Cgroup:      r.ReadCgroup(pid),
		SchedPolicy: policy,
		RTPrio:      rtprio,
		LatencyNice: r.ReadLatencyNice(pid),
		IOClass:     r.ReadIOClass(pid),
	}
}

// ReadNice returns the niceness of pid.
//
// The value is always reported. When getpriority fails the C library
// convention returns -1, and that is what callers see; a permission failure
// is therefore indistinguishable from a real nice of -1.
func (r *Reader) ReadNice(pid int) *int {
	prio, err := r.sys.getpriority(pid)
	if err != nil {
		logging.Get(logging.CategoryKernel).Debugw("getpriority failed", "pid", pid, "error", err)
		nice := -1
		return &nice
	}
	// The raw syscall returns 20-nice so the result is never negative.
	nice := 20 - prio
	return &nice
}

// ReadOOMScoreAdj reads /proc/<pid>/oom_score_adj.
func (r *Reader) ReadOOMScoreAdj(pid int) *int {
	data, err := os.ReadFile(r.procPath(pid, "oom_score_adj"))
	if err != nil {
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return nil
	}
	return &v
}

// ReadCgroup reads /proc/<pid>/cgroup and returns the first non-root path.
func (r *Reader) ReadCgroup(pid int) *string {
	data, err := os.ReadFile(r.procPath(pid, "cgroup"))
	if err != nil {
		return nil
	}
	path := ParseCgroup(string(data))
	return &path
}

// ReadScheduler returns the decoded scheduling policy and the static
// priority of pid.
func (r *Reader) ReadScheduler(pid int) (policy *string, rtprio *int) {
	if code, err := r.sys.schedGetScheduler(pid); err == nil {
		p := DecodePolicy(code)
		policy = &p
	} else {
		logging.Get(logging.CategoryKernel).Debugw("sched_getscheduler failed", "pid", pid, "error", err)
	}
	if prio, err := r.sys.schedGetParam(pid); err == nil {
		rtprio = &prio
	}
	return policy, rtprio
}

// ReadLatencyNice returns the latency hint from sched_getattr. Kernels that
// do not know the field leave it zero.
func (r *Reader) ReadLatencyNice(pid int) *int {
	v, err := r.sys.schedGetAttrLatencyNice(pid)
	if err != nil {
		return nil
	}
	return &v
}

// ReadIOClass returns the decoded IO priority class of pid.
func (r *Reader) ReadIOClass(pid int) *string {
	v, err := r.sys.ioprioGet(pid)
	if err != nil || v < 0 {
		return nil
	}
	class := DecodeIOClass(v >> ioprioClassShift)
	return &class
}

func (r *Reader) procPath(pid int, file string) string {
	return filepath.Join(r.procRoot, strconv.Itoa(pid), file)
}

// DecodePolicy maps a scheduler policy code to its rule vocabulary name.
func DecodePolicy(code int) string {
	switch code {
	case schedNormal:
		return "normal"
	case schedFIFO:
		return "fifo"
	case schedRR:
		return "rr"
	case schedBatch:
		return "batch"
	case schedIdle:
		return "idle"
	case schedDeadline:
		return "deadline"
	default:
		return fmt.Sprintf("unknown(%d)", code)
	}
}

// DecodeIOClass maps an IO priority class id to its rule vocabulary name.
func DecodeIOClass(class int) string {
	switch class {
	case 0:
		return "none"
	case 1:
		return "realtime"
	case 2:
		return "best-effort"
	case 3:
		return "idle"
	default:
		return fmt.Sprintf("unknown(%d)", class)
	}
}

// ParseCgroup returns the first non-root, non-empty path from the content of
// a /proc/<pid>/cgroup file. Lines are hierarchy-id:controllers:path; lines
// with a different field count are skipped. If nothing qualifies the result
// is "/".
func ParseCgroup(content string) string {
	for _, line := range strings.Split(content, "\n") {
		parts := strings.Split(line, ":")
		if len(parts) != 3 {
			continue
		}
		if p := parts[2]; p != "/" && p != "" {
			return p
		}
	}
	return "/"
}
