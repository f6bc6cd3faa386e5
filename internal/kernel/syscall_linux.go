//go:build linux

package kernel

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// schedAttr mirrors struct sched_attr including the latency_nice field that
// some kernels append after sched_util_max.
type schedAttr struct {
	Size        uint32
	Policy      uint32
	Flags       uint64
	Nice        int32
	Priority    uint32
	Runtime     uint64
	Deadline    uint64
	Period      uint64
	UtilMin     uint32
	UtilMax     uint32
	LatencyNice int32
}

type hostSyscalls struct{}

func (hostSyscalls) getpriority(pid int) (int, error) {
	return unix.Getpriority(unix.PRIO_PROCESS, pid)
}

func (hostSyscalls) schedGetScheduler(pid int) (int, error) {
	r, _, errno := unix.Syscall(unix.SYS_SCHED_GETSCHEDULER, uintptr(pid), 0, 0)
	if errno != 0 {
		return 0, errno
	}
	return int(int32(r)), nil
}

func (hostSyscalls) schedGetParam(pid int) (int, error) {
	var prio int32
	_, _, errno := unix.Syscall(unix.SYS_SCHED_GETPARAM, uintptr(pid), uintptr(unsafe.Pointer(&prio)), 0)
	if errno != 0 {
		return 0, errno
	}
	return int(prio), nil
}

func (hostSyscalls) schedGetAttrLatencyNice(pid int) (int, error) {
	var attr schedAttr
	attr.Size = uint32(unsafe.Sizeof(attr))
	_, _, errno := unix.Syscall6(unix.SYS_SCHED_GETATTR,
		uintptr(pid), uintptr(unsafe.Pointer(&attr)), uintptr(attr.Size), 0, 0, 0)
	if errno != 0 {
		return 0, errno
	}
	return int(attr.LatencyNice), nil
}

func (hostSyscalls) ioprioGet(pid int) (int, error) {
	r, _, errno := unix.Syscall(unix.SYS_IOPRIO_GET, ioprioWhoProcess, uintptr(pid), 0)
	if errno != 0 {
		return 0, errno
	}
	return int(int32(r)), nil
}
