//go:build !linux

package kernel

import "errors"

var errUnsupported = errors.New("kernel attributes are only available on linux")

type hostSyscalls struct{}

func (hostSyscalls) getpriority(int) (int, error)             { return 0, errUnsupported }
func (hostSyscalls) schedGetScheduler(int) (int, error)       { return 0, errUnsupported }
func (hostSyscalls) schedGetParam(int) (int, error)           { return 0, errUnsupported }
func (hostSyscalls) schedGetAttrLatencyNice(int) (int, error) { return 0, errUnsupported }
func (hostSyscalls) ioprioGet(int) (int, error)               { return 0, errUnsupported }
