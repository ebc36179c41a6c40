//go:build !windows

package process

import (
	"os"
	"syscall"
)

func interrupt(p *os.Process) error {
	return p.Signal(syscall.SIGINT)
}
