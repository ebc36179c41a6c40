//go:build windows

package process

import "os"

// Windows cannot deliver interrupts to child processes; WaitDelay still bounds the wait.
func interrupt(p *os.Process) error {
	return p.Kill()
}
