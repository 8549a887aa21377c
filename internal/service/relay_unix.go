//go:build !windows

package service

import (
	"os"
	"os/exec"
	"syscall"
)

func npmCommand() string { return "npm" }

// hideConsoleWindow is a no-op outside Windows.
func hideConsoleWindow(cmd *exec.Cmd) {}

// terminateProcess asks the relay to exit cleanly before Stop escalates.
func terminateProcess(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}

// strayKillCommands lists best-effort cleanup commands for processes the
// relay's browser session may have orphaned.
func strayKillCommands(entry string) [][]string {
	return [][]string{
		{"pkill", "-f", "Google Chrome"},
		{"pkill", "-f", entry},
	}
}
