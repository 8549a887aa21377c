//go:build windows

package service

import (
	"os"
	"os/exec"
	"syscall"
)

// CREATE_NO_WINDOW keeps the node child from opening a console window.
const createNoWindow = 0x08000000

func npmCommand() string { return "npm.cmd" }

func hideConsoleWindow(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: createNoWindow,
	}
}

// terminateProcess: Windows has no SIGTERM equivalent for console-less
// children; Kill and let Stop's wait pick up the exit.
func terminateProcess(p *os.Process) error {
	return p.Kill()
}

func strayKillCommands(entry string) [][]string {
	return [][]string{
		{"taskkill", "/F", "/IM", "chrome.exe"},
		{"taskkill", "/F", "/IM", "msedge.exe"},
		{"taskkill", "/F", "/IM", "node.exe"},
	}
}
