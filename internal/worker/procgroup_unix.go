//go:build unix

package worker

import (
	"os/exec"
	"syscall"
)

// setProcessGroup запускает команду в отдельной группе процессов:
// при отмене убивается вся группа, и pipe'ы stdout/stderr закрываются.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
