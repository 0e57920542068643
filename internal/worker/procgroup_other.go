//go:build !unix

package worker

import "os/exec"

func setProcessGroup(*exec.Cmd) {}
