//go:build !unix

package speech

import "os/exec"

func pauseProcess(*exec.Cmd) error  { return ErrUnsupported }
func resumeProcess(*exec.Cmd) error { return ErrUnsupported }
