package ffmpeg

import (
	"io"
	"os/exec"
	"sync/atomic"
)

// Quit command understood by an interactive ffmpeg process
const quitCommand = "q"

// Process is a handle to a spawned ffmpeg process. It is handed to the
// progress sink as soon as the process starts so a caller can request
// graceful termination while conversion is still running.
type Process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	exited atomic.Bool
}

// PID returns the OS process id
func (p *Process) PID() int {
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Exited reports whether the process has finished
func (p *Process) Exited() bool {
	return p.exited.Load()
}

// Quit asks the process to terminate gracefully by writing the
// single-character quit command to its standard input. Quitting an
// already exited process is a no-op.
func (p *Process) Quit() error {
	if p.Exited() {
		return nil
	}
	_, err := io.WriteString(p.stdin, quitCommand)
	return err
}

func (p *Process) markExited() {
	p.exited.Store(true)
}
