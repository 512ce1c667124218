/*
Package child owns the supervised application: spawning it in its own
session, relaying its output, escalating termination signals to its whole
process group, and the Supervisor loop that drives all of that from the
proxy's events and the idle timer.
*/
package child

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/google/shlex"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/knockware/knocker/utils"
)

// Stage of a supervised child.
type Stage int32

const (
	StageRunning Stage = iota
	StageSignaledTerm
	StageReaped
)

func (s Stage) String() string {
	switch s {
	case StageRunning:
		return "Running"
	case StageSignaledTerm:
		return "SignaledTerm"
	case StageReaped:
		return "Reaped"
	}
	return "?"
}

// Child is one supervised OS process, running as the leader of its own
// session.
type Child struct {
	cmd   *exec.Cmd
	stage atomic.Int32
}

// Spawn parses command shell-style, starts it in a new session with its
// stdout/stderr relayed to ours, and returns the tracked Child. A spawn
// failure is not recoverable for the caller: supervision can not proceed
// without a child.
func Spawn(command string) (*Child, error) {
	words, err := shlex.Split(command)
	if err != nil {
		return nil, utils.ErrInErr{ErrDesc: "bad child command", ErrDetail: err, Data: command}
	}
	if len(words) == 0 {
		return nil, utils.ErrInErr{ErrDesc: "empty child command", ErrDetail: utils.ErrInvalidData}
	}

	cmd := exec.Command(words[0], words[1:]...)
	cmd.SysProcAttr = sysProcAttr()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, utils.ErrInErr{ErrDesc: "could not get child stdout", ErrDetail: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, utils.ErrInErr{ErrDesc: "could not get child stderr", ErrDetail: err}
	}

	if err := cmd.Start(); err != nil {
		return nil, utils.ErrInErr{ErrDesc: "failed to spawn child", ErrDetail: err, Data: words[0]}
	}

	go relayLines(stdout, os.Stdout)
	go relayLines(stderr, os.Stderr)

	c := &Child{cmd: cmd}
	c.stage.Store(int32(StageRunning))
	return c, nil
}

// relayLines copies the child's output line by line; a read error or EOF
// just ends the relay.
func relayLines(r io.Reader, w io.Writer) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		fmt.Fprintln(w, scanner.Text())
	}
}

func (c *Child) Pid() int {
	return c.cmd.Process.Pid
}

func (c *Child) Stage() Stage {
	return Stage(c.stage.Load())
}

// SessionID returns the child's session id. Because the child was spawned
// with setsid, this equals its pid and names its process group.
func (c *Child) SessionID() (int, error) {
	return sessionID(c.Pid())
}

// SignalGroup delivers sig to the child's whole process group.
func (c *Child) SignalGroup(sig syscall.Signal) error {
	sid, err := c.SessionID()
	if err != nil {
		return utils.ErrInErr{ErrDesc: "could not get child session id", ErrDetail: err, Data: c.Pid()}
	}
	if sig == syscall.SIGTERM {
		c.stage.Store(int32(StageSignaledTerm))
	}
	return signalGroup(sid, sig)
}

// KillGroupAfter schedules sig for the child's group after d, fire and
// forget. By then the group has usually already exited, so a failed
// delivery on this path is an expected outcome, not a bug.
func (c *Child) KillGroupAfter(d time.Duration, sig syscall.Signal) {
	sid, err := c.SessionID()
	if err != nil {
		if ce := utils.CanLogWarn("could not schedule delayed kill"); ce != nil {
			ce.Write(zap.Int("pid", c.Pid()), zap.Error(err))
		}
		return
	}

	go func() {
		time.Sleep(d)
		if err := signalGroup(sid, sig); err != nil {
			if ce := utils.CanLogDebug("delayed kill found nobody to signal"); ce != nil {
				ce.Write(zap.Int("pgid", sid), zap.Error(err))
			}
		}
	}()
}

// Wait collects the child's exit status. A child ended by a signal still
// yields its ProcessState rather than an error.
func (c *Child) Wait() (*os.ProcessState, error) {
	err := c.cmd.Wait()
	c.stage.Store(int32(StageReaped))

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ProcessState, nil
	}
	if err != nil {
		return nil, err
	}
	return c.cmd.ProcessState, nil
}
