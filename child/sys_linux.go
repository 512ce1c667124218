package child

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// sysProcAttr gives the spawned command its own session, so it becomes the
// leader of a fresh process group we can signal as a unit, and registers a
// parent-death signal: if the supervisor dies first, the kernel delivers
// SIGKILL to the child instead of leaving an orphan squatting on the
// destination port.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setsid:    true,
		Pdeathsig: unix.SIGKILL,
	}
}

func sessionID(pid int) (int, error) {
	return unix.Getsid(pid)
}

// signalGroup delivers sig to every process in pgid's group.
func signalGroup(pgid int, sig syscall.Signal) error {
	return unix.Kill(-pgid, sig)
}
