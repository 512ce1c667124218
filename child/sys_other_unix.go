//go:build darwin || freebsd || netbsd || openbsd

package child

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// no Pdeathsig outside linux; the new session still lets us signal the
// whole group as a unit.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setsid: true,
	}
}

func sessionID(pid int) (int, error) {
	return unix.Getsid(pid)
}

func signalGroup(pgid int, sig syscall.Signal) error {
	return unix.Kill(-pgid, sig)
}
