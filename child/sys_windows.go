package child

import (
	"syscall"

	"github.com/knockware/knocker/utils"
)

// windows has no sessions or process-group signals; knocker's supervision
// is a unix feature.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{}
}

func sessionID(pid int) (int, error) {
	return 0, utils.ErrNotImplemented
}

func signalGroup(pgid int, sig syscall.Signal) error {
	return utils.ErrNotImplemented
}
