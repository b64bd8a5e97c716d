//go:build !linux

package launcher

import (
	"os/exec"
	"syscall"
)

// parentDeathSignalSupported is false here: outside Linux's prctl, Go's
// standard library exposes no portable parent-death-signal primitive.
// BSD's PROC_PDEATHSIG_CTL would require a direct ptrace/procctl syscall
// this module does not shell out to. The supervisor's "no zombies"
// guarantee is therefore best-effort on these platforms: the grace-kill
// escalation in Stop only runs when the parent shuts down normally, so a
// crashed parent leaves the child running. Deployments on non-Linux
// platforms should document this gap.
const parentDeathSignalSupported = false

// armParentDeathSignal only puts the child in its own process group so
// the supervisor's grace-kill escalation can signal the whole group; it
// does not arm any actual parent-death linkage on this platform.
func armParentDeathSignal(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}
