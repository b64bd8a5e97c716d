// Package launcher launches Chromium with the inherited pipe endpoints
// pipe mode requires, arms parent-death linkage, and supervises exit
// with a grace-period SIGTERM
// then SIGKILL escalation.
package launcher

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// terminateGrace is how long Stop waits after SIGTERM before escalating to
// SIGKILL, and how long a supervisor that observes the transport close
// before the child exits waits before sending SIGTERM at all.
const terminateGrace = 3 * time.Second

// Instance is a launched, supervised Chromium process. ReadFile and
// WriteFile are the parent-side pipe ends handed to the Transport:
// ReadFile carries browser→driver traffic, WriteFile carries
// driver→browser traffic.
type Instance struct {
	cmd     *exec.Cmd
	ReadFile  *os.File
	WriteFile *os.File

	dataDir *dataDir

	exitMu   sync.Mutex
	exited   bool
	exitErr  error
	exitedCh chan struct{}
}

// Launch creates the two anonymous pipe pairs, spawns Chromium with the
// child's ends inherited on fds 3 and 4, and returns once the process has
// started (not once it's ready to talk CDP — that's the Transport's job).
func Launch(cfg Config) (*Instance, error) {
	cfg = cfg.WithDefaults()

	dd, err := resolveDataDir(cfg)
	if err != nil {
		return nil, err
	}

	// toChild: driver writes, child reads on fd 3.
	toChildR, toChildW, err := os.Pipe()
	if err != nil {
		dd.close()
		return nil, fmt.Errorf("creating inbound pipe: %w", err)
	}
	// fromChild: child writes on fd 4, driver reads.
	fromChildR, fromChildW, err := os.Pipe()
	if err != nil {
		toChildR.Close()
		toChildW.Close()
		dd.close()
		return nil, fmt.Errorf("creating outbound pipe: %w", err)
	}

	argv := cfg.BuildArgv(dd.path)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = cfg.BuildEnv()
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	// ExtraFiles[0] lands on fd 3, ExtraFiles[1] on fd 4 — fds 0-2 are
	// always stdin/stdout/stderr, so ExtraFiles always starts at 3.
	cmd.ExtraFiles = []*os.File{toChildR, fromChildW}
	armParentDeathSignal(cmd)

	if err := cmd.Start(); err != nil {
		toChildR.Close()
		toChildW.Close()
		fromChildR.Close()
		fromChildW.Close()
		dd.close()
		return nil, fmt.Errorf("starting chromium: %w", err)
	}

	// Parent no longer needs the child-side ends.
	toChildR.Close()
	fromChildW.Close()

	inst := &Instance{
		cmd:       cmd,
		ReadFile:  fromChildR,
		WriteFile: toChildW,
		dataDir:   dd,
		exitedCh:  make(chan struct{}),
	}
	go inst.awaitExit()
	return inst, nil
}

// PID returns the child process id.
func (inst *Instance) PID() int { return inst.cmd.Process.Pid }

// Exited returns a channel closed once the child has exited, for whatever
// reason.
func (inst *Instance) Exited() <-chan struct{} { return inst.exitedCh }

// ExitErr returns the error cmd.Wait() produced, valid only after Exited
// has fired.
func (inst *Instance) ExitErr() error {
	inst.exitMu.Lock()
	defer inst.exitMu.Unlock()
	return inst.exitErr
}

func (inst *Instance) awaitExit() {
	err := inst.cmd.Wait()
	inst.exitMu.Lock()
	inst.exited = true
	inst.exitErr = err
	inst.exitMu.Unlock()
	close(inst.exitedCh)
}

// Stop implements the escalating shutdown policy: if the child hasn't
// exited on its own (e.g. because the transport closed first, meaning the
// caller is tearing down deliberately), wait up to terminateGrace, send
// SIGTERM, wait up to a second terminateGrace, then SIGKILL. Always
// cleans the user data dir per policy before returning. Idempotent.
func (inst *Instance) Stop(ctx context.Context) error {
	select {
	case <-inst.Exited():
		return inst.finish()
	case <-time.After(terminateGrace):
	case <-ctx.Done():
	}

	select {
	case <-inst.Exited():
		return inst.finish()
	default:
		inst.signal(syscall.SIGTERM)
	}

	select {
	case <-inst.Exited():
	case <-time.After(terminateGrace):
		inst.signal(syscall.SIGKILL)
		<-inst.Exited()
	}
	return inst.finish()
}

func (inst *Instance) signal(sig syscall.Signal) {
	if inst.cmd.Process == nil {
		return
	}
	// Negative pid addresses the whole process group armParentDeathSignal
	// placed the child into, catching any subprocess Chromium forked.
	_ = syscall.Kill(-inst.cmd.Process.Pid, sig)
}

func (inst *Instance) finish() error {
	inst.ReadFile.Close()
	inst.WriteFile.Close()
	return inst.dataDir.close()
}
