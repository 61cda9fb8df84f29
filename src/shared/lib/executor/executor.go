package executor

import (
	"io"
	"os/exec"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

//counterfeiter:generate . Executor
type Executor interface {
	Command(name string, arg ...string) Cmd
}

//counterfeiter:generate . Cmd
type Cmd interface {
	SetDir(dir string)
	SetEnv(env []string)
	// SetOutput routes both stdout and stderr of the process into w.
	SetOutput(w io.Writer)
	Run() error
	CombinedOutput() ([]byte, error)
}

var _ Executor = BinaryFileExecutor{}

type BinaryFileExecutor struct{}

func (BinaryFileExecutor) Command(name string, arg ...string) Cmd {
	return &BinaryFileCmd{cmd: exec.Command(name, arg...)}
}

var _ Cmd = &BinaryFileCmd{}

type BinaryFileCmd struct {
	cmd *exec.Cmd
}

func (b *BinaryFileCmd) SetDir(dir string) {
	b.cmd.Dir = dir
}

func (b *BinaryFileCmd) SetEnv(env []string) {
	b.cmd.Env = env
}

func (b *BinaryFileCmd) SetOutput(w io.Writer) {
	b.cmd.Stdout = w
	b.cmd.Stderr = w
}

func (b *BinaryFileCmd) Run() error {
	return b.cmd.Run()
}

func (b *BinaryFileCmd) CombinedOutput() ([]byte, error) {
	return b.cmd.CombinedOutput()
}
