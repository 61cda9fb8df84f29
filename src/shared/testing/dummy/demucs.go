package dummy

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/veedubyou/stem-splitter/src/shared/lib/executor"
)

var _ executor.Executor = &DemucsExecutor{}

type GPU struct {
	Name     string
	MemoryMB int
}

type Invocation struct {
	Name string
	Args []string
	Dir  string
	Env  []string
}

// DemucsExecutor stands in for both demucs and nvidia-smi. Demucs runs
// print a short log with progress bars and write "<input>-<stem>" into
// every stem file.
type DemucsExecutor struct {
	lock        sync.Mutex
	invocations []Invocation

	Fail          bool
	FailureOutput string
	SkipStems     []string
	GPU           *GPU
}

func NewDummyDemucsExecutor() *DemucsExecutor {
	return &DemucsExecutor{
		FailureOutput: "RuntimeError: CUDA out of memory",
	}
}

func (d *DemucsExecutor) Command(name string, arg ...string) executor.Cmd {
	return &dummyCmd{
		owner: d,
		name:  name,
		args:  arg,
	}
}

func (d *DemucsExecutor) Invocations() []Invocation {
	d.lock.Lock()
	defer d.lock.Unlock()

	return slices.Clone(d.invocations)
}

func (d *DemucsExecutor) DemucsInvocations() []Invocation {
	invocations := []Invocation{}
	for _, invocation := range d.Invocations() {
		if !isNvidiaSMI(invocation.Name) {
			invocations = append(invocations, invocation)
		}
	}
	return invocations
}

func (d *DemucsExecutor) record(invocation Invocation) {
	d.lock.Lock()
	defer d.lock.Unlock()

	d.invocations = append(d.invocations, invocation)
}

func isNvidiaSMI(name string) bool {
	return filepath.Base(name) == "nvidia-smi"
}

type dummyCmd struct {
	owner  *DemucsExecutor
	name   string
	args   []string
	dir    string
	env    []string
	output io.Writer
}

func (c *dummyCmd) SetDir(dir string) {
	c.dir = dir
}

func (c *dummyCmd) SetEnv(env []string) {
	c.env = env
}

func (c *dummyCmd) SetOutput(w io.Writer) {
	c.output = w
}

func (c *dummyCmd) CombinedOutput() ([]byte, error) {
	buf := &bytes.Buffer{}
	c.output = buf
	err := c.Run()
	return buf.Bytes(), err
}

func (c *dummyCmd) Run() error {
	c.owner.record(Invocation{
		Name: c.name,
		Args: slices.Clone(c.args),
		Dir:  c.dir,
		Env:  slices.Clone(c.env),
	})

	if c.output == nil {
		c.output = io.Discard
	}

	if isNvidiaSMI(c.name) {
		return c.runNvidiaSMI()
	}

	return c.runDemucs()
}

func (c *dummyCmd) runNvidiaSMI() error {
	gpu := c.owner.GPU
	if gpu == nil {
		_, _ = io.WriteString(c.output, "NVIDIA-SMI has failed because it couldn't communicate with the NVIDIA driver.\n")
		return ExitFailure
	}

	_, _ = fmt.Fprintf(c.output, "%s, %d\n", gpu.Name, gpu.MemoryMB)
	return nil
}

type demucsArgs struct {
	twoStems  bool
	model     string
	outputDir string
	extension string
	inputPath string
}

func parseDemucsArgs(args []string) (demucsArgs, error) {
	parsed := demucsArgs{model: "htdemucs", extension: "wav"}
	if len(args) == 0 {
		return parsed, errors.New("no input file given")
	}

	parsed.inputPath = args[len(args)-1]

	for i := 0; i < len(args)-1; i++ {
		next := func() string {
			i++
			if i >= len(args)-1 {
				return ""
			}
			return args[i]
		}

		switch args[i] {
		case "--two-stems":
			parsed.twoStems = next() != ""
		case "-n":
			parsed.model = next()
		case "-o":
			parsed.outputDir = next()
		case "--mp3":
			parsed.extension = "mp3"
		case "--flac":
			parsed.extension = "flac"
		case "--filename", "-d", "--mp3-bitrate":
			next()
		}
	}

	if parsed.outputDir == "" {
		return parsed, errors.New("no output dir given")
	}

	return parsed, nil
}

func (c *dummyCmd) stems(parsed demucsArgs) []string {
	switch {
	case parsed.twoStems:
		return []string{"vocals", "no_vocals"}
	case parsed.model == "htdemucs_6s":
		return []string{"vocals", "drums", "bass", "guitar", "piano", "other"}
	default:
		return []string{"vocals", "drums", "bass", "other"}
	}
}

func (c *dummyCmd) runDemucs() error {
	parsed, err := parseDemucsArgs(c.args)
	if err != nil {
		_, _ = fmt.Fprintf(c.output, "demucs: error: %s\n", err.Error())
		return ExitFailure
	}

	input, err := os.ReadFile(parsed.inputPath)
	if err != nil {
		_, _ = fmt.Fprintf(c.output, "FileNotFoundError: %s\n", parsed.inputPath)
		return ExitFailure
	}

	out := c.output
	_, _ = io.WriteString(out, "Selected model is a bag of 1 models. You will see that many progress bars per track.\n")
	_, _ = fmt.Fprintf(out, "Separated tracks will be stored in %s\n", filepath.Join(parsed.outputDir, parsed.model))
	_, _ = fmt.Fprintf(out, "Separating track %s\n", parsed.inputPath)
	_, _ = io.WriteString(out, "  0%|          | 0.0/10.0 [00:00<?, ?seconds/s]\r")
	_, _ = io.WriteString(out, " 50%|█████     | 5.0/10.0 [00:01<00:01,  5.00seconds/s]\r")
	_, _ = io.WriteString(out, "100%|██████████| 10.0/10.0 [00:02<00:00,  5.00seconds/s]\n")

	if c.owner.Fail {
		_, _ = io.WriteString(out, c.owner.FailureOutput+"\n")
		return ExitFailure
	}

	stemDir := filepath.Join(parsed.outputDir, parsed.model)
	if err := os.MkdirAll(stemDir, 0o755); err != nil {
		return errors.Wrap(err, "Failed to create stem dir")
	}

	for _, stem := range c.stems(parsed) {
		if slices.Contains(c.owner.SkipStems, stem) {
			continue
		}

		contents := StemContents(input, stem)
		stemPath := filepath.Join(stemDir, stem+"."+parsed.extension)
		if err := os.WriteFile(stemPath, []byte(contents), 0o644); err != nil {
			return errors.Wrap(err, "Failed to write stem")
		}
	}

	return nil
}

func StemContents(input []byte, stem string) string {
	return fmt.Sprintf("%s-%s", strings.TrimSpace(string(input)), stem)
}
