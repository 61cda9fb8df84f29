package device

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/apex/log"
	"github.com/veedubyou/stem-splitter/src/shared/lib/executor"
)

var nvidiaSMIArgs = []string{"--query-gpu=name,memory.total", "--format=csv,noheader,nounits"}

type Info struct {
	GPUAvailable bool
	GPUName      string
	// GPUMemoryGB is in binary gigabytes (GiB).
	GPUMemoryGB float64
	// Accelerated marks CPU-side hardware acceleration (Apple silicon).
	Accelerated bool
}

func (i Info) Status() string {
	switch {
	case i.GPUAvailable:
		return fmt.Sprintf("GPU: %s (%.1fGB)", i.GPUName, i.GPUMemoryGB)
	case i.Accelerated:
		return "CPU: Using hardware acceleration"
	default:
		return "CPU: Basic processing"
	}
}

type Platform struct {
	OS   string
	Arch string
}

func CurrentPlatform() Platform {
	return Platform{OS: runtime.GOOS, Arch: runtime.GOARCH}
}

// Detector probes the machine once and remembers the answer.
type Detector struct {
	executor      executor.Executor
	nvidiaSMIPath string
	platform      Platform

	once sync.Once
	info Info
}

func NewDetector(executor executor.Executor, nvidiaSMIPath string, platform Platform) *Detector {
	if nvidiaSMIPath == "" {
		nvidiaSMIPath = "nvidia-smi"
	}

	return &Detector{
		executor:      executor,
		nvidiaSMIPath: nvidiaSMIPath,
		platform:      platform,
	}
}

func (d *Detector) Info() Info {
	d.once.Do(func() {
		d.info = d.detect()
		log.WithField("status", d.info.Status()).Info("Detected compute device")
	})

	return d.info
}

func (d *Detector) GPUAvailable() bool {
	return d.Info().GPUAvailable
}

func (d *Detector) detect() Info {
	info := Info{
		Accelerated: d.platform.OS == "darwin" && d.platform.Arch == "arm64",
	}

	cmd := d.executor.Command(d.nvidiaSMIPath, nvidiaSMIArgs...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		log.WithError(err).Debug("nvidia-smi unavailable, using the CPU")
		return info
	}

	name, memoryGB, ok := parseNvidiaSMI(string(output))
	if !ok {
		log.WithField("output", string(output)).Warn("Could not read nvidia-smi output, using the CPU")
		return info
	}

	info.GPUAvailable = true
	info.GPUName = name
	info.GPUMemoryGB = memoryGB
	return info
}

// parseNvidiaSMI reads the first GPU from "<name>, <memory MiB>" lines.
func parseNvidiaSMI(output string) (string, float64, bool) {
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Split(line, ",")
		if len(fields) != 2 {
			continue
		}

		name := strings.TrimSpace(fields[0])
		memoryMiB, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if name == "" || err != nil {
			continue
		}

		return name, memoryMiB / 1024, true
	}

	return "", 0, false
}
