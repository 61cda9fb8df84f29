package config

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
)

func FindBin(bin string) (string, error) {
	cmd := exec.Command("which", bin)
	output, err := cmd.CombinedOutput()

	stringOutput := string(output)
	if err != nil {
		return "", errors.Wrapf(err, "Failed to find %s: %s", bin, stringOutput)
	}

	trimmedOutput := strings.TrimSpace(stringOutput)
	if trimmedOutput == "" {
		return "", errors.Newf("No bin found for %s", bin)
	}

	return trimmedOutput, nil
}

// DemucsPath prefers the configured path, then a demucs bundled next to
// the executable, then whatever is on PATH. When nothing is found the bare
// name is returned so that the failure surfaces on the first job.
func DemucsPath(configured string) string {
	if configured != "" {
		return configured
	}

	if bundled, ok := bundledBin("demucs"); ok {
		return bundled
	}

	path, err := FindBin("demucs")
	if err != nil {
		log.WithError(err).Warn("demucs is not installed, separation jobs will fail")
		return "demucs"
	}

	return path
}

func bundledBin(bin string) (string, bool) {
	executable, err := os.Executable()
	if err != nil {
		return "", false
	}

	if runtime.GOOS == "windows" {
		bin += ".exe"
	}

	candidate := filepath.Join(filepath.Dir(executable), bin)
	info, err := os.Stat(candidate)
	if err != nil || info.IsDir() {
		return "", false
	}

	return candidate, true
}
