package environment

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"github.com/veedubyou/stem-splitter/src/shared/lib/cerr"
)

const TorchHomeKey = "TORCH_HOME"

// Setup prepares the directories the separation tool depends on.
type Setup struct {
	CacheDir  string
	OutputDir string
}

// Ensure creates the cache and output directories and points the model
// cache at the cache directory. Safe to call before every job.
func (s Setup) Ensure() error {
	for _, dir := range []string{s.CacheDir, s.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return cerr.Field("dir", dir).Wrap(err).Error("Failed to create directory")
		}
	}

	torchHome, err := s.TorchHome()
	if err != nil {
		return err
	}

	if err := os.Setenv(TorchHomeKey, torchHome); err != nil {
		return cerr.Field("torch_home", torchHome).Wrap(err).Error("Failed to set TORCH_HOME")
	}

	log.WithFields(log.Fields{
		"cacheDir":  s.CacheDir,
		"outputDir": s.OutputDir,
	}).Debug("Environment ready")

	return nil
}

func (s Setup) TorchHome() (string, error) {
	torchHome, err := filepath.Abs(s.CacheDir)
	if err != nil {
		return "", cerr.Field("cache_dir", s.CacheDir).Wrap(err).Error("Cannot convert cache dir to absolute format")
	}

	return torchHome, nil
}

// CommandEnv is the current environment with TORCH_HOME set explicitly,
// for handing to the child process.
func (s Setup) CommandEnv() ([]string, error) {
	torchHome, err := s.TorchHome()
	if err != nil {
		return nil, err
	}

	prefix := TorchHomeKey + "="
	env := []string{}
	for _, entry := range os.Environ() {
		if strings.HasPrefix(entry, prefix) {
			continue
		}
		env = append(env, entry)
	}

	return append(env, prefix+torchHome), nil
}
