package splitter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/veedubyou/stem-splitter/src/server/internal/logcapture"
	"github.com/veedubyou/stem-splitter/src/server/internal/separation/entity"
	"github.com/veedubyou/stem-splitter/src/shared/lib/cerr"
	"github.com/veedubyou/stem-splitter/src/shared/lib/errors/mark"
	"github.com/veedubyou/stem-splitter/src/shared/lib/executor"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

var (
	DemucsFailedMark = errors.New("demucs failed")
	CancelledMark    = errors.New("separation cancelled")
)

//counterfeiter:generate . CommandEnvironment
type CommandEnvironment interface {
	CommandEnv() ([]string, error)
}

// Monitor receives the console output of a single run. Progress sees
// every line first and may consume it.
type Monitor struct {
	Log      logcapture.Display
	Progress logcapture.LineInterceptor
}

type Splitter struct {
	outputDir     string
	demucsBinPath string
	logBufferSize int
	executor      executor.Executor
	environment   CommandEnvironment
}

func NewSplitter(outputDir string, demucsBinPath string, logBufferSize int, executor executor.Executor, environment CommandEnvironment) Splitter {
	return Splitter{
		outputDir:     outputDir,
		demucsBinPath: demucsBinPath,
		logBufferSize: logBufferSize,
		executor:      executor,
		environment:   environment,
	}
}

// WorkDir is where an upload and its stems live: <output>/<name>.
func (s Splitter) WorkDir(upload entity.Upload) (string, error) {
	workDir, err := filepath.Abs(filepath.Join(s.outputDir, upload.BaseName()))
	if err != nil {
		return "", cerr.Field("output_dir", s.outputDir).
			Wrap(err).Error("Cannot convert work dir to absolute format")
	}

	return workDir, nil
}

// Split runs demucs over the upload and blocks until it exits. Once the
// process has started it is not interrupted.
func (s Splitter) Split(ctx context.Context, job entity.JobConfig, upload entity.Upload, monitor Monitor) (entity.Result, error) {
	workDir, err := s.WorkDir(upload)
	if err != nil {
		return entity.Result{}, err
	}

	errctx := cerr.Fields(cerr.F{
		"work_dir": workDir,
		"job":      job.String(),
	})

	// splitting is a lengthy process, if we want to halt now is the time
	if ctx.Err() != nil {
		return entity.Result{}, mark.Wrap(ctx.Err(), CancelledMark, "Context cancelled before splitting could happen")
	}

	inputPath, err := s.saveUpload(workDir, upload)
	if err != nil {
		return entity.Result{}, errctx.Wrap(err).Error("Failed to save the uploaded file")
	}

	if err := s.runDemucs(job, workDir, inputPath, monitor); err != nil {
		return entity.Result{}, errctx.Wrap(err).Error("Failed to execute demucs")
	}

	stems := ExpectedStems(job)
	return entity.Result{
		OutputDir: workDir,
		Stems:     stems,
		Paths:     OutputPaths(workDir, job.Model, stems, job.Extension()),
	}, nil
}

// saveUpload writes the upload once; a rerun on the same file reuses it.
func (s Splitter) saveUpload(workDir string, upload entity.Upload) (string, error) {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", cerr.Wrap(err).Error("Failed to create work dir")
	}

	inputPath := filepath.Join(workDir, upload.BaseName())

	_, err := os.Stat(inputPath)
	switch {
	case err == nil:
		log.WithField("inputPath", inputPath).Debug("Upload already on disk, reusing it")
		return inputPath, nil
	case !os.IsNotExist(err):
		return "", cerr.Field("input_path", inputPath).Wrap(err).Error("Failed to check for an existing upload")
	}

	if err := os.WriteFile(inputPath, upload.Data, 0o644); err != nil {
		return "", cerr.Field("input_path", inputPath).Wrap(err).Error("Failed to write upload to disk")
	}

	return inputPath, nil
}

func (s Splitter) runDemucs(job entity.JobConfig, workDir string, inputPath string, monitor Monitor) error {
	args := BuildArgs(job, workDir, inputPath)

	logger := log.WithFields(log.Fields{
		"inputPath": inputPath,
		"workDir":   workDir,
		"model":     job.Model,
		"device":    job.Device,
	})

	errctx := cerr.Field("demucs_bin_path", s.demucsBinPath).Field("demucs_args", args)

	env, err := s.environment.CommandEnv()
	if err != nil {
		return errctx.Wrap(err).Error("Failed to prepare the demucs environment")
	}

	output := logcapture.NewWriter(s.logBufferSize, monitor.Log, monitor.Progress)

	logger.Info("Running demucs command")

	cmd := s.executor.Command(s.demucsBinPath, args...)
	cmd.SetDir(workDir)
	cmd.SetEnv(env)
	cmd.SetOutput(output)

	err = cmd.Run()
	output.Flush()

	if err != nil {
		tail := output.String()
		err = mark.Wrap(err, DemucsFailedMark, "demucs exited with an error")
		return errctx.Field("demucs_output", tail).
			Wrap(err).
			Error(fmt.Sprintf("Error occurred while running demucs: %s", tail))
	}

	logger.Debug(output.String())
	logger.Info("Finished demucs command")

	return nil
}
