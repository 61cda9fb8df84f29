package separationusecase

import (
	"context"
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/markers"
	"github.com/google/uuid"
	"github.com/veedubyou/stem-splitter/src/server/internal/errors/api"
	"github.com/veedubyou/stem-splitter/src/server/internal/events"
	"github.com/veedubyou/stem-splitter/src/server/internal/metrics"
	"github.com/veedubyou/stem-splitter/src/server/internal/separation/entity"
	"github.com/veedubyou/stem-splitter/src/server/internal/separation/errors"
	"github.com/veedubyou/stem-splitter/src/server/internal/separation/splitter"
	"github.com/veedubyou/stem-splitter/src/shared/lib/cerr"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

//counterfeiter:generate . Environment
type Environment interface {
	Ensure() error
}

//counterfeiter:generate . Splitter
type Splitter interface {
	Split(ctx context.Context, job entity.JobConfig, upload entity.Upload, monitor splitter.Monitor) (entity.Result, error)
}

//counterfeiter:generate . DeviceInfo
type DeviceInfo interface {
	GPUAvailable() bool
}

type Usecase struct {
	environment   Environment
	splitter      Splitter
	device        DeviceInfo
	publisher     events.Publisher
	metrics       *metrics.Metrics
	maxUploadSize int64
	now           func() time.Time
}

func NewUsecase(environment Environment, splitter Splitter, device DeviceInfo, publisher events.Publisher, metrics *metrics.Metrics, maxUploadSize int64) Usecase {
	return Usecase{
		environment:   environment,
		splitter:      splitter,
		device:        device,
		publisher:     publisher,
		metrics:       metrics,
		maxUploadSize: maxUploadSize,
		now:           time.Now,
	}
}

func (u Usecase) ValidateUpload(upload entity.Upload) *api.Error {
	err := upload.Validate(u.maxUploadSize)
	if err == nil {
		u.metrics.UploadReceived(metrics.OutcomeAccepted)
		return nil
	}

	u.metrics.UploadReceived(metrics.OutcomeRejected)
	err = cerr.Field("file_name", upload.Name).Wrap(err).Error("Upload rejected")

	switch {
	case markers.Is(err, entity.UnsupportedFileTypeMark):
		return api.CommitError(err,
			separationerrors.UnsupportedFileTypeCode,
			"Only MP3 and WAV files are supported")
	case markers.Is(err, entity.FileTooLargeMark):
		return api.CommitError(err,
			separationerrors.FileTooLargeCode,
			fmt.Sprintf("The file is too large. The limit is %dMB", u.maxUploadSize/(1024*1024)))
	case markers.Is(err, entity.EmptyUploadMark):
		fallthrough
	default:
		return api.CommitError(err,
			separationerrors.BadUploadCode,
			"The uploaded file could not be read")
	}
}

func (u Usecase) ValidateJobConfig(job entity.JobConfig) *api.Error {
	if err := job.Validate(u.device.GPUAvailable()); err != nil {
		return api.CommitError(err,
			separationerrors.BadJobConfigCode,
			"The selected processing options are not valid: "+err.Error())
	}

	return nil
}

// Run prepares the environment and separates the upload, blocking until
// demucs is done. Every outcome is published as a job event.
func (u Usecase) Run(ctx context.Context, job entity.JobConfig, upload *entity.Upload, monitor splitter.Monitor) (entity.Result, *api.Error) {
	if upload == nil {
		return entity.Result{}, api.CommitError(errors.New("No upload in session"),
			separationerrors.NoUploadCode,
			"Please upload an audio file first")
	}

	if apiErr := u.ValidateJobConfig(job); apiErr != nil {
		return entity.Result{}, apiErr
	}

	logger := log.WithFields(log.Fields{
		"fileName": upload.BaseName(),
		"job":      job.String(),
	})

	event := events.JobEvent{
		JobID:    uuid.NewString(),
		FileName: upload.BaseName(),
		Model:    string(job.Model),
		StemMode: string(job.StemMode),
		Format:   string(job.Format),
		Device:   string(job.Device),
	}

	started := u.now()
	u.metrics.JobStarted()
	logger.Info("Starting separation job")

	result, err := u.separate(ctx, job, *upload, monitor)
	duration := u.now().Sub(started)

	event.DurationSeconds = duration.Seconds()
	event.OccurredAt = u.now()

	if err != nil {
		u.metrics.JobFinished(string(job.Model), metrics.OutcomeFailed, duration)
		event.Type = events.SeparationFailed
		event.Error = err.Error()
		u.publish(event)

		cerr.Log(err)
		return entity.Result{}, api.CommitError(err,
			separationerrors.SeparationFailedCode,
			"Audio processing failed")
	}

	u.metrics.JobFinished(string(job.Model), metrics.OutcomeCompleted, duration)
	event.Type = events.SeparationCompleted
	event.Stems = result.Stems
	event.OutputDir = result.OutputDir
	u.publish(event)

	logger.WithField("duration", duration).Info("Finished separation job")
	return result, nil
}

func (u Usecase) separate(ctx context.Context, job entity.JobConfig, upload entity.Upload, monitor splitter.Monitor) (entity.Result, error) {
	if err := u.environment.Ensure(); err != nil {
		return entity.Result{}, errors.Wrap(err, "Failed to set up the environment")
	}

	result, err := u.splitter.Split(ctx, job, upload, monitor)
	if err != nil {
		return entity.Result{}, errors.Wrap(err, "Failed to split the upload")
	}

	return result, nil
}

// publish never fails the job; the event stream is best effort.
func (u Usecase) publish(event events.JobEvent) {
	if err := u.publisher.PublishJobEvent(event); err != nil {
		log.WithError(err).
			WithField("jobID", event.JobID).
			Warn("Failed to publish job event")
	}
}
