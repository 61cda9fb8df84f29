package uigateway

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"github.com/veedubyou/stem-splitter/src/server/internal/device"
	"github.com/veedubyou/stem-splitter/src/server/internal/errors/api"
	"github.com/veedubyou/stem-splitter/src/server/internal/errors/gateway"
	"github.com/veedubyou/stem-splitter/src/server/internal/lib/request"
	"github.com/veedubyou/stem-splitter/src/server/internal/separation/entity"
	"github.com/veedubyou/stem-splitter/src/server/internal/separation/errors"
	"github.com/veedubyou/stem-splitter/src/server/internal/separation/usecase"
	"github.com/veedubyou/stem-splitter/src/server/internal/session"
	"github.com/veedubyou/stem-splitter/src/server/internal/ui/assets"
	"github.com/veedubyou/stem-splitter/src/server/internal/ui/view"
)

const (
	OutputRoute = "/output"
	UploadField = "file"
)

type DeviceInfo interface {
	Info() device.Info
}

type ShutdownListener interface {
	EnsureStarted() error
}

type Gateway struct {
	store         *session.Store
	usecase       separationusecase.Usecase
	device        DeviceInfo
	shutdown      ShutdownListener
	assets        assets.Loader
	outputDir     string
	maxFileSizeMB int
	shutdownPort  int
}

type Config struct {
	OutputDir     string
	MaxFileSizeMB int
	ShutdownPort  int
}

func NewGateway(
	store *session.Store,
	usecase separationusecase.Usecase,
	device DeviceInfo,
	shutdown ShutdownListener,
	assets assets.Loader,
	config Config,
) Gateway {
	return Gateway{
		store:         store,
		usecase:       usecase,
		device:        device,
		shutdown:      shutdown,
		assets:        assets,
		outputDir:     config.OutputDir,
		maxFileSizeMB: config.MaxFileSizeMB,
		shutdownPort:  config.ShutdownPort,
	}
}

func (g Gateway) Page(c echo.Context) error {
	sess := g.store.Ensure(c)

	sess.EnsureShutdownListener(func() {
		if err := g.shutdown.EnsureStarted(); err != nil {
			log.WithError(err).Error("Failed to start the shutdown listener")
		}
	})

	return c.Render(http.StatusOK, view.PageTemplate, g.page(sess))
}

func (g Gateway) UpdateConfig(c echo.Context) error {
	sess := g.store.Ensure(c)

	job, err := parseJobConfig(c, sess.Config())
	if err != nil {
		apiErr := api.CommitError(err,
			separationerrors.BadJobConfigCode,
			"The processing options received were malformed")
		return gateway.ErrorResponse(c, apiErr)
	}

	if apiErr := g.usecase.ValidateJobConfig(job); apiErr != nil {
		return gateway.ErrorResponse(c, apiErr)
	}

	sess.SetConfig(job)
	return c.JSON(http.StatusOK, newJobConfigJSON(job))
}

func (g Gateway) Upload(c echo.Context) error {
	sess := g.store.Ensure(c)

	fileHeader, err := c.FormFile(UploadField)
	if err != nil {
		err = errors.Wrap(err, "Failed to read the uploaded file from the form")
		apiErr := api.CommitError(err,
			separationerrors.NoUploadCode,
			"Please choose an audio file to upload")
		return gateway.ErrorResponse(c, apiErr)
	}

	data, err := readUpload(fileHeader, int64(g.maxFileSizeMB)*1024*1024)
	if err != nil {
		apiErr := api.CommitError(err,
			separationerrors.BadUploadCode,
			"The uploaded file could not be read")
		return gateway.ErrorResponse(c, apiErr)
	}

	upload := entity.Upload{Name: fileHeader.Filename, Data: data}
	if apiErr := g.usecase.ValidateUpload(upload); apiErr != nil {
		return gateway.ErrorResponse(c, apiErr)
	}

	sess.SetUpload(upload)
	return c.JSON(http.StatusOK, uploadJSON{
		Name: upload.BaseName(),
		Size: len(upload.Data),
	})
}

// Submit runs the job on the request and keeps the outcome in the session
// for the next page render.
func (g Gateway) Submit(c echo.Context) error {
	ctx := request.Context(c)

	sess, apiErr := g.existingSession(c)
	if apiErr != nil {
		return gateway.ErrorResponse(c, apiErr)
	}

	if !sess.BeginJob() {
		apiErr := api.CommitError(errors.New("A job is already running for this session"),
			separationerrors.JobInProgressCode,
			"Your previous file is still being processed")
		return gateway.ErrorResponse(c, apiErr)
	}

	result, apiErr := g.usecase.Run(ctx, sess.Config(), sess.Upload(), sess.Monitor())
	if apiErr != nil {
		sess.FailJob(apiErr.UserMessage, fmt.Sprintf("%+v", apiErr.InternalError))
		return gateway.ErrorResponse(c, apiErr)
	}

	sess.FinishJob(result)
	return c.JSON(http.StatusOK, g.newResultJSON(result))
}

func (g Gateway) Status(c echo.Context) error {
	sess, apiErr := g.existingSession(c)
	if apiErr != nil {
		return gateway.ErrorResponse(c, apiErr)
	}

	status := statusJSON{
		Running:      sess.Running(),
		Submitted:    sess.Submitted(),
		Log:          sess.LogWidget.Text(),
		Progress:     sess.ProgressBar.Progress(),
		ProgressText: sess.ProgressText.Text(),
		Error:        sess.Outcome().Error,
	}
	if upload := sess.Upload(); upload != nil {
		status.UploadName = upload.BaseName()
	}

	return c.JSON(http.StatusOK, status)
}

func (g Gateway) existingSession(c echo.Context) (*session.Session, *api.Error) {
	sess, ok := g.store.FromRequest(c)
	if !ok {
		return nil, api.CommitError(errors.New("No session for the request"),
			separationerrors.SessionNotFoundCode,
			"Your session has expired. Please reload the page")
	}

	return sess, nil
}

func (g Gateway) page(sess *session.Session) view.Page {
	info := g.device.Info()

	page := view.NewPage(g.maxFileSizeMB, g.shutdownPort)
	page.Job = view.NewJobPanel(sess.Config(), info.GPUAvailable, info.Status())

	if upload := sess.Upload(); upload != nil {
		page.UploadName = upload.BaseName()
	}
	page.Running = sess.Running()
	page.CanSubmit = page.UploadName != "" && !page.Running

	page.Log = sess.LogWidget.Text()
	page.ProgressPercent = int(sess.ProgressBar.Progress() * 100)
	page.ProgressText = sess.ProgressText.Text()

	outcome := sess.Outcome()
	page.Error = outcome.Error
	page.Trace = outcome.Trace

	if outcome.Result != nil {
		output, err := view.RenderOutput(outcome.Result.Paths, outcome.Result.Channels(), fileExists, g.outputURL)
		if err != nil {
			page.Error = err.Error()
		}
		page.Output = output
	}

	script, err := g.assets.Script()
	if err != nil {
		page.UIErrors = append(page.UIErrors, err.Error())
	}
	page.Script = script

	style, err := g.assets.Style()
	if err != nil {
		page.UIErrors = append(page.UIErrors, err.Error())
	}
	page.Style = style

	return page
}

// outputURL maps a stem path under the output directory to the route that
// serves it.
func (g Gateway) outputURL(path string) string {
	root, err := filepath.Abs(g.outputDir)
	if err != nil {
		return ""
	}

	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}

	segments := strings.Split(filepath.ToSlash(rel), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}

	return OutputRoute + "/" + strings.Join(segments, "/")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// readUpload reads at most one byte past the limit, so an oversized file
// is still detected without holding all of it.
func readUpload(fileHeader *multipart.FileHeader, limit int64) ([]byte, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, errors.Wrap(err, "Failed to open the uploaded file")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, errors.Wrap(err, "Failed to read the uploaded file")
	}

	return data, nil
}

func parseJobConfig(c echo.Context, current entity.JobConfig) (entity.JobConfig, error) {
	job := current

	if model := c.FormValue("model"); model != "" {
		job.Model = entity.ModelName(model)
	}
	if stemMode := c.FormValue("stem_mode"); stemMode != "" {
		job.StemMode = entity.StemMode(stemMode)
	}
	if format := c.FormValue("format"); format != "" {
		job.Format = entity.OutputFormat(format)
	}
	if bitrate := c.FormValue("mp3_bitrate"); bitrate != "" {
		parsed, err := strconv.Atoi(bitrate)
		if err != nil {
			return entity.JobConfig{}, errors.Wrapf(err, "MP3 bitrate %q is not a number", bitrate)
		}
		job.MP3Bitrate = parsed
	}

	job.WAVBitDepth = entity.WAVBitDepth(c.FormValue("wav_bit_depth"))

	job.Device = entity.CPU
	if gpu, _ := strconv.ParseBool(c.FormValue("gpu")); gpu {
		job.Device = entity.CUDA
	}

	return job, nil
}
