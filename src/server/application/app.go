package application

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/browser"
	"github.com/veedubyou/stem-splitter/src/server/internal/device"
	"github.com/veedubyou/stem-splitter/src/server/internal/environment"
	"github.com/veedubyou/stem-splitter/src/server/internal/events"
	"github.com/veedubyou/stem-splitter/src/server/internal/metrics"
	"github.com/veedubyou/stem-splitter/src/server/internal/separation/entity"
	"github.com/veedubyou/stem-splitter/src/server/internal/separation/splitter"
	"github.com/veedubyou/stem-splitter/src/server/internal/separation/usecase"
	"github.com/veedubyou/stem-splitter/src/server/internal/session"
	"github.com/veedubyou/stem-splitter/src/server/internal/shutdown"
	"github.com/veedubyou/stem-splitter/src/server/internal/ui/assets"
	"github.com/veedubyou/stem-splitter/src/server/internal/ui/gateway"
	"github.com/veedubyou/stem-splitter/src/server/internal/ui/view"
	"github.com/veedubyou/stem-splitter/src/shared/config"
	"github.com/veedubyou/stem-splitter/src/shared/lib/executor"
	"github.com/veedubyou/stem-splitter/src/shared/lib/rabbitmq"
	"golang.org/x/sync/errgroup"
)

const (
	listenerWait = 10 * time.Second
	stopTimeout  = 5 * time.Second
)

type HTTPMethod string

const (
	GET  HTTPMethod = "GET"
	POST HTTPMethod = "POST"
)

type App struct {
	echo        *echo.Echo
	address     string
	url         string
	shutdown    *shutdown.Server
	openBrowser func(url string) error
	closers     []io.Closer
}

type Config struct {
	Settings      config.Settings
	DemucsBinPath string
	NvidiaSMIPath string
	Executor      executor.Executor
	Killer        shutdown.Killer
	// Publisher overrides the RabbitMQ connection made from Settings.
	Publisher rabbitmq.Publisher
	// Assets overrides the embedded script and stylesheet.
	Assets fs.FS
	// OpenBrowser overrides the system browser launcher.
	OpenBrowser func(url string) error
	Log         bool
}

func NewApp(config Config) App {
	settings := config.Settings

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	if config.Log {
		e.Use(middleware.Logger())
	}

	renderer, err := view.NewRenderer()
	if err != nil {
		panic(errors.Wrap(err, "Failed to create page renderer"))
	}
	e.Renderer = renderer

	handleRoute := func(method HTTPMethod, path string, handlerFunc echo.HandlerFunc, m ...echo.MiddlewareFunc) {
		switch method {
		case GET:
			e.GET(path, handlerFunc, m...)
		case POST:
			e.POST(path, handlerFunc, m...)
		default:
			panic("unhandled http method!")
		}
	}

	appMetrics := metrics.New()
	publisher, closer := makeEventPublisher(config)
	closers := []io.Closer{}
	if closer != nil {
		closers = append(closers, closer)
	}

	detector := device.NewDetector(config.Executor, config.NvidiaSMIPath, device.CurrentPlatform())
	shutdownServer := shutdown.NewServer(settings.ShutdownAddress(), config.Killer)

	uiGateway := makeUIGateway(config, detector, shutdownServer, publisher, appMetrics)

	// health check
	handleRoute(GET, "/health-check", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	handleRoute(GET, "/metrics", echo.WrapHandler(appMetrics.Handler()))

	// ui routes
	handleRoute(GET, "/", uiGateway.Page)
	handleRoute(POST, "/config", uiGateway.UpdateConfig)
	handleRoute(POST, "/upload", uiGateway.Upload, uploadBodyLimit(settings))
	handleRoute(POST, "/submit", uiGateway.Submit)
	handleRoute(GET, "/session/status", uiGateway.Status)
	e.Static(uigateway.OutputRoute, settings.OutputDir)

	app := App{
		echo:     e,
		address:  settings.Address(),
		url:      settings.URL(),
		shutdown: shutdownServer,
		closers:  closers,
	}

	if settings.OpenBrowser {
		app.openBrowser = config.OpenBrowser
		if app.openBrowser == nil {
			app.openBrowser = browser.OpenURL
		}
	}

	return app
}

// Start serves until Stop is called. The browser is opened once the
// listener is up.
func (a *App) Start() error {
	group := errgroup.Group{}
	group.Go(a.serve)

	if a.openBrowser != nil {
		group.Go(a.launchBrowser)
	}

	return group.Wait()
}

func (a *App) serve() error {
	log.WithField("url", a.url).Info("Starting server")

	err := a.echo.Start(a.address)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "Couldn't start echo server")
	}

	return nil
}

func (a *App) launchBrowser() error {
	if a.waitForListener(listenerWait) == nil {
		log.WithField("url", a.url).Warn("Server did not come up, not opening the browser")
		return nil
	}

	if err := a.openBrowser(a.url); err != nil {
		log.WithError(err).WithField("url", a.url).Warn("Failed to open the browser")
	}

	return nil
}

func (a *App) waitForListener(timeout time.Duration) net.Addr {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if addr := a.echo.ListenerAddr(); addr != nil {
			return addr
		}
		time.Sleep(20 * time.Millisecond)
	}

	return nil
}

// Addr is the address the UI is served on, or nil before Start binds it.
func (a *App) Addr() net.Addr {
	return a.echo.ListenerAddr()
}

// ShutdownAddr is the side-channel's address, or nil until a page load
// started it.
func (a *App) ShutdownAddr() net.Addr {
	return a.shutdown.Addr()
}

func (a *App) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	var result error

	if err := a.echo.Shutdown(ctx); err != nil {
		result = errors.CombineErrors(result, errors.Wrap(err, "Failed to stop echo server"))
	}

	if err := a.shutdown.Stop(ctx); err != nil {
		result = errors.CombineErrors(result, err)
	}

	for _, closer := range a.closers {
		if err := closer.Close(); err != nil {
			result = errors.CombineErrors(result, errors.Wrap(err, "Failed to release resource"))
		}
	}

	return result
}

func makeUIGateway(
	config Config,
	detector *device.Detector,
	shutdownServer *shutdown.Server,
	publisher events.Publisher,
	appMetrics *metrics.Metrics,
) uigateway.Gateway {
	settings := config.Settings

	setup := environment.Setup{
		CacheDir:  settings.CacheDir,
		OutputDir: settings.OutputDir,
	}

	demucs := splitter.NewSplitter(settings.OutputDir, config.DemucsBinPath, settings.LogBufferSize, config.Executor, setup)
	usecase := separationusecase.NewUsecase(setup, demucs, detector, publisher, appMetrics, settings.MaxFileSizeBytes())

	store := session.NewStore(func() entity.JobConfig {
		return entity.DefaultJobConfig(detector.GPUAvailable())
	})

	staticAssets := config.Assets
	if staticAssets == nil {
		staticAssets = assets.FS()
	}

	return uigateway.NewGateway(store, usecase, detector, shutdownServer, assets.NewLoader(staticAssets), uigateway.Config{
		OutputDir:     outputDir(settings.OutputDir),
		MaxFileSizeMB: settings.MaxFileSizeMB,
		ShutdownPort:  settings.ShutdownPort(),
	})
}

// makeEventPublisher never fails the app: without a broker, job events
// are dropped.
func makeEventPublisher(config Config) (events.Publisher, io.Closer) {
	if config.Publisher != nil {
		return events.NewQueuePublisher(config.Publisher), nil
	}

	settings := config.Settings
	if settings.RabbitMQURL == "" {
		return events.NoopPublisher{}, nil
	}

	publisher, err := rabbitmq.NewQueuePublisher(settings.RabbitMQURL, settings.RabbitMQQueueName)
	if err != nil {
		log.WithError(err).
			WithField("queue", settings.RabbitMQQueueName).
			Warn("RabbitMQ unavailable, job events will not be published")
		return events.NoopPublisher{}, nil
	}

	return events.NewQueuePublisher(publisher), publisher
}

func uploadBodyLimit(settings config.Settings) echo.MiddlewareFunc {
	// headroom for the multipart envelope, the file itself is checked by
	// the usecase
	return middleware.BodyLimit(fmt.Sprintf("%dM", settings.MaxFileSizeMB+1))
}

func outputDir(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}

	return abs
}
