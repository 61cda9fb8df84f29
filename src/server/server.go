package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/apex/log"
	"github.com/veedubyou/stem-splitter/src/server/application"
	"github.com/veedubyou/stem-splitter/src/server/internal/shutdown"
	"github.com/veedubyou/stem-splitter/src/shared/config"
	"github.com/veedubyou/stem-splitter/src/shared/config/dev"
	"github.com/veedubyou/stem-splitter/src/shared/lib/env"
	"github.com/veedubyou/stem-splitter/src/shared/lib/executor"
	"github.com/veedubyou/stem-splitter/src/shared/lib/logging"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML settings file")
	flag.Parse()

	settings, err := config.LoadSettings(*configPath)
	if err != nil {
		panic(err)
	}

	var appConfig application.Config

	switch env.Get() {
	case env.Production:
		appConfig = application.Config{
			Settings: settings,
			Log:      false,
		}
	case env.Development:
		appConfig = application.Config{
			Settings: dev.Settings(settings),
			Log:      true,
		}

	default:
		panic("Unexpected environment")
	}

	logCloser, err := logging.Setup(logging.Config{
		Level:    appConfig.Settings.LogLevel,
		FilePath: appConfig.Settings.LogFile,
	})
	if err != nil {
		panic(err)
	}
	defer logCloser.Close()

	appConfig.DemucsBinPath = config.DemucsPath(appConfig.Settings.DemucsBinPath)
	appConfig.Executor = executor.BinaryFileExecutor{}
	appConfig.Killer = shutdown.ProcessKiller{}

	app := application.NewApp(appConfig)

	go func() {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
		<-signals

		log.Info("Interrupted, stopping")
		if err := app.Stop(); err != nil {
			log.WithError(err).Error("Failed to stop cleanly")
		}
	}()

	if err := app.Start(); err != nil {
		log.WithError(err).Fatal("Server stopped")
	}
}
