package dev

import (
	"path/filepath"

	"github.com/veedubyou/stem-splitter/src/shared/config"
	"github.com/veedubyou/stem-splitter/src/shared/config/local"
)

// RabbitMQ
const (
	RabbitMQHost      = "amqp://localhost:5672"
	RabbitMQQueueName = "stem-splitter-events-dev"
)

// Settings keeps working files inside the checkout and skips the browser
// launch, since development runs restart often.
func Settings(base config.Settings) config.Settings {
	root := local.ProjectRoot()

	base.CacheDir = filepath.Join(root, "wd", config.CacheDir)
	base.OutputDir = filepath.Join(root, "wd", config.OutputDir)
	base.LogLevel = "debug"
	base.OpenBrowser = false

	if base.RabbitMQURL == "" {
		base.RabbitMQURL = RabbitMQHost
		base.RabbitMQQueueName = RabbitMQQueueName
	}

	return base
}
