package config

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/veedubyou/stem-splitter/src/shared/config/envvar"
	"gopkg.in/yaml.v3"
)

const DefaultSettingsFile = "stem-splitter.yaml"

type Settings struct {
	Host              string `yaml:"host"`
	Port              int    `yaml:"port"`
	CacheDir          string `yaml:"cache_dir"`
	OutputDir         string `yaml:"output_dir"`
	DemucsBinPath     string `yaml:"demucs_bin_path"`
	LogBufferSize     int    `yaml:"log_buffer_size"`
	MaxFileSizeMB     int    `yaml:"max_file_size_mb"`
	LogLevel          string `yaml:"log_level"`
	LogFile           string `yaml:"log_file"`
	RabbitMQURL       string `yaml:"rabbitmq_url"`
	RabbitMQQueueName string `yaml:"rabbitmq_queue_name"`
	OpenBrowser       bool   `yaml:"open_browser"`
}

func DefaultSettings() Settings {
	return Settings{
		Host:              DefaultHost,
		Port:              DefaultPort,
		CacheDir:          CacheDir,
		OutputDir:         OutputDir,
		LogBufferSize:     LogBufferSize,
		MaxFileSizeMB:     MaxFileSizeMB,
		LogLevel:          "info",
		RabbitMQQueueName: "stem-splitter-events",
		OpenBrowser:       true,
	}
}

// LoadSettings layers the defaults, the YAML file at path and then the
// environment. An empty path falls back to STEM_SPLITTER_CONFIG and then
// to DefaultSettingsFile, which may be absent.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()

	explicit := true
	if path == "" {
		path = envvar.Get(envvar.STEM_SPLITTER_CONFIG, "")
	}
	if path == "" {
		path = DefaultSettingsFile
		explicit = false
	}

	contents, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(contents, &settings); err != nil {
			return Settings{}, errors.Wrapf(err, "Failed to parse settings file %s", path)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return Settings{}, errors.Wrapf(err, "Failed to read settings file %s", path)
	}

	if err := settings.applyEnv(); err != nil {
		return Settings{}, errors.Wrap(err, "Failed to apply environment overrides")
	}

	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}

	return settings, nil
}

func (s *Settings) applyEnv() error {
	s.Host = envvar.Get(envvar.HOST, s.Host)
	s.CacheDir = envvar.Get(envvar.CACHE_DIR, s.CacheDir)
	s.OutputDir = envvar.Get(envvar.OUTPUT_DIR, s.OutputDir)
	s.DemucsBinPath = envvar.Get(envvar.DEMUCS_BIN_PATH, s.DemucsBinPath)
	s.LogLevel = envvar.Get(envvar.LOG_LEVEL, s.LogLevel)
	s.LogFile = envvar.Get(envvar.LOG_FILE, s.LogFile)
	s.RabbitMQURL = envvar.Get(envvar.RABBITMQ_URL, s.RabbitMQURL)
	s.RabbitMQQueueName = envvar.Get(envvar.RABBITMQ_QUEUE_NAME, s.RabbitMQQueueName)

	if port := envvar.Get(envvar.PORT, ""); port != "" {
		parsed, err := strconv.Atoi(port)
		if err != nil {
			return errors.Wrapf(err, "%s is not a number", envvar.PORT)
		}
		s.Port = parsed
	}

	if openBrowser := envvar.Get(envvar.OPEN_BROWSER, ""); openBrowser != "" {
		parsed, err := strconv.ParseBool(openBrowser)
		if err != nil {
			return errors.Wrapf(err, "%s is not a boolean", envvar.OPEN_BROWSER)
		}
		s.OpenBrowser = parsed
	}

	return nil
}

func (s Settings) Validate() error {
	// the shutdown listener takes the next port
	if s.Port <= 0 || s.Port >= 65535 {
		return errors.Newf("Port %d is out of range", s.Port)
	}

	if s.LogBufferSize <= 0 {
		return errors.Newf("Log buffer size must be positive, got %d", s.LogBufferSize)
	}

	if s.MaxFileSizeMB <= 0 {
		return errors.Newf("Max file size must be positive, got %d", s.MaxFileSizeMB)
	}

	if s.CacheDir == "" || s.OutputDir == "" {
		return errors.New("Cache and output directories must be set")
	}

	return nil
}

func (s Settings) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

func (s Settings) ShutdownPort() int {
	return s.Port + 1
}

func (s Settings) ShutdownAddress() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.ShutdownPort()))
}

func (s Settings) MaxFileSizeBytes() int64 {
	return int64(s.MaxFileSizeMB) * 1024 * 1024
}

func (s Settings) URL() string {
	return fmt.Sprintf("http://%s", s.Address())
}
