package envvar

import (
	"fmt"
	"os"
)

const (
	ENVIRONMENT          = "ENVIRONMENT"
	STEM_SPLITTER_CONFIG = "STEM_SPLITTER_CONFIG"
	HOST                 = "HOST"
	PORT                 = "PORT"
	CACHE_DIR            = "CACHE_DIR"
	OUTPUT_DIR           = "OUTPUT_DIR"
	DEMUCS_BIN_PATH      = "DEMUCS_BIN_PATH"
	LOG_LEVEL            = "LOG_LEVEL"
	LOG_FILE             = "LOG_FILE"
	RABBITMQ_URL         = "RABBITMQ_URL"
	RABBITMQ_QUEUE_NAME  = "RABBITMQ_QUEUE_NAME"
	OPEN_BROWSER         = "OPEN_BROWSER"
)

func MustGet(key string) string {
	val, isSet := os.LookupEnv(key)
	if !isSet {
		panic(fmt.Sprintf("No env variable found for key %s", key))
	}

	if val == "" {
		panic(fmt.Sprintf("Env variable is empty for key %s", key))
	}

	return val
}

func Get(key string, fallback string) string {
	val, isSet := os.LookupEnv(key)
	if !isSet || val == "" {
		return fallback
	}

	return val
}
