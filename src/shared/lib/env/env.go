package env

import (
	"github.com/veedubyou/stem-splitter/src/shared/config/envvar"
)

type Environment string

const (
	Production  Environment = "production"
	Development Environment = "development"
	Test        Environment = "test"
)

// Get reads ENVIRONMENT. The packaged desktop build ships without it,
// so an unset value means production.
func Get() Environment {
	environment := envvar.Get(envvar.ENVIRONMENT, string(Production))

	switch environment {
	case "production":
		return Production
	case "development":
		return Development
	case "test":
		return Test
	default:
		panic("Invalid environment is set")
	}
}
