package testing

import (
	. "github.com/onsi/ginkgo/v2"
	"github.com/veedubyou/stem-splitter/src/shared/config/envvar"
)

// SetTestEnv switches to the test environment for the current test.
func SetTestEnv() {
	GinkgoT().Setenv(envvar.ENVIRONMENT, "test")
}
