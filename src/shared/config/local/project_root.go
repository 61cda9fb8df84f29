package local

import (
	"path/filepath"
	"runtime"
	"strings"
)

const thisFile = "/src/shared/config/local/project_root.go"

// ProjectRoot resolves the checkout root from this file's compile-time
// location. Only meaningful in development and tests.
func ProjectRoot() string {
	_, filePath, _, ok := runtime.Caller(0)
	if !ok {
		panic("Failed to call runtime.Caller")
	}

	slashed := filepath.ToSlash(filePath)
	if !strings.HasSuffix(slashed, thisFile) {
		panic("project_root.go has moved, update thisFile")
	}

	return filepath.FromSlash(strings.TrimSuffix(slashed, thisFile))
}
