package dummy

import "github.com/cockroachdb/errors"

var NetworkFailure = errors.New("network failure")
var ExitFailure = errors.New("exit status 1")
