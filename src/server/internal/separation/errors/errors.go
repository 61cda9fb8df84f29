package separationerrors

import (
	"github.com/veedubyou/stem-splitter/src/server/internal/errors/api"
)

const (
	BadJobConfigCode        = api.ErrorCode("bad_job_config")
	NoUploadCode            = api.ErrorCode("no_uploaded_file")
	BadUploadCode           = api.ErrorCode("bad_upload")
	UnsupportedFileTypeCode = api.ErrorCode("unsupported_file_type")
	FileTooLargeCode        = api.ErrorCode("file_too_large")
	SeparationFailedCode    = api.ErrorCode("separation_failed")
	SessionNotFoundCode     = api.ErrorCode("session_not_found")
	JobInProgressCode       = api.ErrorCode("job_in_progress")
)
