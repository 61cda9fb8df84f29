package entity

import (
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/veedubyou/stem-splitter/src/shared/config"
	"github.com/veedubyou/stem-splitter/src/shared/lib/errors/mark"
)

var (
	UnsupportedFileTypeMark = errors.New("unsupported file type")
	FileTooLargeMark        = errors.New("file too large")
	EmptyUploadMark         = errors.New("empty upload")
)

type Upload struct {
	Name string
	Data []byte
}

// BaseName strips any directory parts the browser sent along, including
// Windows style ones.
func (u Upload) BaseName() string {
	slashed := strings.ReplaceAll(u.Name, `\`, "/")
	return path.Base(path.Clean("/" + slashed))
}

func (u Upload) Extension() string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(u.Name), "."))
}

func (u Upload) Validate(maxBytes int64) error {
	if u.BaseName() == "/" || u.BaseName() == "." || len(u.Data) == 0 {
		return mark.Message(EmptyUploadMark, "Uploaded file is empty")
	}

	if !slices.Contains(config.AllowedExtensions, u.Extension()) {
		return errors.Mark(errors.Newf("File type %q is not supported", u.Extension()), UnsupportedFileTypeMark)
	}

	if int64(len(u.Data)) > maxBytes {
		return errors.Mark(errors.Newf("File is %d bytes, the limit is %d", len(u.Data), maxBytes), FileTooLargeMark)
	}

	return nil
}

// Result describes where a finished job left its stems.
type Result struct {
	OutputDir string
	Stems     []string
	Paths     []string
}

func (r Result) Channels() int {
	return len(r.Stems)
}
