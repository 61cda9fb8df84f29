package assets

import (
	"embed"
	"html/template"
	"io/fs"

	"github.com/cockroachdb/errors"
)

const (
	ScriptFile = "main.js"
	StyleFile  = "main.css"
)

//go:embed static
var static embed.FS

// FS is the embedded static directory.
func FS() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(errors.Wrap(err, "Embedded static directory is missing"))
	}

	return sub
}

// Loader reads the page's inlined script and stylesheet.
type Loader struct {
	fsys fs.FS
}

func NewLoader(fsys fs.FS) Loader {
	return Loader{fsys: fsys}
}

func (l Loader) Script() (template.JS, error) {
	contents, err := l.read(ScriptFile)
	if err != nil {
		return "", errors.Wrap(err, "JavaScript file not found")
	}

	return template.JS(contents), nil
}

func (l Loader) Style() (template.CSS, error) {
	contents, err := l.read(StyleFile)
	if err != nil {
		return "", errors.Wrap(err, "CSS file not found")
	}

	return template.CSS(contents), nil
}

func (l Loader) read(name string) (string, error) {
	contents, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return "", err
	}

	return string(contents), nil
}
