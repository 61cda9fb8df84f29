package view

import (
	"embed"
	"html/template"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"github.com/veedubyou/stem-splitter/src/server/internal/separation/entity"
	"github.com/veedubyou/stem-splitter/src/shared/config"
)

const PageTemplate = "page.html"

//go:embed templates
var templateFS embed.FS

type Option struct {
	Value    string
	Label    string
	Help     string
	Selected bool
}

// JobPanel is the advanced configuration panel.
type JobPanel struct {
	Models       []Option
	StemModes    []Option
	Formats      []Option
	Bitrates     []Option
	BitDepths    []Option
	Format       string
	GPUAvailable bool
	GPUSelected  bool
	Device       string
	DeviceStatus string
}

type Page struct {
	Title             string
	AppName           string
	Version           string
	About             string
	AllowedExtensions string
	MaxFileSizeMB     int
	ShutdownPort      int

	AllowedExtensionList []string

	Job JobPanel

	UploadName string
	CanSubmit  bool
	Running    bool

	Log             string
	ProgressText    string
	ProgressPercent int

	Output Output
	Error  string
	Trace  string

	UIErrors []string
	Script   template.JS
	Style    template.CSS
}

func NewPage(maxFileSizeMB int, shutdownPort int) Page {
	return Page{
		Title:             config.PageTitle,
		AppName:           config.AppName,
		Version:           config.AppVersion,
		About:             config.AboutText,
		AllowedExtensions: strings.Join(config.AllowedExtensions, "/"),
		MaxFileSizeMB:     maxFileSizeMB,
		ShutdownPort:      shutdownPort,

		AllowedExtensionList: config.AllowedExtensions,
	}
}

func NewJobPanel(job entity.JobConfig, gpuAvailable bool, deviceStatus string) JobPanel {
	panel := JobPanel{
		Format:       string(job.Format),
		GPUAvailable: gpuAvailable,
		GPUSelected:  gpuAvailable && job.Device == entity.CUDA,
		Device:       string(job.Device),
		DeviceStatus: deviceStatus,
	}

	for _, model := range entity.Models() {
		panel.Models = append(panel.Models, Option{
			Value:    string(model),
			Label:    string(model),
			Help:     model.Description(),
			Selected: model == job.Model,
		})
	}

	panel.StemModes = []Option{
		{Value: string(entity.TwoStems), Label: "Two Stems (Vocals)", Selected: job.StemMode == entity.TwoStems},
		{Value: string(entity.AllStems), Label: "All Stems", Selected: job.StemMode == entity.AllStems},
	}

	for _, format := range entity.OutputFormats {
		panel.Formats = append(panel.Formats, Option{
			Value:    string(format),
			Label:    strings.ToUpper(string(format)),
			Selected: format == job.Format,
		})
	}

	for _, bitrate := range entity.MP3Bitrates {
		panel.Bitrates = append(panel.Bitrates, Option{
			Value:    strconv.Itoa(bitrate),
			Label:    strconv.Itoa(bitrate),
			Selected: bitrate == job.MP3Bitrate,
		})
	}

	for _, depth := range entity.WAVBitDepths {
		panel.BitDepths = append(panel.BitDepths, Option{
			Value:    string(depth),
			Label:    depth.Label(),
			Selected: depth == job.WAVBitDepth,
		})
	}

	return panel
}

type Renderer struct {
	templates *template.Template
}

var _ echo.Renderer = &Renderer{}

func NewRenderer() (*Renderer, error) {
	templates, err := template.New("").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, errors.Wrap(err, "Failed to parse page templates")
	}

	return &Renderer{templates: templates}, nil
}

func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}
