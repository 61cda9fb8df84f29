package entity

import (
	"fmt"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/veedubyou/stem-splitter/src/shared/config"
)

type ModelName string

const (
	HTDemucs     ModelName = "htdemucs"
	HTDemucsFT   ModelName = "htdemucs_ft"
	HTDemucs6S   ModelName = "htdemucs_6s"
	HDemucsMMI   ModelName = "hdemucs_mmi"
	MDX          ModelName = "mdx"
	DefaultModel           = HTDemucs
)

func Models() []ModelName {
	models := make([]ModelName, 0, len(config.ModelNames))
	for _, name := range config.ModelNames {
		models = append(models, ModelName(name))
	}
	return models
}

var modelDescriptions = map[ModelName]string{
	HTDemucs:   "Hybrid Transformer Demucs, the default and a good all-rounder",
	HTDemucsFT: "Fine-tuned Hybrid Transformer Demucs, better quality but about 4 times slower",
	HTDemucs6S: "6-source version that also separates guitar and piano",
	HDemucsMMI: "Hybrid Demucs v3 retrained on an extended dataset",
	MDX:        "Trained only on the MusDB HQ dataset, from the Music Demixing challenge",
}

func (m ModelName) Description() string {
	return modelDescriptions[m]
}

type StemMode string

const (
	TwoStems StemMode = "two_stems"
	AllStems StemMode = "all_stems"
)

type OutputFormat string

const (
	MP3  OutputFormat = "mp3"
	WAV  OutputFormat = "wav"
	FLAC OutputFormat = "flac"
)

var OutputFormats = []OutputFormat{MP3, WAV, FLAC}

var MP3Bitrates = []int{320, 256, 192, 128, 96}

const DefaultMP3Bitrate = 320

type WAVBitDepth string

const (
	WAVDefaultDepth WAVBitDepth = ""
	WAVFloat32      WAVBitDepth = "float32"
	WAVInt24        WAVBitDepth = "int24"
)

var WAVBitDepths = []WAVBitDepth{WAVFloat32, WAVInt24, WAVDefaultDepth}

func (w WAVBitDepth) Label() string {
	switch w {
	case WAVFloat32:
		return "32-bit float"
	case WAVInt24:
		return "24-bit int"
	default:
		return "None"
	}
}

type Device string

const (
	CPU  Device = "cpu"
	CUDA Device = "cuda"
)

type JobConfig struct {
	Model       ModelName
	StemMode    StemMode
	Format      OutputFormat
	MP3Bitrate  int
	WAVBitDepth WAVBitDepth
	Device      Device
}

func DefaultJobConfig(gpuAvailable bool) JobConfig {
	device := CPU
	if gpuAvailable {
		device = CUDA
	}

	return JobConfig{
		Model:      DefaultModel,
		StemMode:   AllStems,
		Format:     MP3,
		MP3Bitrate: DefaultMP3Bitrate,
		Device:     device,
	}
}

var InvalidJobConfigMark = errors.New("invalid job config")

func (j JobConfig) Validate(gpuAvailable bool) error {
	invalid := func(format string, args ...any) error {
		return errors.Mark(errors.Newf(format, args...), InvalidJobConfigMark)
	}

	if !slices.Contains(Models(), j.Model) {
		return invalid("Unknown model %q", j.Model)
	}

	if j.StemMode != TwoStems && j.StemMode != AllStems {
		return invalid("Unknown stem mode %q", j.StemMode)
	}

	switch j.Format {
	case MP3:
		if !slices.Contains(MP3Bitrates, j.MP3Bitrate) {
			return invalid("Unsupported MP3 bitrate %d", j.MP3Bitrate)
		}
	case WAV:
		if !slices.Contains(WAVBitDepths, j.WAVBitDepth) {
			return invalid("Unsupported WAV bit depth %q", j.WAVBitDepth)
		}
	case FLAC:
	default:
		return invalid("Unknown output format %q", j.Format)
	}

	switch j.Device {
	case CPU:
	case CUDA:
		if !gpuAvailable {
			return invalid("GPU processing requested but no GPU is available")
		}
	default:
		return invalid("Unknown device %q", j.Device)
	}

	return nil
}

// Extension is the file extension demucs writes for the chosen format.
func (j JobConfig) Extension() string {
	return string(j.Format)
}

func (j JobConfig) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", j.Model, j.StemMode, j.Format, j.Device)
}
