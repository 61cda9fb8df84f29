package config

const (
	CacheDir  = ".cache"
	OutputDir = "output"

	MaxFileSizeMB = 200
	LogBufferSize = 50

	DefaultHost = "127.0.0.1"
	DefaultPort = 8501
)

// ModelNames lists the demucs models offered in the UI, default first.
var ModelNames = []string{
	"htdemucs",
	"htdemucs_ft",
	"htdemucs_6s",
	"hdemucs_mmi",
	"mdx",
}

var AllowedExtensions = []string{"mp3", "wav"}

const (
	AppName    = "Sol Audio Stem Splitter"
	AppVersion = "0.0.1"
	PageTitle  = "Sol"

	AboutText = "Sol splits a song into its individual stems (vocals, drums, bass and more) " +
		"using the Demucs source separation models. Everything runs on this machine: " +
		"upload a track, pick a model and an output format, and download the separated stems."
)
