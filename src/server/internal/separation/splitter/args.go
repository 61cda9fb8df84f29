package splitter

import (
	"strconv"

	"github.com/veedubyou/stem-splitter/src/server/internal/separation/entity"
)

const filenameTemplate = "{stem}.{ext}"

func formatArgs(job entity.JobConfig) []string {
	switch job.Format {
	case entity.MP3:
		return []string{"--mp3", "--mp3-bitrate", strconv.Itoa(job.MP3Bitrate)}
	case entity.WAV:
		switch job.WAVBitDepth {
		case entity.WAVFloat32:
			return []string{"--float32"}
		case entity.WAVInt24:
			return []string{"--int24"}
		default:
			return nil
		}
	case entity.FLAC:
		return []string{"--flac"}
	default:
		return nil
	}
}

// BuildArgs assembles the demucs command line for one job.
func BuildArgs(job entity.JobConfig, outputDir string, inputPath string) []string {
	args := []string{}

	if job.StemMode == entity.TwoStems {
		args = append(args, "--two-stems", "vocals")
	}

	args = append(args,
		"-n", string(job.Model),
		"-o", outputDir,
		"--filename", filenameTemplate,
	)
	args = append(args, formatArgs(job)...)
	args = append(args, "-d", string(job.Device), inputPath)

	return args
}
