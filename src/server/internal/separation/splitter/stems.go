package splitter

import (
	"path/filepath"

	"github.com/veedubyou/stem-splitter/src/server/internal/separation/entity"
)

var (
	twoStems  = []string{"vocals", "no_vocals"}
	fourStems = []string{"vocals", "drums", "bass", "other"}
	sixStems  = []string{"vocals", "drums", "bass", "guitar", "piano", "other"}
)

// ExpectedStems lists the stems demucs will produce, in display order.
func ExpectedStems(job entity.JobConfig) []string {
	var stems []string

	switch {
	case job.StemMode == entity.TwoStems:
		stems = twoStems
	case job.Model == entity.HTDemucs6S:
		stems = sixStems
	default:
		stems = fourStems
	}

	return append([]string(nil), stems...)
}

// OutputPaths places each stem at <outputDir>/<model>/<stem>.<ext>.
func OutputPaths(outputDir string, model entity.ModelName, stems []string, extension string) []string {
	paths := make([]string, 0, len(stems))
	for _, stem := range stems {
		paths = append(paths, filepath.Join(outputDir, string(model), stem+"."+extension))
	}

	return paths
}
