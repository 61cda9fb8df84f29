package uigateway

import (
	"github.com/veedubyou/stem-splitter/src/server/internal/separation/entity"
)

type jobConfigJSON struct {
	Model       string `json:"model"`
	StemMode    string `json:"stem_mode"`
	Format      string `json:"format"`
	MP3Bitrate  int    `json:"mp3_bitrate"`
	WAVBitDepth string `json:"wav_bit_depth"`
	Device      string `json:"device"`
}

func newJobConfigJSON(job entity.JobConfig) jobConfigJSON {
	return jobConfigJSON{
		Model:       string(job.Model),
		StemMode:    string(job.StemMode),
		Format:      string(job.Format),
		MP3Bitrate:  job.MP3Bitrate,
		WAVBitDepth: string(job.WAVBitDepth),
		Device:      string(job.Device),
	}
}

type uploadJSON struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

type stemJSON struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type resultJSON struct {
	Stems []stemJSON `json:"stems"`
}

func (g Gateway) newResultJSON(result entity.Result) resultJSON {
	stems := []stemJSON{}
	for i, name := range result.Stems {
		stem := stemJSON{Name: name}
		if i < len(result.Paths) {
			stem.URL = g.outputURL(result.Paths[i])
		}
		stems = append(stems, stem)
	}

	return resultJSON{Stems: stems}
}

type statusJSON struct {
	Running      bool    `json:"running"`
	Submitted    bool    `json:"submitted"`
	UploadName   string  `json:"upload_name"`
	Log          string  `json:"log"`
	Progress     float64 `json:"progress"`
	ProgressText string  `json:"progress_text"`
	Error        string  `json:"error"`
}
