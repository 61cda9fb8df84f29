package view

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const stemsPerRow = 2

var InvalidChannelsMark = errors.New("invalid channel count")

var ValidChannels = []int{2, 4, 6}

type stemLabel struct {
	emoji string
	name  string
}

var stemLabels = map[int][]stemLabel{
	2: {
		{"🎤", "vocals"},
		{"🎵", "accompaniment"},
	},
	4: {
		{"🎤", "vocals"},
		{"🥁", "drums"},
		{"🎸", "bass"},
		{"🎹", "other"},
	},
	6: {
		{"🎤", "vocals"},
		{"🥁", "drums"},
		{"🎚️", "bass"},
		{"🎸", "guitar"},
		{"🎹", "piano"},
		{"🎵", "other"},
	},
}

var titleCaser = cases.Title(language.English)

// Stem is one cell of the output grid. Either URL is set or Error is.
type Stem struct {
	Emoji    string
	Label    string
	URL      string
	MimeType string
	Error    string
}

type Output struct {
	Error string
	Rows  [][]Stem
}

func (o Output) Empty() bool {
	return o.Error == "" && len(o.Rows) == 0
}

// RenderOutput lays out the stems of a finished job. A stem whose file is
// missing gets an error cell; the others still render.
func RenderOutput(paths []string, channels int, exists func(string) bool, urlFor func(string) string) (Output, error) {
	if !slices.Contains(ValidChannels, channels) {
		err := errors.Newf("Channels must be one of %v, got %d", ValidChannels, channels)
		return Output{}, errors.Mark(err, InvalidChannelsMark)
	}

	if len(paths) != channels {
		return Output{
			Error: fmt.Sprintf("Expected %d stems, found %d", channels, len(paths)),
		}, nil
	}

	output := Output{}
	row := []Stem{}

	for i, path := range paths {
		label := stemLabels[channels][i]
		title := titleCaser.String(label.name)

		stem := Stem{Emoji: label.emoji, Label: title}
		if path != "" && exists(path) {
			stem.URL = urlFor(path)
			stem.MimeType = audioMimeType(path)
		} else {
			stem.Error = fmt.Sprintf("%s extraction failed", title)
		}

		row = append(row, stem)
		if len(row) == stemsPerRow {
			output.Rows = append(output.Rows, row)
			row = []Stem{}
		}
	}

	if len(row) > 0 {
		output.Rows = append(output.Rows, row)
	}

	return output, nil
}

func audioMimeType(path string) string {
	return "audio/" + strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
