package session

import (
	"sync"

	"github.com/veedubyou/stem-splitter/src/server/internal/logcapture"
	"github.com/veedubyou/stem-splitter/src/server/internal/progress"
)

var (
	_ logcapture.Display = &TextWidget{}
	_ progress.Text      = &TextWidget{}
	_ progress.Bar       = &ProgressWidget{}
)

// TextWidget holds the latest text pushed to it; the page polls it.
type TextWidget struct {
	lock sync.RWMutex
	text string
}

func (t *TextWidget) SetText(text string) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.text = text
}

func (t *TextWidget) Text() string {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.text
}

type ProgressWidget struct {
	lock     sync.RWMutex
	fraction float64
}

func (p *ProgressWidget) SetProgress(fraction float64) {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.fraction = fraction
}

func (p *ProgressWidget) Progress() float64 {
	p.lock.RLock()
	defer p.lock.RUnlock()

	return p.fraction
}
