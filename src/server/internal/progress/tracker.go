package progress

import (
	"sync"
	"time"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

const (
	DefaultDesc  = "Processing"
	DefaultUnit  = "it"
	DefaultTotal = 100
)

//counterfeiter:generate . Bar
type Bar interface {
	SetProgress(fraction float64)
}

//counterfeiter:generate . Text
type Text interface {
	SetText(text string)
}

type Options struct {
	Desc     string
	Unit     string
	Total    float64
	Disabled bool
	Now      func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Desc == "" {
		o.Desc = DefaultDesc
	}
	if o.Unit == "" {
		o.Unit = DefaultUnit
	}
	if o.Total <= 0 {
		o.Total = DefaultTotal
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Tracker counts units of work and mirrors the count onto a progress bar
// and a status line after every change.
type Tracker struct {
	lock    sync.Mutex
	options Options
	bar     Bar
	text    Text
	n       float64
	start   time.Time
}

func NewTracker(bar Bar, text Text, options Options) *Tracker {
	options = options.withDefaults()

	return &Tracker{
		options: options,
		bar:     bar,
		text:    text,
		start:   options.Now(),
	}
}

func (t *Tracker) Update(delta float64) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.n += delta
	t.render()
}

func (t *Tracker) Set(n float64) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.n = n
	t.render()
}

func (t *Tracker) Total() float64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.options.Total
}

func (t *Tracker) Stats() Stats {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.stats()
}

func (t *Tracker) stats() Stats {
	return Compute(t.n, t.options.Total, t.options.Now().Sub(t.start))
}

func (t *Tracker) render() {
	if t.options.Disabled {
		return
	}

	stats := t.stats()
	if t.bar != nil {
		t.bar.SetProgress(stats.Fraction)
	}
	if t.text != nil {
		t.text.SetText(stats.Format(t.options.Desc, t.options.Unit))
	}
}
