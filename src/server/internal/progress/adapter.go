package progress

import (
	"regexp"
	"strconv"
	"sync"
	"time"
)

var (
	// matches the body of a tqdm bar, e.g.
	// " 45%|████▌     | 23.4/52.65 [00:10<00:12,  2.31seconds/s]"
	barPattern = regexp.MustCompile(`(\d{1,3})%\|[^|]*\|\s*([0-9.]+)([kMGTPEZY]?)/([0-9.]+)([kMGTPEZY]?)\s*\[([^\]]*)\]`)

	ratePattern         = regexp.MustCompile(`[0-9.?]+[kMGTPEZY]?([A-Za-z]+)/s\b`)
	invertedRatePattern = regexp.MustCompile(`[0-9.?]+s/([A-Za-z]+)`)
)

var scales = map[string]float64{
	"":  1,
	"k": 1e3,
	"M": 1e6,
	"G": 1e9,
	"T": 1e12,
	"P": 1e15,
	"E": 1e18,
	"Z": 1e21,
	"Y": 1e24,
}

// Adapter turns the tqdm bars the separation tool prints into Tracker
// updates. A new bar starts a fresh Tracker.
type Adapter struct {
	lock    sync.Mutex
	bar     Bar
	text    Text
	desc    string
	now     func() time.Time
	tracker *Tracker
	lastN   float64
}

func NewAdapter(bar Bar, text Text, desc string, now func() time.Time) *Adapter {
	if now == nil {
		now = time.Now
	}

	return &Adapter{
		bar:  bar,
		text: text,
		desc: desc,
		now:  now,
	}
}

type BarLine struct {
	Percent int
	N       float64
	Total   float64
	Unit    string
}

func ParseBarLine(line string) (BarLine, bool) {
	match := barPattern.FindStringSubmatch(line)
	if match == nil {
		return BarLine{}, false
	}

	percent, err := strconv.Atoi(match[1])
	if err != nil {
		return BarLine{}, false
	}

	n, err := strconv.ParseFloat(match[2], 64)
	if err != nil {
		return BarLine{}, false
	}

	total, err := strconv.ParseFloat(match[4], 64)
	if err != nil || total <= 0 {
		return BarLine{}, false
	}

	return BarLine{
		Percent: percent,
		N:       n * scales[match[3]],
		Total:   total * scales[match[5]],
		Unit:    parseUnit(match[6]),
	}, true
}

func parseUnit(bracket string) string {
	if match := invertedRatePattern.FindStringSubmatch(bracket); match != nil {
		return match[1]
	}

	if match := ratePattern.FindStringSubmatch(bracket); match != nil {
		return match[1]
	}

	return DefaultUnit
}

func (a *Adapter) InterceptLine(line string) bool {
	parsed, ok := ParseBarLine(line)
	if !ok {
		return false
	}

	a.lock.Lock()
	defer a.lock.Unlock()

	isNewBar := a.tracker == nil ||
		a.tracker.Total() != parsed.Total ||
		parsed.N < a.lastN
	if isNewBar {
		a.tracker = NewTracker(a.bar, a.text, Options{
			Desc:  a.desc,
			Unit:  parsed.Unit,
			Total: parsed.Total,
			Now:   a.now,
		})
	}

	a.lastN = parsed.N
	a.tracker.Set(parsed.N)
	return true
}

// Stats reports on the current bar, if one has been seen.
func (a *Adapter) Stats() (Stats, bool) {
	a.lock.Lock()
	defer a.lock.Unlock()

	if a.tracker == nil {
		return Stats{}, false
	}

	return a.tracker.Stats(), true
}
