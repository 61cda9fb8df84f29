package logcapture

import (
	"bytes"
	"io"
	"strings"
	"sync"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

//counterfeiter:generate . Display
type Display interface {
	SetText(text string)
}

// LineInterceptor gets the first look at every complete line. Returning
// true consumes the line so it never reaches the buffer.
//
//counterfeiter:generate . LineInterceptor
type LineInterceptor interface {
	InterceptLine(line string) bool
}

var _ io.Writer = &Writer{}

// Writer feeds the console output of one external process invocation
// into a bounded buffer and re-renders it after every write. Each
// invocation gets its own Writer.
type Writer struct {
	lock        sync.Mutex
	buffer      *Buffer
	display     Display
	interceptor LineInterceptor
	pending     bytes.Buffer
}

func NewWriter(capacity int, display Display, interceptor LineInterceptor) *Writer {
	return &Writer{
		buffer:      NewBuffer(capacity),
		display:     display,
		interceptor: interceptor,
	}
}

func (w *Writer) Write(p []byte) (int, error) {
	w.lock.Lock()
	defer w.lock.Unlock()

	// byte-wise so multi-byte runes split across writes stay intact
	for _, b := range p {
		switch b {
		case '\n', '\r':
			w.completeLine()
		default:
			w.pending.WriteByte(b)
		}
	}

	w.render()
	return len(p), nil
}

// Flush pushes out a trailing line that never got its line break.
func (w *Writer) Flush() {
	w.lock.Lock()
	defer w.lock.Unlock()

	w.completeLine()
	w.render()
}

func (w *Writer) Lines() []string {
	w.lock.Lock()
	defer w.lock.Unlock()

	return w.buffer.Lines()
}

func (w *Writer) String() string {
	w.lock.Lock()
	defer w.lock.Unlock()

	return w.buffer.String()
}

func (w *Writer) completeLine() {
	line := strings.TrimRight(w.pending.String(), " \t")
	w.pending.Reset()

	if strings.TrimSpace(line) == "" {
		return
	}

	if w.interceptor != nil && w.interceptor.InterceptLine(line) {
		return
	}

	w.buffer.Append(line)
}

func (w *Writer) render() {
	if w.display == nil {
		return
	}

	w.display.SetText(w.buffer.String())
}
