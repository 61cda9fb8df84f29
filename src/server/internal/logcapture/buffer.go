package logcapture

import "strings"

// Buffer keeps the most recent lines up to its capacity.
type Buffer struct {
	lines    []string
	capacity int
}

func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		panic("log buffer capacity must be positive")
	}

	return &Buffer{
		lines:    make([]string, 0, capacity),
		capacity: capacity,
	}
}

func (b *Buffer) Append(line string) {
	if len(b.lines) == b.capacity {
		copy(b.lines, b.lines[1:])
		b.lines = b.lines[:b.capacity-1]
	}

	b.lines = append(b.lines, line)
}

// Lines returns the window oldest first.
func (b *Buffer) Lines() []string {
	lines := make([]string, len(b.lines))
	copy(lines, b.lines)
	return lines
}

func (b *Buffer) Len() int {
	return len(b.lines)
}

func (b *Buffer) Capacity() int {
	return b.capacity
}

func (b *Buffer) String() string {
	return strings.Join(b.lines, "\n")
}
