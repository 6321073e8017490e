package surface

import (
	"bytes"
	"sync"
)

// Memory is a Surface that keeps everything in memory.  It backs
// headless runs and lets callers inspect what a session rendered.
type Memory struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	sizes  []Size
	titles []string
}

func (m *Memory) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf.Write(p)
}

func (m *Memory) Resize(size Size) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sizes = append(m.sizes, size)
	return nil
}

func (m *Memory) SetTitle(title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.titles = append(m.titles, title)
	return nil
}

// String returns everything written so far.
func (m *Memory) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf.String()
}

// Reset discards written output.  Sizes and titles are kept.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf.Reset()
}

// Sizes returns every geometry applied, oldest first.
func (m *Memory) Sizes() []Size {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Size(nil), m.sizes...)
}

// Titles returns every title set, oldest first.
func (m *Memory) Titles() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.titles...)
}
