package scan

import (
	"bytes"
	"io"
	"sync"
)

// syncBuffer is a bytes.Buffer safe for a writer and a polling reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

// ioPipe returns the reading and writing ends of an in-memory pipe.
func ioPipe() (io.Reader, io.WriteCloser) {
	return io.Pipe()
}
