package storage

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrTooLarge is returned when a document exceeds the configured limit
var ErrTooLarge = errors.New("document exceeds size limit")

// Buffer holds an in-memory document for the duration of one request.
// Release overwrites the bytes with zeros and may be called any number
// of times from any exit path.
type Buffer struct {
	data []byte
	once sync.Once
}

// NewBuffer takes ownership of data
func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

// ReadAll reads r into a new Buffer, failing with ErrTooLarge once more
// than limit bytes are seen. Partially read bytes are zeroed on failure.
func ReadAll(r io.Reader, limit int64) (*Buffer, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		ZeroBytes(data)
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	if int64(len(data)) > limit {
		ZeroBytes(data)
		return nil, ErrTooLarge
	}
	return NewBuffer(data), nil
}

// Bytes returns the underlying slice. It must not be used after Release.
func (b *Buffer) Bytes() []byte {
	if b == nil {
		return nil
	}
	return b.data
}

// Len returns the document size in bytes
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.data)
}

// Release zeroes the document bytes
func (b *Buffer) Release() {
	if b == nil {
		return
	}
	b.once.Do(func() {
		ZeroBytes(b.data)
	})
}

// ZeroBytes overwrites a byte slice with zeros so document contents do
// not linger in memory.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
