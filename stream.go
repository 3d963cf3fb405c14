package agent

import (
	"strings"
	"sync"

	"github.com/xieshanrong/dify200/internal/buffer"
)

// ChunkStream carries model output from a producer goroutine to a consumer.
//
// Send never blocks; the stream buffers without bound so a slow consumer
// cannot stall the provider's network read. The producer ends the stream
// with Close or Fail; the consumer ranges over Chunks and checks Err once
// the channel closes.
type ChunkStream struct {
	buf *buffer.Unbounded[Chunk]

	mu  sync.Mutex
	err error
}

// NewChunkStream returns an open stream ready for Send.
func NewChunkStream() *ChunkStream {
	return &ChunkStream{buf: buffer.NewUnbounded[Chunk]()}
}

// Send enqueues a chunk. Sends after Close or Fail are dropped.
func (s *ChunkStream) Send(c Chunk) {
	s.buf.Send(c)
}

// SendText enqueues a text-only chunk. Empty fragments are dropped.
func (s *ChunkStream) SendText(delta string) {
	if delta == "" {
		return
	}
	s.buf.Send(Chunk{Delta: delta})
}

// Chunks returns the receive channel. It closes after Close or Fail once
// all buffered chunks have been delivered.
func (s *ChunkStream) Chunks() <-chan Chunk {
	return s.buf.Receive()
}

// Close ends the stream successfully. Safe to call more than once.
func (s *ChunkStream) Close() {
	s.buf.Close()
}

// Fail ends the stream with an error. The first error wins.
func (s *ChunkStream) Fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	s.buf.Close()
}

// Err returns the stream error, nil for a clean close. Only meaningful
// after Chunks has closed.
func (s *ChunkStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// CollectText drains the stream and concatenates all text deltas. Intended
// for tests and non-streaming callers.
func (s *ChunkStream) CollectText() (string, error) {
	var sb strings.Builder
	for c := range s.Chunks() {
		sb.WriteString(c.Delta)
	}
	return sb.String(), s.Err()
}
