package agent

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkStreamCollect(t *testing.T) {
	s := NewChunkStream()
	s.SendText("hello ")
	s.SendText("")
	s.SendText("world")
	s.Close()

	text, err := s.CollectText()
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}

func TestChunkStreamFail(t *testing.T) {
	boom := errors.New("connection reset")
	s := NewChunkStream()
	s.SendText("partial")
	s.Fail(boom)
	s.Fail(errors.New("second error loses"))

	text, err := s.CollectText()
	assert.Equal(t, "partial", text)
	assert.ErrorIs(t, err, boom)
}

func TestChunkStreamSendAfterClose(t *testing.T) {
	s := NewChunkStream()
	s.Close()
	s.SendText("dropped")

	text, err := s.CollectText()
	require.NoError(t, err)
	assert.Empty(t, text)
}
