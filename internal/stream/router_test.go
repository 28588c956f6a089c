package stream

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"ai-livestream-be/internal/dto"
	"ai-livestream-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestRouterFansOutByLane(t *testing.T) {
	reader := &scriptedReader{
		messages: [][]byte{
			mustJSON(t, map[string]interface{}{"type": "audio_stream", "audio_chunk": "AAAA"}),
			mustJSON(t, map[string]interface{}{"image": "dGVzdA==", "processor": 1}),
			mustJSON(t, map[string]interface{}{"audio_chunk": "BBBB"}),
			mustJSON(t, map[string]interface{}{"type": "audio_stream_stop"}),
			mustJSON(t, map[string]interface{}{"unknown": "field"}),
		},
		finalErr: io.EOF,
	}

	audioQ := NewQueue[dto.StreamMessage]()
	videoQ := NewQueue[dto.StreamMessage]()
	router := NewRouter("s1", reader, audioQ, videoQ, logger.NewNopLogger())

	err := router.Run()
	assert.Error(t, err)

	// Audio lane: chunk, typeless chunk, stop signal.
	assert.Equal(t, 3, audioQ.Len())
	// Video lane: the one frame. The unroutable message is dropped.
	assert.Equal(t, 1, videoQ.Len())

	msg, ok := audioQ.Get(context.Background())
	require.True(t, ok)
	assert.Equal(t, "AAAA", msg.AudioChunk)
}

func TestRouterClosesQueuesOnReadError(t *testing.T) {
	reader := &scriptedReader{finalErr: io.ErrUnexpectedEOF}

	audioQ := NewQueue[dto.StreamMessage]()
	videoQ := NewQueue[dto.StreamMessage]()
	router := NewRouter("s1", reader, audioQ, videoQ, logger.NewNopLogger())

	err := router.Run()
	assert.Error(t, err)
	assert.True(t, audioQ.Closed())
	assert.True(t, videoQ.Closed())
}

func TestRouterSkipsMalformedJSON(t *testing.T) {
	reader := &scriptedReader{
		messages: [][]byte{
			[]byte("{not json"),
			mustJSON(t, map[string]interface{}{"image": "dGVzdA=="}),
		},
		finalErr: io.EOF,
	}

	audioQ := NewQueue[dto.StreamMessage]()
	videoQ := NewQueue[dto.StreamMessage]()
	router := NewRouter("s1", reader, audioQ, videoQ, logger.NewNopLogger())

	_ = router.Run()
	assert.Equal(t, 0, audioQ.Len())
	assert.Equal(t, 1, videoQ.Len())
}

func TestIsAudioMessage(t *testing.T) {
	tests := []struct {
		name string
		msg  dto.StreamMessage
		want bool
	}{
		{"typed audio", dto.StreamMessage{Type: dto.MessageTypeAudio}, true},
		{"typed stream", dto.StreamMessage{Type: dto.MessageTypeAudioStream}, true},
		{"stop signal", dto.StreamMessage{Type: dto.MessageTypeAudioStreamStop}, true},
		{"typeless chunk", dto.StreamMessage{AudioChunk: "AAAA"}, true},
		{"frame", dto.StreamMessage{Image: "dGVzdA=="}, false},
		{"empty", dto.StreamMessage{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isAudioMessage(tt.msg))
		})
	}
}
