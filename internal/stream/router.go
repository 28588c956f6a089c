package stream

import (
	"encoding/json"

	"ai-livestream-be/internal/dto"
	"ai-livestream-be/internal/pkg/logger"

	"github.com/gofiber/websocket/v2"
)

// WireReader is the read half of the client connection.
type WireReader interface {
	ReadMessage() (messageType int, p []byte, err error)
}

// Router is the single reader of the websocket. It classifies each inbound
// message and fans it out to the audio and video lanes, so neither lane can
// stall the other. On read failure it closes both queues and returns, which
// lets the lanes drain and exit on their own.
type Router struct {
	sessionId string
	conn      WireReader
	audioQ    *Queue[dto.StreamMessage]
	videoQ    *Queue[dto.StreamMessage]
	log       logger.ILogger
}

func NewRouter(sessionId string, conn WireReader, audioQ, videoQ *Queue[dto.StreamMessage], log logger.ILogger) *Router {
	return &Router{
		sessionId: sessionId,
		conn:      conn,
		audioQ:    audioQ,
		videoQ:    videoQ,
		log:       log,
	}
}

// Run reads until the connection fails or closes. It always closes both lane
// queues before returning; a normal client close returns nil.
func (r *Router) Run() error {
	defer r.audioQ.Close()
	defer r.videoQ.Close()

	for {
		_, raw, err := r.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				r.log.Info("Router", "Client closed connection", map[string]interface{}{"session_id": r.sessionId})
				return nil
			}
			r.log.Info("Router", "Connection read ended", map[string]interface{}{
				"session_id": r.sessionId, "error": err.Error(),
			})
			return err
		}

		var msg dto.StreamMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			r.log.Warn("Router", "Discarding malformed message", map[string]interface{}{
				"session_id": r.sessionId, "error": err.Error(),
			})
			continue
		}

		switch {
		case isAudioMessage(msg):
			r.audioQ.Put(msg)
		case msg.Image != "":
			r.videoQ.Put(msg)
		default:
			r.log.Warn("Router", "Dropping unroutable message", map[string]interface{}{
				"session_id": r.sessionId, "type": msg.Type,
			})
		}
	}
}

func isAudioMessage(msg dto.StreamMessage) bool {
	switch msg.Type {
	case dto.MessageTypeAudio, dto.MessageTypeAudioStream, dto.MessageTypeAudioStreamStop:
		return true
	}
	return msg.AudioChunk != ""
}
