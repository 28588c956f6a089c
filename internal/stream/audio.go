package stream

import (
	"context"
	"encoding/base64"
	"time"

	"ai-livestream-be/internal/dto"
	"ai-livestream-be/internal/pkg/logger"

	"ai-livestream-be/pkg/stt"
)

const transcriberDrainTimeout = 3 * time.Second

// AudioProcessor drains the audio lane queue, feeds decoded PCM chunks to the
// transcriber and pushes transcript events back to the client. It owns the
// transcriber teardown: once the queue is closed and drained it finishes the
// upstream connection, waits briefly for the last final segments, and closes.
type AudioProcessor struct {
	sessionId   string
	queue       *Queue[dto.StreamMessage]
	transcriber Transcriber
	client      ClientSender
	bus         *AnnotationBus
	log         logger.ILogger

	ackSent       bool
	droppedChunks int
}

func NewAudioProcessor(sessionId string, queue *Queue[dto.StreamMessage], transcriber Transcriber, client ClientSender, bus *AnnotationBus, log logger.ILogger) *AudioProcessor {
	return &AudioProcessor{
		sessionId:   sessionId,
		queue:       queue,
		transcriber: transcriber,
		client:      client,
		bus:         bus,
		log:         log,
	}
}

func (p *AudioProcessor) Run(ctx context.Context) error {
	done := make(chan struct{})
	if events := p.transcriber.Events(); events != nil {
		go func() {
			defer close(done)
			p.forwardTranscripts(events)
		}()
	} else {
		close(done)
	}

	for {
		msg, ok := p.queue.Get(ctx)
		if !ok {
			break
		}
		p.handle(msg)
	}

	// Ask upstream to flush its final segments before cutting the socket.
	if p.transcriber.Active() {
		if err := p.transcriber.Finish(); err != nil {
			p.log.Warn("AudioLane", "Transcriber finish failed", map[string]interface{}{
				"session_id": p.sessionId, "error": err.Error(),
			})
		}
	}
	select {
	case <-done:
	case <-time.After(transcriberDrainTimeout):
		p.log.Warn("AudioLane", "Timed out waiting for final transcripts", map[string]interface{}{
			"session_id": p.sessionId,
		})
	}
	_ = p.transcriber.Close()
	<-done

	p.log.Info("AudioLane", "Audio lane finished", map[string]interface{}{"session_id": p.sessionId})
	return nil
}

func (p *AudioProcessor) handle(msg dto.StreamMessage) {
	if msg.Type == dto.MessageTypeAudioStreamStop {
		if !p.transcriber.Active() {
			p.log.Info("AudioLane", "Stop received with no active transcription", map[string]interface{}{
				"session_id": p.sessionId,
			})
			return
		}
		p.log.Info("AudioLane", "Audio stream stopped by client", map[string]interface{}{
			"session_id": p.sessionId,
		})
		if err := p.transcriber.Finish(); err != nil {
			p.log.Warn("AudioLane", "Transcriber finish failed", map[string]interface{}{
				"session_id": p.sessionId, "error": err.Error(),
			})
		}
		return
	}

	encoded := msg.AudioChunk
	if encoded == "" {
		encoded = msg.Audio
	}
	if encoded == "" {
		return
	}

	chunk, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		p.log.Warn("AudioLane", "Discarding undecodable audio chunk", map[string]interface{}{
			"session_id": p.sessionId, "error": err.Error(),
		})
		return
	}

	if !p.transcriber.Active() {
		p.droppedChunks++
		if p.droppedChunks == 1 || p.droppedChunks%100 == 0 {
			p.log.Warn("AudioLane", "Dropping audio, transcriber inactive", map[string]interface{}{
				"session_id": p.sessionId, "dropped": p.droppedChunks,
			})
		}
		return
	}

	if err := p.transcriber.Send(chunk); err != nil {
		p.log.Warn("AudioLane", "Failed to forward audio chunk", map[string]interface{}{
			"session_id": p.sessionId, "error": err.Error(),
		})
		return
	}

	if !p.ackSent {
		p.ackSent = true
		if err := p.client.SendJSON(dto.StatusMessage{Status: "audio_recording_started", SessionId: p.sessionId}); err != nil {
			p.log.Warn("AudioLane", "Failed to send recording ack", map[string]interface{}{
				"session_id": p.sessionId, "error": err.Error(),
			})
		}
	}
}

func (p *AudioProcessor) forwardTranscripts(events <-chan stt.TranscriptEvent) {
	for ev := range events {
		if ev.Text == "" {
			continue
		}
		if err := p.client.SendJSON(dto.TranscriptMessage{
			Type:    "transcript",
			Text:    ev.Text,
			IsFinal: ev.IsFinal,
			Speaker: ev.Speaker,
		}); err != nil {
			p.log.Warn("AudioLane", "Failed to push transcript", map[string]interface{}{
				"session_id": p.sessionId, "error": err.Error(),
			})
		}
		if ev.IsFinal && p.bus != nil {
			if err := p.bus.PublishTranscript(TranscriptAnnotation{
				SessionId: p.sessionId,
				Timestamp: time.Now().UTC(),
				Text:      ev.Text,
				Speaker:   ev.Speaker,
			}); err != nil {
				p.log.Warn("AudioLane", "Failed to publish transcript annotation", map[string]interface{}{
					"session_id": p.sessionId, "error": err.Error(),
				})
			}
		}
	}
}
