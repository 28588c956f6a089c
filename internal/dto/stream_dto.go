package dto

// StreamMessage is one inbound websocket message. Two client formats are
// accepted: the explicit {type, payload} envelope and the glasses format
// that carries an image key (plus processor id) with no type field.
type StreamMessage struct {
	Type       string `json:"type,omitempty"`
	Image      string `json:"image,omitempty"`
	Audio      string `json:"audio,omitempty"`
	AudioChunk string `json:"audio_chunk,omitempty"`
	Processor  *int   `json:"processor,omitempty"`
}

const (
	MessageTypeImage           = "image"
	MessageTypeAudio           = "audio"
	MessageTypeAudioStream     = "audio_stream"
	MessageTypeAudioStreamStop = "audio_stream_stop"
)

// TranscriptMessage is the outbound transcript push.
type TranscriptMessage struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	IsFinal bool   `json:"is_final"`
	Speaker string `json:"speaker"`
}

// CaptionMessage is the outbound scene-description push. ClipKey references
// the most recently persisted clip, when one exists.
type CaptionMessage struct {
	Type        string `json:"type"`
	Timestamp   string `json:"timestamp"`
	Description string `json:"description"`
	FrameNumber int    `json:"frame_number"`
	ClipKey     string `json:"clip_key,omitempty"`
}

// StatusMessage acknowledges stream lifecycle changes to the client.
type StatusMessage struct {
	Status    string `json:"status"`
	SessionId string `json:"session_id"`
}
