package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"ai-livestream-be/internal/pkg/logger"

	"github.com/gorilla/websocket"
)

// TranscriptEvent is one utterance fragment emitted by the transcription
// collaborator, in emission order.
type TranscriptEvent struct {
	Text    string
	IsFinal bool
	Speaker string
}

const (
	deepgramHost      = "api.deepgram.com"
	keepAliveInterval = 5 * time.Second
)

// Deepgram streams linear16 PCM to the Deepgram realtime API and emits
// transcript events on a channel. One instance serves one session.
type Deepgram struct {
	apiKey     string
	sampleRate int
	log        logger.ILogger

	scheme string // wss in production, ws against a test server
	host   string

	writeMu sync.Mutex
	conn    *websocket.Conn

	mu      sync.Mutex
	active  bool
	started bool
	events  chan TranscriptEvent
	done    chan struct{}

	closeOnce sync.Once
}

func NewDeepgram(apiKey string, sampleRate int, log logger.ILogger) *Deepgram {
	return &Deepgram{
		apiKey:     apiKey,
		sampleRate: sampleRate,
		log:        log,
		scheme:     "wss",
		host:       deepgramHost,
		events:     make(chan TranscriptEvent, 64),
		done:       make(chan struct{}),
	}
}

// NewDeepgramWithHost is used by tests to point at a local fake server.
func NewDeepgramWithHost(apiKey, scheme, host string, sampleRate int, log logger.ILogger) *Deepgram {
	d := NewDeepgram(apiKey, sampleRate, log)
	d.scheme = scheme
	d.host = host
	return d
}

// deepgramResult mirrors the realtime API's Results payload.
type deepgramResult struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
			Words      []struct {
				Word    string `json:"word"`
				Speaker *int   `json:"speaker"`
			} `json:"words"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// Start dials the realtime endpoint and begins the receive loop. Must be
// called before the first Send.
func (d *Deepgram) Start(ctx context.Context) error {
	if d.apiKey == "" {
		return fmt.Errorf("DEEPGRAM_API_KEY not configured")
	}

	q := url.Values{}
	q.Set("model", "nova-3")
	q.Set("language", "en-US")
	q.Set("smart_format", "true")
	q.Set("interim_results", "true")
	q.Set("diarize", "true")
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(d.sampleRate))
	q.Set("channels", "1")

	u := url.URL{Scheme: d.scheme, Host: d.host, Path: "/v1/listen", RawQuery: q.Encode()}
	header := http.Header{"Authorization": {"Token " + d.apiKey}}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return fmt.Errorf("deepgram dial: %w", err)
	}

	d.mu.Lock()
	d.conn = conn
	d.active = true
	d.started = true
	d.mu.Unlock()

	d.log.Info("Deepgram", "Connected", map[string]interface{}{
		"model": "nova-3", "sample_rate": d.sampleRate, "diarize": true,
	})

	go d.receiveLoop()
	go d.keepAliveLoop()

	return nil
}

// Active reports whether a transcription session is currently open.
func (d *Deepgram) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// Send forwards one chunk of raw PCM audio.
func (d *Deepgram) Send(audio []byte) error {
	d.mu.Lock()
	conn, active := d.conn, d.active
	d.mu.Unlock()
	if conn == nil || !active {
		return fmt.Errorf("deepgram session not active")
	}

	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	return conn.WriteMessage(websocket.BinaryMessage, audio)
}

// Finish asks the API to flush pending results and close the stream. The
// processor stays usable for a later Close; Finish on an inactive session
// is a no-op.
func (d *Deepgram) Finish() error {
	d.mu.Lock()
	conn, active := d.conn, d.active
	d.active = false
	d.mu.Unlock()
	if conn == nil || !active {
		return nil
	}

	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`))
}

// Events yields transcript events in emission order. The channel closes when
// the upstream connection ends.
func (d *Deepgram) Events() <-chan TranscriptEvent {
	return d.events
}

// Close tears the connection down. Idempotent. If Start never succeeded the
// events channel is closed here so consumers never block on a dead session.
func (d *Deepgram) Close() error {
	d.mu.Lock()
	conn := d.conn
	started := d.started
	d.conn = nil
	d.active = false
	d.mu.Unlock()

	if !started {
		d.closeChannels()
	}
	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (d *Deepgram) closeChannels() {
	d.closeOnce.Do(func() {
		close(d.events)
		close(d.done)
	})
}

func (d *Deepgram) receiveLoop() {
	defer d.closeChannels()

	for {
		d.mu.Lock()
		conn := d.conn
		d.mu.Unlock()
		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			d.log.Info("Deepgram", "Receive loop ended", map[string]interface{}{"reason": err.Error()})
			d.mu.Lock()
			d.active = false
			d.mu.Unlock()
			return
		}

		var result deepgramResult
		if err := json.Unmarshal(data, &result); err != nil {
			d.log.Warn("Deepgram", "Unparseable message", map[string]interface{}{"error": err.Error()})
			continue
		}
		if result.Type != "Results" || len(result.Channel.Alternatives) == 0 {
			continue
		}

		alt := result.Channel.Alternatives[0]
		if alt.Transcript == "" {
			continue
		}

		speaker := "Speaker 0"
		if len(alt.Words) > 0 && alt.Words[0].Speaker != nil {
			speaker = fmt.Sprintf("Speaker %d", *alt.Words[0].Speaker)
		}

		d.events <- TranscriptEvent{
			Text:    alt.Transcript,
			IsFinal: result.IsFinal,
			Speaker: speaker,
		}
	}
}

func (d *Deepgram) keepAliveLoop() {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.done:
			return
		case <-ticker.C:
			d.mu.Lock()
			conn, active := d.conn, d.active
			d.mu.Unlock()
			if conn == nil || !active {
				return
			}
			d.writeMu.Lock()
			err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"KeepAlive"}`))
			d.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
