package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"ai-livestream-be/internal/pkg/logger"
)

const defaultQuestion = "Describe what you see in one short sentence."

// Caption is one scene description produced from a video frame.
type Caption struct {
	Timestamp   time.Time
	Description string
	FrameNumber int
}

// Moondream captions video frames over the hosted query API. The processor
// counts every frame it sees and only sends 1 in every N upstream; skipped
// frames return (nil, nil) so the caller treats them as "no annotation".
type Moondream struct {
	apiKey  string
	baseURL string
	everyN  int
	http    *http.Client
	log     logger.ILogger

	mu           sync.Mutex
	frameCounter int

	initOnce sync.Once
	enabled  bool
}

type queryRequest struct {
	ImageURL string `json:"image_url"`
	Question string `json:"question"`
}

type queryResponse struct {
	Answer string `json:"answer"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewMoondream(apiKey string, everyN int, log logger.ILogger) *Moondream {
	if everyN < 1 {
		everyN = 1
	}
	return &Moondream{
		apiKey:  apiKey,
		baseURL: "https://api.moondream.ai",
		everyN:  everyN,
		http:    &http.Client{Timeout: 60 * time.Second},
		log:     log,
	}
}

// NewMoondreamWithBaseURL is used by tests to point at a fake server.
func NewMoondreamWithBaseURL(apiKey, baseURL string, everyN int, log logger.ILogger) *Moondream {
	m := NewMoondream(apiKey, everyN, log)
	m.baseURL = baseURL
	return m
}

func (m *Moondream) ready() bool {
	m.initOnce.Do(func() {
		m.enabled = m.apiKey != ""
		if !m.enabled {
			m.log.Warn("Moondream", "MOONDREAM_API_KEY not set - captioning disabled", nil)
		}
	})
	return m.enabled
}

// Describe captions a JPEG frame. Frames that fall outside the 1-in-N
// throttle window return (nil, nil).
func (m *Moondream) Describe(ctx context.Context, jpegBytes []byte) (*Caption, error) {
	m.mu.Lock()
	m.frameCounter++
	frameNumber := m.frameCounter
	m.mu.Unlock()

	if frameNumber%m.everyN != 0 {
		return nil, nil
	}
	if !m.ready() {
		return nil, nil
	}

	reqBody := queryRequest{
		ImageURL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpegBytes),
		Question: defaultQuestion,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/v1/query", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Moondream-Auth", m.apiKey)

	resp, err := m.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result queryResponse
	if err := json.Unmarshal(bodyBytes, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("moondream error: %s", result.Error.Message)
	}

	return &Caption{
		Timestamp:   time.Now(),
		Description: result.Answer,
		FrameNumber: frameNumber,
	}, nil
}

// Reset clears the frame counter. Used between sessions in tests.
func (m *Moondream) Reset() {
	m.mu.Lock()
	m.frameCounter = 0
	m.mu.Unlock()
}
