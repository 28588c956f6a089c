package stream

import (
	"context"
	"sync"
	"time"

	"ai-livestream-be/internal/entity"
	"ai-livestream-be/pkg/events"
	"ai-livestream-be/pkg/stt"
	"ai-livestream-be/pkg/vision"
)

type fakeSender struct {
	mu      sync.Mutex
	msgs    []interface{}
	sendErr error
}

func (f *fakeSender) SendJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.msgs = append(f.msgs, v)
	return nil
}

func (f *fakeSender) sent() []interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]interface{}(nil), f.msgs...)
}

type fakeTranscriber struct {
	mu        sync.Mutex
	startErr  error
	active    bool
	sent      [][]byte
	finishes  int
	events    chan stt.TranscriptEvent
	closeOnce sync.Once
}

func newFakeTranscriber() *fakeTranscriber {
	return &fakeTranscriber{events: make(chan stt.TranscriptEvent, 16)}
}

func (f *fakeTranscriber) Start(ctx context.Context) error {
	if f.startErr != nil {
		f.closeOnce.Do(func() { close(f.events) })
		return f.startErr
	}
	f.mu.Lock()
	f.active = true
	f.mu.Unlock()
	return nil
}

func (f *fakeTranscriber) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *fakeTranscriber) Send(audio []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, audio)
	return nil
}

func (f *fakeTranscriber) Finish() error {
	f.mu.Lock()
	f.active = false
	f.finishes++
	f.mu.Unlock()
	f.closeOnce.Do(func() { close(f.events) })
	return nil
}

func (f *fakeTranscriber) Events() <-chan stt.TranscriptEvent {
	return f.events
}

func (f *fakeTranscriber) Close() error {
	f.mu.Lock()
	f.active = false
	f.mu.Unlock()
	f.closeOnce.Do(func() { close(f.events) })
	return nil
}

func (f *fakeTranscriber) emit(ev stt.TranscriptEvent) {
	f.events <- ev
}

func (f *fakeTranscriber) sentChunks() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.sent...)
}

func (f *fakeTranscriber) finishCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finishes
}

// fakeCaptioner captions every Nth frame it sees, like the real throttle.
type fakeCaptioner struct {
	mu     sync.Mutex
	everyN int
	count  int
	err    error
}

func (f *fakeCaptioner) Describe(ctx context.Context, jpegBytes []byte) (*vision.Caption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	if f.count%f.everyN != 0 {
		return nil, nil
	}
	if f.err != nil {
		return nil, f.err
	}
	return &vision.Caption{
		Timestamp:   time.Now(),
		Description: "a test scene",
		FrameNumber: f.count,
	}, nil
}

type storedObject struct {
	key         string
	body        []byte
	contentType string
}

type fakeBlobStore struct {
	mu         sync.Mutex
	configured bool
	putErr     error
	objects    []storedObject
}

func (f *fakeBlobStore) Configured() bool { return f.configured }

func (f *fakeBlobStore) Put(ctx context.Context, key string, body []byte, contentType string, metadata map[string]string) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects = append(f.objects, storedObject{key: key, body: body, contentType: contentType})
	return nil
}

func (f *fakeBlobStore) stored() []storedObject {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]storedObject(nil), f.objects...)
}

type fakeClipRepo struct {
	mu        sync.Mutex
	createErr error
	clips     []*entity.VideoClip
}

func (f *fakeClipRepo) Create(ctx context.Context, clip *entity.VideoClip) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	clip.Id = uint(len(f.clips) + 1)
	f.clips = append(f.clips, clip)
	return nil
}

func (f *fakeClipRepo) FindAtTime(ctx context.Context, sessionId string, target time.Time) (*entity.VideoClip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.clips {
		if c.SessionId == sessionId && !target.Before(c.StartTime) && !target.After(c.EndTime) {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeClipRepo) FindInRange(ctx context.Context, sessionId string, start, end time.Time) ([]*entity.VideoClip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.VideoClip
	for _, c := range f.clips {
		if c.SessionId == sessionId && !c.StartTime.After(end) && !c.EndTime.Before(start) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeClipRepo) FindBySession(ctx context.Context, sessionId string) ([]*entity.VideoClip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.VideoClip
	for _, c := range f.clips {
		if c.SessionId == sessionId {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeClipRepo) all() []*entity.VideoClip {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*entity.VideoClip(nil), f.clips...)
}

type memoryEntry struct {
	content  string
	userId   string
	metadata map[string]interface{}
}

type fakeMemoryStore struct {
	mu      sync.Mutex
	entries []memoryEntry
}

func (f *fakeMemoryStore) Add(ctx context.Context, content, userId string, metadata map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, memoryEntry{content: content, userId: userId, metadata: metadata})
	return nil
}

func (f *fakeMemoryStore) added() []memoryEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]memoryEntry(nil), f.entries...)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (f *fakePublisher) Publish(ctx context.Context, e events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

func (f *fakePublisher) published() []events.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]events.Event(nil), f.events...)
}

// scriptedReader feeds a fixed sequence of raw messages and then an error.
type scriptedReader struct {
	mu       sync.Mutex
	messages [][]byte
	finalErr error
}

func (r *scriptedReader) ReadMessage() (int, []byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return 0, nil, r.finalErr
	}
	msg := r.messages[0]
	r.messages = r.messages[1:]
	return 1, msg, nil
}
