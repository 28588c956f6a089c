package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"log"
	"time"

	fcolor "github.com/fatih/color"
	"github.com/gorilla/websocket"
)

// Simulation client for the video-caption websocket endpoint. It streams
// synthetic JPEG frames and silent PCM audio, then prints whatever the server
// pushes back.

var (
	addr     = flag.String("addr", "ws://localhost:3000/ws/video-caption", "websocket endpoint")
	fps      = flag.Int("fps", 24, "frames per second to send")
	duration = flag.Duration("duration", 25*time.Second, "how long to stream")
	width    = flag.Int("width", 320, "frame width")
	height   = flag.Int("height", 240, "frame height")
	rate     = flag.Int("rate", 24000, "audio sample rate")
)

func main() {
	flag.Parse()

	fmt.Println("=== Livestream Simulation Client ===")
	fmt.Printf("Connecting to %s\n", *addr)

	conn, _, err := websocket.DefaultDialer.Dial(*addr, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	go readLoop(conn)

	frameTicker := time.NewTicker(time.Second / time.Duration(*fps))
	defer frameTicker.Stop()
	audioTicker := time.NewTicker(100 * time.Millisecond)
	defer audioTicker.Stop()
	deadline := time.After(*duration)

	// 100ms of silent linear16 mono
	audioChunk := base64.StdEncoding.EncodeToString(make([]byte, *rate/10*2))

	frame := 0
	for {
		select {
		case <-frameTicker.C:
			payload := map[string]interface{}{
				"image":     "data:image/jpeg;base64," + renderFrame(frame),
				"processor": 1,
			}
			if err := conn.WriteJSON(payload); err != nil {
				log.Fatalf("Frame write failed: %v", err)
			}
			frame++
		case <-audioTicker.C:
			payload := map[string]interface{}{
				"type":        "audio_stream",
				"audio_chunk": audioChunk,
			}
			if err := conn.WriteJSON(payload); err != nil {
				log.Fatalf("Audio write failed: %v", err)
			}
		case <-deadline:
			fmt.Printf("\nSent %d frames, stopping stream\n", frame)
			_ = conn.WriteJSON(map[string]interface{}{"type": "audio_stream_stop"})
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			time.Sleep(2 * time.Second)
			return
		}
	}
}

// renderFrame produces a base64 JPEG with a sliding gradient so consecutive
// frames differ visibly in the encoded clips.
func renderFrame(n int) string {
	img := image.NewRGBA(image.Rect(0, 0, *width, *height))
	for y := 0; y < *height; y++ {
		for x := 0; x < *width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x + n*4) % 256),
				G: uint8((y + n*2) % 256),
				B: uint8(n % 256),
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		log.Fatalf("Frame encode failed: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func readLoop(conn *websocket.Conn) {
	transcript := fcolor.New(fcolor.FgGreen)
	caption := fcolor.New(fcolor.FgCyan)
	status := fcolor.New(fcolor.FgYellow)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg map[string]interface{}
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}

		switch msg["type"] {
		case "transcript":
			transcript.Printf("[transcript] %v (final=%v, %v)\n", msg["text"], msg["is_final"], msg["speaker"])
		case "moondream_caption":
			caption.Printf("[caption] %v (frame %v)\n", msg["description"], msg["frame_number"])
		default:
			status.Printf("[server] %s\n", raw)
		}
	}
}
