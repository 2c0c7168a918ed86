// Command simulator exercises a running server the way a browser client
// would: it opens a session, dials the WebSocket, starts the microphone
// and camera streams, and pushes synthetic ambient telemetry.
package main

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
)

type sessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	ClientID  string    `json:"client_id"`
}

func main() {
	host := os.Getenv("SPOTMUSIC_HOST")
	if host == "" {
		host = "localhost:8080"
	}

	token, clientID, err := openSession(host)
	if err != nil {
		log.Fatal("Failed to open session:", err)
	}
	log.Printf("Session established for client: %s", clientID)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	u := url.URL{Scheme: "ws", Host: host, Path: "/ws", RawQuery: "token=" + url.QueryEscape(token)}
	log.Printf("connecting to %s", u.Host+u.Path)

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer c.Close()

	done := make(chan struct{})
	go handleIncomingMessage(c, done)

	if err := streamTelemetry(c); err != nil {
		log.Printf("Telemetry stream error: %v", err)
	}

	select {
	case <-done:
		return
	case <-interrupt:
		log.Println("interrupt")
		err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		if err != nil {
			log.Println("write close:", err)
			return
		}
		select {
		case <-done:
		case <-time.After(time.Second):
		}
		return
	}
}

func openSession(host string) (string, string, error) {
	resp, err := http.Post("http://"+host+"/api/v1/session", "application/json", nil)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("session request failed: %s", string(body))
	}

	var session sessionResponse
	if err := json.Unmarshal(body, &session); err != nil {
		return "", "", err
	}
	return session.Token, session.ClientID, nil
}

func streamTelemetry(c *websocket.Conn) error {
	// Start the sensor streams the server expects before any frames.
	for _, sensor := range []string{"microphone", "camera"} {
		if err := sendJSONMessage(c, map[string]interface{}{
			"type":   "sensor_start",
			"sensor": sensor,
		}); err != nil {
			return err
		}
	}

	// One location fix so the snapshot picks up weather context.
	if err := sendJSONMessage(c, map[string]interface{}{
		"type":      "location",
		"latitude":  40.712,
		"longitude": -74.006,
	}); err != nil {
		return err
	}

	log.Println("🎙️ Streaming synthetic microphone and camera frames")

	// Sweep the microphone through quiet, moderate and loud passages,
	// pulsing the amplitude so a tempo emerges, while the camera frames
	// brighten from dim to radiant.
	const frames = 120
	for i := 0; i < frames; i++ {
		amplitude := 0.01 + 0.14*float64(i)/frames
		if i%4 < 2 {
			amplitude *= 3 // beat pulse, roughly 150 BPM at 100ms frames
		}
		if err := c.WriteMessage(websocket.BinaryMessage, audioFrame(amplitude, 2048)); err != nil {
			return err
		}

		if i%6 == 0 {
			brightness := uint8(30 + 180*i/frames)
			if err := sendJSONMessage(c, videoFrameMessage(brightness)); err != nil {
				return err
			}
		}
		time.Sleep(100 * time.Millisecond)
	}

	log.Println("✅ Telemetry sweep complete, watching server updates...")
	return sendJSONMessage(c, map[string]interface{}{"type": "ping"})
}

// audioFrame renders one sine frame as little-endian float32 samples.
func audioFrame(amplitude float64, samples int) []byte {
	buf := new(bytes.Buffer)
	for i := 0; i < samples; i++ {
		sample := amplitude * math.Sin(2*math.Pi*440*float64(i)/44100)
		binary.Write(buf, binary.LittleEndian, float32(sample))
	}
	return buf.Bytes()
}

// videoFrameMessage builds a 24x24 frame of uniform warm gray.
func videoFrameMessage(brightness uint8) map[string]interface{} {
	pixels := make([]byte, 24*24*3)
	for i := 0; i < len(pixels); i += 3 {
		pixels[i] = brightness
		pixels[i+1] = brightness
		if brightness > 20 {
			pixels[i+2] = brightness - 20 // warm cast
		}
	}
	return map[string]interface{}{
		"type":   "video_frame",
		"width":  24,
		"height": 24,
		"pixels": base64.StdEncoding.EncodeToString(pixels),
	}
}

func sendJSONMessage(c *websocket.Conn, message map[string]interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, data)
}

func handleIncomingMessage(c *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		messageType, message, err := c.ReadMessage()
		if err != nil {
			log.Println("read:", err)
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg map[string]interface{}
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Println("unmarshal error:", err)
			continue
		}

		switch msg["type"] {
		case "surface_command":
			log.Printf("🎵 Surface command: %v %v", msg["action"], msg["videoId"])
		case "update":
			log.Printf("📊 Update (%v): %s", msg["kind"], string(message))
		case "error":
			log.Printf("⚠️ Server error: %v", msg["message"])
		case "pong":
			log.Println("pong")
		default:
			log.Printf("Received message: %s", string(message))
		}
	}
}
