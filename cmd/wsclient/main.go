package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

type SessionResponse struct {
	Token     string    `json:"token"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type serverMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Code      string `json:"error_code"`
	Message   string `json:"message"`
	State     struct {
		SelectedLanguage string `json:"selected_language"`
		Loading          bool   `json:"loading"`
		Error            string `json:"error"`
		Transcript       string `json:"transcript"`
		Translation      string `json:"translation"`
		Audio            *struct {
			URL      string `json:"url"`
			MIMEType string `json:"mime_type"`
		} `json:"audio"`
	} `json:"state"`
}

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "server base URL")
	audioFile := flag.String("file", "sample_audio.wav", "recording to translate (wav, webm, ogg, mp3)")
	language := flag.String("language", "", "target language, e.g. hi or ta; empty keeps the default")
	chunkSize := flag.Int("chunk", 4096, "bytes per binary frame")
	output := flag.String("out", "translation_audio", "where to write the synthesized audio, extension is added")
	flag.Parse()

	base, err := url.Parse(*serverURL)
	if err != nil {
		log.Fatalf("Invalid server URL: %v", err)
	}

	recording, err := os.ReadFile(*audioFile)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *audioFile, err)
	}
	mimeType := mime.TypeByExtension(filepath.Ext(*audioFile))
	if mimeType == "" || !strings.HasPrefix(mimeType, "audio/") {
		mimeType = "audio/wav"
	}

	// Step 1: Get session token
	fmt.Println("Step 1: Creating session...")

	resp, err := http.Post(base.JoinPath("/api/v1/sessions").String(), "application/json", nil)
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		log.Fatalf("Session creation failed with status: %d", resp.StatusCode)
	}

	var session SessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		log.Fatalf("Failed to decode session response: %v", err)
	}

	fmt.Printf("✓ Session %s created, expires %s\n", session.SessionID, session.ExpiresAt.Format(time.RFC3339))

	// Step 2: Connect to WebSocket with token
	fmt.Println("Step 2: Connecting to WebSocket...")

	wsURL := *base
	wsURL.Scheme = "ws"
	if base.Scheme == "https" {
		wsURL.Scheme = "wss"
	}
	wsURL.Path = "/ws"
	q := wsURL.Query()
	q.Set("token", session.Token)
	wsURL.RawQuery = q.Encode()

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		if resp != nil {
			log.Fatalf("WebSocket connection failed with status %d: %v", resp.StatusCode, err)
		}
		log.Fatalf("WebSocket connection failed: %v", err)
	}
	defer conn.Close()

	initial := readMessage(conn)
	fmt.Printf("✓ Connected, selected language: %s\n", initial.State.SelectedLanguage)

	// Step 3: Change language
	if *language != "" && *language != initial.State.SelectedLanguage {
		fmt.Printf("Step 3: Changing language to %s...\n", *language)
		send(conn, map[string]string{"type": "language_change", "language": *language})

		msg := readMessage(conn)
		if msg.Type == "error" {
			log.Fatalf("Language change rejected: %s", msg.Message)
		}
		fmt.Printf("✓ Selected language: %s\n", msg.State.SelectedLanguage)
	}

	// Step 4: Stream the recording
	fmt.Printf("Step 4: Streaming %d bytes of %s...\n", len(recording), mimeType)

	send(conn, map[string]string{"type": "recording_start", "mime_type": mimeType})
	for start := 0; start < len(recording); start += *chunkSize {
		end := min(start+*chunkSize, len(recording))
		if err := conn.WriteMessage(websocket.BinaryMessage, recording[start:end]); err != nil {
			log.Fatalf("Failed to send audio chunk: %v", err)
		}
	}
	send(conn, map[string]string{"type": "recording_end"})

	// Step 5: Follow state until the run finishes
	fmt.Println("Step 5: Waiting for translation...")

	started := time.Now()
	for {
		msg := readMessage(conn)
		if msg.Type == "error" {
			log.Fatalf("Server error %s: %s", msg.Code, msg.Message)
		}
		if msg.Type != "state" {
			continue
		}

		state := msg.State
		fmt.Printf("  loading=%t transcript=%q translation=%q\n", state.Loading, state.Transcript, state.Translation)
		if state.Loading {
			continue
		}
		if state.Error != "" {
			log.Fatalf("Translation failed: %s", state.Error)
		}
		if state.Audio == nil {
			continue
		}

		fmt.Printf("✓ Translated in %s\n", time.Since(started).Round(time.Millisecond))
		path := download(base, state.Audio.URL, state.Audio.MIMEType, *output)
		fmt.Printf("✓ Audio written to %s\n", path)
		return
	}
}

func send(conn *websocket.Conn, msg interface{}) {
	if err := conn.WriteJSON(msg); err != nil {
		log.Fatalf("Failed to send message: %v", err)
	}
}

func readMessage(conn *websocket.Conn) serverMessage {
	conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	var msg serverMessage
	if err := conn.ReadJSON(&msg); err != nil {
		log.Fatalf("Failed to read message: %v", err)
	}
	return msg
}

func download(base *url.URL, audioURL, mimeType, output string) string {
	ref, err := url.Parse(audioURL)
	if err != nil {
		log.Fatalf("Invalid audio URL %s: %v", audioURL, err)
	}

	resp, err := http.Get(base.ResolveReference(ref).String())
	if err != nil {
		log.Fatalf("Failed to download audio: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Fatalf("Audio download failed with status: %d", resp.StatusCode)
	}

	ext := ".wav"
	if exts, _ := mime.ExtensionsByType(mimeType); len(exts) > 0 {
		ext = exts[0]
	}
	path := output + ext

	file, err := os.Create(path)
	if err != nil {
		log.Fatalf("Failed to create %s: %v", path, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		log.Fatalf("Failed to write audio: %v", err)
	}
	return path
}
